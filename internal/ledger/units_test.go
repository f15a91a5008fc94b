package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAlgosToMicroAlgos(t *testing.T) {
	cases := []struct {
		name  string
		algos string
		want  uint64
	}{
		{"whole algo", "1", 1_000_000},
		{"two and a half", "2.5", 2_500_000},
		{"smallest unit", "0.000001", 1},
		{"zero", "0", 0},
		{"sub-unit rounds half up", "0.0000005", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tc.algos)
			if err != nil {
				t.Fatalf("bad test input %q: %v", tc.algos, err)
			}
			got := AlgosToMicroAlgos(d)
			if got != tc.want {
				t.Errorf("AlgosToMicroAlgos(%s) = %d, want %d", tc.algos, got, tc.want)
			}
		})
	}
}

func TestAlgosToMicroAlgosNegativeClampsToZero(t *testing.T) {
	if got := AlgosToMicroAlgos(decimal.NewFromFloat(-1.5)); got != 0 {
		t.Errorf("negative amount = %d, want 0", got)
	}
}

func TestMicroAlgosToAlgosRoundTrip(t *testing.T) {
	for _, micro := range []uint64{1, 999_999, 1_000_000, 2_500_000} {
		algos := MicroAlgosToAlgos(micro)
		back := AlgosToMicroAlgos(algos)
		if back != micro {
			t.Errorf("round trip of %d microAlgos came back as %d", micro, back)
		}
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("https://example.com/report/1"))
	b := Fingerprint([]byte("https://example.com/report/1"))
	c := Fingerprint([]byte("https://example.com/report/2"))

	if a == "" {
		t.Fatal("fingerprint is empty")
	}
	if a != b {
		t.Errorf("fingerprint is not deterministic: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different content produced the same fingerprint")
	}
}

func TestDigestSHA256Length(t *testing.T) {
	if got := len(DigestSHA256([]byte("anything"))); got != 32 {
		t.Errorf("digest length = %d, want 32", got)
	}
}
