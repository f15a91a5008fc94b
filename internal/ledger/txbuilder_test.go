package ledger

import (
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

func testParams() types.SuggestedParams {
	return types.SuggestedParams{
		Fee:             1000,
		FlatFee:         true,
		MinFee:          1000,
		FirstRoundValid: 1000,
		LastRoundValid:  2000,
		GenesisID:       "testnet-v1.0",
		GenesisHash:     make([]byte, 32),
	}
}

func TestBuildPaymentRejectsZeroAmount(t *testing.T) {
	sender := crypto.GenerateAccount().Address
	receiver := crypto.GenerateAccount().Address

	_, err := BuildPayment(PaymentIntent{
		Sender:   sender,
		Receiver: receiver,
	}, testParams())
	if err == nil {
		t.Fatal("expected zero-amount payment to be rejected")
	}
}

func TestBuildPayment(t *testing.T) {
	sender := crypto.GenerateAccount().Address
	receiver := crypto.GenerateAccount().Address

	txn, err := BuildPayment(PaymentIntent{
		Sender:           sender,
		Receiver:         receiver,
		AmountMicroAlgos: 1_000_000,
		Note:             []byte("r2e:deposit:test"),
	}, testParams())
	if err != nil {
		t.Fatalf("BuildPayment: %v", err)
	}

	if txn.Sender != sender {
		t.Errorf("sender = %s, want %s", txn.Sender, sender)
	}
	if txn.Receiver != receiver {
		t.Errorf("receiver = %s, want %s", txn.Receiver, receiver)
	}
	if uint64(txn.Amount) != 1_000_000 {
		t.Errorf("amount = %d, want 1000000", txn.Amount)
	}
}

func TestBuildAppNoOpRequiresAppID(t *testing.T) {
	sender := crypto.GenerateAccount().Address

	_, err := BuildAppNoOp(AppCallIntent{Sender: sender}, testParams())
	if err == nil {
		t.Fatal("expected missing app id to be rejected")
	}
}

func TestBuildAppOptInRequiresAppID(t *testing.T) {
	sender := crypto.GenerateAccount().Address

	_, err := BuildAppOptIn(AppCallIntent{Sender: sender}, testParams())
	if err == nil {
		t.Fatal("expected missing app id to be rejected")
	}
}

func TestBuildAppCreateRequiresPrograms(t *testing.T) {
	sender := crypto.GenerateAccount().Address

	_, err := BuildAppCreate(AppCreateIntent{Sender: sender}, testParams())
	if err == nil {
		t.Fatal("expected missing programs to be rejected")
	}
}

func TestBuildGroupedPair(t *testing.T) {
	sender := crypto.GenerateAccount().Address
	receiver := crypto.GenerateAccount().Address
	sp := testParams()

	payment, err := BuildPayment(PaymentIntent{
		Sender:           sender,
		Receiver:         receiver,
		AmountMicroAlgos: 10_000_000,
	}, sp)
	if err != nil {
		t.Fatalf("BuildPayment: %v", err)
	}

	call, err := BuildAppNoOp(AppCallIntent{
		Sender: sender,
		AppID:  7,
		Args:   [][]byte{[]byte("create_proposal")},
	}, sp)
	if err != nil {
		t.Fatalf("BuildAppNoOp: %v", err)
	}

	group, err := BuildGroupedPair(payment, call)
	if err != nil {
		t.Fatalf("BuildGroupedPair: %v", err)
	}
	if len(group) != 2 {
		t.Fatalf("group size = %d, want 2", len(group))
	}

	empty := types.Digest{}
	if group[0].Group == empty {
		t.Error("group id was not assigned")
	}
	if group[0].Group != group[1].Group {
		t.Error("group members carry different group ids")
	}
}

func TestUint64Codec(t *testing.T) {
	for _, v := range []uint64{0, 1, 255, 1 << 32, ^uint64(0)} {
		encoded := EncodeUint64(v)
		if len(encoded) != 8 {
			t.Fatalf("EncodeUint64(%d) length = %d, want 8", v, len(encoded))
		}
		decoded, err := DecodeUint64(encoded)
		if err != nil {
			t.Fatalf("DecodeUint64: %v", err)
		}
		if decoded != v {
			t.Errorf("round trip of %d came back as %d", v, decoded)
		}
	}
}

func TestDecodeUint64RejectsWrongLength(t *testing.T) {
	if _, err := DecodeUint64([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected short input to be rejected")
	}
}
