package ledger

import (
	"crypto/sha256"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// MicroAlgosPerAlgo is the ledger's smallest-unit scale.
const MicroAlgosPerAlgo = 1_000_000

var microAlgoScale = decimal.NewFromInt(MicroAlgosPerAlgo)

// AlgosToMicroAlgos converts a whole-ALGO amount to microAlgos, rounding
// half up so 0.000001 ALGO becomes exactly 1 microAlgo.
func AlgosToMicroAlgos(algos decimal.Decimal) uint64 {
	micro := algos.Mul(microAlgoScale).Round(0)
	if micro.IsNegative() {
		return 0
	}
	return uint64(micro.IntPart())
}

// MicroAlgosToAlgos converts microAlgos to a decimal ALGO amount for
// display.
func MicroAlgosToAlgos(micro uint64) decimal.Decimal {
	return decimal.NewFromUint64(micro).Div(microAlgoScale)
}

// Fingerprint renders a compact, URL-safe identifier for arbitrary content:
// the base58 encoding of its SHA-256 digest. Used as the API-facing short id
// for verification targets and proposal descriptions.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return base58.Encode(sum[:])
}

// DigestSHA256 returns the raw 32-byte digest used as the on-chain
// description hash argument.
func DigestSHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
