package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// PaymentIntent describes a plain transfer of microAlgos.
type PaymentIntent struct {
	Sender           types.Address
	Receiver         types.Address
	AmountMicroAlgos uint64
	Note             []byte
}

// AppCallIntent describes an application call (opt-in or no-op) with
// ordered byte arguments.
type AppCallIntent struct {
	Sender types.Address
	AppID  uint64
	Args   [][]byte
}

// AppCreateIntent describes the creation of a stateful application.
type AppCreateIntent struct {
	Sender           types.Address
	ApprovalProgram  []byte
	ClearProgram     []byte
	GlobalUints      uint64
	GlobalByteSlices uint64
	LocalUints       uint64
	LocalByteSlices  uint64
	Args             [][]byte
}

// BuildPayment produces an unsigned payment transaction. The settlement
// flows never move zero microAlgos, so a zero amount is rejected here even
// though the ledger itself would accept it.
func BuildPayment(intent PaymentIntent, sp types.SuggestedParams) (types.Transaction, error) {
	if intent.AmountMicroAlgos == 0 {
		return types.Transaction{}, fmt.Errorf("payment amount must be greater than zero")
	}

	txn, err := transaction.MakePaymentTxn(
		intent.Sender.String(),
		intent.Receiver.String(),
		intent.AmountMicroAlgos,
		intent.Note,
		"",
		sp,
	)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("failed to build payment: %w", err)
	}
	return txn, nil
}

// BuildAppOptIn produces an unsigned application opt-in transaction,
// allocating local state for the sender.
func BuildAppOptIn(intent AppCallIntent, sp types.SuggestedParams) (types.Transaction, error) {
	if intent.AppID == 0 {
		return types.Transaction{}, fmt.Errorf("application id is required")
	}

	txn, err := transaction.MakeApplicationOptInTx(
		intent.AppID, intent.Args, nil, nil, nil,
		sp, intent.Sender, nil,
		types.Digest{}, [32]byte{}, types.Address{},
	)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("failed to build opt-in call: %w", err)
	}
	return txn, nil
}

// BuildAppNoOp produces an unsigned application no-op call.
func BuildAppNoOp(intent AppCallIntent, sp types.SuggestedParams) (types.Transaction, error) {
	if intent.AppID == 0 {
		return types.Transaction{}, fmt.Errorf("application id is required")
	}

	txn, err := transaction.MakeApplicationNoOpTx(
		intent.AppID, intent.Args, nil, nil, nil,
		sp, intent.Sender, nil,
		types.Digest{}, [32]byte{}, types.Address{},
	)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("failed to build application call: %w", err)
	}
	return txn, nil
}

// BuildAppCreate produces an unsigned application creation transaction.
func BuildAppCreate(intent AppCreateIntent, sp types.SuggestedParams) (types.Transaction, error) {
	if len(intent.ApprovalProgram) == 0 || len(intent.ClearProgram) == 0 {
		return types.Transaction{}, fmt.Errorf("approval and clear programs are required")
	}

	globalSchema := types.StateSchema{NumUint: intent.GlobalUints, NumByteSlice: intent.GlobalByteSlices}
	localSchema := types.StateSchema{NumUint: intent.LocalUints, NumByteSlice: intent.LocalByteSlices}

	txn, err := transaction.MakeApplicationCreateTx(
		false,
		intent.ApprovalProgram, intent.ClearProgram,
		globalSchema, localSchema,
		intent.Args, nil, nil, nil,
		sp, intent.Sender, nil,
		types.Digest{}, [32]byte{}, types.Address{},
	)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("failed to build application create: %w", err)
	}
	return txn, nil
}

// BuildGroupedPair stamps two transactions with a shared group id so the
// ledger treats them atomically. Both succeed or both fail as a unit.
func BuildGroupedPair(first, second types.Transaction) ([]types.Transaction, error) {
	grouped, err := transaction.AssignGroupID([]types.Transaction{first, second}, "")
	if err != nil {
		return nil, fmt.Errorf("failed to assign group id: %w", err)
	}
	return grouped, nil
}

// EncodeUint64 encodes an integer as the 8-byte big-endian application
// argument the voting contract expects.
func EncodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// DecodeUint64 is the inverse of EncodeUint64.
func DecodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("expected 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
