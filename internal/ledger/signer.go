package ledger

import (
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// TransactionSigner is the signing capability boundary. The browser wallet
// satisfies it on the user's side of the API; LocalSigner satisfies it for
// the custodial escrow and governance operator keys held by the service.
type TransactionSigner interface {
	Sign(txn types.Transaction) (txID string, stx []byte, err error)
	Address() types.Address
}

// LocalSigner signs with an in-process ed25519 key. It is always injected
// into the component that needs it, never held as package state.
type LocalSigner struct {
	account crypto.Account
}

// NewLocalSignerFromMnemonic restores a signer from a 25-word mnemonic.
func NewLocalSignerFromMnemonic(mn string) (*LocalSigner, error) {
	sk, err := mnemonic.ToPrivateKey(mn)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}

	account, err := crypto.AccountFromPrivateKey(sk)
	if err != nil {
		return nil, fmt.Errorf("failed to derive account: %w", err)
	}
	return &LocalSigner{account: account}, nil
}

// GenerateLocalSigner creates a throwaway signer. Only acceptable on
// non-mainnet networks; config.Load enforces that.
func GenerateLocalSigner() *LocalSigner {
	return &LocalSigner{account: crypto.GenerateAccount()}
}

// Sign signs the transaction and returns its id plus the signed bytes.
func (s *LocalSigner) Sign(txn types.Transaction) (string, []byte, error) {
	txID, stx, err := crypto.SignTransaction(s.account.PrivateKey, txn)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return txID, stx, nil
}

// Address returns the signer's ledger address.
func (s *LocalSigner) Address() types.Address {
	return s.account.Address
}

// Mnemonic exports the signer's key as a 25-word mnemonic. Used when a
// throwaway testnet key is generated so the operator can fund it.
func (s *LocalSigner) Mnemonic() (string, error) {
	return mnemonic.FromPrivateKey(s.account.PrivateKey)
}
