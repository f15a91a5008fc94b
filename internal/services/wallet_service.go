package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"report2earn/internal/ledger"
	"report2earn/internal/models"
	"report2earn/internal/repository"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// WalletService handles wallet login bookkeeping, balance refreshes and the
// application opt-in precondition for settlement participants.
type WalletService struct {
	repo       *repository.Repository
	gateway    ledger.Gateway
	appID      uint64
	waitRounds uint64
}

func NewWalletService(repo *repository.Repository, gateway ledger.Gateway, appID, waitRounds uint64) *WalletService {
	if waitRounds == 0 {
		waitRounds = 4
	}
	return &WalletService{repo: repo, gateway: gateway, appID: appID, waitRounds: waitRounds}
}

// ValidateAddress reports whether the string is a well-formed ledger
// address.
func (w *WalletService) ValidateAddress(address string) bool {
	_, err := types.DecodeAddress(address)
	return err == nil
}

// ConnectWallet registers (or fetches) the user for an address and seeds
// the cached balance.
func (w *WalletService) ConnectWallet(ctx context.Context, address string) (*models.User, error) {
	if !w.ValidateAddress(address) {
		return nil, fmt.Errorf("invalid wallet address format")
	}

	user, err := w.repo.GetOrCreateUser(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to register wallet: %w", err)
	}

	account, err := w.gateway.AccountInformation(ctx, address)
	if err != nil {
		log.Printf("Warning: could not fetch initial balance for %s: %v", address, err)
		return user, nil
	}
	if err := w.repo.UpdateUserBalance(ctx, address, account.Amount); err != nil {
		log.Printf("Warning: failed to cache balance for %s: %v", address, err)
	}
	user.MicroAlgoBalance = account.Amount

	log.Printf("Wallet connected: %s (balance: %s ALGO)", address, ledger.MicroAlgosToAlgos(account.Amount))
	return user, nil
}

// RefreshBalance re-reads the ledger balance and updates the cache.
func (w *WalletService) RefreshBalance(ctx context.Context, address string) (*models.User, error) {
	account, err := w.gateway.AccountInformation(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balance: %w", err)
	}
	if err := w.repo.UpdateUserBalance(ctx, address, account.Amount); err != nil {
		return nil, fmt.Errorf("failed to update balance cache: %w", err)
	}

	user, err := w.repo.GetUserByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("wallet not registered")
	}
	return user, nil
}

// OptInStatus reports whether the address holds local state for the
// verification application.
func (w *WalletService) OptInStatus(ctx context.Context, address string) (bool, error) {
	if w.appID == 0 {
		return true, nil
	}
	account, err := w.gateway.AccountInformation(ctx, address)
	if err != nil {
		return false, fmt.Errorf("failed to fetch account: %w", err)
	}
	return ledger.HasOptedIn(account, w.appID), nil
}

// BuildOptInTransaction produces the unsigned opt-in call for the wallet
// boundary, base64-msgpack encoded the way the session deposit leg is.
func (w *WalletService) BuildOptInTransaction(ctx context.Context, address string) (string, error) {
	if w.appID == 0 {
		return "", fmt.Errorf("no verification application configured")
	}
	sender, err := types.DecodeAddress(address)
	if err != nil {
		return "", fmt.Errorf("invalid address: %w", err)
	}

	sp, err := w.gateway.SuggestedParams(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch network parameters: %w", err)
	}

	txn, err := ledger.BuildAppOptIn(ledger.AppCallIntent{
		Sender: sender,
		AppID:  w.appID,
	}, sp)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(msgpack.Encode(&txn)), nil
}

// SubmitSignedOptIn broadcasts a wallet-signed opt-in and waits for
// confirmation.
func (w *WalletService) SubmitSignedOptIn(ctx context.Context, signedTxn []byte) (string, error) {
	txID, err := w.gateway.SendRawTransaction(ctx, signedTxn)
	if err != nil {
		return "", fmt.Errorf("opt-in broadcast failed: %w", err)
	}
	if _, err := w.gateway.WaitForConfirmation(ctx, txID, w.waitRounds); err != nil {
		return "", fmt.Errorf("opt-in confirmation failed: %w", err)
	}
	log.Printf("Application opt-in confirmed: tx=%s", txID)
	return txID, nil
}
