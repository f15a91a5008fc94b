package ledger

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Gateway is the thin adapter the rest of the system talks to the ledger
// through. Services depend on this interface so tests can count and fake
// node interactions.
type Gateway interface {
	SuggestedParams(ctx context.Context) (types.SuggestedParams, error)
	AccountInformation(ctx context.Context, address string) (models.Account, error)
	ApplicationGlobalState(ctx context.Context, appID uint64) ([]models.TealKeyValue, error)
	CompileProgram(ctx context.Context, source []byte) ([]byte, error)
	SendRawTransaction(ctx context.Context, stx []byte) (string, error)
	WaitForConfirmation(ctx context.Context, txID string, waitRounds uint64) (models.PendingTransactionInfoResponse, error)
}

// Client implements Gateway over an algod node.
type Client struct {
	algod   *algod.Client
	network string
}

// NewClient creates a ledger client for the given network. An explicit
// algod URL overrides the per-network default endpoints.
func NewClient(network, algodURL, algodToken string) (*Client, error) {
	if algodURL == "" {
		switch network {
		case "mainnet":
			algodURL = "https://mainnet-api.algonode.cloud"
		case "testnet":
			algodURL = "https://testnet-api.algonode.cloud"
		case "localnet":
			algodURL = "http://localhost:4001"
		default:
			algodURL = "https://testnet-api.algonode.cloud"
		}
	}

	c, err := algod.MakeClient(algodURL, algodToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create algod client: %w", err)
	}

	log.Printf("Ledger client initialized: network=%s endpoint=%s", network, algodURL)
	return &Client{algod: c, network: network}, nil
}

// Network returns the network name the client was configured for.
func (c *Client) Network() string {
	return c.network
}

// SuggestedParams fetches the current network parameters. Callers fetch
// fresh parameters per transaction leg rather than caching them.
func (c *Client) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	sp, err := c.algod.SuggestedParams().Do(ctx)
	if err != nil {
		return types.SuggestedParams{}, fmt.Errorf("failed to fetch suggested params: %w", err)
	}
	return sp, nil
}

// AccountInformation fetches balance, opted-in applications and local state
// for an address.
func (c *Client) AccountInformation(ctx context.Context, address string) (models.Account, error) {
	info, err := c.algod.AccountInformation(address).Do(ctx)
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to fetch account %s: %w", address, err)
	}
	return info, nil
}

// ApplicationGlobalState fetches the raw global key/value entries of a
// stateful application.
func (c *Client) ApplicationGlobalState(ctx context.Context, appID uint64) ([]models.TealKeyValue, error) {
	app, err := c.algod.GetApplicationByID(appID).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch application %d: %w", appID, err)
	}
	return app.Params.GlobalState, nil
}

// CompileProgram compiles TEAL source and returns the program bytes.
func (c *Client) CompileProgram(ctx context.Context, source []byte) ([]byte, error) {
	resp, err := c.algod.TealCompile(source).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("program compilation failed: %w", err)
	}

	program, err := base64.StdEncoding.DecodeString(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode compiled program: %w", err)
	}
	return program, nil
}

// SendRawTransaction broadcasts signed transaction bytes (a single
// transaction or a concatenated atomic group) and returns the transaction id.
func (c *Client) SendRawTransaction(ctx context.Context, stx []byte) (string, error) {
	txID, err := c.algod.SendRawTransaction(stx).Do(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	return txID, nil
}

// WaitForConfirmation blocks until the transaction is confirmed or
// waitRounds rounds have passed.
func (c *Client) WaitForConfirmation(ctx context.Context, txID string, waitRounds uint64) (models.PendingTransactionInfoResponse, error) {
	info, err := transaction.WaitForConfirmation(c.algod, txID, waitRounds, ctx)
	if err != nil {
		return models.PendingTransactionInfoResponse{}, fmt.Errorf("confirmation wait failed for %s: %w", txID, err)
	}
	if info.PoolError != "" {
		return info, fmt.Errorf("transaction %s rejected: %s", txID, info.PoolError)
	}
	return info, nil
}
