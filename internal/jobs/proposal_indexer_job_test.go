package jobs

import (
	"context"
	"encoding/base64"
	"testing"

	"report2earn/internal/ledger"
	"report2earn/internal/models"
	"report2earn/internal/repository"
	"report2earn/internal/services"

	sdkmodels "github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stateGateway serves canned application state; everything else is unused by
// the read-only sync path.
type stateGateway struct {
	state []sdkmodels.TealKeyValue
}

func (g *stateGateway) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	return types.SuggestedParams{}, nil
}

func (g *stateGateway) AccountInformation(ctx context.Context, address string) (sdkmodels.Account, error) {
	return sdkmodels.Account{}, nil
}

func (g *stateGateway) ApplicationGlobalState(ctx context.Context, appID uint64) ([]sdkmodels.TealKeyValue, error) {
	return g.state, nil
}

func (g *stateGateway) CompileProgram(ctx context.Context, source []byte) ([]byte, error) {
	return nil, nil
}

func (g *stateGateway) SendRawTransaction(ctx context.Context, stx []byte) (string, error) {
	return "", nil
}

func (g *stateGateway) WaitForConfirmation(ctx context.Context, txID string, waitRounds uint64) (sdkmodels.PendingTransactionInfoResponse, error) {
	return sdkmodels.PendingTransactionInfoResponse{}, nil
}

func uintEntry(key string, value uint64) sdkmodels.TealKeyValue {
	return sdkmodels.TealKeyValue{
		Key:   base64.StdEncoding.EncodeToString([]byte(key)),
		Value: sdkmodels.TealValue{Type: 2, Uint: value},
	}
}

func bytesEntry(key string, value []byte) sdkmodels.TealKeyValue {
	return sdkmodels.TealKeyValue{
		Key:   base64.StdEncoding.EncodeToString([]byte(key)),
		Value: sdkmodels.TealValue{Type: 1, Bytes: base64.StdEncoding.EncodeToString(value)},
	}
}

func setupTestRepo(t *testing.T) *repository.Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.Proposal{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return repository.NewRepository(db)
}

func TestSyncCachesProposals(t *testing.T) {
	creator := crypto.GenerateAccount().Address
	gateway := &stateGateway{state: []sdkmodels.TealKeyValue{
		uintEntry("proposal_count", 2),
		bytesEntry(ledger.ProposalFieldKey(1, "creator"), creator[:]),
		uintEntry(ledger.ProposalFieldKey(1, "yes_votes"), 4),
		uintEntry(ledger.ProposalFieldKey(1, "status"), 0),
		bytesEntry(ledger.ProposalFieldKey(2, "creator"), creator[:]),
		uintEntry(ledger.ProposalFieldKey(2, "yes_votes"), 1),
		uintEntry(ledger.ProposalFieldKey(2, "status"), 0),
	}}

	service := services.NewGovernanceService(gateway, ledger.GenerateLocalSigner(), services.GovernanceConfig{AppID: 77})
	repo := setupTestRepo(t)
	job := NewProposalIndexerJob(service, repo)
	ctx := context.Background()

	if err := job.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	cached, err := repo.ListProposals(ctx)
	if err != nil {
		t.Fatalf("ListProposals: %v", err)
	}
	if len(cached) != 2 {
		t.Fatalf("cached = %d, want 2", len(cached))
	}
	if cached[0].YesVotes != 4 {
		t.Errorf("proposal 1 yes votes = %d, want 4", cached[0].YesVotes)
	}

	// A second sync after the tally moved refreshes in place.
	gateway.state[2] = uintEntry(ledger.ProposalFieldKey(1, "yes_votes"), 9)
	if err := job.Sync(ctx); err != nil {
		t.Fatalf("second Sync: %v", err)
	}

	cached, err = repo.ListProposals(ctx)
	if err != nil {
		t.Fatalf("ListProposals: %v", err)
	}
	if len(cached) != 2 {
		t.Fatalf("cached after resync = %d, want 2", len(cached))
	}
	if cached[0].YesVotes != 9 {
		t.Errorf("proposal 1 yes votes after resync = %d, want 9", cached[0].YesVotes)
	}
}
