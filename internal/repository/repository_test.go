package repository

import (
	"context"
	"testing"
	"time"

	"report2earn/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.VerificationSession{},
		&models.SettlementTransaction{},
		&models.Proposal{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return NewRepository(db)
}

func TestGetOrCreateUser(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	address := "USER_ADDRESS_AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

	user, err := repo.GetOrCreateUser(ctx, address)
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	if user.ID == 0 {
		t.Error("user not assigned an id")
	}

	again, err := repo.GetOrCreateUser(ctx, address)
	if err != nil {
		t.Fatalf("second GetOrCreateUser: %v", err)
	}
	if again.ID != user.ID {
		t.Errorf("second call created a new user: %d vs %d", again.ID, user.ID)
	}
}

func TestGetUserByAddressReturnsNilWhenAbsent(t *testing.T) {
	repo := setupTestDB(t)

	user, err := repo.GetUserByAddress(context.Background(), "NOBODY")
	if err != nil {
		t.Fatalf("GetUserByAddress: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil for unknown address, got %+v", user)
	}
}

func TestUpdateUserBalance(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	address := "BALANCE_ADDRESS"

	if _, err := repo.GetOrCreateUser(ctx, address); err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	if err := repo.UpdateUserBalance(ctx, address, 7_500_000); err != nil {
		t.Fatalf("UpdateUserBalance: %v", err)
	}

	user, err := repo.GetUserByAddress(ctx, address)
	if err != nil {
		t.Fatalf("GetUserByAddress: %v", err)
	}
	if user.MicroAlgoBalance != 7_500_000 {
		t.Errorf("balance = %d, want 7500000", user.MicroAlgoBalance)
	}
	if user.LastBalanceUpdate == nil {
		t.Error("last balance update not stamped")
	}
}

func TestHasLiveSessionForAddress(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	address := "SESSION_ADDRESS"

	live, err := repo.HasLiveSessionForAddress(ctx, address)
	if err != nil {
		t.Fatalf("HasLiveSessionForAddress: %v", err)
	}
	if live {
		t.Error("empty table reported a live session")
	}

	session := &models.VerificationSession{
		ID:          uuid.New(),
		UserAddress: address,
		Status:      models.SessionStatusVerifying,
	}
	if err := repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	live, err = repo.HasLiveSessionForAddress(ctx, address)
	if err != nil {
		t.Fatalf("HasLiveSessionForAddress: %v", err)
	}
	if !live {
		t.Error("verifying session not reported as live")
	}

	session.Status = models.SessionStatusCompleted
	if err := repo.UpdateSession(ctx, session); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}

	live, err = repo.HasLiveSessionForAddress(ctx, address)
	if err != nil {
		t.Fatalf("HasLiveSessionForAddress: %v", err)
	}
	if live {
		t.Error("completed session still reported as live")
	}
}

func TestConfirmSettlementTransaction(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	sessionID := uuid.New()

	leg := &models.SettlementTransaction{
		SessionID:        sessionID,
		TransactionType:  models.SettlementTransactionTypeDeposit,
		AmountMicroAlgos: 1_000_000,
		TxID:             "TX1",
		Status:           models.SettlementTransactionStatusPending,
	}
	if err := repo.CreateSettlementTransaction(ctx, leg); err != nil {
		t.Fatalf("CreateSettlementTransaction: %v", err)
	}
	if err := repo.ConfirmSettlementTransaction(ctx, "TX1", 4321); err != nil {
		t.Fatalf("ConfirmSettlementTransaction: %v", err)
	}

	legs, err := repo.GetSettlementTransactions(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetSettlementTransactions: %v", err)
	}
	if len(legs) != 1 {
		t.Fatalf("legs = %d, want 1", len(legs))
	}
	if legs[0].Status != models.SettlementTransactionStatusConfirmed {
		t.Errorf("status = %s, want CONFIRMED", legs[0].Status)
	}
	if legs[0].ConfirmedRound != 4321 {
		t.Errorf("confirmed round = %d, want 4321", legs[0].ConfirmedRound)
	}
}

func TestUpsertProposalRefreshesExistingRecord(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	first := &models.Proposal{
		ProposalID: 1,
		Creator:    "CREATOR",
		YesVotes:   1,
		Status:     models.ProposalStatusActive,
		SyncedAt:   time.Now(),
	}
	if err := repo.UpsertProposal(ctx, first); err != nil {
		t.Fatalf("UpsertProposal: %v", err)
	}

	second := &models.Proposal{
		ProposalID: 1,
		Creator:    "CREATOR",
		YesVotes:   9,
		Status:     models.ProposalStatusPassed,
		SyncedAt:   time.Now(),
	}
	if err := repo.UpsertProposal(ctx, second); err != nil {
		t.Fatalf("second UpsertProposal: %v", err)
	}

	proposals, err := repo.ListProposals(ctx)
	if err != nil {
		t.Fatalf("ListProposals: %v", err)
	}
	if len(proposals) != 1 {
		t.Fatalf("proposals = %d, want 1 (conflict should update, not duplicate)", len(proposals))
	}
	if proposals[0].YesVotes != 9 {
		t.Errorf("yes votes = %d, want 9", proposals[0].YesVotes)
	}
	if proposals[0].Status != models.ProposalStatusPassed {
		t.Errorf("status = %d, want passed", proposals[0].Status)
	}
}

func TestListProposalsOrdersByProposalID(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []uint64{3, 1, 2} {
		proposal := &models.Proposal{ProposalID: id, Creator: "C", SyncedAt: time.Now()}
		if err := repo.UpsertProposal(ctx, proposal); err != nil {
			t.Fatalf("UpsertProposal(%d): %v", id, err)
		}
	}

	proposals, err := repo.ListProposals(ctx)
	if err != nil {
		t.Fatalf("ListProposals: %v", err)
	}
	for i, want := range []uint64{1, 2, 3} {
		if proposals[i].ProposalID != want {
			t.Errorf("position %d = proposal %d, want %d", i, proposals[i].ProposalID, want)
		}
	}
}
