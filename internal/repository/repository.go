package repository

import (
	"context"
	"errors"
	"time"

	"report2earn/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetOrCreateUser fetches the user for a wallet address, creating the row
// on first login.
func (r *Repository) GetOrCreateUser(ctx context.Context, walletAddress string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where(models.User{WalletAddress: walletAddress}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByAddress retrieves a user by wallet address, nil when absent.
func (r *Repository) GetUserByAddress(ctx context.Context, walletAddress string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("wallet_address = ?", walletAddress).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUserBalance refreshes the cached display balance for an address.
func (r *Repository) UpdateUserBalance(ctx context.Context, walletAddress string, microAlgos uint64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("wallet_address = ?", walletAddress).
		Updates(map[string]interface{}{
			"micro_algo_balance":  microAlgos,
			"last_balance_update": now,
		}).Error
}

// CreateSession persists a new verification session.
func (r *Repository) CreateSession(ctx context.Context, session *models.VerificationSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// GetSessionByID retrieves a session by id.
func (r *Repository) GetSessionByID(ctx context.Context, id uuid.UUID) (*models.VerificationSession, error) {
	var session models.VerificationSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateSession persists the session's current state.
func (r *Repository) UpdateSession(ctx context.Context, session *models.VerificationSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

// HasLiveSessionForAddress reports whether the address already owns a
// settlement cycle that has not reached a terminal state.
func (r *Repository) HasLiveSessionForAddress(ctx context.Context, walletAddress string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VerificationSession{}).
		Where("user_address = ? AND status IN ?", walletAddress, []models.SessionStatus{
			models.SessionStatusDepositing,
			models.SessionStatusVerifying,
			models.SessionStatusRefunding,
			models.SessionStatusClaiming,
		}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListSessionsByAddress returns the most recent sessions for an address.
func (r *Repository) ListSessionsByAddress(ctx context.Context, walletAddress string, limit int) ([]models.VerificationSession, error) {
	var sessions []models.VerificationSession
	query := r.db.WithContext(ctx).
		Where("user_address = ?", walletAddress).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// CreateSettlementTransaction records one ledger leg of a session.
func (r *Repository) CreateSettlementTransaction(ctx context.Context, tx *models.SettlementTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// ConfirmSettlementTransaction marks a recorded leg as confirmed.
func (r *Repository) ConfirmSettlementTransaction(ctx context.Context, txID string, confirmedRound uint64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.SettlementTransaction{}).
		Where("tx_id = ?", txID).
		Updates(map[string]interface{}{
			"status":          models.SettlementTransactionStatusConfirmed,
			"confirmed_round": confirmedRound,
			"confirmed_at":    now,
		}).Error
}

// GetSettlementTransactions returns the ledger legs recorded for a session.
func (r *Repository) GetSettlementTransactions(ctx context.Context, sessionID uuid.UUID) ([]models.SettlementTransaction, error) {
	var txs []models.SettlementTransaction
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// UpsertProposal inserts or refreshes one cached proposal record.
func (r *Repository) UpsertProposal(ctx context.Context, proposal *models.Proposal) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "proposal_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"creator", "start_round", "end_round",
			"yes_votes", "no_votes", "abstain_votes",
			"status", "description_hash", "description_fingerprint", "synced_at",
		}),
	}).Create(proposal).Error
}

// ListProposals returns cached proposals in id order.
func (r *Repository) ListProposals(ctx context.Context) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.WithContext(ctx).Order("proposal_id ASC").Find(&proposals).Error
	if err != nil {
		return nil, err
	}
	return proposals, nil
}
