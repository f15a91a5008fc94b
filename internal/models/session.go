package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusIdle       SessionStatus = "idle"
	SessionStatusDepositing SessionStatus = "depositing"
	SessionStatusVerifying  SessionStatus = "verifying"
	SessionStatusRefunding  SessionStatus = "refunding"
	SessionStatusClaiming   SessionStatus = "claiming"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusError      SessionStatus = "error"
)

// Live reports whether the session still owns the settlement flow for its
// address. Terminal and reset sessions are not live.
func (s SessionStatus) Live() bool {
	switch s {
	case SessionStatusDepositing, SessionStatusVerifying, SessionStatusRefunding, SessionStatusClaiming:
		return true
	}
	return false
}

// VerificationSession is one verification-and-reward cycle. Every state
// transition is persisted so a crash between the deposit and the payout
// leaves an inspectable record instead of a silently lost deposit.
type VerificationSession struct {
	ID                 uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserAddress        string        `gorm:"size:58;not null;index" json:"user_address"`
	ContentURL         string        `gorm:"size:2048" json:"content_url"`
	ContentFingerprint string        `gorm:"size:64;index" json:"content_fingerprint"`
	Status             SessionStatus `gorm:"size:20;not null;default:idle;index" json:"status"`
	UnsignedDeposit    string        `gorm:"type:text" json:"unsigned_deposit,omitempty"` // base64 msgpack, for the wallet boundary
	DepositTxID        string        `gorm:"size:64" json:"deposit_tx_id,omitempty"`
	AppCallTxID        string        `gorm:"size:64" json:"app_call_tx_id,omitempty"`
	PayoutTxID         string        `gorm:"size:64" json:"payout_tx_id,omitempty"`
	Decision           string        `gorm:"size:20" json:"decision,omitempty"`
	Confidence         float64       `json:"confidence"`
	PayoutMicroAlgos   uint64        `json:"payout_micro_algos"`
	ErrorMessage       string        `gorm:"size:1024" json:"error_message,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty"`
}

func (VerificationSession) TableName() string {
	return "verification_sessions"
}
