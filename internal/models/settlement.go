package models

import (
	"time"

	"github.com/google/uuid"
)

type SettlementTransactionType string

const (
	SettlementTransactionTypeDeposit SettlementTransactionType = "DEPOSIT"
	SettlementTransactionTypeAppCall SettlementTransactionType = "APP_CALL"
	SettlementTransactionTypePayout  SettlementTransactionType = "PAYOUT"
	SettlementTransactionTypeRefund  SettlementTransactionType = "REFUND"
)

type SettlementTransactionStatus string

const (
	SettlementTransactionStatusPending   SettlementTransactionStatus = "PENDING"
	SettlementTransactionStatusConfirmed SettlementTransactionStatus = "CONFIRMED"
	SettlementTransactionStatusFailed    SettlementTransactionStatus = "FAILED"
)

// SettlementTransaction is the audit record of a single ledger leg of a
// verification session.
type SettlementTransaction struct {
	ID               uint                        `gorm:"primaryKey" json:"id"`
	SessionID        uuid.UUID                   `gorm:"type:uuid;not null;index" json:"session_id"`
	TransactionType  SettlementTransactionType   `gorm:"size:20;not null" json:"transaction_type"`
	Sender           string                      `gorm:"size:58" json:"sender"`
	Receiver         string                      `gorm:"size:58" json:"receiver"`
	AmountMicroAlgos uint64                      `json:"amount_micro_algos"`
	TxID             string                      `gorm:"size:64;index" json:"tx_id"`
	Status           SettlementTransactionStatus `gorm:"size:20;default:PENDING;index" json:"status"`
	ConfirmedRound   uint64                      `json:"confirmed_round"`
	CreatedAt        time.Time                   `json:"created_at"`
	ConfirmedAt      *time.Time                  `json:"confirmed_at,omitempty"`
}

func (SettlementTransaction) TableName() string {
	return "settlement_transactions"
}
