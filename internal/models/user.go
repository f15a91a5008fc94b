package models

import (
	"time"
)

// User represents a wallet-connected account. Users are created on first
// wallet login; the balance field is a display cache refreshed from the
// ledger, never authoritative.
type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	WalletAddress     string     `gorm:"uniqueIndex;size:58;not null" json:"wallet_address"`
	MicroAlgoBalance  uint64     `gorm:"default:0" json:"micro_algo_balance"`
	LastBalanceUpdate *time.Time `json:"last_balance_update,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
