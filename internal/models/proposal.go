package models

import (
	"time"
)

// Proposal status values mirror the voting contract's status field.
const (
	ProposalStatusActive   uint64 = 0
	ProposalStatusPassed   uint64 = 1
	ProposalStatusRejected uint64 = 2
	ProposalStatusExecuted uint64 = 3
)

// Proposal is the off-chain cache of an on-chain proposal record. The
// contract is authoritative; this table only feeds the read API and is
// refreshed by the indexer job.
type Proposal struct {
	ID                     uint      `gorm:"primaryKey" json:"-"`
	ProposalID             uint64    `gorm:"uniqueIndex;not null" json:"proposal_id"`
	Creator                string    `gorm:"size:58;index" json:"creator"`
	StartRound             uint64    `json:"start_round"`
	EndRound               uint64    `json:"end_round"`
	YesVotes               uint64    `json:"yes_votes"`
	NoVotes                uint64    `json:"no_votes"`
	AbstainVotes           uint64    `json:"abstain_votes"`
	Status                 uint64    `gorm:"index" json:"status"`
	DescriptionHash        string    `gorm:"size:64" json:"description_hash"`
	DescriptionFingerprint string    `gorm:"size:64;index" json:"description_fingerprint"`
	SyncedAt               time.Time `json:"synced_at"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (Proposal) TableName() string {
	return "proposals"
}
