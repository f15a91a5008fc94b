package services

import (
	"errors"
	"fmt"
	"strings"
)

// Precondition errors: surfaced before any network call, no state mutated.
var (
	ErrNotConnected       = errors.New("wallet not connected")
	ErrEmptyInput         = errors.New("content url is required")
	ErrNotOptedIn         = errors.New("account has not opted in to the verification application")
	ErrSessionBusy        = errors.New("a settlement session is already in progress for this address")
	ErrInvalidChoice      = errors.New("vote choice must be 1 (yes), 2 (no) or 3 (abstain)")
	ErrInsufficientEscrow = errors.New("escrow balance is insufficient for the payout")
	ErrSessionNotFound    = errors.New("session not found")
	ErrWrongSessionState  = errors.New("session is not awaiting this step")
)

// RejectionCode classifies a contract-side rejection so callers can branch
// on cause instead of string-matching a node error.
type RejectionCode string

const (
	RejectionDoubleVote          RejectionCode = "double_vote"
	RejectionVotingClosed        RejectionCode = "voting_closed"
	RejectionInsufficientDeposit RejectionCode = "insufficient_deposit"
	RejectionUnknown             RejectionCode = "unknown"
)

// ContractRejection wraps a submission failure that the voting contract
// (not the client) decided. The contract stays authoritative; the client
// only names the cause.
type ContractRejection struct {
	Code RejectionCode
	Op   string
	Err  error
}

func (e *ContractRejection) Error() string {
	return fmt.Sprintf("%s rejected by contract (%s): %v", e.Op, e.Code, e.Err)
}

func (e *ContractRejection) Unwrap() error {
	return e.Err
}

// classifyRejection maps the node's rejection message onto a RejectionCode.
// The message strings come from the contract's assert comments; anything
// unrecognized stays Unknown rather than being guessed at.
func classifyRejection(op string, err error) *ContractRejection {
	msg := strings.ToLower(err.Error())
	code := RejectionUnknown
	switch {
	case strings.Contains(msg, "already voted"):
		code = RejectionDoubleVote
	case strings.Contains(msg, "voting period"), strings.Contains(msg, "voting closed"), strings.Contains(msg, "voting ended"):
		code = RejectionVotingClosed
	case strings.Contains(msg, "insufficient deposit"), strings.Contains(msg, "below minimum deposit"):
		code = RejectionInsufficientDeposit
	}
	return &ContractRejection{Code: code, Op: op, Err: err}
}
