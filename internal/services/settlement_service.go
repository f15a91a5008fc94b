package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sync"
	"time"

	"report2earn/internal/ledger"
	"report2earn/internal/models"
	"report2earn/internal/repository"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RewardPolicy names the decision-to-payout mapping. The source front end
// was inconsistent about whether the reward was unconditional or fake-only,
// so the mapping is explicit configuration instead of a guess.
type RewardPolicy string

const (
	// RewardPolicyAlways pays the full reward regardless of the decision.
	RewardPolicyAlways RewardPolicy = "always"
	// RewardPolicyFakeOnly pays the full reward only for a fake verdict;
	// anything else returns the deposit.
	RewardPolicyFakeOnly RewardPolicy = "fake_only"
	// RewardPolicyDynamic returns the deposit plus the oracle's
	// popularity-scaled reward (capped at 1 ALGO), fake verdicts only.
	RewardPolicyDynamic RewardPolicy = "dynamic"
)

// dynamicRewardCapMicroAlgos bounds the oracle-supplied dynamic reward.
const dynamicRewardCapMicroAlgos = 1 * ledger.MicroAlgosPerAlgo

// SettlementConfig carries the orchestrator's fixed amounts and flags.
type SettlementConfig struct {
	DepositMicroAlgos uint64
	RewardMicroAlgos  uint64
	Policy            RewardPolicy
	AppID             uint64 // verification application; 0 disables the contract-gated flow
	RequireOptIn      bool
	WaitRounds        uint64
}

// SettlementService drives a verification-and-reward cycle: user deposit,
// oracle verification, escrow-funded payout. The escrow signing capability
// is injected at construction and scoped to this service.
type SettlementService struct {
	repo    *repository.Repository
	gateway ledger.Gateway
	oracle  VerificationOracle
	escrow  ledger.TransactionSigner
	cfg     SettlementConfig

	mu       sync.Mutex
	inFlight map[string]bool // addresses with a session between begin and a terminal state
}

func NewSettlementService(
	repo *repository.Repository,
	gateway ledger.Gateway,
	oracle VerificationOracle,
	escrow ledger.TransactionSigner,
	cfg SettlementConfig,
) *SettlementService {
	if cfg.WaitRounds == 0 {
		cfg.WaitRounds = 4
	}
	return &SettlementService{
		repo:     repo,
		gateway:  gateway,
		oracle:   oracle,
		escrow:   escrow,
		cfg:      cfg,
		inFlight: make(map[string]bool),
	}
}

// EscrowAddress returns the custodial escrow address users deposit to.
func (s *SettlementService) EscrowAddress() types.Address {
	return s.escrow.Address()
}

// StartVerification runs the full cycle with an in-process signing
// capability for the user's deposit leg: begin, sign, submit. The HTTP
// surface uses Begin/SubmitDeposit directly, with the browser wallet on the
// other side of the signature.
func (s *SettlementService) StartVerification(
	ctx context.Context,
	url, userAddress string,
	userSigner ledger.TransactionSigner,
) (*models.VerificationSession, error) {
	session, depositTxn, err := s.Begin(ctx, url, userAddress)
	if err != nil {
		return nil, err
	}

	_, stx, err := userSigner.Sign(*depositTxn)
	if err != nil {
		return nil, s.fail(ctx, session, fmt.Errorf("deposit signature failed: %w", err))
	}

	return s.SubmitDeposit(ctx, session.ID, stx)
}

// Begin validates preconditions, builds the deposit payment and persists a
// new session in the depositing state. The returned transaction goes to the
// wallet boundary for signature.
func (s *SettlementService) Begin(ctx context.Context, url, userAddress string) (*models.VerificationSession, *types.Transaction, error) {
	if userAddress == "" {
		return nil, nil, ErrNotConnected
	}
	if url == "" {
		return nil, nil, ErrEmptyInput
	}
	if _, err := types.DecodeAddress(userAddress); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	if err := s.acquire(ctx, userAddress); err != nil {
		return nil, nil, err
	}

	session := &models.VerificationSession{
		ID:                 uuid.New(),
		UserAddress:        userAddress,
		ContentURL:         url,
		ContentFingerprint: ledger.Fingerprint([]byte(url)),
		Status:             models.SessionStatusIdle,
	}

	if s.cfg.RequireOptIn {
		account, err := s.gateway.AccountInformation(ctx, userAddress)
		if err != nil {
			s.release(userAddress)
			return nil, nil, fmt.Errorf("failed to check opt-in status: %w", err)
		}
		if !ledger.HasOptedIn(account, s.cfg.AppID) {
			s.release(userAddress)
			return nil, nil, ErrNotOptedIn
		}
	}

	// Parameters are fetched fresh per leg, never cached across legs.
	sp, err := s.gateway.SuggestedParams(ctx)
	if err != nil {
		s.release(userAddress)
		return nil, nil, fmt.Errorf("failed to fetch network parameters: %w", err)
	}

	sender, _ := types.DecodeAddress(userAddress)
	depositTxn, err := ledger.BuildPayment(ledger.PaymentIntent{
		Sender:           sender,
		Receiver:         s.escrow.Address(),
		AmountMicroAlgos: s.cfg.DepositMicroAlgos,
		Note:             []byte("r2e:deposit:" + session.ContentFingerprint),
	}, sp)
	if err != nil {
		s.release(userAddress)
		return nil, nil, fmt.Errorf("failed to build deposit: %w", err)
	}

	session.Status = models.SessionStatusDepositing
	session.UnsignedDeposit = base64.StdEncoding.EncodeToString(msgpack.Encode(&depositTxn))

	if err := s.repo.CreateSession(ctx, session); err != nil {
		s.release(userAddress)
		return nil, nil, fmt.Errorf("failed to persist session: %w", err)
	}

	log.Printf("Settlement session %s started: user=%s url=%s", session.ID, userAddress, url)
	return session, &depositTxn, nil
}

// SubmitDeposit resumes a depositing session with the wallet-signed deposit
// bytes and drives the cycle to a terminal state: broadcast and confirm the
// deposit, record the verification request on-chain when the contract-gated
// flow is enabled, consult the oracle, then pay out from escrow.
func (s *SettlementService) SubmitDeposit(ctx context.Context, sessionID uuid.UUID, signedDeposit []byte) (*models.VerificationSession, error) {
	session, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != models.SessionStatusDepositing {
		return nil, fmt.Errorf("%w: status is %s", ErrWrongSessionState, session.Status)
	}

	// Leg 1: user deposit.
	depositTxID, err := s.gateway.SendRawTransaction(ctx, signedDeposit)
	if err != nil {
		return session, s.fail(ctx, session, fmt.Errorf("deposit broadcast failed: %w", err))
	}
	session.DepositTxID = depositTxID
	s.recordLeg(ctx, session, models.SettlementTransactionTypeDeposit,
		session.UserAddress, s.escrow.Address().String(), s.cfg.DepositMicroAlgos, depositTxID)

	confirmation, err := s.gateway.WaitForConfirmation(ctx, depositTxID, s.cfg.WaitRounds)
	if err != nil {
		return session, s.fail(ctx, session, fmt.Errorf("deposit confirmation failed: %w", err))
	}
	s.confirmLeg(ctx, depositTxID, confirmation.ConfirmedRound)

	if err := s.transition(ctx, session, models.SessionStatusVerifying); err != nil {
		return session, err
	}
	log.Printf("Session %s: deposit confirmed tx=%s round=%d", session.ID, depositTxID, confirmation.ConfirmedRound)

	// Leg 1a (contract-gated flow): record the verification request.
	if s.cfg.AppID != 0 {
		if err := s.recordVerificationRequest(ctx, session); err != nil {
			return session, s.fail(ctx, session, err)
		}
	}

	// Leg 2: oracle verdict. The call blocks the session; only the HTTP
	// client's transport timeout bounds it.
	result, err := s.oracle.Verify(ctx, session.ContentURL)
	if err != nil {
		return session, s.fail(ctx, session, fmt.Errorf("verification failed: %w", err))
	}
	session.Decision = string(result.Decision)
	session.Confidence = result.Confidence
	log.Printf("Session %s: oracle decision=%s confidence=%.2f", session.ID, result.Decision, result.Confidence)

	// Leg 3: escrow payout (or deposit refund, depending on policy).
	payout := s.payoutFor(result)
	session.PayoutMicroAlgos = payout

	nextStatus := models.SessionStatusRefunding
	legType := models.SettlementTransactionTypeRefund
	if payout > s.cfg.DepositMicroAlgos {
		nextStatus = models.SessionStatusClaiming
		legType = models.SettlementTransactionTypePayout
	}
	if err := s.transition(ctx, session, nextStatus); err != nil {
		return session, err
	}

	payoutTxID, confirmedRound, err := s.payFromEscrow(ctx, session, payout)
	if err != nil {
		return session, s.fail(ctx, session, err)
	}
	session.PayoutTxID = payoutTxID
	s.recordLeg(ctx, session, legType, s.escrow.Address().String(), session.UserAddress, payout, payoutTxID)
	s.confirmLeg(ctx, payoutTxID, confirmedRound)

	now := time.Now()
	session.CompletedAt = &now
	if err := s.transition(ctx, session, models.SessionStatusCompleted); err != nil {
		return session, err
	}
	s.release(session.UserAddress)

	log.Printf("Session %s completed: deposit=%s payout=%s amount=%d", session.ID, session.DepositTxID, payoutTxID, payout)

	// Side effect: refresh the user's cached balance for display.
	s.refreshBalance(ctx, session.UserAddress)

	return session, nil
}

// Reset returns a session to idle unconditionally, clearing url, tx ids,
// decision and error. Idempotent; no ledger side effects.
func (s *SettlementService) Reset(ctx context.Context, sessionID uuid.UUID) (*models.VerificationSession, error) {
	session, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	s.release(session.UserAddress)

	session.Status = models.SessionStatusIdle
	session.ContentURL = ""
	session.ContentFingerprint = ""
	session.UnsignedDeposit = ""
	session.DepositTxID = ""
	session.AppCallTxID = ""
	session.PayoutTxID = ""
	session.Decision = ""
	session.Confidence = 0
	session.PayoutMicroAlgos = 0
	session.ErrorMessage = ""
	session.CompletedAt = nil

	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to reset session: %w", err)
	}
	return session, nil
}

// GetSession returns the persisted session state.
func (s *SettlementService) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.VerificationSession, error) {
	session, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// ListSessions returns recent sessions for an address.
func (s *SettlementService) ListSessions(ctx context.Context, userAddress string, limit int) ([]models.VerificationSession, error) {
	return s.repo.ListSessionsByAddress(ctx, userAddress, limit)
}

// payoutFor applies the configured decision-to-payout mapping.
func (s *SettlementService) payoutFor(result *VerificationResult) uint64 {
	switch s.cfg.Policy {
	case RewardPolicyFakeOnly:
		if result.Decision == DecisionFake {
			return s.cfg.RewardMicroAlgos
		}
		return s.cfg.DepositMicroAlgos
	case RewardPolicyDynamic:
		if result.Decision != DecisionFake {
			return s.cfg.DepositMicroAlgos
		}
		dynamic := ledger.AlgosToMicroAlgos(decimal.NewFromFloat(result.DynamicRewardAlgos))
		if dynamic > dynamicRewardCapMicroAlgos {
			dynamic = dynamicRewardCapMicroAlgos
		}
		return s.cfg.DepositMicroAlgos + dynamic
	default: // RewardPolicyAlways
		return s.cfg.RewardMicroAlgos
	}
}

// recordVerificationRequest submits the operator-signed application call
// that records the verification request between deposit and payout.
func (s *SettlementService) recordVerificationRequest(ctx context.Context, session *models.VerificationSession) error {
	sp, err := s.gateway.SuggestedParams(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch parameters for app call: %w", err)
	}

	callTxn, err := ledger.BuildAppNoOp(ledger.AppCallIntent{
		Sender: s.escrow.Address(),
		AppID:  s.cfg.AppID,
		Args: [][]byte{
			[]byte("record_verification"),
			ledger.DigestSHA256([]byte(session.ContentURL)),
		},
	}, sp)
	if err != nil {
		return fmt.Errorf("failed to build verification app call: %w", err)
	}

	txID, stx, err := s.escrow.Sign(callTxn)
	if err != nil {
		return fmt.Errorf("failed to sign verification app call: %w", err)
	}
	if _, err := s.gateway.SendRawTransaction(ctx, stx); err != nil {
		return fmt.Errorf("verification app call broadcast failed: %w", err)
	}
	confirmation, err := s.gateway.WaitForConfirmation(ctx, txID, s.cfg.WaitRounds)
	if err != nil {
		return fmt.Errorf("verification app call confirmation failed: %w", err)
	}

	session.AppCallTxID = txID
	s.recordLeg(ctx, session, models.SettlementTransactionTypeAppCall,
		s.escrow.Address().String(), "", 0, txID)
	s.confirmLeg(ctx, txID, confirmation.ConfirmedRound)
	log.Printf("Session %s: verification request recorded tx=%s", session.ID, txID)
	return nil
}

// payFromEscrow checks escrow liquidity, then builds, signs and confirms
// the payout payment. The balance check runs before broadcast so an
// underfunded pool fails the session without touching the ledger.
func (s *SettlementService) payFromEscrow(ctx context.Context, session *models.VerificationSession, payout uint64) (string, uint64, error) {
	sp, err := s.gateway.SuggestedParams(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to fetch parameters for payout: %w", err)
	}

	escrowAccount, err := s.gateway.AccountInformation(ctx, s.escrow.Address().String())
	if err != nil {
		return "", 0, fmt.Errorf("failed to check escrow balance: %w", err)
	}
	fee := uint64(sp.MinFee)
	if escrowAccount.Amount < payout+fee {
		return "", 0, fmt.Errorf("%w: balance=%d needed=%d", ErrInsufficientEscrow, escrowAccount.Amount, payout+fee)
	}

	receiver, err := types.DecodeAddress(session.UserAddress)
	if err != nil {
		return "", 0, fmt.Errorf("invalid payout receiver: %w", err)
	}

	payoutTxn, err := ledger.BuildPayment(ledger.PaymentIntent{
		Sender:           s.escrow.Address(),
		Receiver:         receiver,
		AmountMicroAlgos: payout,
		Note:             []byte("r2e:payout:" + session.ContentFingerprint),
	}, sp)
	if err != nil {
		return "", 0, fmt.Errorf("failed to build payout: %w", err)
	}

	txID, stx, err := s.escrow.Sign(payoutTxn)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign payout: %w", err)
	}
	if _, err := s.gateway.SendRawTransaction(ctx, stx); err != nil {
		return "", 0, fmt.Errorf("payout broadcast failed: %w", err)
	}
	confirmation, err := s.gateway.WaitForConfirmation(ctx, txID, s.cfg.WaitRounds)
	if err != nil {
		return "", 0, fmt.Errorf("payout confirmation failed: %w", err)
	}
	return txID, confirmation.ConfirmedRound, nil
}

// transition persists a status change.
func (s *SettlementService) transition(ctx context.Context, session *models.VerificationSession, status models.SessionStatus) error {
	session.Status = status
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to persist %s transition: %w", status, err)
	}
	return nil
}

// fail moves the session to the error state, keeping any transaction ids
// already obtained. Partial progress stays visible; the ledger offers no
// compensating transaction.
func (s *SettlementService) fail(ctx context.Context, session *models.VerificationSession, cause error) error {
	session.Status = models.SessionStatusError
	session.ErrorMessage = cause.Error()
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		log.Printf("Warning: failed to persist error state for session %s: %v", session.ID, err)
	}
	s.release(session.UserAddress)
	log.Printf("Session %s failed: %v", session.ID, cause)
	return cause
}

// recordLeg writes a pending audit record for one ledger leg.
func (s *SettlementService) recordLeg(
	ctx context.Context,
	session *models.VerificationSession,
	legType models.SettlementTransactionType,
	sender, receiver string,
	amount uint64,
	txID string,
) {
	leg := &models.SettlementTransaction{
		SessionID:        session.ID,
		TransactionType:  legType,
		Sender:           sender,
		Receiver:         receiver,
		AmountMicroAlgos: amount,
		TxID:             txID,
		Status:           models.SettlementTransactionStatusPending,
	}
	if err := s.repo.CreateSettlementTransaction(ctx, leg); err != nil {
		log.Printf("Warning: failed to record %s leg for session %s: %v", legType, session.ID, err)
	}
}

func (s *SettlementService) confirmLeg(ctx context.Context, txID string, round uint64) {
	if err := s.repo.ConfirmSettlementTransaction(ctx, txID, round); err != nil {
		log.Printf("Warning: failed to confirm leg %s: %v", txID, err)
	}
}

// refreshBalance updates the user's cached display balance; failures are
// logged, not surfaced, because the settlement already completed.
func (s *SettlementService) refreshBalance(ctx context.Context, address string) {
	account, err := s.gateway.AccountInformation(ctx, address)
	if err != nil {
		log.Printf("Warning: balance refresh failed for %s: %v", address, err)
		return
	}
	if err := s.repo.UpdateUserBalance(ctx, address, account.Amount); err != nil {
		log.Printf("Warning: balance cache update failed for %s: %v", address, err)
	}
}

// acquire takes the per-address settlement slot. A second start while a
// session is live is rejected instead of interleaving two ledger flows.
func (s *SettlementService) acquire(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight[address] {
		return ErrSessionBusy
	}
	// Persisted check too, so a restart does not forget live sessions.
	live, err := s.repo.HasLiveSessionForAddress(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to check for live sessions: %w", err)
	}
	if live {
		return ErrSessionBusy
	}
	s.inFlight[address] = true
	return nil
}

func (s *SettlementService) release(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, address)
}
