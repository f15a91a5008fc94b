package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"

	"report2earn/internal/ledger"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
)

// Vote choices understood by the voting contract.
const (
	VoteChoiceYes     uint64 = 1
	VoteChoiceNo      uint64 = 2
	VoteChoiceAbstain uint64 = 3
)

// ProposalRecord is a structured view of one proposal reconstructed from
// the application's global state. The contract alone decides pass/fail and
// quorum; the client only reflects the stored status.
type ProposalRecord struct {
	ID                     uint64 `json:"id"`
	Creator                string `json:"creator"`
	StartRound             uint64 `json:"start_round"`
	EndRound               uint64 `json:"end_round"`
	YesVotes               uint64 `json:"yes_votes"`
	NoVotes                uint64 `json:"no_votes"`
	AbstainVotes           uint64 `json:"abstain_votes"`
	Status                 uint64 `json:"status"`
	DescriptionHash        string `json:"description_hash"`
	DescriptionFingerprint string `json:"description_fingerprint"`
}

// GovernanceConfig carries the DAO defaults.
type GovernanceConfig struct {
	AppID              uint64
	VotingPeriodRounds uint64
	MinDepositMicro    uint64
	QuorumBasisPoints  uint64
	WaitRounds         uint64
}

// GovernanceService constructs, submits and interprets transactions against
// the voting application. It signs with an operator key held in-process;
// this path serves scripts and the CLI, not the browser wallet.
type GovernanceService struct {
	gateway ledger.Gateway
	signer  ledger.TransactionSigner
	cfg     GovernanceConfig
}

func NewGovernanceService(gateway ledger.Gateway, signer ledger.TransactionSigner, cfg GovernanceConfig) *GovernanceService {
	if cfg.VotingPeriodRounds == 0 {
		cfg.VotingPeriodRounds = 10_000
	}
	if cfg.WaitRounds == 0 {
		cfg.WaitRounds = 4
	}
	return &GovernanceService{gateway: gateway, signer: signer, cfg: cfg}
}

// AppID returns the voting application id the service operates against.
func (g *GovernanceService) AppID() uint64 {
	return g.cfg.AppID
}

// DeployVotingApp compiles the TEAL programs and creates the voting
// application, returning its id.
func (g *GovernanceService) DeployVotingApp(ctx context.Context, approvalSource, clearSource []byte) (uint64, error) {
	approval, err := g.gateway.CompileProgram(ctx, approvalSource)
	if err != nil {
		return 0, fmt.Errorf("approval program: %w", err)
	}
	clear, err := g.gateway.CompileProgram(ctx, clearSource)
	if err != nil {
		return 0, fmt.Errorf("clear program: %w", err)
	}

	sp, err := g.gateway.SuggestedParams(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch network parameters: %w", err)
	}

	createTxn, err := ledger.BuildAppCreate(ledger.AppCreateIntent{
		Sender:           g.signer.Address(),
		ApprovalProgram:  approval,
		ClearProgram:     clear,
		GlobalUints:      48,
		GlobalByteSlices: 16,
		LocalUints:       2,
		LocalByteSlices:  0,
		Args: [][]byte{
			ledger.EncodeUint64(g.cfg.QuorumBasisPoints),
			ledger.EncodeUint64(g.cfg.MinDepositMicro),
		},
	}, sp)
	if err != nil {
		return 0, err
	}

	txID, stx, err := g.signer.Sign(createTxn)
	if err != nil {
		return 0, fmt.Errorf("failed to sign application create: %w", err)
	}
	if _, err := g.gateway.SendRawTransaction(ctx, stx); err != nil {
		return 0, fmt.Errorf("application create broadcast failed: %w", err)
	}

	confirmation, err := g.gateway.WaitForConfirmation(ctx, txID, g.cfg.WaitRounds)
	if err != nil {
		return 0, fmt.Errorf("application create confirmation failed: %w", err)
	}
	if confirmation.ApplicationIndex == 0 {
		return 0, fmt.Errorf("confirmation for %s carried no application index", txID)
	}

	log.Printf("Voting application deployed: id=%d creator=%s", confirmation.ApplicationIndex, g.signer.Address())
	return confirmation.ApplicationIndex, nil
}

// CreateProposal submits the deposit payment and the create_proposal call
// as one atomic group: both legs confirm or neither does. Returns the
// confirmed transaction id and the id the contract assigned.
func (g *GovernanceService) CreateProposal(ctx context.Context, description string, votingPeriodRounds, depositMicroAlgos uint64) (string, uint64, error) {
	if votingPeriodRounds == 0 {
		votingPeriodRounds = g.cfg.VotingPeriodRounds
	}
	if depositMicroAlgos == 0 {
		depositMicroAlgos = g.cfg.MinDepositMicro
	}

	sp, err := g.gateway.SuggestedParams(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to fetch network parameters: %w", err)
	}

	appAddress := crypto.GetApplicationAddress(g.cfg.AppID)
	payment, err := ledger.BuildPayment(ledger.PaymentIntent{
		Sender:           g.signer.Address(),
		Receiver:         appAddress,
		AmountMicroAlgos: depositMicroAlgos,
	}, sp)
	if err != nil {
		return "", 0, fmt.Errorf("failed to build proposal deposit: %w", err)
	}

	call, err := ledger.BuildAppNoOp(ledger.AppCallIntent{
		Sender: g.signer.Address(),
		AppID:  g.cfg.AppID,
		Args: [][]byte{
			[]byte("create_proposal"),
			ledger.DigestSHA256([]byte(description)),
			ledger.EncodeUint64(votingPeriodRounds),
		},
	}, sp)
	if err != nil {
		return "", 0, fmt.Errorf("failed to build create_proposal call: %w", err)
	}

	group, err := ledger.BuildGroupedPair(payment, call)
	if err != nil {
		return "", 0, err
	}

	var blob []byte
	for i := range group {
		_, stx, err := g.signer.Sign(group[i])
		if err != nil {
			return "", 0, fmt.Errorf("failed to sign group member %d: %w", i, err)
		}
		blob = append(blob, stx...)
	}

	txID, err := g.gateway.SendRawTransaction(ctx, blob)
	if err != nil {
		return "", 0, classifyRejection("create_proposal", err)
	}
	if _, err := g.gateway.WaitForConfirmation(ctx, txID, g.cfg.WaitRounds); err != nil {
		return "", 0, fmt.Errorf("create_proposal confirmation failed: %w", err)
	}

	count, err := g.proposalCount(ctx)
	if err != nil {
		// The group confirmed; a failed follow-up read should not mask that.
		log.Printf("Warning: create_proposal confirmed (%s) but count read failed: %v", txID, err)
		return txID, 0, nil
	}

	log.Printf("Proposal %d created: tx=%s period=%d deposit=%d", count, txID, votingPeriodRounds, depositMicroAlgos)
	return txID, count, nil
}

// Vote casts a ballot. The choice is validated locally; double votes and
// closed voting windows are the contract's to reject.
func (g *GovernanceService) Vote(ctx context.Context, proposalID, choice uint64) (string, error) {
	if choice != VoteChoiceYes && choice != VoteChoiceNo && choice != VoteChoiceAbstain {
		return "", ErrInvalidChoice
	}

	return g.submitCall(ctx, "vote", [][]byte{
		[]byte("vote"),
		ledger.EncodeUint64(proposalID),
		ledger.EncodeUint64(choice),
	})
}

// ExecuteProposal triggers execution of a passed proposal. Whether the
// proposal actually passed is, as with voting, contract-enforced.
func (g *GovernanceService) ExecuteProposal(ctx context.Context, proposalID uint64) (string, error) {
	return g.submitCall(ctx, "execute_proposal", [][]byte{
		[]byte("execute_proposal"),
		ledger.EncodeUint64(proposalID),
	})
}

// GetProposal reconstructs one proposal from global state. Field lookups
// use exact key equality: proposal 1 keys must never bleed into proposal 10.
// Missing fields default to zero values rather than erroring.
func (g *GovernanceService) GetProposal(ctx context.Context, proposalID uint64) (*ProposalRecord, error) {
	entries, err := g.gateway.ApplicationGlobalState(ctx, g.cfg.AppID)
	if err != nil {
		return nil, fmt.Errorf("failed to read application state: %w", err)
	}

	state, err := ledger.DecodeState(entries)
	if err != nil {
		return nil, err
	}

	descriptionHash := ledger.StateBytes(state, ledger.ProposalFieldKey(proposalID, "description"))
	record := &ProposalRecord{
		ID:              proposalID,
		Creator:         ledger.StateAddress(state, ledger.ProposalFieldKey(proposalID, "creator")),
		StartRound:      ledger.StateUint(state, ledger.ProposalFieldKey(proposalID, "start_round")),
		EndRound:        ledger.StateUint(state, ledger.ProposalFieldKey(proposalID, "end_round")),
		YesVotes:        ledger.StateUint(state, ledger.ProposalFieldKey(proposalID, "yes_votes")),
		NoVotes:         ledger.StateUint(state, ledger.ProposalFieldKey(proposalID, "no_votes")),
		AbstainVotes:    ledger.StateUint(state, ledger.ProposalFieldKey(proposalID, "abstain_votes")),
		Status:          ledger.StateUint(state, ledger.ProposalFieldKey(proposalID, "status")),
		DescriptionHash: hex.EncodeToString(descriptionHash),
	}
	if len(descriptionHash) > 0 {
		record.DescriptionFingerprint = ledger.Fingerprint(descriptionHash)
	}
	return record, nil
}

// GetAllProposals reads the global counter and fetches ids 1..count,
// skipping records whose creator resolves empty (partially initialized
// state leaves holes, it should not fail the whole listing).
func (g *GovernanceService) GetAllProposals(ctx context.Context) ([]ProposalRecord, error) {
	count, err := g.proposalCount(ctx)
	if err != nil {
		return nil, err
	}

	proposals := make([]ProposalRecord, 0, count)
	for id := uint64(1); id <= count; id++ {
		record, err := g.GetProposal(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("proposal %d: %w", id, err)
		}
		if record.Creator == "" {
			continue
		}
		proposals = append(proposals, *record)
	}
	return proposals, nil
}

func (g *GovernanceService) proposalCount(ctx context.Context) (uint64, error) {
	entries, err := g.gateway.ApplicationGlobalState(ctx, g.cfg.AppID)
	if err != nil {
		return 0, fmt.Errorf("failed to read application state: %w", err)
	}
	state, err := ledger.DecodeState(entries)
	if err != nil {
		return 0, err
	}
	return ledger.StateUint(state, "proposal_count"), nil
}

// submitCall builds, signs and confirms a single no-op call, wrapping
// submission failures as typed contract rejections.
func (g *GovernanceService) submitCall(ctx context.Context, op string, args [][]byte) (string, error) {
	sp, err := g.gateway.SuggestedParams(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch network parameters: %w", err)
	}

	call, err := ledger.BuildAppNoOp(ledger.AppCallIntent{
		Sender: g.signer.Address(),
		AppID:  g.cfg.AppID,
		Args:   args,
	}, sp)
	if err != nil {
		return "", fmt.Errorf("failed to build %s call: %w", op, err)
	}

	txID, stx, err := g.signer.Sign(call)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s call: %w", op, err)
	}

	if _, err := g.gateway.SendRawTransaction(ctx, stx); err != nil {
		return "", classifyRejection(op, err)
	}
	if _, err := g.gateway.WaitForConfirmation(ctx, txID, g.cfg.WaitRounds); err != nil {
		return "", fmt.Errorf("%s confirmation failed: %w", op, err)
	}

	log.Printf("Governance %s confirmed: tx=%s", op, txID)
	return txID, nil
}
