package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Decision is the verification oracle's verdict on a piece of content.
type Decision string

const (
	DecisionAuthentic Decision = "authentic"
	DecisionFake      Decision = "fake"
	DecisionUncertain Decision = "uncertain"
)

// VerificationResult is the normalized oracle outcome.
type VerificationResult struct {
	Decision           Decision `json:"decision"`
	Confidence         float64  `json:"confidence"`
	ConsensusScore     float64  `json:"consensus_score"`
	GroupReasoning     string   `json:"group_reasoning"`
	DynamicRewardAlgos float64  `json:"dynamic_reward_algos"`
}

// VerificationOracle is the external AI verification capability.
type VerificationOracle interface {
	Verify(ctx context.Context, contentURL string) (*VerificationResult, error)
}

// OracleClient calls the agentic verification HTTP service.
type OracleClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewOracleClient(endpoint string, timeout time.Duration) *OracleClient {
	return &OracleClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type verifyRequest struct {
	ContentURL string `json:"content_url"`
}

// oracleEnvelope tolerates the several response shapes the verification
// service has shipped: the decision may live under result.final_decision
// (string or object), under a top-level group_decision, or be absent.
type oracleEnvelope struct {
	Success       bool            `json:"success"`
	Result        json.RawMessage `json:"result"`
	GroupDecision json.RawMessage `json:"group_decision"`
	Error         string          `json:"error"`
}

type oracleDecisionBody struct {
	FinalDecision  json.RawMessage `json:"final_decision"`
	Confidence     float64         `json:"confidence"`
	ConsensusScore float64         `json:"consensus_score"`
	GroupReasoning string          `json:"group_reasoning"`
	DynamicReward  float64         `json:"dynamic_reward"`
}

// Verify posts the content URL to the oracle and normalizes the response.
// Malformed payloads and non-2xx statuses degrade to an uncertain decision;
// only transport-level failures surface as errors.
func (c *OracleClient) Verify(ctx context.Context, contentURL string) (*VerificationResult, error) {
	body, err := json.Marshal(verifyRequest{ContentURL: contentURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verification service unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read verification response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("Warning: oracle returned status %d, treating decision as uncertain", resp.StatusCode)
		return uncertainResult(fmt.Sprintf("oracle status %d", resp.StatusCode)), nil
	}

	return ParseOracleResponse(respBody), nil
}

// ParseOracleResponse extracts a normalized result from whichever payload
// shape the oracle produced, defaulting to uncertain when nothing parses.
func ParseOracleResponse(payload []byte) *VerificationResult {
	var envelope oracleEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		log.Printf("Warning: malformed oracle payload, treating decision as uncertain: %v", err)
		return uncertainResult("malformed oracle payload")
	}

	if envelope.Error != "" && len(envelope.Result) == 0 && len(envelope.GroupDecision) == 0 {
		return uncertainResult(envelope.Error)
	}

	for _, raw := range [][]byte{envelope.Result, envelope.GroupDecision} {
		if len(raw) == 0 {
			continue
		}
		var body oracleDecisionBody
		if err := json.Unmarshal(raw, &body); err != nil {
			continue
		}
		if decision, ok := parseDecision(body.FinalDecision); ok {
			return &VerificationResult{
				Decision:           decision,
				Confidence:         body.Confidence,
				ConsensusScore:     body.ConsensusScore,
				GroupReasoning:     body.GroupReasoning,
				DynamicRewardAlgos: body.DynamicReward,
			}
		}
	}

	return uncertainResult("no recognizable decision in oracle payload")
}

// parseDecision accepts the decision either as a bare string or as an
// object carrying a "decision" or nested "final_decision" field.
func parseDecision(raw json.RawMessage) (Decision, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return normalizeDecision(s)
	}

	var obj struct {
		Decision      string          `json:"decision"`
		FinalDecision json.RawMessage `json:"final_decision"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}
	if obj.Decision != "" {
		return normalizeDecision(obj.Decision)
	}
	if len(obj.FinalDecision) > 0 {
		return parseDecision(obj.FinalDecision)
	}
	return "", false
}

func normalizeDecision(s string) (Decision, bool) {
	switch Decision(s) {
	case DecisionAuthentic, DecisionFake, DecisionUncertain:
		return Decision(s), true
	}
	return "", false
}

func uncertainResult(reason string) *VerificationResult {
	return &VerificationResult{
		Decision:       DecisionUncertain,
		GroupReasoning: reason,
	}
}
