package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

// Reasoner asks the generation model for a risk assessment draft. The model
// either requests tool calls or commits to a scored report; both arrive as
// one JSON object.
type Reasoner struct {
	client    *Client
	toolNames []string
}

func NewReasoner(client *Client, toolNames []string) *Reasoner {
	return &Reasoner{client: client, toolNames: toolNames}
}

type analysisResponse struct {
	Report       string  `json:"report"`
	RiskScore    int     `json:"risk_score"`
	Confidence   float64 `json:"confidence"`
	ToolRequests []struct {
		Name string         `json:"name"`
		Args map[string]any `json:"args"`
	} `json:"tool_requests"`
}

func (r *Reasoner) Analyze(
	ctx context.Context,
	cs domain.CreditCase,
	evidence domain.EvidenceSet,
	toolCalls []domain.ToolCallRecord,
	reviewNotes []string,
) (*domain.AnalysisDraft, error) {
	prompt := buildAnalysisPrompt(cs, evidence, toolCalls, reviewNotes, r.toolNames)

	raw, err := r.client.generateJSON(ctx, prompt)
	if err != nil {
		return nil, wrapTransientIfNeeded("analyze", err)
	}

	var parsed analysisResponse
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		// A malformed completion is worth another attempt.
		return nil, domain.WrapError(domain.ErrTransient, "parse analysis", err)
	}
	if err := validateAnalysis(parsed); err != nil {
		return nil, domain.WrapError(domain.ErrTransient, "validate analysis", err)
	}

	draft := &domain.AnalysisDraft{
		Report:     strings.TrimSpace(parsed.Report),
		RiskScore:  parsed.RiskScore,
		Confidence: parsed.Confidence,
	}
	for _, req := range parsed.ToolRequests {
		draft.ToolRequests = append(draft.ToolRequests, domain.ToolRequest{
			Name: req.Name,
			Args: req.Args,
		})
	}
	return draft, nil
}

func validateAnalysis(resp analysisResponse) error {
	if len(resp.ToolRequests) > 0 {
		for _, req := range resp.ToolRequests {
			if strings.TrimSpace(req.Name) == "" {
				return fmt.Errorf("tool request without a name")
			}
		}
		return nil
	}
	if strings.TrimSpace(resp.Report) == "" {
		return fmt.Errorf("empty report without tool requests")
	}
	if resp.RiskScore < 0 || resp.RiskScore > 100 {
		return fmt.Errorf("risk_score out of range: %d", resp.RiskScore)
	}
	if resp.Confidence < 0 || resp.Confidence > 1 {
		return fmt.Errorf("confidence out of range: %v", resp.Confidence)
	}
	return nil
}
