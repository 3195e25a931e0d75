package domain

import "time"

// ToolRequest is a tool invocation the reasoning collaborator asked for.
type ToolRequest struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// AnalysisDraft is the reasoning collaborator's output for one pass:
// either a set of tool requests, or a scored risk assessment.
type AnalysisDraft struct {
	Report       string        `json:"report"`
	RiskScore    int           `json:"risk_score"`
	Confidence   float64       `json:"confidence"`
	ToolRequests []ToolRequest `json:"tool_requests,omitempty"`
}

// Decision labels on the final report.
const (
	DecisionAutoApproved = "auto_approved"
	DecisionApproved     = "approved"
	DecisionOverridden   = "approved_with_override"
	DecisionRejected     = "rejected"
)

// FinalReport is the structured outcome of a completed run.
type FinalReport struct {
	CaseID        string           `json:"case_id"`
	LoanType      string           `json:"loan_type"`
	LoanAmount    float64          `json:"loan_amount"`
	BorrowerQuery string           `json:"borrower_query"`
	Decision      string           `json:"decision"`
	RiskScore     int              `json:"risk_score"`
	RiskLevel     string           `json:"risk_level"`
	Rationale     string           `json:"rationale"`
	Citations     []Citation       `json:"citations"`
	ToolResults   []ToolCallRecord `json:"tool_results"`
	Review        *ReviewDecision  `json:"review,omitempty"`
	Reranked      bool             `json:"reranked"`
	CompletedAt   time.Time        `json:"completed_at"`
}

// EscalationPolicy decides when a draft requires a human checkpoint.
type EscalationPolicy struct {
	RiskScoreThreshold  int
	ConfidenceFloor     float64
	LoanAmountThreshold float64
	DTIThreshold        float64
}

// DTIReporter is implemented by tool results that carry a computed
// debt-to-income ratio, so the policy can read it without depending on
// the tool's concrete result type.
type DTIReporter interface {
	DTIRatio() float64
}

func (p EscalationPolicy) RequiresReview(cs CreditCase, draft AnalysisDraft, toolCalls []ToolCallRecord) bool {
	if draft.RiskScore >= p.RiskScoreThreshold {
		return true
	}
	if draft.Confidence > 0 && draft.Confidence < p.ConfidenceFloor {
		return true
	}
	if p.LoanAmountThreshold > 0 && cs.LoanAmount >= p.LoanAmountThreshold {
		return true
	}
	if p.DTIThreshold > 0 && maxResolvedDTI(toolCalls) > p.DTIThreshold {
		return true
	}
	return false
}

// maxResolvedDTI scans succeeded tool records for debt-to-income results
// and returns the highest ratio, or 0 when none resolved.
func maxResolvedDTI(toolCalls []ToolCallRecord) float64 {
	highest := 0.0
	for _, record := range toolCalls {
		if record.Status != ToolSucceeded {
			continue
		}
		result, ok := record.Result.(DTIReporter)
		if !ok {
			continue
		}
		if ratio := result.DTIRatio(); ratio > highest {
			highest = ratio
		}
	}
	return highest
}

func RiskLevelForScore(score int) string {
	switch {
	case score <= 33:
		return "low"
	case score <= 66:
		return "medium"
	default:
		return "high"
	}
}
