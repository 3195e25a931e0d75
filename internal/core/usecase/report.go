package usecase

import (
	"strings"
	"time"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

// buildFinalReport assembles the terminal report from a completed state.
// The review decision, when present, overrides the draft's outcome.
func buildFinalReport(state *domain.WorkflowState) *domain.FinalReport {
	draft := state.Draft

	decision := domain.DecisionAutoApproved
	riskScore := draft.RiskScore
	rationale := draft.Report

	if state.Review != nil {
		switch state.Review.Verdict {
		case domain.VerdictApprove:
			decision = domain.DecisionApproved
		case domain.VerdictOverride:
			decision = domain.DecisionOverridden
			riskScore = state.Review.OverrideScore
		case domain.VerdictReject:
			decision = domain.DecisionRejected
		}
		if notes := strings.TrimSpace(state.Review.Notes); notes != "" {
			rationale = rationale + "\n\nReviewer notes: " + notes
		}
	}

	return &domain.FinalReport{
		CaseID:        state.Case.ID,
		LoanType:      state.Case.LoanType,
		LoanAmount:    state.Case.LoanAmount,
		BorrowerQuery: state.Case.BorrowerQuery,
		Decision:      decision,
		RiskScore:     riskScore,
		RiskLevel:     domain.RiskLevelForScore(riskScore),
		Rationale:     rationale,
		Citations:     state.Evidence.Citations(),
		ToolResults:   append([]domain.ToolCallRecord(nil), state.ToolCalls...),
		Review:        state.Review,
		Reranked:      state.Evidence.Reranked,
		CompletedAt:   time.Now().UTC(),
	}
}
