package ports

import (
	"context"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

// EvidenceRetriever is the fusion engine contract: up to k candidates,
// ranked by relevance descending.
type EvidenceRetriever interface {
	Retrieve(ctx context.Context, query string, k int) (domain.EvidenceSet, error)
}

// CaseRunner drives one case through the full workflow synchronously.
type CaseRunner interface {
	Run(ctx context.Context, cs domain.CreditCase) (*domain.FinalReport, error)
}

// CaseService manages asynchronous runs for the API surface.
type CaseService interface {
	Start(ctx context.Context, cs domain.CreditCase) (string, error)
	Snapshot(caseID string) (*domain.WorkflowState, bool)
	SubmitReview(ctx context.Context, caseID string, decision domain.ReviewDecision) error
}
