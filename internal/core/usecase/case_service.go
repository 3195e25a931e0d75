package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/creditdesk/riskflow/internal/core/domain"
	"github.com/creditdesk/riskflow/internal/core/ports"
)

var (
	errEmptyQuery        = errors.New("borrower_query is required")
	errNegativeAmount    = errors.New("loan_amount must not be negative")
	errDuplicateCase     = errors.New("case id already started")
	errUnknownCase       = errors.New("no run registered for case")
	errNotAwaitingReview = errors.New("case is not awaiting review")
)

// CaseService owns the registry of in-flight and finished runs for the API
// surface. Runs execute on their own goroutine; snapshots are clones taken
// at transition points, so readers never observe a state mid-mutation.
type CaseService struct {
	orchestrator *Orchestrator
	reviews      ports.ReviewSink
	logger       *slog.Logger

	mu   sync.RWMutex
	runs map[string]*domain.WorkflowState

	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewCaseService(orchestrator *Orchestrator, reviews ports.ReviewSink, logger *slog.Logger) *CaseService {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	svc := &CaseService{
		orchestrator: orchestrator,
		reviews:      reviews,
		logger:       logger,
		runs:         make(map[string]*domain.WorkflowState),
		baseCtx:      ctx,
		cancel:       cancel,
	}
	orchestrator.SetTransitionHook(svc.record)
	return svc
}

// Start validates the case, assigns an ID when absent, and launches the run
// in the background. The returned ID is immediately snapshotable.
func (s *CaseService) Start(ctx context.Context, cs domain.CreditCase) (string, error) {
	if cs.BorrowerQuery == "" {
		return "", domain.WrapError(domain.ErrValidation, "start case", errEmptyQuery)
	}
	if cs.LoanAmount < 0 {
		return "", domain.WrapError(domain.ErrValidation, "start case", errNegativeAmount)
	}
	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}

	state := domain.NewWorkflowState(cs)

	s.mu.Lock()
	if _, exists := s.runs[cs.ID]; exists {
		s.mu.Unlock()
		return "", domain.WrapError(domain.ErrValidation, "start case", errDuplicateCase)
	}
	s.runs[cs.ID] = state.Clone()
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.orchestrator.Execute(s.baseCtx, state); err != nil {
			s.logger.Error("case run finished with failure", "case_id", cs.ID, "error", err)
		}
		s.record(state)
	}()

	return cs.ID, nil
}

// Snapshot returns a point-in-time copy of the run state.
func (s *CaseService) Snapshot(caseID string) (*domain.WorkflowState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.runs[caseID]
	if !ok {
		return nil, false
	}
	return state.Clone(), true
}

// SubmitReview forwards a human decision to the run suspended in review.
func (s *CaseService) SubmitReview(ctx context.Context, caseID string, decision domain.ReviewDecision) error {
	s.mu.RLock()
	state, ok := s.runs[caseID]
	s.mu.RUnlock()
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "submit review", errUnknownCase)
	}
	if state.Status != domain.StatusReviewing {
		return domain.WrapError(domain.ErrValidation, "submit review", errNotAwaitingReview)
	}
	return s.reviews.Submit(ctx, caseID, decision)
}

// Close cancels in-flight runs and waits for their goroutines to finish.
func (s *CaseService) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *CaseService) record(state *domain.WorkflowState) {
	snapshot := state.Clone()
	s.mu.Lock()
	s.runs[snapshot.Case.ID] = snapshot
	s.mu.Unlock()
}
