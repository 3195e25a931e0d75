package review

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

// Hub connects suspended workflow runs with incoming human decisions.
// Await registers a waiter for the case; Submit delivers to it. A decision
// for a case nobody is waiting on is rejected, so callers learn their
// submission went nowhere.
type Hub struct {
	mu      sync.Mutex
	waiters map[string]chan domain.ReviewDecision
}

func NewHub() *Hub {
	return &Hub{
		waiters: make(map[string]chan domain.ReviewDecision),
	}
}

func (h *Hub) Await(ctx context.Context, caseID string) (domain.ReviewDecision, error) {
	ch := make(chan domain.ReviewDecision, 1)

	h.mu.Lock()
	if _, exists := h.waiters[caseID]; exists {
		h.mu.Unlock()
		return domain.ReviewDecision{}, domain.WrapError(domain.ErrValidation, "await review",
			errors.New("case already awaiting review: "+caseID))
	}
	h.waiters[caseID] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.waiters, caseID)
		h.mu.Unlock()
	}()

	select {
	case decision := <-ch:
		if decision.DecidedAt.IsZero() {
			decision.DecidedAt = time.Now().UTC()
		}
		return decision, nil
	case <-ctx.Done():
		return domain.ReviewDecision{}, ctx.Err()
	}
}

func (h *Hub) Submit(ctx context.Context, caseID string, decision domain.ReviewDecision) error {
	if err := validateDecision(decision); err != nil {
		return err
	}

	h.mu.Lock()
	ch, ok := h.waiters[caseID]
	if ok {
		delete(h.waiters, caseID)
	}
	h.mu.Unlock()

	if !ok {
		return domain.WrapError(domain.ErrNotFound, "submit review",
			errors.New("no run awaiting review for case: "+caseID))
	}

	ch <- decision
	return nil
}

// Pending lists case IDs currently suspended in review.
func (h *Hub) Pending() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.waiters))
	for caseID := range h.waiters {
		out = append(out, caseID)
	}
	return out
}

func validateDecision(decision domain.ReviewDecision) error {
	switch decision.Verdict {
	case domain.VerdictApprove, domain.VerdictReject:
		return nil
	case domain.VerdictOverride:
		if decision.OverrideScore < 0 || decision.OverrideScore > 100 {
			return domain.WrapError(domain.ErrValidation, "submit review",
				errors.New("override_score must be in [0,100]"))
		}
		return nil
	case domain.VerdictRethink:
		if decision.Notes == "" {
			return domain.WrapError(domain.ErrValidation, "submit review",
				errors.New("rethink verdict requires notes"))
		}
		return nil
	default:
		return domain.WrapError(domain.ErrValidation, "submit review",
			errors.New("unknown verdict: "+string(decision.Verdict)))
	}
}
