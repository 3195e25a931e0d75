package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/creditdesk/riskflow/internal/core/domain"
	"github.com/creditdesk/riskflow/internal/core/ports"
)

// StageBudgets are the per-stage retry limits. ToolLoop bounds the total
// number of analyze→tool-call round trips, not a single call.
type StageBudgets struct {
	Retrieve int
	Analyze  int
	ToolCall int
	ToolLoop int
}

func (b StageBudgets) normalize() StageBudgets {
	out := b
	if out.Retrieve <= 0 {
		out.Retrieve = 3
	}
	if out.Analyze <= 0 {
		out.Analyze = 2
	}
	if out.ToolCall <= 0 {
		out.ToolCall = 3
	}
	if out.ToolLoop <= 0 {
		out.ToolLoop = 4
	}
	return out
}

type StageTimeouts struct {
	Retrieve time.Duration
	Analyze  time.Duration
	ToolCall time.Duration
}

func (t StageTimeouts) normalize() StageTimeouts {
	out := t
	if out.Retrieve <= 0 {
		out.Retrieve = 15 * time.Second
	}
	if out.Analyze <= 0 {
		out.Analyze = 60 * time.Second
	}
	if out.ToolCall <= 0 {
		out.ToolCall = 10 * time.Second
	}
	return out
}

// RunObserver receives workflow telemetry. All methods must be cheap.
type RunObserver interface {
	RunFinished(status domain.RunStatus, duration time.Duration)
	StageObserved(stage string, duration time.Duration, err error)
	ReviewOpened()
	ReviewClosed()
}

type OrchestratorConfig struct {
	Policy       domain.EscalationPolicy
	Budgets      StageBudgets
	Timeouts     StageTimeouts
	EvidenceTopK int
}

// Orchestrator drives one case through retrieval, reasoning, the tool-call
// loop, optional human review, and the final decision. It is the only
// writer of WorkflowState; collaborators return values.
type Orchestrator struct {
	retriever ports.EvidenceRetriever
	reasoner  ports.ReasoningEngine
	tools     ports.ToolGateway
	reviews   ports.ReviewSource
	retry     ports.RetryRunner

	policy   domain.EscalationPolicy
	budgets  StageBudgets
	timeouts StageTimeouts
	topK     int

	logger       *slog.Logger
	observer     RunObserver
	onTransition func(*domain.WorkflowState)
}

func NewOrchestrator(
	retriever ports.EvidenceRetriever,
	reasoner ports.ReasoningEngine,
	tools ports.ToolGateway,
	reviews ports.ReviewSource,
	retry ports.RetryRunner,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	topK := cfg.EvidenceTopK
	if topK <= 0 {
		topK = 5
	}
	return &Orchestrator{
		retriever: retriever,
		reasoner:  reasoner,
		tools:     tools,
		reviews:   reviews,
		retry:     retry,
		policy:    cfg.Policy,
		budgets:   cfg.Budgets.normalize(),
		timeouts:  cfg.Timeouts.normalize(),
		topK:      topK,
		logger:    logger,
	}
}

func (o *Orchestrator) SetObserver(obs RunObserver) {
	o.observer = obs
}

// SetTransitionHook registers a callback fired after every state change,
// with the live state. Hooks must not retain the pointer; clone if needed.
func (o *Orchestrator) SetTransitionHook(fn func(*domain.WorkflowState)) {
	o.onTransition = fn
}

// Run executes a fresh case end to end and returns its final report.
func (o *Orchestrator) Run(ctx context.Context, cs domain.CreditCase) (*domain.FinalReport, error) {
	state := domain.NewWorkflowState(cs)
	if err := o.Execute(ctx, state); err != nil {
		return nil, err
	}
	return state.Report, nil
}

// Execute drives an existing WorkflowState to a terminal status. On fatal
// failure the state retains everything computed so far for diagnosis.
func (o *Orchestrator) Execute(ctx context.Context, state *domain.WorkflowState) error {
	start := time.Now()
	err := o.execute(ctx, state)
	if o.observer != nil {
		o.observer.RunFinished(state.Status, time.Since(start))
	}
	return err
}

func (o *Orchestrator) execute(ctx context.Context, state *domain.WorkflowState) error {
	cs := state.Case
	if strings.TrimSpace(cs.BorrowerQuery) == "" {
		return o.fail(state, "init", domain.WrapError(domain.ErrValidation, "start case", errors.New("borrower_query is required")))
	}

	o.transition(state, domain.StatusRetrieving)
	if err := o.runStage(ctx, state, domain.StageRetrieve, o.timeouts.Retrieve, o.budgets.Retrieve, func(c context.Context) error {
		evidence, err := o.retriever.Retrieve(c, cs.BorrowerQuery, o.topK)
		if err != nil {
			return err
		}
		state.Evidence = evidence
		return nil
	}); err != nil {
		return o.fail(state, domain.StageRetrieve, err)
	}

	var reviewNotes []string
	loopIterations := 0

	for {
		o.transition(state, domain.StatusAnalyzing)
		var draft *domain.AnalysisDraft
		if err := o.runStage(ctx, state, domain.StageAnalyze, o.timeouts.Analyze, o.budgets.Analyze, func(c context.Context) error {
			d, err := o.reasoner.Analyze(c, cs, state.Evidence, state.ToolCalls, reviewNotes)
			if err != nil {
				return err
			}
			if d == nil {
				return domain.WrapError(domain.ErrTransient, "analyze", errors.New("empty analysis draft"))
			}
			draft = d
			return nil
		}); err != nil {
			return o.fail(state, domain.StageAnalyze, err)
		}
		state.Draft = draft

		pending := o.pendingRequests(state, draft.ToolRequests)
		if len(pending) > 0 {
			loopIterations++
			state.RetryCounts[domain.StageToolLoop] = loopIterations
			if loopIterations > o.budgets.ToolLoop {
				return o.fail(state, domain.StageToolLoop,
					domain.WrapError(domain.ErrFatal, "tool loop", fmt.Errorf("exceeded %d iterations", o.budgets.ToolLoop)))
			}

			o.transition(state, domain.StatusToolCalling)
			records, retries, err := o.invokeToolBatch(ctx, pending)
			state.ToolCalls = append(state.ToolCalls, records...)
			state.RetryCounts[domain.StageToolCall] += retries
			if err != nil {
				return o.fail(state, domain.StageToolCall, err)
			}
			continue
		}

		o.transition(state, domain.StatusDeciding)
		if o.policy.RequiresReview(cs, *draft, state.ToolCalls) {
			o.transition(state, domain.StatusReviewing)
			decision, err := o.awaitReview(ctx, cs.ID)
			if err != nil {
				return o.fail(state, domain.StageReview, err)
			}
			state.Review = &decision
			o.transition(state, domain.StatusDeciding)

			if decision.Verdict == domain.VerdictRethink {
				// Reviewer sent the case back; the checkpoint is not final.
				state.Review = nil
				reviewNotes = append(reviewNotes, decision.Notes)
				loopIterations++
				state.RetryCounts[domain.StageToolLoop] = loopIterations
				if loopIterations > o.budgets.ToolLoop {
					return o.fail(state, domain.StageToolLoop,
						domain.WrapError(domain.ErrFatal, "review rethink loop", fmt.Errorf("exceeded %d iterations", o.budgets.ToolLoop)))
				}
				continue
			}
		}
		break
	}

	state.Report = buildFinalReport(state)
	o.transition(state, domain.StatusDone)
	return nil
}

func (o *Orchestrator) awaitReview(ctx context.Context, caseID string) (domain.ReviewDecision, error) {
	if o.observer != nil {
		o.observer.ReviewOpened()
		defer o.observer.ReviewClosed()
	}
	return o.reviews.Await(ctx, caseID)
}

func (o *Orchestrator) runStage(
	ctx context.Context,
	state *domain.WorkflowState,
	stage string,
	timeout time.Duration,
	budget int,
	fn func(context.Context) error,
) error {
	start := time.Now()
	attempts := 0

	err := o.retry.Run(ctx, stage, budget, func(c context.Context) error {
		attempts++
		if timeout > 0 {
			var cancel context.CancelFunc
			c, cancel = context.WithTimeout(c, timeout)
			defer cancel()
		}
		return fn(c)
	}, classifyStageError)

	if attempts > 1 {
		state.RetryCounts[stage] = attempts - 1
	}
	if o.observer != nil {
		o.observer.StageObserved(stage, time.Since(start), err)
	}
	return err
}

// pendingRequests drops requests whose exact (tool, args) key already
// succeeded in this run, and duplicates inside the same batch. A succeeded
// pair is served from the run's record instead of re-invoking the backend.
func (o *Orchestrator) pendingRequests(state *domain.WorkflowState, requests []domain.ToolRequest) []domain.ToolRequest {
	if len(requests) == 0 {
		return nil
	}

	resolved := make(map[string]struct{}, len(state.ToolCalls))
	for _, record := range state.ToolCalls {
		if record.Status == domain.ToolSucceeded {
			resolved[toolCallKey(record.Tool, record.Args)] = struct{}{}
		}
	}

	out := make([]domain.ToolRequest, 0, len(requests))
	for _, req := range requests {
		key := toolCallKey(req.Name, req.Args)
		if _, done := resolved[key]; done {
			o.logger.Debug("tool call served from run cache", "tool", req.Name)
			continue
		}
		resolved[key] = struct{}{}
		out = append(out, req)
	}
	return out
}

// invokeToolBatch executes independent tool requests concurrently and
// waits for the whole batch before results are merged back into the state.
func (o *Orchestrator) invokeToolBatch(ctx context.Context, requests []domain.ToolRequest) ([]domain.ToolCallRecord, int, error) {
	records := make([]domain.ToolCallRecord, len(requests))
	retries := make([]int, len(requests))

	g, groupCtx := errgroup.WithContext(ctx)
	for i, req := range requests {
		g.Go(func() error {
			record, callRetries, err := o.invokeTool(groupCtx, req)
			records[i] = record
			retries[i] = callRetries
			return err
		})
	}
	err := g.Wait()

	total := 0
	merged := make([]domain.ToolCallRecord, 0, len(records))
	for i, record := range records {
		total += retries[i]
		if record.Status == "" {
			// The call was cancelled before its first attempt ran; there
			// is no outcome to record.
			continue
		}
		merged = append(merged, record)
	}
	return merged, total, err
}

func (o *Orchestrator) invokeTool(ctx context.Context, req domain.ToolRequest) (domain.ToolCallRecord, int, error) {
	var record domain.ToolCallRecord
	attempts := 0

	err := o.retry.Run(ctx, domain.StageToolCall, o.budgets.ToolCall, func(c context.Context) error {
		attempts++
		callCtx, cancel := context.WithTimeout(c, o.timeouts.ToolCall)
		defer cancel()

		record = o.tools.Invoke(callCtx, req.Name, req.Args)
		if record.ErrorKind == domain.ToolErrTransient {
			return domain.WrapError(domain.ErrTransient, "invoke "+req.Name, errors.New(record.Error))
		}
		// Validation and not-found outcomes are final records the
		// reasoning step gets to see, not run failures.
		return nil
	}, classifyStageError)

	retriesUsed := 0
	if attempts > 1 {
		retriesUsed = attempts - 1
	}
	if err != nil {
		return record, retriesUsed, fmt.Errorf("tool %s: %w", req.Name, err)
	}
	return record, retriesUsed, nil
}

func (o *Orchestrator) transition(state *domain.WorkflowState, to domain.RunStatus) {
	state.Status = to
	state.Trace = append(state.Trace, to)
	o.logger.Info("workflow transition", "case_id", state.Case.ID, "status", string(to))
	if o.onTransition != nil {
		o.onTransition(state)
	}
}

func (o *Orchestrator) fail(state *domain.WorkflowState, stage string, err error) error {
	failure := &domain.StageFailure{Stage: stage, Err: err}
	state.Err = failure
	state.LastError = failure.Error()
	o.transition(state, domain.StatusFailed)
	o.logger.Error("workflow run failed", "case_id", state.Case.ID, "stage", stage, "error", err)
	return failure
}

func toolCallKey(name string, args map[string]any) string {
	encoded, err := json.Marshal(args)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%v", args))
	}
	return name + ":" + string(encoded)
}

func classifyStageError(err error) ports.RetryClass {
	switch {
	case err == nil:
		return ports.RetryClass{}
	case errors.Is(err, context.Canceled):
		return ports.RetryClass{Retryable: false, RecordFailure: false}
	case errors.Is(err, context.DeadlineExceeded):
		// A stage timeout counts as a transient failure.
		return ports.RetryClass{Retryable: true, RecordFailure: true}
	case domain.IsKind(err, domain.ErrTransient):
		return ports.RetryClass{Retryable: true, RecordFailure: true}
	default:
		return ports.RetryClass{Retryable: false, RecordFailure: true}
	}
}
