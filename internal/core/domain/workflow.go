package domain

import "time"

// RunStatus is the orchestrator state machine state.
type RunStatus string

const (
	StatusInit        RunStatus = "INIT"
	StatusRetrieving  RunStatus = "RETRIEVING"
	StatusAnalyzing   RunStatus = "ANALYZING"
	StatusToolCalling RunStatus = "TOOL_CALLING"
	StatusReviewing   RunStatus = "REVIEWING"
	StatusDeciding    RunStatus = "DECIDING"
	StatusDone        RunStatus = "DONE"
	StatusFailed      RunStatus = "FAILED"
)

// Stage names used for retry accounting and failure attribution.
const (
	StageRetrieve = "retrieve"
	StageAnalyze  = "analyze"
	StageToolCall = "tool_call"
	StageToolLoop = "tool_loop"
	StageReview   = "review"
)

// CreditCase is the borrower input that starts an orchestration run.
type CreditCase struct {
	ID            string  `json:"id"`
	LoanType      string  `json:"loan_type"`
	LoanAmount    float64 `json:"loan_amount"`
	BorrowerQuery string  `json:"borrower_query"`
}

type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolSucceeded ToolStatus = "succeeded"
	ToolFailed    ToolStatus = "failed"
)

// Failure kinds recorded on a resolved ToolCallRecord.
const (
	ToolErrValidation = "validation"
	ToolErrNotFound   = "not_found"
	ToolErrTransient  = "transient"
	ToolErrInternal   = "internal"
)

// ToolCallRecord captures one resolved tool invocation. Records are
// append-only in WorkflowState and immutable once resolved.
type ToolCallRecord struct {
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args"`
	Result    any            `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorKind string         `json:"error_kind,omitempty"`
	Status    ToolStatus     `json:"status"`
}

type ReviewVerdict string

const (
	VerdictApprove  ReviewVerdict = "approve"
	VerdictOverride ReviewVerdict = "override"
	VerdictReject   ReviewVerdict = "reject"
	// VerdictRethink sends the case back to analysis with the reviewer's
	// note attached, instead of finalizing the decision.
	VerdictRethink ReviewVerdict = "rethink"
)

// ReviewDecision is recorded if and only if the escalation policy triggered.
type ReviewDecision struct {
	Verdict       ReviewVerdict `json:"verdict"`
	OverrideScore int           `json:"override_score,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	DecidedAt     time.Time     `json:"decided_at"`
}

// WorkflowState is the single mutable object threaded through one
// orchestration run. Only the orchestrator mutates it; collaborators return
// values. Partial results survive a fatal failure for diagnosis.
type WorkflowState struct {
	Case        CreditCase      `json:"case"`
	Evidence    EvidenceSet     `json:"evidence"`
	Draft       *AnalysisDraft  `json:"draft,omitempty"`
	ToolCalls   []ToolCallRecord `json:"tool_calls"`
	Review      *ReviewDecision `json:"review,omitempty"`
	Report      *FinalReport    `json:"report,omitempty"`
	Status      RunStatus       `json:"status"`
	Trace       []RunStatus     `json:"trace"`
	RetryCounts map[string]int  `json:"retry_counts"`
	Err         error           `json:"-"`
	LastError   string          `json:"last_error,omitempty"`
}

func NewWorkflowState(cs CreditCase) *WorkflowState {
	return &WorkflowState{
		Case:        cs,
		Status:      StatusInit,
		Trace:       []RunStatus{StatusInit},
		ToolCalls:   []ToolCallRecord{},
		RetryCounts: map[string]int{},
	}
}

// Clone returns a copy safe to hand to observers while the run continues.
func (s *WorkflowState) Clone() *WorkflowState {
	out := *s
	out.Trace = append([]RunStatus(nil), s.Trace...)
	out.ToolCalls = append([]ToolCallRecord(nil), s.ToolCalls...)
	out.Evidence.Candidates = append([]RankedCandidate(nil), s.Evidence.Candidates...)
	out.RetryCounts = make(map[string]int, len(s.RetryCounts))
	for k, v := range s.RetryCounts {
		out.RetryCounts[k] = v
	}
	if s.Draft != nil {
		draft := *s.Draft
		out.Draft = &draft
	}
	if s.Review != nil {
		review := *s.Review
		out.Review = &review
	}
	if s.Report != nil {
		report := *s.Report
		out.Report = &report
	}
	return &out
}
