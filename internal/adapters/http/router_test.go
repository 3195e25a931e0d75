package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

type fakeCaseService struct {
	startID     string
	startErr    error
	states      map[string]*domain.WorkflowState
	reviewErr   error
	lastCaseID  string
	lastVerdict domain.ReviewVerdict
}

func (f *fakeCaseService) Start(_ context.Context, cs domain.CreditCase) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	if f.startID != "" {
		return f.startID, nil
	}
	return cs.ID, nil
}

func (f *fakeCaseService) Snapshot(caseID string) (*domain.WorkflowState, bool) {
	state, ok := f.states[caseID]
	return state, ok
}

func (f *fakeCaseService) SubmitReview(_ context.Context, caseID string, decision domain.ReviewDecision) error {
	f.lastCaseID = caseID
	f.lastVerdict = decision.Verdict
	return f.reviewErr
}

type fakeRetriever struct {
	evidence domain.EvidenceSet
	err      error
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, _ int) (domain.EvidenceSet, error) {
	return f.evidence, f.err
}

func newTestHandler(t *testing.T, cases *fakeCaseService, retriever *fakeRetriever) http.Handler {
	t.Helper()
	router, err := NewRouter(cases, retriever, nil, 1000, 1000)
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStartCaseAccepted(t *testing.T) {
	handler := newTestHandler(t, &fakeCaseService{startID: "case-42"}, &fakeRetriever{})

	rec := doJSON(t, handler, http.MethodPost, "/v1/cases",
		`{"loan_type":"mortgage","loan_amount":250000,"borrower_query":"assess this"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["case_id"] != "case-42" {
		t.Fatalf("unexpected case id: %s", resp["case_id"])
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestStartCaseValidationMapsTo400(t *testing.T) {
	cases := &fakeCaseService{
		startErr: domain.WrapError(domain.ErrValidation, "start case", errors.New("borrower_query is required")),
	}
	handler := newTestHandler(t, cases, &fakeRetriever{})

	rec := doJSON(t, handler, http.MethodPost, "/v1/cases", `{"loan_type":"mortgage"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStartCaseRejectsMalformedJSON(t *testing.T) {
	handler := newTestHandler(t, &fakeCaseService{}, &fakeRetriever{})

	rec := doJSON(t, handler, http.MethodPost, "/v1/cases", `{"loan_type":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetCaseSnapshot(t *testing.T) {
	state := domain.NewWorkflowState(domain.CreditCase{ID: "case-1", BorrowerQuery: "q"})
	state.Status = domain.StatusAnalyzing
	handler := newTestHandler(t, &fakeCaseService{states: map[string]*domain.WorkflowState{"case-1": state}}, &fakeRetriever{})

	rec := doJSON(t, handler, http.MethodGet, "/v1/cases/case-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != string(domain.StatusAnalyzing) {
		t.Fatalf("unexpected status: %s", resp.Status)
	}
}

func TestGetCaseUnknownMapsTo404(t *testing.T) {
	handler := newTestHandler(t, &fakeCaseService{}, &fakeRetriever{})

	rec := doJSON(t, handler, http.MethodGet, "/v1/cases/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSubmitReviewRoutesToCase(t *testing.T) {
	cases := &fakeCaseService{}
	handler := newTestHandler(t, cases, &fakeRetriever{})

	rec := doJSON(t, handler, http.MethodPost, "/v1/cases/case-7/review", `{"verdict":"approve"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if cases.lastCaseID != "case-7" || cases.lastVerdict != domain.VerdictApprove {
		t.Fatalf("unexpected forwarded review: case=%s verdict=%s", cases.lastCaseID, cases.lastVerdict)
	}
}

func TestSubmitReviewNotFoundMapsTo404(t *testing.T) {
	cases := &fakeCaseService{
		reviewErr: domain.WrapError(domain.ErrNotFound, "submit review", errors.New("no run registered for case")),
	}
	handler := newTestHandler(t, cases, &fakeRetriever{})

	rec := doJSON(t, handler, http.MethodPost, "/v1/cases/missing/review", `{"verdict":"approve"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestQueryEvidence(t *testing.T) {
	retriever := &fakeRetriever{evidence: domain.EvidenceSet{
		Candidates: []domain.RankedCandidate{{ChunkID: "policy.md:0:0", Source: "policy.md", FusedScore: 0.7}},
	}}
	handler := newTestHandler(t, &fakeCaseService{}, retriever)

	rec := doJSON(t, handler, http.MethodPost, "/v1/evidence/query", `{"query":"dti limits","k":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp domain.EvidenceSet
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Candidates) != 1 || resp.Candidates[0].ChunkID != "policy.md:0:0" {
		t.Fatalf("unexpected evidence: %+v", resp)
	}
}

func TestQueryEvidenceRequiresQuery(t *testing.T) {
	handler := newTestHandler(t, &fakeCaseService{}, &fakeRetriever{})

	rec := doJSON(t, handler, http.MethodPost, "/v1/evidence/query", `{"query":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestQueryEvidenceTransientMapsTo503(t *testing.T) {
	retriever := &fakeRetriever{
		err: domain.WrapError(domain.ErrTransient, "rank", errors.New("all rankers failed")),
	}
	handler := newTestHandler(t, &fakeCaseService{}, retriever)

	rec := doJSON(t, handler, http.MethodPost, "/v1/evidence/query", `{"query":"dti"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t, &fakeCaseService{}, &fakeRetriever{})

	rec := doJSON(t, handler, http.MethodGet, "/v1/cases", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRateLimitExceededMapsTo429(t *testing.T) {
	router, err := NewRouter(&fakeCaseService{}, &fakeRetriever{}, nil, 1, 1)
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	handler := router.Handler()

	if rec := doJSON(t, handler, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected first request within burst, got %d", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodGet, "/healthz", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the burst is spent, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(t, &fakeCaseService{}, &fakeRetriever{})

	rec := doJSON(t, handler, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
