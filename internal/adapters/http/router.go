package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/creditdesk/riskflow/internal/core/domain"
	"github.com/creditdesk/riskflow/internal/core/ports"
)

type Router struct {
	cases     ports.CaseService
	retriever ports.EvidenceRetriever
	metrics   http.Handler
	limiter   *rate.Limiter
}

// NewRouter builds the API surface after checking the served routes against
// the embedded OpenAPI contract, so a drifted contract fails startup
// instead of surprising a client.
func NewRouter(
	cases ports.CaseService,
	retriever ports.EvidenceRetriever,
	metricsHandler http.Handler,
	requestsPerSecond float64,
	burst int,
) (*Router, error) {
	if err := validateContract(); err != nil {
		return nil, err
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 20
	}
	if burst <= 0 {
		burst = int(requestsPerSecond) * 2
	}
	return &Router{
		cases:     cases,
		retriever: retriever,
		metrics:   metricsHandler,
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/cases", rt.startCase)
	mux.HandleFunc("/v1/cases/", rt.caseSubroutes)
	mux.HandleFunc("/v1/evidence/query", rt.queryEvidence)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics)
	}

	var handler http.Handler = mux
	handler = rt.rateLimitMiddleware(handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) startCase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		ID            string  `json:"id"`
		LoanType      string  `json:"loan_type"`
		LoanAmount    float64 `json:"loan_amount"`
		BorrowerQuery string  `json:"borrower_query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	caseID, err := rt.cases.Start(r.Context(), domain.CreditCase{
		ID:            req.ID,
		LoanType:      req.LoanType,
		LoanAmount:    req.LoanAmount,
		BorrowerQuery: req.BorrowerQuery,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"case_id": caseID})
}

func (rt *Router) caseSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/cases/")
	if rest == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "case id is required"})
		return
	}

	if caseID, ok := strings.CutSuffix(rest, "/review"); ok {
		rt.submitReview(w, r, caseID)
		return
	}
	rt.getCase(w, r, rest)
}

func (rt *Router) getCase(w http.ResponseWriter, r *http.Request, caseID string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	state, ok := rt.cases.Snapshot(caseID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown case: " + caseID})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (rt *Router) submitReview(w http.ResponseWriter, r *http.Request, caseID string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Verdict       string `json:"verdict"`
		OverrideScore int    `json:"override_score"`
		Notes         string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	err := rt.cases.SubmitReview(r.Context(), caseID, domain.ReviewDecision{
		Verdict:       domain.ReviewVerdict(req.Verdict),
		OverrideScore: req.OverrideScore,
		Notes:         req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (rt *Router) queryEvidence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query string `json:"query"`
		K     int    `json:"k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	evidence, err := rt.retriever.Retrieve(r.Context(), req.Query, req.K)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evidence)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
