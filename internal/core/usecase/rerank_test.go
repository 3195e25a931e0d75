package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

func TestRerankReordersShortlistAndMarksEvidence(t *testing.T) {
	lexical := &stubLexical{candidates: []domain.RankedCandidate{
		lexCandidate("first", 9), lexCandidate("second", 5), lexCandidate("third", 1),
	}}
	// Reranker prefers the fused runner-up.
	reranker := &stubReranker{scores: []float64{0.2, 0.9}}
	engine := NewFusionEngine(lexical, &stubSemantic{}, reranker, FusionConfig{RerankTopN: 2}, nil)

	evidence, err := engine.Retrieve(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !evidence.Reranked {
		t.Fatal("expected evidence marked reranked")
	}
	got := []string{evidence.Candidates[0].ChunkID, evidence.Candidates[1].ChunkID, evidence.Candidates[2].ChunkID}
	want := []string{"second", "first", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if evidence.Candidates[0].RerankScore == nil || *evidence.Candidates[0].RerankScore != 0.9 {
		t.Fatal("expected rerank score recorded on shortlisted candidate")
	}
	if evidence.Candidates[2].RerankScore != nil {
		t.Fatal("expected no rerank score outside the shortlist")
	}
}

func TestRerankFailureFallsBackToFusedOrder(t *testing.T) {
	lexical := &stubLexical{candidates: []domain.RankedCandidate{
		lexCandidate("first", 9), lexCandidate("second", 5),
	}}
	reranker := &stubReranker{err: errors.New("rerank service down")}
	engine := NewFusionEngine(lexical, &stubSemantic{}, reranker, FusionConfig{RerankTopN: 2}, nil)

	evidence, err := engine.Retrieve(context.Background(), "query", 2)
	if err != nil {
		t.Fatalf("expected fallback, got error: %v", err)
	}
	if evidence.Reranked {
		t.Fatal("expected unreranked evidence after reranker failure")
	}
	if evidence.Candidates[0].ChunkID != "first" {
		t.Fatalf("expected fused order preserved, got %s first", evidence.Candidates[0].ChunkID)
	}
	if reranker.calls != 1 {
		t.Fatalf("expected a single rerank attempt, got %d", reranker.calls)
	}
}

func TestRerankScoreCountMismatchFallsBack(t *testing.T) {
	lexical := &stubLexical{candidates: []domain.RankedCandidate{
		lexCandidate("first", 9), lexCandidate("second", 5),
	}}
	reranker := &stubReranker{scores: []float64{0.5}}
	engine := NewFusionEngine(lexical, &stubSemantic{}, reranker, FusionConfig{RerankTopN: 2}, nil)

	evidence, err := engine.Retrieve(context.Background(), "query", 2)
	if err != nil {
		t.Fatalf("expected fallback, got error: %v", err)
	}
	if evidence.Reranked {
		t.Fatal("expected unreranked evidence on misaligned scores")
	}
}

func TestRerankDisabledWithZeroTopN(t *testing.T) {
	lexical := &stubLexical{candidates: []domain.RankedCandidate{lexCandidate("a", 1)}}
	reranker := &stubReranker{}
	engine := NewFusionEngine(lexical, &stubSemantic{}, reranker, FusionConfig{RerankTopN: 0}, nil)

	evidence, err := engine.Retrieve(context.Background(), "query", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evidence.Reranked {
		t.Fatal("expected rerank stage disabled")
	}
	if reranker.calls != 0 {
		t.Fatalf("expected no rerank calls, got %d", reranker.calls)
	}
}
