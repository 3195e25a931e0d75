package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

type stubLexical struct {
	candidates []domain.RankedCandidate
	err        error
}

func (s *stubLexical) RankLexical(_ context.Context, _ string, _ int) ([]domain.RankedCandidate, error) {
	return s.candidates, s.err
}

type stubSemantic struct {
	candidates []domain.RankedCandidate
	err        error
}

func (s *stubSemantic) RankSemantic(_ context.Context, _ string, _ int) ([]domain.RankedCandidate, error) {
	return s.candidates, s.err
}

type stubReranker struct {
	scores []float64
	err    error
	calls  int
}

func (s *stubReranker) Rerank(_ context.Context, _ string, passages []string) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.scores != nil {
		return s.scores, nil
	}
	return make([]float64, len(passages)), nil
}

func lexCandidate(id string, score float64) domain.RankedCandidate {
	return domain.RankedCandidate{ChunkID: id, Text: "text " + id, Source: id + ".txt", LexicalScore: score}
}

func semCandidate(id string, score float64) domain.RankedCandidate {
	return domain.RankedCandidate{ChunkID: id, Text: "text " + id, Source: id + ".txt", SemanticScore: score}
}

func TestRetrieveTruncatesToK(t *testing.T) {
	lexical := &stubLexical{candidates: []domain.RankedCandidate{
		lexCandidate("a", 3), lexCandidate("b", 2), lexCandidate("c", 1),
	}}
	engine := NewFusionEngine(lexical, &stubSemantic{}, nil, FusionConfig{}, nil)

	evidence, err := engine.Retrieve(context.Background(), "query", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(evidence.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(evidence.Candidates))
	}
	if evidence.Reranked {
		t.Fatal("expected unreranked evidence without a reranker")
	}
}

func TestRetrieveReturnsFewerThanKWhenCorpusSmall(t *testing.T) {
	lexical := &stubLexical{candidates: []domain.RankedCandidate{lexCandidate("a", 1)}}
	engine := NewFusionEngine(lexical, &stubSemantic{}, nil, FusionConfig{}, nil)

	evidence, err := engine.Retrieve(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(evidence.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(evidence.Candidates))
	}
}

func TestWeightedFusionDeduplicatesAcrossAxes(t *testing.T) {
	lexical := &stubLexical{candidates: []domain.RankedCandidate{
		lexCandidate("shared", 5), lexCandidate("lex-only", 4),
	}}
	semantic := &stubSemantic{candidates: []domain.RankedCandidate{
		semCandidate("shared", 0.9), semCandidate("sem-only", 0.5),
	}}
	engine := NewFusionEngine(lexical, semantic, nil, FusionConfig{}, nil)

	evidence, err := engine.Retrieve(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(evidence.Candidates) != 3 {
		t.Fatalf("expected 3 deduplicated candidates, got %d", len(evidence.Candidates))
	}
	if evidence.Candidates[0].ChunkID != "shared" {
		t.Fatalf("expected chunk present on both axes to rank first, got %s", evidence.Candidates[0].ChunkID)
	}
}

func TestWeightedFusionSingleAxisOrderPreserved(t *testing.T) {
	lexical := &stubLexical{candidates: []domain.RankedCandidate{
		lexCandidate("best", 10), lexCandidate("mid", 5), lexCandidate("worst", 1),
	}}
	engine := NewFusionEngine(lexical, &stubSemantic{}, nil, FusionConfig{}, nil)

	evidence, err := engine.Retrieve(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := []string{evidence.Candidates[0].ChunkID, evidence.Candidates[1].ChunkID, evidence.Candidates[2].ChunkID}
	want := []string{"best", "mid", "worst"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestMissingAxisRescaleFavorsStrongSingleSignal(t *testing.T) {
	// "solo" tops the lexical list but is absent from the semantic list;
	// "both" is mediocre on both axes.
	lexical := []domain.RankedCandidate{
		lexCandidate("solo", 10), lexCandidate("both", 5), lexCandidate("weak", 1),
	}
	semantic := []domain.RankedCandidate{
		semCandidate("both", 0.6), semCandidate("weak", 0.3), semCandidate("other", 0.1),
	}

	zero := fuseWeighted(lexical, semantic, FusionConfig{LexicalWeight: 0.5, SemanticWeight: 0.5, MissingAxis: MissingAxisZero}.normalize())
	rescale := fuseWeighted(lexical, semantic, FusionConfig{LexicalWeight: 0.5, SemanticWeight: 0.5, MissingAxis: MissingAxisRescale}.normalize())

	var zeroSolo, rescaleSolo float64
	for _, c := range zero {
		if c.ChunkID == "solo" {
			zeroSolo = c.FusedScore
		}
	}
	for _, c := range rescale {
		if c.ChunkID == "solo" {
			rescaleSolo = c.FusedScore
		}
	}

	if rescaleSolo <= zeroSolo {
		t.Fatalf("expected rescale to score the single-axis chunk higher: zero=%f rescale=%f", zeroSolo, rescaleSolo)
	}
	if rescale[0].ChunkID != "solo" {
		t.Fatalf("expected solo first under rescale, got %s", rescale[0].ChunkID)
	}
}

func TestFusedScoreMonotoneInAxisScore(t *testing.T) {
	lexical := []domain.RankedCandidate{
		lexCandidate("high", 9), lexCandidate("low", 2),
	}
	semantic := []domain.RankedCandidate{
		semCandidate("high", 0.8), semCandidate("low", 0.2),
	}

	fused := fuseWeighted(lexical, semantic, FusionConfig{}.normalize())
	if fused[0].ChunkID != "high" {
		t.Fatalf("expected dominating chunk first, got %s", fused[0].ChunkID)
	}
	if fused[0].FusedScore <= fused[1].FusedScore {
		t.Fatalf("expected strictly higher fused score: %f vs %f", fused[0].FusedScore, fused[1].FusedScore)
	}
}

func TestFusionTieBreaksByChunkID(t *testing.T) {
	lexical := []domain.RankedCandidate{
		lexCandidate("b", 1), lexCandidate("a", 1),
	}
	fused := fuseWeighted(lexical, nil, FusionConfig{}.normalize())
	if fused[0].ChunkID != "a" {
		t.Fatalf("expected tie-break by chunk ID ascending, got %s first", fused[0].ChunkID)
	}
}

func TestRRFStrategyRanksSharedChunkFirst(t *testing.T) {
	lexical := &stubLexical{candidates: []domain.RankedCandidate{
		lexCandidate("lex-top", 9), lexCandidate("shared", 5),
	}}
	semantic := &stubSemantic{candidates: []domain.RankedCandidate{
		semCandidate("shared", 0.9), semCandidate("sem-top", 0.8),
	}}
	engine := NewFusionEngine(lexical, semantic, nil, FusionConfig{Strategy: StrategyRRF}, nil)

	evidence, err := engine.Retrieve(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evidence.Candidates[0].ChunkID != "shared" {
		t.Fatalf("expected chunk on both lists first under RRF, got %s", evidence.Candidates[0].ChunkID)
	}
}

func TestRetrieveDegradesWhenOneRankerFails(t *testing.T) {
	lexical := &stubLexical{err: errors.New("index offline")}
	semantic := &stubSemantic{candidates: []domain.RankedCandidate{
		semCandidate("a", 0.9), semCandidate("b", 0.5),
	}}
	engine := NewFusionEngine(lexical, semantic, nil, FusionConfig{}, nil)

	evidence, err := engine.Retrieve(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("expected degraded retrieval, got error: %v", err)
	}
	if len(evidence.Candidates) != 2 {
		t.Fatalf("expected 2 candidates from the surviving axis, got %d", len(evidence.Candidates))
	}
	if evidence.Candidates[0].ChunkID != "a" {
		t.Fatalf("expected semantic order preserved, got %s first", evidence.Candidates[0].ChunkID)
	}
}

func TestRetrieveFailsWhenBothRankersFail(t *testing.T) {
	engine := NewFusionEngine(
		&stubLexical{err: errors.New("lex down")},
		&stubSemantic{err: errors.New("sem down")},
		nil, FusionConfig{}, nil,
	)

	if _, err := engine.Retrieve(context.Background(), "query", 5); err == nil {
		t.Fatal("expected error when both rankers fail")
	}
}

func TestRetrieveEmptyCorpusIsValid(t *testing.T) {
	engine := NewFusionEngine(&stubLexical{}, &stubSemantic{}, nil, FusionConfig{}, nil)

	evidence, err := engine.Retrieve(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(evidence.Candidates) != 0 {
		t.Fatalf("expected empty evidence, got %d candidates", len(evidence.Candidates))
	}
}
