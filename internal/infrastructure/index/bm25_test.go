package index

import (
	"context"
	"testing"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

func chunk(id, text string) domain.DocumentChunk {
	return domain.DocumentChunk{ID: id, Text: text, Source: "policy.md"}
}

func seededStore(t *testing.T, chunks ...domain.DocumentChunk) *Store {
	t.Helper()
	store := NewStore()
	if err := store.IndexChunks(context.Background(), chunks, nil); err != nil {
		t.Fatalf("index chunks: %v", err)
	}
	return store
}

func TestStoreRejectsDuplicateChunkID(t *testing.T) {
	store := seededStore(t, chunk("a", "debt to income"))
	err := store.IndexChunks(context.Background(), []domain.DocumentChunk{chunk("a", "again")}, nil)
	if err == nil {
		t.Fatal("expected duplicate chunk ID rejection")
	}
}

func TestStoreRejectsMisalignedVectors(t *testing.T) {
	store := NewStore()
	chunks := []domain.DocumentChunk{chunk("a", "one"), chunk("b", "two")}
	err := store.IndexChunks(context.Background(), chunks, [][]float32{{1, 0}})
	if err == nil {
		t.Fatal("expected chunks/vectors mismatch error")
	}
}

func TestStoreLookupByID(t *testing.T) {
	store := seededStore(t, chunk("a", "collateral valuation rules"))
	got, ok := store.Chunk("a")
	if !ok || got.Text != "collateral valuation rules" {
		t.Fatalf("expected stored chunk, got %+v ok=%v", got, ok)
	}
	if _, ok := store.Chunk("missing"); ok {
		t.Fatal("expected miss for unknown chunk ID")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", store.Len())
	}
}

func TestBM25RanksMatchingChunkFirst(t *testing.T) {
	store := seededStore(t,
		chunk("dti", "debt to income ratio limits for mortgage underwriting"),
		chunk("collateral", "collateral valuation standards for secured loans"),
		chunk("misc", "general lending policy appendix"),
	)
	ranker := NewBM25Ranker(store)

	out, err := ranker.RankLexical(context.Background(), "debt to income ratio", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected matches")
	}
	if out[0].ChunkID != "dti" {
		t.Fatalf("expected the term-dense chunk first, got %s", out[0].ChunkID)
	}
	if out[0].LexicalScore <= 0 {
		t.Fatalf("expected positive score, got %f", out[0].LexicalScore)
	}
}

func TestBM25ExcludesNonMatchingChunks(t *testing.T) {
	store := seededStore(t,
		chunk("a", "mortgage underwriting thresholds"),
		chunk("b", "vehicle collateral depreciation tables"),
	)
	ranker := NewBM25Ranker(store)

	out, err := ranker.RankLexical(context.Background(), "mortgage thresholds", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].ChunkID != "a" {
		t.Fatalf("expected only the matching chunk, got %+v", out)
	}
}

func TestBM25LimitTruncates(t *testing.T) {
	store := seededStore(t,
		chunk("a", "income income income"),
		chunk("b", "income income"),
		chunk("c", "income"),
	)
	ranker := NewBM25Ranker(store)

	out, err := ranker.RankLexical(context.Background(), "income", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(out))
	}
}

func TestBM25EmptyQueryAndEmptyCorpus(t *testing.T) {
	ranker := NewBM25Ranker(seededStore(t, chunk("a", "text")))
	out, err := ranker.RankLexical(context.Background(), "   ", 5)
	if err != nil || out != nil {
		t.Fatalf("expected nil result for empty query, got %v, %v", out, err)
	}

	empty := NewBM25Ranker(NewStore())
	out, err = empty.RankLexical(context.Background(), "income", 5)
	if err != nil || out != nil {
		t.Fatalf("expected nil result on empty corpus, got %v, %v", out, err)
	}
}
