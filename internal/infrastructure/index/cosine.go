package index

import (
	"context"
	"math"
	"sort"

	"github.com/creditdesk/riskflow/internal/core/domain"
	"github.com/creditdesk/riskflow/internal/core/ports"
)

// CosineRanker scores the in-memory corpus by cosine similarity between the
// embedded query and vectors attached at index time. Without an embedder or
// attached vectors it contributes nothing, leaving fusion on the lexical
// signal alone.
type CosineRanker struct {
	store    *Store
	embedder ports.Embedder
}

func NewCosineRanker(store *Store, embedder ports.Embedder) *CosineRanker {
	return &CosineRanker{store: store, embedder: embedder}
}

func (r *CosineRanker) RankSemantic(ctx context.Context, query string, limit int) ([]domain.RankedCandidate, error) {
	if r.embedder == nil {
		return nil, nil
	}
	queryVec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RankedCandidate, 0, limit)
	for _, e := range s.entries {
		if len(e.vector) == 0 {
			continue
		}
		score := cosine(queryVec, e.vector)
		if math.IsNaN(score) {
			continue
		}
		out = append(out, domain.RankedCandidate{
			ChunkID:       e.chunk.ID,
			Text:          e.chunk.Text,
			Source:        e.chunk.Source,
			SourcePage:    e.chunk.SourcePage,
			SemanticScore: score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SemanticScore != out[j].SemanticScore {
			return out[i].SemanticScore > out[j].SemanticScore
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
