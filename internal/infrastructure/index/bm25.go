package index

import (
	"context"
	"math"
	"sort"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// BM25Ranker scores the in-memory corpus by Okapi BM25. Raw scores are
// unbounded; normalization happens in the fusion stage.
type BM25Ranker struct {
	store *Store
}

func NewBM25Ranker(store *Store) *BM25Ranker {
	return &BM25Ranker{store: store}
}

func (r *BM25Ranker) RankLexical(ctx context.Context, query string, limit int) ([]domain.RankedCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	queryTokens := tokenizeAlphaNum(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if n == 0 {
		return nil, nil
	}
	avgLen := float64(s.totalLen) / float64(n)
	if avgLen <= 0 {
		avgLen = 1
	}

	idf := make(map[string]float64, len(queryTokens))
	for _, token := range queryTokens {
		if _, done := idf[token]; done {
			continue
		}
		df := s.docFreq[token]
		idf[token] = math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
	}

	out := make([]domain.RankedCandidate, 0, limit)
	for _, e := range s.entries {
		tf := make(map[string]int, len(queryTokens))
		for _, token := range e.tokens {
			if _, wanted := idf[token]; wanted {
				tf[token]++
			}
		}
		if len(tf) == 0 {
			continue
		}

		docLen := float64(len(e.tokens))
		score := 0.0
		for token, freq := range tf {
			f := float64(freq)
			score += idf[token] * (f * (bm25K1 + 1)) / (f + bm25K1*(1-bm25B+bm25B*docLen/avgLen))
		}
		if score <= 0 {
			continue
		}

		out = append(out, domain.RankedCandidate{
			ChunkID:      e.chunk.ID,
			Text:         e.chunk.Text,
			Source:       e.chunk.Source,
			SourcePage:   e.chunk.SourcePage,
			LexicalScore: score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LexicalScore != out[j].LexicalScore {
			return out[i].LexicalScore > out[j].LexicalScore
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
