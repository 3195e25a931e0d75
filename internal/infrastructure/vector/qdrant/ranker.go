package qdrant

import (
	"context"
	"fmt"

	"github.com/creditdesk/riskflow/internal/core/domain"
	"github.com/creditdesk/riskflow/internal/core/ports"
)

// Ranker is the semantic retrieval axis backed by a Qdrant collection:
// embed the query, then vector-search the corpus.
type Ranker struct {
	client   *Client
	embedder ports.Embedder
}

func NewRanker(client *Client, embedder ports.Embedder) *Ranker {
	return &Ranker{client: client, embedder: embedder}
}

func (r *Ranker) RankSemantic(ctx context.Context, query string, limit int) ([]domain.RankedCandidate, error) {
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return r.client.Search(ctx, vec, limit)
}
