package usecase

import (
	"context"
	"sort"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

// applyRerank sends the top-N fused candidates to the rerank collaborator.
// Reranked candidates are ordered by rerank score descending; candidates
// outside the shortlist keep their fused order appended after. If the
// collaborator is unavailable the fused ordering is kept and the result is
// marked unreranked.
func (e *FusionEngine) applyRerank(ctx context.Context, query string, fused []domain.RankedCandidate) domain.EvidenceSet {
	if e.reranker == nil || e.cfg.RerankTopN <= 0 || len(fused) == 0 {
		return domain.EvidenceSet{Candidates: fused}
	}

	topN := e.cfg.RerankTopN
	if topN > len(fused) {
		topN = len(fused)
	}

	head := make([]domain.RankedCandidate, topN)
	copy(head, fused[:topN])

	passages := make([]string, 0, topN)
	for _, c := range head {
		passages = append(passages, c.Text)
	}

	rerankCtx, cancel := context.WithTimeout(ctx, e.cfg.RerankTimeout)
	defer cancel()

	scores, err := e.reranker.Rerank(rerankCtx, query, passages)
	if err != nil || len(scores) != len(head) {
		e.logger.Warn("rerank collaborator unavailable, keeping fused ordering",
			"error", err,
			"scores", len(scores),
			"shortlist", len(head),
		)
		return domain.EvidenceSet{Candidates: fused}
	}

	fusedRank := make(map[string]int, len(fused))
	for i, c := range fused {
		fusedRank[c.ChunkID] = i
	}
	for i := range head {
		score := scores[i]
		head[i].RerankScore = &score
	}

	sort.SliceStable(head, func(i, j int) bool {
		if *head[i].RerankScore != *head[j].RerankScore {
			return *head[i].RerankScore > *head[j].RerankScore
		}
		if fusedRank[head[i].ChunkID] != fusedRank[head[j].ChunkID] {
			return fusedRank[head[i].ChunkID] < fusedRank[head[j].ChunkID]
		}
		return head[i].ChunkID < head[j].ChunkID
	})

	out := make([]domain.RankedCandidate, 0, len(fused))
	out = append(out, head...)
	out = append(out, fused[topN:]...)
	return domain.EvidenceSet{Candidates: out, Reranked: true}
}
