package domain

// DocumentChunk is one indexed slice of a policy document. Immutable once
// indexed; owned by the evidence store.
type DocumentChunk struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Source     string `json:"source"`
	SourcePage int    `json:"source_page,omitempty"`
}

// RankedCandidate is a per-query scoring record referencing a chunk.
// LexicalScore and SemanticScore are on each ranker's own scale; FusedScore
// is the combined [0,1]-normalized value. RerankScore is set only when the
// rerank collaborator scored this candidate.
type RankedCandidate struct {
	ChunkID       string   `json:"chunk_id"`
	Text          string   `json:"text"`
	Source        string   `json:"source"`
	SourcePage    int      `json:"source_page,omitempty"`
	LexicalScore  float64  `json:"lexical_score"`
	SemanticScore float64  `json:"semantic_score"`
	FusedScore    float64  `json:"fused_score"`
	RerankScore   *float64 `json:"rerank_score,omitempty"`
}

// EvidenceSet is an ordered evidence list, most relevant first. Reranked
// reports whether the rerank collaborator contributed to the ordering, so a
// fused-only fallback is observable by the caller.
type EvidenceSet struct {
	Candidates []RankedCandidate `json:"candidates"`
	Reranked   bool              `json:"reranked"`
}

type Citation struct {
	ChunkID    string `json:"chunk_id"`
	Source     string `json:"source"`
	SourcePage int    `json:"source_page,omitempty"`
}

func (e EvidenceSet) Citations() []Citation {
	out := make([]Citation, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		out = append(out, Citation{
			ChunkID:    c.ChunkID,
			Source:     c.Source,
			SourcePage: c.SourcePage,
		})
	}
	return out
}
