package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

type entry struct {
	chunk  domain.DocumentChunk
	tokens []string
	vector []float32
}

// Store is the in-memory evidence index: the immutable chunk corpus plus
// optional attached embedding vectors. Term statistics are maintained
// incrementally so the lexical ranker scores without rescanning the corpus.
type Store struct {
	mu       sync.RWMutex
	entries  []entry
	byID     map[string]int
	docFreq  map[string]int
	totalLen int
}

func NewStore() *Store {
	return &Store{
		byID:    make(map[string]int),
		docFreq: make(map[string]int),
	}
}

// IndexChunks adds chunks to the corpus. vectors may be nil when no embedder
// is configured; it must otherwise align with chunks. Re-indexing an
// existing chunk ID is rejected.
func (s *Store) IndexChunks(ctx context.Context, chunks []domain.DocumentChunk, vectors [][]float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if vectors != nil && len(vectors) != len(chunks) {
		return fmt.Errorf("chunks/vectors mismatch: %d vs %d", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, chunk := range chunks {
		if _, exists := s.byID[chunk.ID]; exists {
			return fmt.Errorf("duplicate chunk id: %s", chunk.ID)
		}

		e := entry{
			chunk:  chunk,
			tokens: tokenizeAlphaNum(chunk.Text),
		}
		if vectors != nil {
			e.vector = vectors[i]
		}

		seen := make(map[string]struct{}, len(e.tokens))
		for _, token := range e.tokens {
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			s.docFreq[token]++
		}
		s.totalLen += len(e.tokens)

		s.byID[chunk.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) Chunk(id string) (domain.DocumentChunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return domain.DocumentChunk{}, false
	}
	return s.entries[i].chunk, true
}
