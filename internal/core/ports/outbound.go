package ports

import (
	"context"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

// LexicalRanker scores chunks by term-overlap relevance on its own scale.
type LexicalRanker interface {
	RankLexical(ctx context.Context, query string, limit int) ([]domain.RankedCandidate, error)
}

// SemanticRanker scores chunks by embedding-space similarity.
type SemanticRanker interface {
	RankSemantic(ctx context.Context, query string, limit int) ([]domain.RankedCandidate, error)
}

// Reranker assigns a relevance score per (query, passage) pair. Scores are
// returned aligned to the input passage order.
type Reranker interface {
	Rerank(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Embedder builds vectors for chunk and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkIndexer loads the immutable chunk corpus into a search backend.
type ChunkIndexer interface {
	IndexChunks(ctx context.Context, chunks []domain.DocumentChunk, vectors [][]float32) error
}

// ReasoningEngine is the external LLM collaborator: opaque, potentially
// slow, potentially failing. It consumes evidence plus prior tool results
// and returns a draft that may request further tool calls.
type ReasoningEngine interface {
	Analyze(
		ctx context.Context,
		cs domain.CreditCase,
		evidence domain.EvidenceSet,
		toolCalls []domain.ToolCallRecord,
		reviewNotes []string,
	) (*domain.AnalysisDraft, error)
}

// ToolGateway validates and executes named deterministic computations. It
// never returns an uncaught failure: every invocation resolves to a record.
type ToolGateway interface {
	Invoke(ctx context.Context, name string, args map[string]any) domain.ToolCallRecord
	Names() []string
}

// ReviewSource blocks until a human decision arrives for the case, or the
// context is cancelled.
type ReviewSource interface {
	Await(ctx context.Context, caseID string) (domain.ReviewDecision, error)
}

// ReviewSink accepts a human decision for a case suspended in review.
type ReviewSink interface {
	Submit(ctx context.Context, caseID string, decision domain.ReviewDecision) error
}

// TextExtractor extracts page-ordered text from a corpus file.
type TextExtractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// CaseQueue transports case submissions to the worker and publishes
// finished reports for downstream consumers.
type CaseQueue interface {
	PublishCase(ctx context.Context, cs domain.CreditCase) error
	SubscribeCases(ctx context.Context, handler func(context.Context, domain.CreditCase) error) error
	PublishReport(ctx context.Context, report *domain.FinalReport) error
}

// ReportExporter writes a final report to an analyst-facing artifact and
// returns its location.
type ReportExporter interface {
	Export(report *domain.FinalReport) (string, error)
}
