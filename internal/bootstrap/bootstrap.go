package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	httpadapter "github.com/creditdesk/riskflow/internal/adapters/http"
	"github.com/creditdesk/riskflow/internal/config"
	"github.com/creditdesk/riskflow/internal/core/domain"
	"github.com/creditdesk/riskflow/internal/core/ports"
	"github.com/creditdesk/riskflow/internal/core/usecase"
	"github.com/creditdesk/riskflow/internal/infrastructure/chunking"
	pdfextractor "github.com/creditdesk/riskflow/internal/infrastructure/extractor/pdf"
	"github.com/creditdesk/riskflow/internal/infrastructure/extractor/plaintext"
	"github.com/creditdesk/riskflow/internal/infrastructure/index"
	"github.com/creditdesk/riskflow/internal/infrastructure/llm/ollama"
	natsqueue "github.com/creditdesk/riskflow/internal/infrastructure/queue/nats"
	"github.com/creditdesk/riskflow/internal/infrastructure/reportfile"
	"github.com/creditdesk/riskflow/internal/infrastructure/rerank"
	"github.com/creditdesk/riskflow/internal/infrastructure/resilience"
	"github.com/creditdesk/riskflow/internal/infrastructure/review"
	"github.com/creditdesk/riskflow/internal/infrastructure/tools"
	"github.com/creditdesk/riskflow/internal/infrastructure/vector/qdrant"
	"github.com/creditdesk/riskflow/internal/observability/logging"
	"github.com/creditdesk/riskflow/internal/observability/metrics"
)

type Options struct {
	Service string
	// EnableQueue connects NATS; the CLI single-case path runs without it.
	EnableQueue bool
	// ReviewSource overrides the hub as the orchestrator's review channel,
	// used by the console reviewer.
	ReviewSource ports.ReviewSource
}

type App struct {
	Config config.Config
	Policy config.Policy
	Logger *slog.Logger

	Queue        *natsqueue.Queue
	Hub          *review.Hub
	Tools        *tools.Registry
	Fusion       *usecase.FusionEngine
	Orchestrator *usecase.Orchestrator
	Cases        *usecase.CaseService
	Exporter     *reportfile.Exporter
	Metrics      *metrics.WorkflowMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	service := opts.Service
	if service == "" {
		service = "riskflow"
	}

	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	workflowMetrics := metrics.NewWorkflowMetrics(service)
	observer := workflowMetrics.Observer(service)

	executorCfg := resilience.DefaultConfig()
	executorCfg.OnRetry = observer.RecordRetry
	executor := resilience.NewExecutor(executorCfg)
	retryRunner := resilience.NewStageRunner(executor)

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel)
	embedder := ollama.NewEmbedder(ollamaClient)

	store := index.NewStore()
	lexical := index.NewBM25Ranker(store)
	semantic, err := buildSemanticAxis(ctx, cfg, store, embedder, logger)
	if err != nil {
		return nil, err
	}

	var reranker ports.Reranker
	if cfg.RerankURL != "" {
		reranker = rerank.New(cfg.RerankURL, cfg.RerankModel, cfg.RerankAPIKey)
	}

	fusion := usecase.NewFusionEngine(lexical, semantic, reranker, usecase.FusionConfig{
		CandidateLimit: cfg.HybridCandidates,
		RerankTopN:     cfg.RerankTopN,
		LexicalWeight:  cfg.FusionLexicalWt,
		SemanticWeight: cfg.FusionSemanticWt,
		Strategy:       cfg.FusionStrategy,
		RRFK:           cfg.FusionRRFK,
		MissingAxis:    cfg.FusionMissingAxis,
	}, logging.Component(logger, "retrieval"))

	var book *tools.CollateralBook
	if policy.CollateralBook != "" {
		book, err = tools.LoadCollateralBook(policy.CollateralBook)
		if err != nil {
			return nil, err
		}
	}
	financial := tools.NewFinancialTools(policy.Escalation.DTIThreshold, book)
	registry, err := tools.NewRegistry(logging.Component(logger, "tools"), financial.Definitions()...)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	reasoner := ollama.NewReasoner(ollamaClient, registry.Names())

	hub := review.NewHub()
	var reviews ports.ReviewSource = hub
	if opts.ReviewSource != nil {
		reviews = opts.ReviewSource
	}

	orchestrator := usecase.NewOrchestrator(fusion, reasoner, registry, reviews, retryRunner, usecase.OrchestratorConfig{
		Policy: domain.EscalationPolicy{
			RiskScoreThreshold:  policy.Escalation.RiskScoreThreshold,
			ConfidenceFloor:     policy.Escalation.ConfidenceFloor,
			LoanAmountThreshold: policy.Escalation.LoanAmountThreshold,
			DTIThreshold:        policy.Escalation.DTIThreshold,
		},
		Budgets: usecase.StageBudgets{
			Retrieve: policy.Retries.Retrieve,
			Analyze:  policy.Retries.Analyze,
			ToolCall: policy.Retries.ToolCall,
			ToolLoop: policy.Retries.ToolLoop,
		},
		Timeouts: usecase.StageTimeouts{
			Retrieve: time.Duration(policy.TimeoutsSeconds.Retrieve) * time.Second,
			Analyze:  time.Duration(policy.TimeoutsSeconds.Analyze) * time.Second,
			ToolCall: time.Duration(policy.TimeoutsSeconds.ToolCall) * time.Second,
		},
		EvidenceTopK: cfg.EvidenceTopK,
	}, logging.Component(logger, "workflow"))
	orchestrator.SetObserver(observer)

	cases := usecase.NewCaseService(orchestrator, hub, logging.Component(logger, "cases"))

	exporter, err := reportfile.NewExporter(cfg.ReportDir)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:       cfg,
		Policy:       policy,
		Logger:       logger,
		Hub:          hub,
		Tools:        registry,
		Fusion:       fusion,
		Orchestrator: orchestrator,
		Cases:        cases,
		Exporter:     exporter,
		Metrics:      workflowMetrics,
	}

	if opts.EnableQueue {
		queue, err := natsqueue.NewWithOptions(cfg.NATSURL, natsqueue.Subjects{
			Cases:   cfg.NATSCasesSubject,
			Reports: cfg.NATSReportsSubject,
			Reviews: cfg.NATSReviewsSubject,
		}, natsqueue.Options{ResilienceExecutor: executor})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.Queue = queue
	}

	app.closeFn = func() {
		cases.Close()
		if app.Queue != nil {
			app.Queue.Close()
		}
	}

	if err := app.loadCorpus(ctx, store, embedder); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Router builds the HTTP API handler over the wired services.
func (a *App) Router() (*httpadapter.Router, error) {
	return httpadapter.NewRouter(
		a.Cases,
		a.Fusion,
		a.Metrics.Handler(),
		a.Config.RateLimitPerSecond,
		a.Config.RateLimitBurst,
	)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// loadCorpus extracts, chunks, embeds, and indexes the policy documents. A
// missing corpus directory leaves the index empty; an embedding failure
// degrades to the lexical signal only.
func (a *App) loadCorpus(ctx context.Context, store *index.Store, embedder ports.Embedder) error {
	if _, err := os.Stat(a.Config.CorpusDir); os.IsNotExist(err) {
		a.Logger.Warn("corpus directory missing, evidence index is empty", "dir", a.Config.CorpusDir)
		return nil
	}

	splitter := chunking.NewSplitter(a.Config.ChunkSize, a.Config.ChunkOverlap)
	loader := index.NewLoader(map[string]ports.TextExtractor{
		".txt": plaintext.New(),
		".md":  plaintext.New(),
		".pdf": pdfextractor.New(),
	}, splitter, logging.Component(a.Logger, "index"))

	chunks, err := loader.Load(ctx, a.Config.CorpusDir)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	if len(chunks) == 0 {
		a.Logger.Warn("corpus directory yielded no chunks", "dir", a.Config.CorpusDir)
		return nil
	}

	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		a.Logger.Warn("embedding corpus failed, continuing with lexical signal only", "error", err)
		vectors = nil
	} else if len(vectors) != len(chunks) {
		a.Logger.Warn("embedding result misaligned, continuing with lexical signal only",
			"chunks", len(chunks), "vectors", len(vectors))
		vectors = nil
	}

	if err := store.IndexChunks(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("index corpus: %w", err)
	}

	if a.Config.QdrantURL != "" && vectors != nil {
		client := qdrant.New(a.Config.QdrantURL, a.Config.QdrantCollection)
		if err := client.IndexChunks(ctx, chunks, vectors); err != nil {
			a.Logger.Warn("qdrant indexing failed, semantic axis may be stale", "error", err)
		}
	}

	a.Logger.Info("corpus indexed", "chunks", len(chunks), "embedded", vectors != nil)
	return nil
}

func buildSemanticAxis(
	ctx context.Context,
	cfg config.Config,
	store *index.Store,
	embedder ports.Embedder,
	logger *slog.Logger,
) (ports.SemanticRanker, error) {
	_ = ctx
	if cfg.QdrantURL != "" {
		client := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
		logger.Info("semantic axis backed by qdrant", "collection", cfg.QdrantCollection)
		return qdrant.NewRanker(client, embedder), nil
	}
	return index.NewCosineRanker(store, embedder), nil
}
