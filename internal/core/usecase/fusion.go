package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/creditdesk/riskflow/internal/core/domain"
	"github.com/creditdesk/riskflow/internal/core/ports"
)

const (
	StrategyWeighted = "weighted"
	StrategyRRF      = "rrf"

	// MissingAxisZero scores a candidate absent from one ranker's list as
	// zero on that axis. MissingAxisRescale renormalizes the weights over
	// the axes that are present, so a strong single-signal match outside
	// the other ranker's cutoff is not penalized.
	MissingAxisZero    = "zero"
	MissingAxisRescale = "rescale"
)

type FusionConfig struct {
	CandidateLimit int
	RerankTopN     int
	LexicalWeight  float64
	SemanticWeight float64
	Strategy       string
	RRFK           int
	MissingAxis    string
	RerankTimeout  time.Duration
}

func (c FusionConfig) normalize() FusionConfig {
	out := c
	if out.CandidateLimit <= 0 {
		out.CandidateLimit = 30
	}
	if out.RerankTopN < 0 {
		out.RerankTopN = 0
	}
	if out.LexicalWeight <= 0 && out.SemanticWeight <= 0 {
		out.LexicalWeight = 0.5
		out.SemanticWeight = 0.5
	}
	if out.Strategy == "" {
		out.Strategy = StrategyWeighted
	}
	if out.RRFK <= 0 {
		out.RRFK = 60
	}
	if out.MissingAxis == "" {
		out.MissingAxis = MissingAxisZero
	}
	if out.RerankTimeout <= 0 {
		out.RerankTimeout = 10 * time.Second
	}
	return out
}

// FusionEngine combines a lexical and a semantic ranker over the evidence
// store into one reranked evidence list.
type FusionEngine struct {
	lexical  ports.LexicalRanker
	semantic ports.SemanticRanker
	reranker ports.Reranker
	cfg      FusionConfig
	logger   *slog.Logger
}

// NewFusionEngine builds the hybrid retrieval pipeline. A nil reranker
// disables the rerank stage; results are then always marked unreranked.
func NewFusionEngine(
	lexical ports.LexicalRanker,
	semantic ports.SemanticRanker,
	reranker ports.Reranker,
	cfg FusionConfig,
	logger *slog.Logger,
) *FusionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &FusionEngine{
		lexical:  lexical,
		semantic: semantic,
		reranker: reranker,
		cfg:      cfg.normalize(),
		logger:   logger,
	}
}

// Retrieve returns up to k candidates ranked by relevance descending.
// An empty result is valid. If one ranker fails while the other succeeds,
// fusion degrades to the surviving signal; only a double failure is an
// error.
func (e *FusionEngine) Retrieve(ctx context.Context, query string, k int) (domain.EvidenceSet, error) {
	if k <= 0 {
		k = 5
	}
	limit := e.cfg.CandidateLimit
	if limit < k {
		limit = k
	}

	lex, lexErr := e.lexical.RankLexical(ctx, query, limit)
	sem, semErr := e.semantic.RankSemantic(ctx, query, limit)
	if lexErr != nil && semErr != nil {
		return domain.EvidenceSet{}, fmt.Errorf("lexical ranker: %w; semantic ranker: %v", lexErr, semErr)
	}
	if lexErr != nil {
		e.logger.Warn("lexical ranker failed, fusing semantic signal only", "error", lexErr)
		lex = nil
	}
	if semErr != nil {
		e.logger.Warn("semantic ranker failed, fusing lexical signal only", "error", semErr)
		sem = nil
	}

	var fused []domain.RankedCandidate
	if e.cfg.Strategy == StrategyRRF {
		fused = fuseRRF(lex, sem, e.cfg.RRFK)
	} else {
		fused = fuseWeighted(lex, sem, e.cfg)
	}

	evidence := e.applyRerank(ctx, query, fused)
	if len(evidence.Candidates) > k {
		evidence.Candidates = evidence.Candidates[:k]
	}
	return evidence, nil
}

type fusionAxes struct {
	candidate domain.RankedCandidate
	hasLex    bool
	hasSem    bool
}

func collectAxes(lexical, semantic []domain.RankedCandidate) map[string]*fusionAxes {
	acc := make(map[string]*fusionAxes, len(lexical)+len(semantic))
	for _, c := range lexical {
		axes, ok := acc[c.ChunkID]
		if !ok {
			axes = &fusionAxes{candidate: c}
			acc[c.ChunkID] = axes
		}
		if !axes.hasLex || c.LexicalScore > axes.candidate.LexicalScore {
			axes.candidate.LexicalScore = c.LexicalScore
		}
		axes.hasLex = true
	}
	for _, c := range semantic {
		axes, ok := acc[c.ChunkID]
		if !ok {
			axes = &fusionAxes{candidate: c}
			acc[c.ChunkID] = axes
		}
		if !axes.hasSem || c.SemanticScore > axes.candidate.SemanticScore {
			axes.candidate.SemanticScore = c.SemanticScore
		}
		axes.hasSem = true
		if axes.candidate.Text == "" {
			axes.candidate.Text = c.Text
		}
	}
	return acc
}

func fuseWeighted(lexical, semantic []domain.RankedCandidate, cfg FusionConfig) []domain.RankedCandidate {
	acc := collectAxes(lexical, semantic)
	if len(acc) == 0 {
		return nil
	}

	lexNorm := minMaxNormalizer(lexical, func(c domain.RankedCandidate) float64 { return c.LexicalScore })
	semNorm := minMaxNormalizer(semantic, func(c domain.RankedCandidate) float64 { return c.SemanticScore })

	out := make([]domain.RankedCandidate, 0, len(acc))
	for _, axes := range acc {
		c := axes.candidate
		var lexPart, semPart float64
		if axes.hasLex {
			lexPart = lexNorm(c.LexicalScore)
		}
		if axes.hasSem {
			semPart = semNorm(c.SemanticScore)
		}

		weightSum := cfg.LexicalWeight + cfg.SemanticWeight
		if cfg.MissingAxis == MissingAxisRescale {
			weightSum = 0
			if axes.hasLex {
				weightSum += cfg.LexicalWeight
			}
			if axes.hasSem {
				weightSum += cfg.SemanticWeight
			}
		}
		if weightSum <= 0 {
			weightSum = 1
		}
		c.FusedScore = (cfg.LexicalWeight*lexPart + cfg.SemanticWeight*semPart) / weightSum
		out = append(out, c)
	}

	sortByFused(out)
	return out
}

// fuseRRF scores each candidate by reciprocal rank across both lists.
// Axis scores stay raw; only FusedScore carries the RRF value.
func fuseRRF(lexical, semantic []domain.RankedCandidate, rrfK int) []domain.RankedCandidate {
	acc := collectAxes(lexical, semantic)
	if len(acc) == 0 {
		return nil
	}

	scores := make(map[string]float64, len(acc))
	addList := func(list []domain.RankedCandidate) {
		for rank, c := range list {
			scores[c.ChunkID] += 1.0 / float64(rrfK+rank+1)
		}
	}
	addList(lexical)
	addList(semantic)

	out := make([]domain.RankedCandidate, 0, len(acc))
	for id, axes := range acc {
		c := axes.candidate
		c.FusedScore = scores[id]
		out = append(out, c)
	}

	sortByFused(out)
	return out
}

func sortByFused(candidates []domain.RankedCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].FusedScore != candidates[j].FusedScore {
			return candidates[i].FusedScore > candidates[j].FusedScore
		}
		return candidates[i].ChunkID < candidates[j].ChunkID
	})
}

func minMaxNormalizer(list []domain.RankedCandidate, score func(domain.RankedCandidate) float64) func(float64) float64 {
	if len(list) == 0 {
		return func(float64) float64 { return 0 }
	}
	minScore := score(list[0])
	maxScore := minScore
	for _, c := range list[1:] {
		v := score(c)
		if v < minScore {
			minScore = v
		}
		if v > maxScore {
			maxScore = v
		}
	}
	scoreRange := maxScore - minScore
	return func(v float64) float64 {
		if scoreRange <= 0 {
			if v > 0 {
				return 1
			}
			return 0
		}
		return (v - minScore) / scoreRange
	}
}
