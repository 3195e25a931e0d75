package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIPort  string
	LogLevel string

	NATSURL             string
	NATSCasesSubject    string
	NATSReportsSubject  string
	NATSReviewsSubject  string

	OllamaURL        string
	OllamaGenModel   string
	OllamaEmbedModel string

	QdrantURL        string
	QdrantCollection string

	RerankURL    string
	RerankModel  string
	RerankAPIKey string

	CorpusDir  string
	PolicyPath string
	ReportDir  string

	ChunkSize    int
	ChunkOverlap int

	EvidenceTopK       int
	HybridCandidates   int
	FusionStrategy     string
	FusionRRFK         int
	FusionMissingAxis  string
	FusionLexicalWt    float64
	FusionSemanticWt   float64
	RerankTopN         int

	RateLimitPerSecond float64
	RateLimitBurst     int

	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		NATSURL:            mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSCasesSubject:   mustEnv("NATS_CASES_SUBJECT", "cases.submitted"),
		NATSReportsSubject: mustEnv("NATS_REPORTS_SUBJECT", "cases.reports"),
		NATSReviewsSubject: mustEnv("NATS_REVIEWS_SUBJECT", "cases.reviews"),

		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:   mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OllamaEmbedModel: mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		QdrantURL:        mustEnv("QDRANT_URL", ""),
		QdrantCollection: mustEnv("QDRANT_COLLECTION", "policy_chunks"),

		RerankURL:    mustEnv("RERANK_URL", ""),
		RerankModel:  mustEnv("RERANK_MODEL", "rerank-v3.5"),
		RerankAPIKey: mustEnv("RERANK_API_KEY", ""),

		CorpusDir:  mustEnv("CORPUS_DIR", "./data/corpus"),
		PolicyPath: mustEnv("POLICY_PATH", ""),
		ReportDir:  mustEnv("REPORT_DIR", "./data/reports"),

		ChunkSize:    mustEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: mustEnvInt("CHUNK_OVERLAP", 200),

		EvidenceTopK:      mustEnvInt("EVIDENCE_TOP_K", 5),
		HybridCandidates:  mustEnvInt("HYBRID_CANDIDATES", 30),
		FusionStrategy:    mustEnv("FUSION_STRATEGY", "weighted"),
		FusionRRFK:        mustEnvInt("FUSION_RRF_K", 60),
		FusionMissingAxis: mustEnv("FUSION_MISSING_AXIS", "zero"),
		FusionLexicalWt:   mustEnvFloat("FUSION_LEXICAL_WEIGHT", 0.5),
		FusionSemanticWt:  mustEnvFloat("FUSION_SEMANTIC_WEIGHT", 0.5),
		RerankTopN:        mustEnvInt("RERANK_TOP_N", 10),

		RateLimitPerSecond: mustEnvFloat("RATE_LIMIT_PER_SECOND", 20),
		RateLimitBurst:     mustEnvInt("RATE_LIMIT_BURST", 40),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
