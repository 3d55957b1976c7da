package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Chunking
	MaxCharLimit int

	// Loading
	FetchTimeout         time.Duration
	PDFFallbackPdftotext bool
	ListingURL           string

	// Embeddings
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	EmbeddingModel  string
	EmbedBatchSize  int
	EmbedRatePerSec float64

	// Answer generation
	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string
	SearchLimit      int
	CitationBaseURL  string

	// Vector store
	VectorBackend string
	SQLiteDir     string
	DatabaseURL   string
	Collection    string

	// Ingest jobs
	MaxQueueSize int
	JobTTL       time.Duration

	// Raw values that failed to parse, reported by Validate.
	parseErrs []*ConfigurationError
}

const (
	BackendSQLite   = "sqlite"
	BackendPGVector = "pgvector"
)

// Load reads .env (if present) and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("POLICYRAG_API_KEY"),

		FetchTimeout:         envDuration("FETCH_TIMEOUT", 30*time.Second),
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
		ListingURL:           envOr("LISTING_URL", "https://ldh.la.gov/page/1681"),

		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingModel:  envOr("EMBEDDING_MODEL", "text-embedding-ada-002"),
		EmbedBatchSize:  envInt("EMBED_BATCH_SIZE", 64),
		EmbedRatePerSec: envFloat("EMBED_RATE_PER_SEC", 5),

		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		AnthropicBaseURL: envOr("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		SearchLimit:      envInt("SEARCH_LIMIT", 3),
		CitationBaseURL:  envOr("CITATION_BASE_URL", "https://ldh.la.gov/assets/medicaid/MedicaidEligibilityPolicy/"),

		VectorBackend: strings.ToLower(envOr("VECTOR_BACKEND", BackendSQLite)),
		SQLiteDir:     envOr("SQLITE_DIR", "./data"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Collection:    envOr("COLLECTION", "medicaid_app"),

		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 16),
		JobTTL:       envDuration("JOB_TTL", 1*time.Hour),
	}

	// The chunk budget is strict: a typo must not silently become the default.
	cfg.MaxCharLimit = 5000
	if v := os.Getenv("MAX_CHAR_LIMIT"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			cfg.parseErrs = append(cfg.parseErrs, &ConfigurationError{
				Field:  "MAX_CHAR_LIMIT",
				Value:  v,
				Reason: "must be an integer",
			})
		} else {
			cfg.MaxCharLimit = n
		}
	}

	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 64
	}
	if cfg.EmbedRatePerSec <= 0 {
		cfg.EmbedRatePerSec = 5
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 3
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 16
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks the settings every command depends on.
func (c Config) Validate() error {
	if len(c.parseErrs) > 0 {
		return c.parseErrs[0]
	}
	if err := ValidateMaxCharLimit(c.MaxCharLimit); err != nil {
		return err
	}
	switch c.VectorBackend {
	case BackendSQLite:
	case BackendPGVector:
		if c.DatabaseURL == "" {
			return &ConfigurationError{Field: "DATABASE_URL", Reason: "is required for the pgvector backend"}
		}
	default:
		return &ConfigurationError{Field: "VECTOR_BACKEND", Value: c.VectorBackend, Reason: "must be sqlite or pgvector"}
	}
	return nil
}

// ValidateIndexing checks what embedding and storing chunks needs.
func (c Config) ValidateIndexing() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	return nil
}

// ValidateAnswering checks what answering questions needs.
func (c Config) ValidateAnswering() error {
	if err := c.ValidateIndexing(); err != nil {
		return err
	}
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	return nil
}

// ValidateServer checks what the HTTP API needs.
func (c Config) ValidateServer() error {
	if err := c.ValidateAnswering(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("POLICYRAG_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
