// Package config provides configuration for the chat backend.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider names accepted by the *_PROVIDER and VECTOR_INDEX variables.
const (
	ProviderCohere    = "cohere"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"

	IndexQdrant   = "qdrant"
	IndexPgvector = "pgvector"
	IndexMemory   = "memory"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort           int
	CORSOrigins        []string
	RateLimitPerMinute int
	Debug              bool

	// Session store
	DatabaseURL      string
	DBMaxConns       int
	DBMinConns       int
	DBAcquireTimeout time.Duration

	// Embedding provider
	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingDimension int
	CohereAPIKey       string
	CohereBaseURL      string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	GoogleAPIKey       string

	// Vector index
	VectorIndex      string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	PgvectorURL      string
	PgvectorTable    string

	// Generation provider
	LLMProvider  string
	LLMBaseURL   string
	LLMAPIKey    string
	LLMModel     string
	LLMMaxTokens int

	// Pipeline limits
	RetrievalTopK        int
	RetrievalTimeout     time.Duration
	GenerationTimeout    time.Duration
	MaxPromptChars       int
	MaxMessageChars      int
	MaxSelectedTextChars int

	// Optional overrides
	PromptFile string
	PolicyFile string

	// Ingestion
	SitemapURL string
}

// ConfigError lists every required variable that was missing or invalid.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Load reads the configuration from the environment, after loading ENV_FILE
// (default .env) when it exists, and validates it.
func Load() (*Config, error) {
	if err := LoadEnvFile(); err != nil {
		return nil, err
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads ENV_FILE (default .env) into the environment when it
// exists. Variables already set are kept.
func LoadEnvFile() error {
	envFile := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err != nil {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	return nil
}

// FromEnv builds a Config from environment variables without validating it.
func FromEnv() *Config {
	googleKey := getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", ""))
	llmProvider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI))

	cfg := &Config{
		HTTPPort:           getEnvInt("HTTP_PORT", 8000),
		CORSOrigins:        getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 20),
		Debug:              getEnvBool("DEBUG", false),

		DatabaseURL:      getEnv("DATABASE_URL", getEnv("NEON_DATABASE_URL", "file:bookchat.db?cache=shared&mode=rwc")),
		DBMaxConns:       getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:       getEnvInt("DB_MIN_CONNS", 1),
		DBAcquireTimeout: time.Duration(getEnvInt("DB_ACQUIRE_TIMEOUT_MS", 10000)) * time.Millisecond,

		EmbeddingProvider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", ProviderCohere)),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "embed-english-v3.0"),
		EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", 1024),
		CohereAPIKey:       getEnv("COHERE_API_KEY", ""),
		CohereBaseURL:      getEnv("COHERE_BASE_URL", ""),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		GoogleAPIKey:       googleKey,

		VectorIndex:      strings.ToLower(getEnv("VECTOR_INDEX", IndexQdrant)),
		QdrantURL:        getEnv("QDRANT_URL", ""),
		QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "Ai_Native_Book"),
		PgvectorURL:      getEnv("PGVECTOR_URL", ""),
		PgvectorTable:    getEnv("PGVECTOR_TABLE", "passages"),

		LLMProvider:  llmProvider,
		LLMBaseURL:   getEnv("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		LLMAPIKey:    getEnv("LLM_API_KEY", defaultLLMKey(llmProvider, googleKey)),
		LLMModel:     getEnv("LLM_MODEL", "gemini-2.0-flash"),
		LLMMaxTokens: getEnvInt("LLM_MAX_TOKENS", 1024),

		RetrievalTopK:        getEnvInt("RETRIEVAL_TOP_K", 5),
		RetrievalTimeout:     time.Duration(getEnvInt("RETRIEVAL_TIMEOUT_MS", 15000)) * time.Millisecond,
		GenerationTimeout:    time.Duration(getEnvInt("GENERATION_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxPromptChars:       getEnvInt("MAX_PROMPT_CHARS", 24000),
		MaxMessageChars:      getEnvInt("MAX_MESSAGE_CHARS", 10000),
		MaxSelectedTextChars: getEnvInt("MAX_SELECTED_TEXT_CHARS", 5000),

		PromptFile: getEnv("PROMPT_FILE", ""),
		PolicyFile: getEnv("POLICY_FILE", ""),

		SitemapURL: getEnv("SITEMAP_URL", "https://habibullahdevv.github.io/ai-native-book/sitemap.xml"),
	}
	return cfg
}

// Validate checks that every provider selected has the settings it needs.
func (c *Config) Validate() error {
	problems := c.indexProblems()
	problems = append(problems, c.llmProblems()...)

	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.DBMaxConns < 1 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		problems = append(problems, "DB_MIN_CONNS/DB_MAX_CONNS out of range")
	}
	if c.RetrievalTopK < 1 {
		problems = append(problems, "RETRIEVAL_TOP_K must be at least 1")
	}
	if c.MaxMessageChars < 1 || c.MaxSelectedTextChars < 0 || c.MaxPromptChars < 1 {
		problems = append(problems, "MAX_*_CHARS limits must be positive")
	}
	return asError(problems)
}

// ValidateIngestion checks only the settings the ingestion command uses:
// the embedding provider and the vector index.
func (c *Config) ValidateIngestion() error {
	problems := c.indexProblems()
	if c.SitemapURL == "" {
		problems = append(problems, "SITEMAP_URL is required")
	}
	return asError(problems)
}

func (c *Config) indexProblems() []string {
	var problems []string
	missing := func(name string) {
		problems = append(problems, name+" is required")
	}

	switch c.EmbeddingProvider {
	case ProviderCohere:
		if c.CohereAPIKey == "" {
			missing("COHERE_API_KEY")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			missing("OPENAI_API_KEY")
		}
	case ProviderGoogle:
		if c.GoogleAPIKey == "" {
			missing("GEMINI_API_KEY")
		}
	case ProviderMock:
	default:
		problems = append(problems, fmt.Sprintf("unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider))
	}

	switch c.VectorIndex {
	case IndexQdrant:
		if c.QdrantURL == "" {
			missing("QDRANT_URL")
		}
	case IndexPgvector:
		if c.PgvectorURL == "" {
			missing("PGVECTOR_URL")
		}
	case IndexMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown VECTOR_INDEX %q", c.VectorIndex))
	}

	if c.EmbeddingDimension < 1 {
		problems = append(problems, "EMBEDDING_DIMENSION must be positive")
	}
	return problems
}

func (c *Config) llmProblems() []string {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle:
		if c.LLMAPIKey == "" {
			return []string{"LLM_API_KEY is required"}
		}
	case ProviderMock:
	default:
		return []string{fmt.Sprintf("unknown LLM_PROVIDER %q", c.LLMProvider)}
	}
	return nil
}

func asError(problems []string) error {
	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

// UsesPostgres reports whether DatabaseURL points at a Postgres server.
func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

func defaultLLMKey(provider, googleKey string) string {
	switch provider {
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case ProviderGoogle:
		return googleKey
	}
	// The default OpenAI-compatible endpoint is Gemini's.
	if googleKey != "" {
		return googleKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
