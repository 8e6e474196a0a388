package config

import (
	"os"
	"strconv"
	"strings"
)

// Config carries all runtime settings, loaded from the environment.
type Config struct {
	Env  string
	Port string

	DB    DBConfig
	LLM   LLMConfig
	RAG   RAGConfig
	Web   WebSearchConfig
	Grade GradeConfig
}

// DBConfig holds PostgreSQL connection and pool settings.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

// LLMConfig holds the Ollama endpoint and model names.
type LLMConfig struct {
	URL             string
	GenerationModel string
	EmbeddingModel  string
	Timeout         int // seconds
	MaxTokens       int
}

// RAGConfig holds retrieval and correction parameters.
type RAGConfig struct {
	RetrieveK int
	// RelevanceThreshold is the fixed fallback cutoff in [0,1].
	RelevanceThreshold float64
	// MinRelevantDocs switches the policy to a dynamic threshold of
	// min(1, MinRelevantDocs/k) when > 0.
	MinRelevantDocs int
	MaxContextChars int
}

// WebSearchConfig holds the fallback search provider settings.
type WebSearchConfig struct {
	Enabled    bool
	URL        string
	Timeout    int // seconds
	MaxResults int
}

// GradeConfig tunes the relevance grading stage.
type GradeConfig struct {
	Concurrency int
	MaxRetries  int
	// RatePerSecond bounds judge calls across concurrent queries.
	RatePerSecond float64
	CacheSize     int
	CacheTTL      int // minutes
}

// Load reads configuration from environment variables with defaults suitable
// for local development.
func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8090"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "crag_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "crag_password"),
			Name:     getEnv("DB_NAME", "crag_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
			MinConns: getEnvInt("DB_MIN_CONNS", 2),
		},
		LLM: LLMConfig{
			URL:             getEnv("OLLAMA_URL", "http://localhost:11434"),
			GenerationModel: getEnv("GENERATION_MODEL", "llama3.1:8b"),
			EmbeddingModel:  getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			Timeout:         getEnvInt("OLLAMA_TIMEOUT", 120),
			MaxTokens:       getEnvInt("ANSWER_MAX_TOKENS", 768),
		},
		RAG: RAGConfig{
			RetrieveK:          getEnvInt("RETRIEVE_K", 4),
			RelevanceThreshold: getEnvFloat("RELEVANCE_THRESHOLD", 0.7),
			MinRelevantDocs:    getEnvInt("MIN_RELEVANT_DOCS", 0),
			MaxContextChars:    getEnvInt("MAX_CONTEXT_CHARS", 8000),
		},
		Web: WebSearchConfig{
			Enabled:    getEnvBool("WEB_SEARCH_ENABLED", true),
			URL:        getEnv("WEB_SEARCH_URL", "https://api.duckduckgo.com"),
			Timeout:    getEnvInt("WEB_SEARCH_TIMEOUT", 10),
			MaxResults: getEnvInt("WEB_SEARCH_MAX_RESULTS", 3),
		},
		Grade: GradeConfig{
			Concurrency:   getEnvInt("GRADE_CONCURRENCY", 4),
			MaxRetries:    getEnvInt("GRADE_MAX_RETRIES", 2),
			RatePerSecond: getEnvFloat("GRADE_RATE_PER_SECOND", 8),
			CacheSize:     getEnvInt("GRADE_CACHE_SIZE", 512),
			CacheTTL:      getEnvInt("GRADE_CACHE_TTL_MINUTES", 30),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
