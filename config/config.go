package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment  string
	HTTPPort     string
	HTTPSPort    string
	Domains      []string
	CertCacheDir string

	OpenAIURL         string
	OpenAIAPIKey      string
	DefaultModel      string
	EmbeddingModel    string
	EmbeddingTimeout  time.Duration
	GenerationTimeout time.Duration
	LLMMaxRetries     int

	EnableInternetSearch bool
	MinSearchSnippets    int
	MaxSearchResults     int
	SearchTimeout        time.Duration

	ContextBudget   int
	ChunkSize       int
	ChunkOverlap    int
	RetrievalTopK   int
	PipelineTimeout time.Duration

	StoreBackend string
	SQLitePath   string
	DatabaseURL  string

	GoogleCustomSearchAPIKey   string
	GoogleCustomSearchEngineID string
}

var isTest bool

func init() {
	isTest = os.Getenv("GO_ENVIRONMENT") == "test"
	if !isTest {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Error loading .env file:", err)
		}
	}
}

func Load() Config {
	return Config{
		Environment:  getEnv("ENVIRONMENT", "development"),
		HTTPPort:     getEnv("HTTP_PORT", "8086"),
		HTTPSPort:    getEnv("HTTPS_PORT", "443"),
		Domains:      []string{getEnv("DOMAIN", "example.com")},
		CertCacheDir: getEnv("CERT_CACHE_DIR", "/etc/letsencrypt/live/example.com"),

		OpenAIURL:         getEnv("OPENAI_URL", "http://127.0.0.1:1234"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", "lm-studio"),
		DefaultModel:      getEnv("DEFAULT_MODEL", "llama3.2"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-ada-002"),
		EmbeddingTimeout:  getEnvAsDuration("EMBEDDING_TIMEOUT_SECONDS", 30),
		GenerationTimeout: getEnvAsDuration("GENERATION_TIMEOUT_SECONDS", 120),
		LLMMaxRetries:     getEnvAsInt("LLM_MAX_RETRIES", 3),

		EnableInternetSearch: getEnvAsBool("ENABLE_INTERNET_SEARCH", true),
		MinSearchSnippets:    getEnvAsInt("MIN_SEARCH_SNIPPETS", 3),
		MaxSearchResults:     getEnvAsInt("MAX_SEARCH_RESULTS", 5),
		SearchTimeout:        getEnvAsDuration("SEARCH_TIMEOUT_SECONDS", 10),

		ContextBudget:   getEnvAsInt("CONTEXT_BUDGET", 6000),
		ChunkSize:       getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:    getEnvAsInt("CHUNK_OVERLAP", 200),
		RetrievalTopK:   getEnvAsInt("RETRIEVAL_TOP_K", 3),
		PipelineTimeout: getEnvAsDuration("PIPELINE_TIMEOUT_SECONDS", 180),

		StoreBackend: getEnv("STORE_BACKEND", "sqlite"),
		SQLitePath:   getEnv("SQLITE_PATH", "data/koios.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		GoogleCustomSearchAPIKey:   getEnv("GoogleCustomSearchAPIKey", ""),
		GoogleCustomSearchEngineID: getEnv("GoogleCustomSearchEngineID", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := strings.ToLower(getEnv(key, ""))
	if strValue == "" {
		return fallback
	}
	return strValue == "1" || strValue == "true" || strValue == "yes"
}

func getEnvAsDuration(key string, fallbackSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallbackSeconds)) * time.Second
}
