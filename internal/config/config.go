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
	App     AppConfig
	Storage StorageConfig
	Ai      AIConfig
	Search  SearchConfig
	Sandbox SandboxConfig
	Command CommandConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string
	BodyLimitMB        int
}

type StorageConfig struct {
	Driver       string // "sqlite" or "postgres"
	SQLitePath   string
	Connection   string // postgres DSN
	DataDir      string // raw uploads
	EmbeddingDim int
}

type AIConfig struct {
	OllamaBaseURL      string
	LLMProvider        string // "ollama"
	LLMModel           string // e.g. "llama3"
	EmbeddingModel     string // e.g. "nomic-embed-text"
	DefaultRoute       string
	ShortQueryTokens   int
	ClassifierTimeout  time.Duration
	RouteCacheTTL      time.Duration
	RetrievalTimeout   time.Duration
	StreamTimeout      time.Duration
	PersistTimeout     time.Duration
	HistoryLimit       int
	TopK               int
	PreviewChars       int
	ChunkSize          int
	ChunkOverlap       int
	GenerationTemp     float64
	ClassificationTemp float64
}

type SearchConfig struct {
	BaseURL    string
	MaxResults int
	Timeout    time.Duration
	CacheTTL   time.Duration
}

type SandboxConfig struct {
	Dir       string
	Timeout   time.Duration
	PythonBin string
	JavacBin  string
	JavaBin   string
}

type CommandConfig struct {
	Enabled   bool
	Allowlist []string
	Timeout   time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/kernel.log"),
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "logs/audit.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			BodyLimitMB:        getEnvAsInt("BODY_LIMIT_MB", 25),
		},
		Storage: StorageConfig{
			Driver:       getEnv("STORAGE_DRIVER", "sqlite"),
			SQLitePath:   getEnv("SQLITE_PATH", "data/kernel.db"),
			Connection:   getEnv("DB_CONNECTION_STRING", ""),
			DataDir:      getEnv("DATA_DIR", "data/uploads"),
			EmbeddingDim: getEnvAsInt("EMBEDDING_DIM", 768),
		},
		Ai: AIConfig{
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMProvider:        getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:           getEnv("LLM_MODEL", "llama3"),
			EmbeddingModel:     getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			DefaultRoute:       getEnv("DEFAULT_ROUTE", "local_search"),
			ShortQueryTokens:   getEnvAsInt("SHORT_QUERY_TOKENS", 2),
			ClassifierTimeout:  getEnvAsDuration("CLASSIFIER_TIMEOUT", 15*time.Second),
			RouteCacheTTL:      getEnvAsDuration("ROUTE_CACHE_TTL", 10*time.Minute),
			RetrievalTimeout:   getEnvAsDuration("RETRIEVAL_TIMEOUT", 20*time.Second),
			StreamTimeout:      getEnvAsDuration("STREAM_TIMEOUT", 5*time.Minute),
			PersistTimeout:     getEnvAsDuration("PERSIST_TIMEOUT", 5*time.Second),
			HistoryLimit:       getEnvAsInt("HISTORY_LIMIT", 5),
			TopK:               getEnvAsInt("TOP_K", 4),
			PreviewChars:       getEnvAsInt("PREVIEW_CHARS", 4000),
			ChunkSize:          getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap:       getEnvAsInt("CHUNK_OVERLAP", 100),
			GenerationTemp:     getEnvAsFloat("GENERATION_TEMPERATURE", 0.3),
			ClassificationTemp: getEnvAsFloat("CLASSIFICATION_TEMPERATURE", 0.0),
		},
		Search: SearchConfig{
			BaseURL:    getEnv("WEB_SEARCH_BASE_URL", "https://html.duckduckgo.com/html/"),
			MaxResults: getEnvAsInt("WEB_SEARCH_MAX_RESULTS", 5),
			Timeout:    getEnvAsDuration("WEB_SEARCH_TIMEOUT", 15*time.Second),
			CacheTTL:   getEnvAsDuration("WEB_SEARCH_CACHE_TTL", 30*time.Minute),
		},
		Sandbox: SandboxConfig{
			Dir:       getEnv("SANDBOX_DIR", ""),
			Timeout:   getEnvAsDuration("SANDBOX_TIMEOUT", 10*time.Second),
			PythonBin: getEnv("PYTHON_BIN", "python3"),
			JavacBin:  getEnv("JAVAC_BIN", "javac"),
			JavaBin:   getEnv("JAVA_BIN", "java"),
		},
		Command: CommandConfig{
			Enabled:   getEnvAsBool("COMMAND_EXECUTION_ENABLED", true),
			Allowlist: getEnvAsList("COMMAND_ALLOWLIST"),
			Timeout:   getEnvAsDuration("COMMAND_TIMEOUT", 60*time.Second),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("15s") or plain seconds ("15").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if seconds, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

func getEnvAsList(key string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(strValue, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
