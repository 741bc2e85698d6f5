package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
		BaseURL string
	}

	// Storage configuration for the persisted session collection
	Storage struct {
		// Backend selects the record medium: redis, postgres or memory
		Backend       string
		RecordKey     string
		RedisAddr     string
		RedisPassword string
		RedisDB       int
	}

	// Database configuration (postgres backend)
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Timeout  time.Duration
	}

	// Providers configuration for the completion adapters
	Providers struct {
		Default        string
		OpenAIBase     string
		OpenAIModel    string
		AnthropicBase  string
		AnthropicModel string
		GeminiBase     string
		GeminiModel    string
		Timeout        time.Duration
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		MaxBodySize    int64
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Limits on user-supplied input
	Limits struct {
		MaxAttachmentSize int64
		AllowedMediaTypes []string
	}

	// Cache settings for the decoded session collection
	Cache struct {
		Enabled     bool
		TTL         time.Duration
		MaxSize     int
		PurgeWindow time.Duration
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		// Server config
		instance.Server.Port = getEnvString("PORT", "8081")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
		instance.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+instance.Server.Port)

		// Storage config
		instance.Storage.Backend = getEnvString("STORAGE_BACKEND", "memory")
		instance.Storage.RecordKey = getEnvString("SESSIONS_RECORD_KEY", "chat_sessions")
		instance.Storage.RedisAddr = getEnvString("REDIS_ADDR", "localhost:6379")
		instance.Storage.RedisPassword = getEnvString("REDIS_PASSWORD", "")
		instance.Storage.RedisDB = getEnvInt("REDIS_DB", 0)

		// Database config (postgres backend)
		instance.Database.Host = getEnvString("DB_HOST", "localhost")
		instance.Database.Port = getEnvString("DB_PORT", "5432")
		instance.Database.User = getEnvString("DB_USER", "postgres")
		instance.Database.Password = getEnvString("DB_PASSWORD", "postgres")
		instance.Database.Name = getEnvString("DB_NAME", "chat-aggregator")
		instance.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
		instance.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

		// Provider config
		instance.Providers.Default = getEnvString("DEFAULT_PROVIDER", "openai")
		instance.Providers.OpenAIBase = getEnvString("OPENAI_BASE_URL", "https://api.openai.com")
		instance.Providers.OpenAIModel = getEnvString("OPENAI_MODEL", "gpt-4-turbo-preview")
		instance.Providers.AnthropicBase = getEnvString("ANTHROPIC_BASE_URL", "https://api.anthropic.com")
		instance.Providers.AnthropicModel = getEnvString("ANTHROPIC_MODEL", "claude-3-opus-20240229")
		instance.Providers.GeminiBase = getEnvString("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
		instance.Providers.GeminiModel = getEnvString("GEMINI_MODEL", "gemini-pro")
		instance.Providers.Timeout = getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second)

		// Security config
		instance.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 5))
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
		instance.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
		instance.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 10<<20) // 10MB

		// Logging config
		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")

		// Input limits
		instance.Limits.MaxAttachmentSize = getEnvInt64("MAX_ATTACHMENT_SIZE", 5<<20) // 5MiB
		instance.Limits.AllowedMediaTypes = getEnvStringSlice("ALLOWED_MEDIA_TYPES",
			[]string{"text/plain", "text/markdown", "application/json", "text/csv"})

		// Cache settings
		instance.Cache.Enabled = getEnvBool("CACHE_ENABLED", true)
		instance.Cache.TTL = getEnvDuration("CACHE_TTL", 5*time.Minute)
		instance.Cache.MaxSize = getEnvInt("CACHE_MAX_SIZE", 1000)
		instance.Cache.PurgeWindow = getEnvDuration("CACHE_PURGE_WINDOW", 10*time.Minute)
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
