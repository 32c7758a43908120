package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port          string
	Env           string
	LogLevel      string
	ServiceName   string
	AllowedOrigin string

	// Gemini AI
	GeminiAPIKey    string
	GeminiModel     string
	GeminiTransport string
	GeminiBaseURL   string
	UpstreamTimeout time.Duration

	// Scan uploads
	StagingDir     string
	MaxUploadBytes int64

	// Tracing
	OTLPEndpoint string
}

// Load reads the process environment (and a .env file, if any). A missing
// GEMINI_API_KEY is not fatal: the server starts and reports it via /health.
func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:            getEnvOrDefault("PORT", "3001"),
		Env:             getEnvOrDefault("ENV", "development"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		ServiceName:     getEnvOrDefault("SERVICE_NAME", "farmwise-backend"),
		AllowedOrigin:   getEnvOrDefault("ALLOWED_ORIGIN", "*"),
		GeminiAPIKey:    strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:     getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTransport: strings.ToLower(getEnvOrDefault("GEMINI_TRANSPORT", TransportREST)),
		GeminiBaseURL:   getEnvOrDefault("GEMINI_BASE_URL", ""),
		UpstreamTimeout: getEnvAsDurationOrDefault("UPSTREAM_TIMEOUT", 30*time.Second),
		StagingDir:      getEnvOrDefault("STAGING_DIR", filepath.Join(os.TempDir(), "farm-scan")),
		MaxUploadBytes:  int64(getEnvAsIntOrDefault("MAX_UPLOAD_BYTES", 10*1024*1024)),
		OTLPEndpoint:    getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.GeminiTransport != TransportREST && cfg.GeminiTransport != TransportGRPC {
		cfg.GeminiTransport = TransportREST
	}

	return cfg
}

const (
	TransportREST = "rest"
	TransportGRPC = "grpc"
)

// HasAPIKey reports whether the upstream credential is configured.
func (c *Config) HasAPIKey() bool {
	return c.GeminiAPIKey != ""
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
