package config

import (
	"os"
	"strconv"
)

// Config collects all environment-driven settings in one place.
type Config struct {
	// Server
	Port           string
	AllowedOrigins string
	BodyLimitBytes int

	// Rate limiting
	RateLimitMax           int
	RateLimitWindowSeconds int

	// Database
	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string

	// Logging
	LogLevel string

	// S3-compatible object storage for receipt files
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	// AI extraction (Gemini via its OpenAI-compatible endpoint)
	ExtractionBaseURL string
	ExtractionAPIKey  string
	ExtractionModel   string
}

// Load reads the configuration from the environment with sane defaults.
// godotenv is loaded by database.Connect() before this runs.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
		BodyLimitBytes: getIntEnv("BODY_LIMIT_BYTES", getIntEnv("BODY_LIMIT_MB", 10)*1024*1024),

		RateLimitMax:           getIntEnv("RATE_LIMIT_MAX", 60),
		RateLimitWindowSeconds: getIntEnv("RATE_LIMIT_WINDOW_SECONDS", 60),

		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "belegflow"),
		DBHost:     getEnv("DB_HOST", "db"),
		DBPort:     getEnv("DB_PORT", "5432"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		S3Endpoint:  getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Bucket:    getEnv("S3_BUCKET", "receipts"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3UseSSL:    getBoolEnv("S3_USE_SSL", false),

		ExtractionBaseURL: getEnv("EXTRACTION_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
		ExtractionAPIKey:  getEnv("EXTRACTION_API_KEY", ""),
		ExtractionModel:   getEnv("EXTRACTION_MODEL", "gemini-2.0-flash"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
