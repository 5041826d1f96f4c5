package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	Port        string
	Environment string

	// Storage. An empty DatabaseURL selects the in-memory store; an
	// empty RedisAddr selects in-memory chat sessions.
	DatabaseURL string
	RedisAddr   string
	RedisDB     int
	SessionTTL  time.Duration

	// Gemini text generation.
	GeminiEndpoint    string
	GeminiAPIKey      string
	GeminiModel       string
	GeminiTemperature float64
	GeminiMaxTokens   int

	// Forecasting.
	ModelPath      string
	ForecastMonths int

	// Operator endpoints.
	AdminUsername string
	AdminPassword string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		SessionTTL:  time.Duration(getEnvInt("SESSION_TTL_MINUTES", 30)) * time.Minute,

		GeminiEndpoint:    getEnv("GEMINI_ENDPOINT", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiTemperature: getEnvFloat("GEMINI_TEMPERATURE", 0.7),
		GeminiMaxTokens:   getEnvInt("GEMINI_MAX_TOKENS", 1024),

		ModelPath:      getEnv("MODEL_PATH", "modelo_demanda.json"),
		ForecastMonths: getEnvInt("FORECAST_MONTHS", 3),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return defaultValue
}
