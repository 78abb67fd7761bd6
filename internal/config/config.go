// Package config provides configuration for the discussion engine.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/xiaot623/trialogue/internal/domain"
)

// Config holds the engine configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// LLM gateway settings
	GatewayURL    string
	GatewayAPIKey string
	LLMTimeout    time.Duration

	// Upstream model names per backend tag
	ModelNames map[domain.ModelID]string

	// TitleModel generates thread titles
	TitleModel domain.ModelID

	// Logging
	LogLevel string
}

// Load loads configuration from the environment, reading .env first if one
// is present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:      getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:   getEnv("DATABASE_URL", "file:trialogue.db?cache=shared&mode=rwc"),
		GatewayURL:    getEnv("LLM_GATEWAY_URL", "http://localhost:4000"),
		GatewayAPIKey: getEnv("LLM_GATEWAY_API_KEY", ""),
		LLMTimeout:    time.Duration(getEnvInt("LLM_TIMEOUT_MS", 120000)) * time.Millisecond,
		ModelNames: map[domain.ModelID]string{
			domain.ModelAnthropic: getEnv("ANTHROPIC_MODEL", "claude-haiku-4-5"),
			domain.ModelGPT:       getEnv("GPT_MODEL", "gpt-5-mini"),
			domain.ModelGemini:    getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
		},
		TitleModel: domain.ModelID(getEnv("TITLE_MODEL", string(domain.ModelGemini))),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}
	return cfg
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
