package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Webhook  WebhookConfig
	Pipeline PipelineConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr          string
	SessionSecret string
}

// AuthConfig holds the credential used by the env-backed verifier.
type AuthConfig struct {
	Username     string
	PasswordHash string // bcrypt
}

// OCRConfig holds rasterization and OCR configuration
type OCRConfig struct {
	Pdftoppm  string
	Tesseract string
	Lang      string
	PSM       int
	DPI       int
	Enhance   bool
	MaxPages  int
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider        string // "gemini" | "openai"
	GeminiAPIKey    string
	GeminiBaseURL   string
	OpenAIAPIKey    string
	Model           string
	Temperature     float32
	MaxOutputTokens int
	Timeout         time.Duration
}

// WebhookConfig holds the outbound relay configuration
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
}

// PipelineConfig holds orchestrator configuration
type PipelineConfig struct {
	Workers int // concurrent page workers; 1 = strictly sequential
}

// Load reads configuration from the environment. A .env file is honored
// when present. Missing LLM credential or webhook URL is a startup
// warning, not a crash; both are enforced lazily at first use.
func Load(logger *slog.Logger) *Config {
	if logger == nil {
		logger = slog.Default()
	}
	if err := godotenv.Load(); err == nil {
		logger.Info("config.dotenv.loaded")
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:          ":" + getEnv("PORT", "8080"),
			SessionSecret: getEnv("SESSION_SECRET", ""),
		},
		Auth: AuthConfig{
			Username:     getEnv("AUTH_USERNAME", ""),
			PasswordHash: getEnv("AUTH_PASSWORD_HASH", ""),
		},
		OCR: OCRConfig{
			Pdftoppm:  getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract: getEnv("TESSERACT_BIN", "tesseract"),
			Lang:      getEnv("OCR_LANG", "spa"),
			PSM:       getEnvAsInt("OCR_PSM", 6),
			DPI:       getEnvAsInt("OCR_DPI", 300),
			Enhance:   getEnvAsBool("OCR_ENHANCE", false),
			MaxPages:  getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		LLM: LLMConfig{
			Provider:        getEnv("LLM_PROVIDER", "gemini"),
			GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
			GeminiBaseURL:   getEnv("GEMINI_BASE_URL", ""),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			Model:           getEnv("LLM_MODEL", ""),
			Temperature:     getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			MaxOutputTokens: getEnvAsInt("LLM_MAX_OUTPUT_TOKENS", 8192),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
		},
		Webhook: WebhookConfig{
			URL:     getEnv("N8N_WEBHOOK_URL", ""),
			Timeout: getEnvAsDuration("N8N_TIMEOUT", 30*time.Second),
		},
		Pipeline: PipelineConfig{
			Workers: getEnvAsInt("PIPELINE_WORKERS", 1),
		},
	}

	if cfg.LLM.GeminiAPIKey == "" && cfg.LLM.OpenAIAPIKey == "" {
		logger.Error("config.llm.api_key_missing",
			"hint", "set GEMINI_API_KEY or OPENAI_API_KEY; extraction will fail per page until configured")
	}
	if cfg.Webhook.URL == "" {
		logger.Error("config.webhook.url_missing",
			"hint", "set N8N_WEBHOOK_URL; /send_to_n8n will return 500 until configured")
	}
	return cfg
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
