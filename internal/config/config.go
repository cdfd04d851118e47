package config

import (
	"fmt"
	"os"
)

// Default values applied when the corresponding variable is unset.
const (
	DefaultDatabasePath = "data/fitness-planner.db"
	DefaultGeminiModel  = "gemini-1.5-flash"
)

// Config holds the configuration for the application.
type Config struct {
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string

	DatabasePath string
	LogMode      string

	// Remote profile service (Supabase-style REST endpoint).
	ProfileAPIURL string
	ProfileAPIKey string // "keyID:hexSecret"

	// Telegram Config
	TelegramBotToken    string
	TelegramWebhookURL  string
	TelegramAllowUserID int64

	EmbeddingCachePath string
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	groqAPIKey := os.Getenv("GROQ_API_KEY")
	if groqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
	}

	profileAPIURL := os.Getenv("PROFILE_API_URL")
	if profileAPIURL == "" {
		return nil, fmt.Errorf("PROFILE_API_URL environment variable not set")
	}

	profileAPIKey := os.Getenv("PROFILE_API_KEY")
	if profileAPIKey == "" {
		return nil, fmt.Errorf("PROFILE_API_KEY environment variable not set")
	}

	geminiModel := os.Getenv("GEMINI_MODEL")
	if geminiModel == "" {
		geminiModel = DefaultGeminiModel
	}

	databasePath := os.Getenv("DATABASE_PATH")
	if databasePath == "" {
		databasePath = DefaultDatabasePath
	}

	// Telegram Config (Optional for CLI, required for Bot)
	telegramBotToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	telegramWebhookURL := os.Getenv("TELEGRAM_WEBHOOK_URL")
	telegramAllowUserIDStr := os.Getenv("TELEGRAM_ALLOW_USER_ID")
	var telegramAllowUserID int64
	if telegramAllowUserIDStr != "" {
		fmt.Sscanf(telegramAllowUserIDStr, "%d", &telegramAllowUserID)
	}

	return &Config{
		GeminiAPIKey:        geminiAPIKey,
		GeminiModel:         geminiModel,
		GroqAPIKey:          groqAPIKey,
		DatabasePath:        databasePath,
		LogMode:             os.Getenv("LOG_MODE"),
		ProfileAPIURL:       profileAPIURL,
		ProfileAPIKey:       profileAPIKey,
		TelegramBotToken:    telegramBotToken,
		TelegramWebhookURL:  telegramWebhookURL,
		TelegramAllowUserID: telegramAllowUserID,
		EmbeddingCachePath:  os.Getenv("EMBEDDING_CACHE_PATH"),
	}, nil
}
