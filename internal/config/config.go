// Package config handles application configuration from environment
// variables, with optional .env file loading.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aytch4k/socialz/internal/scraper"
)

// Config holds the application configuration. Platform credentials are
// validated where they are used, not here: a scan of one platform must not
// require the others' tokens.
type Config struct {
	DataDir            string
	LogLevel           string
	TelegramBotToken   string
	DiscordBotToken    string
	TwitterBearerToken string
	MessageLimit       int
	MaxRetries         uint64
	MentionWindowDays  int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:            envOrDefault("DATA_DIR", "./data"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		DiscordBotToken:    os.Getenv("DISCORD_BOT_TOKEN"),
		TwitterBearerToken: os.Getenv("TWITTER_BEARER_TOKEN"),
		MessageLimit:       100,
		MaxRetries:         5,
		MentionWindowDays:  7,
	}

	if raw := os.Getenv("SCAN_MESSAGE_LIMIT"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SCAN_MESSAGE_LIMIT %q", raw)
		}
		cfg.MessageLimit = n
	}

	if raw := os.Getenv("SCAN_MAX_RETRIES"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SCAN_MAX_RETRIES %q", raw)
		}
		cfg.MaxRetries = n
	}

	if raw := os.Getenv("MENTION_WINDOW_DAYS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MENTION_WINDOW_DAYS %q", raw)
		}
		cfg.MentionWindowDays = n
	}

	return cfg, nil
}

// ScanOptions returns the collection options shared by all scrapers.
func (c *Config) ScanOptions() scraper.Options {
	return scraper.Options{
		MessageLimit:  c.MessageLimit,
		MaxRetries:    c.MaxRetries,
		MentionWindow: time.Duration(c.MentionWindowDays) * 24 * time.Hour,
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
