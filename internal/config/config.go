// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken    string
	TelegramAPIEndpoint string
	ProfileHost         string
	DiscoveryInterval   time.Duration
	PollInterval        time.Duration
	DeliveryInterval    time.Duration
	FetchTimeout        time.Duration
	SendRate            int
	StrictExtraction    bool
	JournalDSN          string
	LogLevel            string
	AllowedUsers        []int64
}

// Load reads configuration from environment variables.
// Variables from a .env file in the working directory are applied first
// without overriding ones already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	cfg := &Config{
		TelegramBotToken:    token,
		TelegramAPIEndpoint: envOrDefault("TELEGRAM_API_ENDPOINT", tgbotapi.APIEndpoint),
		ProfileHost:         envOrDefault("PROFILE_HOST", "knigilub.ru"),
		JournalDSN:          envOrDefault("JOURNAL_DSN", ":memory:"),
		LogLevel:            envOrDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.DiscoveryInterval, err = durationEnv("DISCOVERY_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = durationEnv("POLL_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DeliveryInterval, err = durationEnv("DELIVERY_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = durationEnv("FETCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	cfg.SendRate = 20
	if raw := os.Getenv("SEND_RATE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("SEND_RATE must be a positive integer, got %q", raw)
		}
		cfg.SendRate = n
	}

	if raw := os.Getenv("STRICT_EXTRACTION"); raw != "" {
		strict, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid STRICT_EXTRACTION %q: %w", raw, err)
		}
		cfg.StrictExtraction = strict
	}

	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			cfg.AllowedUsers = append(cfg.AllowedUsers, uid)
		}
	}

	return cfg, nil
}

// IsUserAllowed checks whether a chat ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
