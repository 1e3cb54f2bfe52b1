package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}

	if c.Model.APIKey == "" {
		errs = append(errs, "MODEL_API_KEY (or GEMINI_API_KEY) is required")
	}
	if c.Model.Timeout <= 0 {
		errs = append(errs, "MODEL_TIMEOUT must be positive")
	}

	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	if c.Chat.SnippetLimit < 1 || c.Chat.SnippetLimit > 50 {
		errs = append(errs, fmt.Sprintf("CHAT_SNIPPET_LIMIT must be 1–50, got %d", c.Chat.SnippetLimit))
	}
	if c.RateLimit.MaxRequests < 1 || c.RateLimit.WindowSec < 1 {
		errs = append(errs, "RATELIMIT_MAX_REQUESTS and RATELIMIT_WINDOW_SEC must be positive")
	}

	// NATS is optional: warn only
	if c.NATS.URL == "" {
		slog.Warn("NATS_URL is empty, async turn boundary and audit events are disabled")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
