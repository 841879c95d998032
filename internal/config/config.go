// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/avoronin/termfix/internal/assist"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	SessionTTL  time.Duration
	Shell       string

	AssistantURL    string
	AssistantAPIKey string
	AssistantModel  string

	EventRetention time.Duration
	ExchangeLog    assist.ExchangeLogConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("EXCHANGE_LOG_QUEUE_SIZE", 64)
	if queueSize <= 0 {
		queueSize = 64
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/termfix.db"),
		SessionTTL:  getEnvDuration("SESSION_TTL", 60*time.Minute),
		Shell:       getEnv("SHELL_COMMAND", defaultShell()),

		AssistantURL:    getEnv("ASSISTANT_URL", "http://localhost:9090/v1/complete"),
		AssistantAPIKey: getEnv("ASSISTANT_API_KEY", ""),
		AssistantModel:  getEnv("ASSISTANT_MODEL", "terminal-fixer-1"),

		EventRetention: getEnvDuration("EVENT_RETENTION", 7*24*time.Hour),
		ExchangeLog: assist.ExchangeLogConfig{
			Enabled:   getEnvBool("EXCHANGE_LOG_ENABLED", false),
			Dir:       getEnv("EXCHANGE_LOG_DIR", "./data/logs/exchanges"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Shell == "" {
		return fmt.Errorf("SHELL_COMMAND cannot be empty")
	}
	if c.AssistantURL == "" {
		return fmt.Errorf("ASSISTANT_URL cannot be empty")
	}
	if c.ExchangeLog.Enabled && c.ExchangeLog.Dir == "" {
		return fmt.Errorf("EXCHANGE_LOG_DIR cannot be empty when exchange logging is enabled")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func defaultShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/bash"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
