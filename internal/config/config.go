// Package config provides application configuration for the wizard host.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dermatics/derma-wizard/internal/util"
)

// Defaults used when the corresponding environment variable is unset.
const (
	DefaultPort        = "8080"
	DefaultFlowBaseURL = "https://dermatics-ai-production.up.railway.app"
	DefaultCartBaseURL = "http://127.0.0.1:9292"
	DefaultFlowTimeout = 60 * time.Second
)

// Config holds all application configuration.
type Config struct {
	Port          string
	FlowBaseURL   string
	CartBaseURL   string
	AllowedOrigin string
	FlowTimeout   time.Duration
	DevMode       bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", DefaultPort),
		FlowBaseURL:   getEnv("FLOW_BASE_URL", DefaultFlowBaseURL),
		CartBaseURL:   getEnv("CART_BASE_URL", DefaultCartBaseURL),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", ""),
		FlowTimeout:   getEnvDuration("FLOW_TIMEOUT", DefaultFlowTimeout),
		DevMode:       util.ParseBoolEnv("DEV_MODE", false),
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
	if err := checkBaseURL("FLOW_BASE_URL", c.FlowBaseURL); err != nil {
		return err
	}
	if err := checkBaseURL("CART_BASE_URL", c.CartBaseURL); err != nil {
		return err
	}
	if c.FlowTimeout <= 0 {
		return fmt.Errorf("FLOW_TIMEOUT must be > 0")
	}
	return nil
}

// IsDevelopment reports whether the host runs in development mode, where
// WebSocket origin checks are relaxed.
func (c *Config) IsDevelopment() bool {
	return c.DevMode ||
		c.AllowedOrigin == "" ||
		strings.Contains(c.AllowedOrigin, "localhost") ||
		strings.Contains(c.AllowedOrigin, "127.0.0.1")
}

func checkBaseURL(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", key)
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, value)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
