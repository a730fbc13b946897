/*
Package configs loads the relay's configuration from environment variables.

Every setting has a default suitable for local development; production requires an
explicit origin allow list.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AppConfig contains all configuration parameters required by the relay.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int
	WSPath      string
	LogLevel    string

	// Security Settings
	AllowedOrigins []string
	ConnectRate    float64
	ConnectBurst   int

	// Relay Settings
	SendQueueSize   int
	MaxMessageBytes int64

	// Connection Ledger Settings. Empty DSN disables the ledger.
	DatabaseDSN string
}

// IsDevelopment reports whether the relay runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LedgerEnabled reports whether connection records are written to PostgreSQL.
func (c *AppConfig) LedgerEnabled() bool {
	return c.DatabaseDSN != ""
}

// LoadConfig reads and validates the configuration from the environment.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	// --- General Server Settings ---
	cfg.Environment = envOr("ENVIRONMENT", "development")

	if cfg.Port, err = envInt("PORT", 8000); err != nil {
		return nil, err
	}
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	cfg.WSPath = envOr("WS_PATH", "/ws")
	if !strings.HasPrefix(cfg.WSPath, "/") {
		return nil, fmt.Errorf("WS_PATH must start with '/', got %q", cfg.WSPath)
	}

	cfg.LogLevel = os.Getenv("LOG_LEVEL")

	// --- Security Settings ---
	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}
	if !cfg.IsDevelopment() && len(cfg.AllowedOrigins) == 0 {
		return nil, fmt.Errorf("ALLOWED_ORIGINS environment variable is required in %s environment", cfg.Environment)
	}

	if cfg.ConnectRate, err = envFloat("CONNECT_RATE", 1); err != nil {
		return nil, err
	}
	if cfg.ConnectRate <= 0 {
		return nil, fmt.Errorf("CONNECT_RATE must be positive, got %v", cfg.ConnectRate)
	}

	if cfg.ConnectBurst, err = envInt("CONNECT_BURST", 10); err != nil {
		return nil, err
	}
	if cfg.ConnectBurst < 1 {
		return nil, fmt.Errorf("CONNECT_BURST must be at least 1, got %d", cfg.ConnectBurst)
	}

	// --- Relay Settings ---
	if cfg.SendQueueSize, err = envInt("SEND_QUEUE_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.SendQueueSize < 1 {
		return nil, fmt.Errorf("SEND_QUEUE_SIZE must be at least 1, got %d", cfg.SendQueueSize)
	}

	maxBytes, err := envInt("MAX_MESSAGE_BYTES", 8192)
	if err != nil {
		return nil, err
	}
	if maxBytes < 128 {
		return nil, fmt.Errorf("MAX_MESSAGE_BYTES must be at least 128, got %d", maxBytes)
	}
	cfg.MaxMessageBytes = int64(maxBytes)

	// --- Connection Ledger Settings ---
	cfg.DatabaseDSN = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}
