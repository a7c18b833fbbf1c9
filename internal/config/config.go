// Package config collects process settings from the environment. Values in a
// local .env file are loaded by godotenv before Load runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrUnknownDriver   = errors.New("config: unknown DB_DRIVER")
	ErrMissingDSN      = errors.New("config: DATABASE_URL is required for postgres")
	ErrMissingBotToken = errors.New("config: BOT_TOKEN is required")
	ErrMissingAdminID  = errors.New("config: ADMIN_ID is required")
)

type Config struct {
	DBDriver      string
	DBPath        string
	DatabaseURL   string
	HTTPAddr      string
	CORSOrigins   []string
	BotToken      string
	AdminID       int64
	MaxUploadSize int64
	MountTimeout  time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		DBDriver:      getenv("DB_DRIVER", DriverSQLite),
		DBPath:        getenv("DB_PATH", "onboarding.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		CORSOrigins:   splitList(getenv("CORS_ORIGINS", "http://localhost:3000")),
		BotToken:      os.Getenv("BOT_TOKEN"),
		MaxUploadSize: 10 << 20,
		MountTimeout:  10 * time.Second,
	}

	if v := os.Getenv("ADMIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: invalid ADMIN_ID: %w", err)
		}
		cfg.AdminID = id
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: invalid MAX_UPLOAD_BYTES %q", v)
		}
		cfg.MaxUploadSize = n
	}
	if v := os.Getenv("MOUNT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid MOUNT_TIMEOUT: %w", err)
		}
		cfg.MountTimeout = d
	}

	return cfg, nil
}

// ValidateStore checks the settings every subcommand needs.
func (c *Config) ValidateStore() error {
	switch c.DBDriver {
	case DriverSQLite:
		return nil
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDSN
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.DBDriver)
	}
}

// ValidateBot checks the extra settings of the Telegram front end.
func (c *Config) ValidateBot() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if c.BotToken == "" {
		return ErrMissingBotToken
	}
	if c.AdminID == 0 {
		return ErrMissingAdminID
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
