// Package config provides configuration loading for formgate.
//
// Configuration is loaded from an optional YAML file, then overridden by
// environment variables. All Slack and Google Sheets credentials are
// required; missing any of them is a fatal startup condition.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Config holds the complete formgate configuration.
type Config struct {
	Slack  SlackConfig  `koanf:"slack"`
	Sheets SheetsConfig `koanf:"sheets"`
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
}

// SlackConfig holds Slack API credentials.
type SlackConfig struct {
	BotToken      Secret `koanf:"bot_token"`
	SigningSecret Secret `koanf:"signing_secret"`
}

// SheetsConfig holds the Google Sheets destination and credentials.
type SheetsConfig struct {
	SpreadsheetID   string `koanf:"spreadsheet_id"`
	CredentialsJSON Secret `koanf:"credentials_json"`
	Timezone        string `koanf:"timezone"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load loads configuration from an optional YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SLACK_BOT_TOKEN, SHEETS_SPREADSHEET_ID, etc.)
//  2. YAML config file (configPath, skipped when empty or absent)
//  3. Hardcoded defaults
//
// Environment variables use underscore separator and are uppercased. The
// transformer maps them to config fields by splitting on the first
// underscore:
//
//	SLACK_BOT_TOKEN          -> slack.bot_token
//	SHEETS_SPREADSHEET_ID    -> sheets.spreadsheet_id
//	SERVER_SHUTDOWN_TIMEOUT  -> server.shutdown_timeout
//	LOG_LEVEL                -> log.level
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			f, err := os.Open(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to open config file: %w", err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return nil, fmt.Errorf("failed to stat config file: %w", err)
			}
			if info.Size() > maxConfigFileSize {
				return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
			}

			content, err := io.ReadAll(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	// Override with environment variables.
	// SLACK_BOT_TOKEN -> slack.bot_token (section.field_name pattern)
	if err := k.Load(env.Provider("", ".", func(s string) string {
		lower := strings.ToLower(s)
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Sheets.Timezone == "" {
		cfg.Sheets.Timezone = "America/Mexico_City"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Any Slack or Sheets credential is missing
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - Timezone does not resolve to a known location
func (c *Config) Validate() error {
	if !c.Slack.BotToken.IsSet() {
		return errors.New("SLACK_BOT_TOKEN is required")
	}
	if !c.Slack.SigningSecret.IsSet() {
		return errors.New("SLACK_SIGNING_SECRET is required")
	}
	if c.Sheets.SpreadsheetID == "" {
		return errors.New("SHEETS_SPREADSHEET_ID is required")
	}
	if !c.Sheets.CredentialsJSON.IsSet() {
		return errors.New("SHEETS_CREDENTIALS_JSON is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if _, err := time.LoadLocation(c.Sheets.Timezone); err != nil {
		return fmt.Errorf("invalid sheets timezone %q: %w", c.Sheets.Timezone, err)
	}

	return nil
}
