// Package config loads framegen settings from an optional YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/peicooks/framegen/pkg/export"
	"github.com/peicooks/framegen/pkg/photo"
)

// Config holds all framegen configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Upload  UploadConfig  `yaml:"upload"`
	Render  RenderConfig  `yaml:"render"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures `framegen serve`.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxSessions int    `yaml:"max_sessions"`
}

// UploadConfig configures the photo loader.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// RenderConfig configures the compositor.
type RenderConfig struct {
	FontPath string `yaml:"font_path"` // empty = embedded Go fonts
}

// ExportConfig configures download and share.
type ExportConfig struct {
	Filename   string `yaml:"filename"`
	ShareURL   string `yaml:"share_url"`
	ShareTitle string `yaml:"share_title"`
	ShareText  string `yaml:"share_text"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8080",
			MaxSessions: 1000,
		},
		Upload: UploadConfig{MaxBytes: photo.MaxBytes},
		Export: ExportConfig{
			Filename:   export.DefaultFilename,
			ShareURL:   export.DefaultShareURL,
			ShareTitle: export.DefaultShareTitle,
			ShareText:  export.DefaultShareText,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads path (if non-empty) over the defaults, then applies .env and
// environment overrides. A missing .env is not an error; a missing path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv("FRAMEGEN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("FRAMEGEN_MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("FRAMEGEN_MAX_UPLOAD_BYTES: %w", err)
		}
		c.Upload.MaxBytes = n
	}
	if v := os.Getenv("FRAMEGEN_FONT_PATH"); v != "" {
		c.Render.FontPath = v
	}
	if v := os.Getenv("FRAMEGEN_SHARE_URL"); v != "" {
		c.Export.ShareURL = v
	}
	if v := os.Getenv("FRAMEGEN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("FRAMEGEN_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	return nil
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Server.MaxSessions <= 0 {
		return fmt.Errorf("server.max_sessions must be positive, got %d", c.Server.MaxSessions)
	}
	if c.Export.Filename == "" {
		return errors.New("export.filename must not be empty")
	}
	return nil
}

// ExportOptions maps the export section onto export.Options.
func (c *Config) ExportOptions() export.Options {
	return export.Options{
		Filename:   c.Export.Filename,
		ShareURL:   c.Export.ShareURL,
		ShareTitle: c.Export.ShareTitle,
		ShareText:  c.Export.ShareText,
	}
}
