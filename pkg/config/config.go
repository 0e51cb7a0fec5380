// Package config loads the service configuration from a YAML file, a .env
// file and PAWN_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreDriverSQLite = "sqlite"
	StoreDriverFile   = "file"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Auth   AuthConfig   `yaml:"auth"`
	Log    LogConfig    `yaml:"log"`
	Report ReportConfig `yaml:"report"`
}

type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite or file
	DSN    string `yaml:"dsn"`    // sqlite data source, or JSON file path for the file driver
}

type AuthConfig struct {
	Username     string        `yaml:"username"`
	PasswordHash string        `yaml:"password_hash"` // bcrypt
	JWTSecret    string        `yaml:"jwt_secret"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`   // empty logs to stdout
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ReportConfig struct {
	Interval time.Duration `yaml:"interval"` // 0 disables the periodic dashboard report
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver: StoreDriverSQLite,
			DSN:    "pawnshop.db",
		},
		Auth: AuthConfig{
			SessionTTL: 12 * time.Hour,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Report: ReportConfig{
			Interval: time.Hour,
		},
	}
}

// Load builds the configuration. A missing YAML file or .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("config: load .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"PAWN_LISTEN_ADDR":        &cfg.Server.ListenAddr,
		"PAWN_STORE_DRIVER":       &cfg.Store.Driver,
		"PAWN_STORE_DSN":          &cfg.Store.DSN,
		"PAWN_AUTH_USERNAME":      &cfg.Auth.Username,
		"PAWN_AUTH_PASSWORD_HASH": &cfg.Auth.PasswordHash,
		"PAWN_JWT_SECRET":         &cfg.Auth.JWTSecret,
		"PAWN_LOG_LEVEL":          &cfg.Log.Level,
		"PAWN_LOG_FORMAT":         &cfg.Log.Format,
		"PAWN_LOG_FILE":           &cfg.Log.File,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	durations := map[string]*time.Duration{
		"PAWN_SESSION_TTL":      &cfg.Auth.SessionTTL,
		"PAWN_REPORT_INTERVAL":  &cfg.Report.Interval,
		"PAWN_SHUTDOWN_TIMEOUT": &cfg.Server.ShutdownTimeout,
	}
	for key, dst := range durations {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = d
	}

	if v, ok := os.LookupEnv("PAWN_LOG_MAX_SIZE_MB"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: PAWN_LOG_MAX_SIZE_MB: %w", err)
		}
		cfg.Log.MaxSizeMB = n
	}
	return nil
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return errors.New("config: server.listen_addr is required")
	}
	switch c.Store.Driver {
	case StoreDriverSQLite, StoreDriverFile:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return errors.New("config: store.dsn is required")
	}
	if c.Auth.Username == "" || c.Auth.PasswordHash == "" {
		return errors.New("config: auth.username and auth.password_hash are required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("config: auth.jwt_secret must be at least 16 characters")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("config: auth.session_ttl must be positive")
	}
	if c.Report.Interval < 0 {
		return errors.New("config: report.interval must not be negative")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}
