// Package config loads storex runtime settings from an optional YAML file
// overlaid by STOREX_* environment variables.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/comalice/storex/internal/core"
	"github.com/comalice/storex/internal/production"
)

// Snapshot drivers.
const (
	DriverNone     = "none"
	DriverJSON     = "json"
	DriverYAML     = "yaml"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
)

// Config is the runtime configuration of the storex tools.
type Config struct {
	StoreID     string         `env:"STOREX_STORE_ID" yaml:"storeID"`
	HTTPAddr    string         `env:"STOREX_HTTP_ADDR" yaml:"httpAddr"`
	LogLevel    string         `env:"STOREX_LOG_LEVEL" yaml:"logLevel"`
	HistorySize int            `env:"STOREX_HISTORY_SIZE" yaml:"historySize"`
	Snapshot    SnapshotConfig `yaml:"snapshot"`
}

// SnapshotConfig selects and configures the snapshot persister.
type SnapshotConfig struct {
	Driver      string   `env:"STOREX_SNAPSHOT_DRIVER" yaml:"driver"`
	Dir         string   `env:"STOREX_SNAPSHOT_DIR" yaml:"dir"`
	SQLitePath  string   `env:"STOREX_SQLITE_PATH" yaml:"sqlitePath"`
	PostgresDSN string   `env:"STOREX_POSTGRES_DSN" yaml:"postgresDSN"`
	S3          S3Config `yaml:"s3"`
}

// S3Config configures the S3 persister. Credentials come from the default
// AWS chain.
type S3Config struct {
	Bucket    string `env:"STOREX_S3_BUCKET" yaml:"bucket"`
	Region    string `env:"STOREX_S3_REGION" yaml:"region"`
	Endpoint  string `env:"STOREX_S3_ENDPOINT" yaml:"endpoint"`
	Prefix    string `env:"STOREX_S3_PREFIX" yaml:"prefix"`
	PathStyle bool   `env:"STOREX_S3_PATH_STYLE" yaml:"pathStyle"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		StoreID:     "default",
		HTTPAddr:    "127.0.0.1:7070",
		LogLevel:    "info",
		HistorySize: 64,
		Snapshot: SnapshotConfig{
			Driver:     DriverNone,
			Dir:        "snapshots",
			SQLitePath: "storex.db",
			S3:         S3Config{Region: "us-east-1"},
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks driver-specific requirements.
func (c Config) Validate() error {
	if c.StoreID == "" {
		return fmt.Errorf("config: store ID required")
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("config: history size must not be negative, got %d", c.HistorySize)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	s := c.Snapshot
	switch s.Driver {
	case DriverNone, "":
	case DriverJSON, DriverYAML:
		if s.Dir == "" {
			return fmt.Errorf("config: STOREX_SNAPSHOT_DIR required for %s driver", s.Driver)
		}
	case DriverSQLite:
		if s.SQLitePath == "" {
			return fmt.Errorf("config: STOREX_SQLITE_PATH required for sqlite driver")
		}
	case DriverPostgres:
		if s.PostgresDSN == "" {
			return fmt.Errorf("config: STOREX_POSTGRES_DSN required for postgres driver")
		}
	case DriverS3:
		if s.S3.Bucket == "" {
			return fmt.Errorf("config: STOREX_S3_BUCKET required for s3 driver")
		}
	default:
		return fmt.Errorf("config: unknown snapshot driver %q", s.Driver)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log level: %w", err)
	}
	return level, nil
}

// Logger builds a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenPersister opens the configured snapshot persister. It returns a nil
// persister for the none driver. The closer is never nil.
func (c Config) OpenPersister(ctx context.Context) (core.Persister, io.Closer, error) {
	s := c.Snapshot
	switch s.Driver {
	case DriverNone, "":
		return nil, nopCloser{}, nil
	case DriverJSON:
		p, err := production.NewJSONPersister(s.Dir)
		return p, nopCloser{}, err
	case DriverYAML:
		p, err := production.NewYAMLPersister(s.Dir)
		return p, nopCloser{}, err
	case DriverSQLite:
		p, err := production.OpenSQLite(ctx, s.SQLitePath)
		if err != nil {
			return nil, nopCloser{}, err
		}
		return p, p, nil
	case DriverPostgres:
		p, err := production.OpenPostgres(ctx, s.PostgresDSN)
		if err != nil {
			return nil, nopCloser{}, err
		}
		return p, p, nil
	case DriverS3:
		p, err := production.NewS3PersisterFromConfig(ctx, production.S3Config{
			Bucket:    s.S3.Bucket,
			Region:    s.S3.Region,
			Endpoint:  s.S3.Endpoint,
			Prefix:    s.S3.Prefix,
			PathStyle: s.S3.PathStyle,
		})
		return p, nopCloser{}, err
	default:
		return nil, nopCloser{}, fmt.Errorf("config: unknown snapshot driver %q", s.Driver)
	}
}
