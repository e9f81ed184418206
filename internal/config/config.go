// Package config assembles runtime settings from an optional YAML file, the
// environment and .env files.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the server and the CLI.
type Config struct {
	Addr          string        `yaml:"addr"`
	App           string        `yaml:"app"`
	Store         StoreConfig   `yaml:"store"`
	Redis         RedisConfig   `yaml:"redis"`
	Log           LogConfig     `yaml:"log"`
	Metrics       MetricsConfig `yaml:"metrics"`
	DragThreshold float64       `yaml:"drag_threshold"`
	// MaxSessions caps the live per-browser boards, each of which holds a
	// change feed subscription.
	MaxSessions int `yaml:"max_sessions"`
}

type StoreConfig struct {
	Backend               string `yaml:"backend"`
	PostgresDSN           string `yaml:"postgres_dsn"`
	DBPath                string `yaml:"db_path"`
	PostgresMigrationsDir string `yaml:"postgres_migrations_dir"`
	SQLiteMigrationsDir   string `yaml:"sqlite_migrations_dir"`
	AutoMigrate           bool   `yaml:"auto_migrate"`
}

// RedisConfig enables the shared change feed and tutorial storage when URL is set.
type RedisConfig struct {
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Addr:          defaultAddr,
		App:           defaultApp,
		Redis:         RedisConfig{Channel: defaultRedisChannel},
		Log:           LogConfig{Level: defaultLogLevel, Format: defaultLogFormat},
		Metrics:       MetricsConfig{Enabled: defaultMetrics},
		DragThreshold: defaultDragThreshold,
		MaxSessions:   defaultMaxSessions,
	}
}

// Load reads .env files (outside Lambda), the YAML file named by
// TAKWIRA_CONFIG and then environment overrides.
func Load() (Config, error) {
	if !OnLambda() {
		_ = godotenv.Load(".env", ".env.local")
	}
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv(envConfigFile)); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Addr = envOrDefault(envAddr, c.Addr)
	c.App = envOrDefault(envApp, c.App)
	c.Store.Backend = envOrDefault(envStoreBackend, c.Store.Backend)
	c.Store.PostgresDSN = envOrDefault(envPostgresDSN, c.Store.PostgresDSN)
	c.Store.DBPath = envOrDefault(envDBPath, c.Store.DBPath)
	c.Store.PostgresMigrationsDir = envOrDefault(envPostgresMigrationsDir, c.Store.PostgresMigrationsDir)
	c.Store.SQLiteMigrationsDir = envOrDefault(envDBMigrationsDir, c.Store.SQLiteMigrationsDir)
	c.Store.AutoMigrate = boolEnvOrDefault(envAutoMigrate, c.Store.AutoMigrate)
	c.Redis.URL = envOrDefault(envRedisURL, c.Redis.URL)
	c.Redis.Channel = envOrDefault(envRedisChannel, c.Redis.Channel)
	c.Log.Level = envOrDefault(envLogLevel, c.Log.Level)
	c.Log.Format = envOrDefault(envLogFormat, c.Log.Format)
	c.Metrics.Enabled = boolEnvOrDefault(envMetricsOn, c.Metrics.Enabled)
	c.DragThreshold = floatEnvOrDefault(envDragThreshold, c.DragThreshold)
	c.MaxSessions = intEnvOrDefault(envMaxSessions, c.MaxSessions)
}

// normalize infers the backend the same way the DSN precedence works: a
// Postgres DSN wins over a SQLite path, and neither means memory.
func (c *Config) normalize() {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = defaultAddr
	}
	if c.DragThreshold <= 0 {
		c.DragThreshold = defaultDragThreshold
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = defaultMaxSessions
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = defaultRedisChannel
	}
	switch backend := strings.ToLower(strings.TrimSpace(c.Store.Backend)); backend {
	case BackendMemory, BackendSQLite, BackendPostgres:
		c.Store.Backend = backend
	default:
		c.Store.Backend = c.inferBackend()
	}
}

func (c *Config) inferBackend() string {
	switch {
	case strings.TrimSpace(c.Store.PostgresDSN) != "":
		return BackendPostgres
	case strings.TrimSpace(c.Store.DBPath) != "":
		return BackendSQLite
	default:
		return BackendMemory
	}
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendPostgres:
		if strings.TrimSpace(c.Store.PostgresDSN) == "" {
			return fmt.Errorf("store backend %q requires %s", c.Store.Backend, envPostgresDSN)
		}
	case BackendSQLite:
		if strings.TrimSpace(c.Store.DBPath) == "" {
			return fmt.Errorf("store backend %q requires %s", c.Store.Backend, envDBPath)
		}
	}
	return nil
}

// Dev reports whether the process runs in local development mode.
func (c Config) Dev() bool {
	return strings.EqualFold(c.App, AppDev)
}
