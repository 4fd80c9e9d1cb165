package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Dir is the per-project configuration directory.
const Dir = ".leadrouter"

// EnvDBPath overrides Database.Path when set.
const EnvDBPath = "LEADROUTER_DB_PATH"

// Commit strategies.
const (
	StrategyLock    = "lock"
	StrategyVersion = "version"
)

// Audit sinks.
const (
	AuditSQLite   = "sqlite"
	AuditRabbitMQ = "rabbitmq"
	AuditNone     = "none"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the leadrouter configuration file.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Engine   EngineConfig   `yaml:"engine"`
	Audit    AuditConfig    `yaml:"audit"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig selects the authoritative store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`         // sqlite or postgres
	Path   string `yaml:"path,omitempty"` // sqlite file; defaults to ~/.leadrouter/leadrouter.db
	DSN    string `yaml:"dsn,omitempty"`  // postgres connection string
}

// EngineConfig holds assignment engine tunables.
type EngineConfig struct {
	Strategy             string        `yaml:"strategy"`
	LockTimeout          time.Duration `yaml:"lock_timeout"`
	MaxActiveAssignments int           `yaml:"max_active_assignments"`
	PairingWindow        time.Duration `yaml:"pairing_window"`
	IdlePreference       time.Duration `yaml:"idle_preference"`
}

// AuditConfig selects where audit events go.
type AuditConfig struct {
	Sink     string `yaml:"sink"`
	AMQPURL  string `yaml:"amqp_url,omitempty"`
	Exchange string `yaml:"exchange,omitempty"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: DriverSQLite},
		Engine: EngineConfig{
			Strategy:             StrategyLock,
			LockTimeout:          5 * time.Second,
			MaxActiveAssignments: 3,
			PairingWindow:        24 * time.Hour,
			IdlePreference:       4 * time.Hour,
		},
		Audit:   AuditConfig{Sink: AuditSQLite, Exchange: "leadrouter.audit"},
		Log:     LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Addr: ":9464"},
	}
}

// LoadConfig reads .leadrouter/config.yaml from the specified directory.
// Resolution order: cwd only (no home fallback). A missing file yields
// Default(). Values present in the file override the defaults.
func LoadConfig(dir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dir, Dir, "config.yaml")
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if p := os.Getenv(EnvDBPath); p != "" {
		cfg.Database.Path = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes config.yaml to directory.
func SaveConfig(dir string, cfg *Config) error {
	cfgDir := filepath.Join(dir, Dir)
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s dir: %w", Dir, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(cfgDir, "config.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks enumerations and limits.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("invalid config: database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid config: unknown database.driver %q (valid: sqlite, postgres)", c.Database.Driver)
	}

	switch c.Engine.Strategy {
	case StrategyLock, StrategyVersion:
	default:
		return fmt.Errorf("invalid config: unknown engine.strategy %q (valid: lock, version)", c.Engine.Strategy)
	}
	if c.Engine.LockTimeout <= 0 {
		return fmt.Errorf("invalid config: engine.lock_timeout must be positive")
	}
	if c.Engine.MaxActiveAssignments <= 0 {
		return fmt.Errorf("invalid config: engine.max_active_assignments must be positive")
	}
	if c.Engine.PairingWindow < 0 || c.Engine.IdlePreference < 0 {
		return fmt.Errorf("invalid config: engine windows must not be negative")
	}

	switch c.Audit.Sink {
	case AuditSQLite, AuditNone:
	case AuditRabbitMQ:
		if c.Audit.AMQPURL == "" {
			return fmt.Errorf("invalid config: audit.amqp_url is required for the rabbitmq sink")
		}
	default:
		return fmt.Errorf("invalid config: unknown audit.sink %q (valid: sqlite, rabbitmq, none)", c.Audit.Sink)
	}

	return nil
}

// DefaultDBPath returns ~/.leadrouter/leadrouter.db.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, Dir, "leadrouter.db"), nil
}

// DBPath returns the configured SQLite path or the default one.
func (c *Config) DBPath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	return DefaultDBPath()
}
