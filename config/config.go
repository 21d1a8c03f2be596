package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/metals/indicators"
	"github.com/rustyeddy/metals/internal/logging"
	"github.com/rustyeddy/metals/store"
)

// Environment variables that override file settings.
const (
	EnvDBDriver     = "METALS_DB_DRIVER"
	EnvDBDSN        = "METALS_DB_DSN"
	EnvCSV          = "METALS_CSV"
	EnvLogLevel     = "METALS_LOG_LEVEL"
	EnvServerAddr   = "METALS_SERVER_ADDR"
	EnvMaxOpenConns = "METALS_DB_MAX_OPEN_CONNS"
)

// Config is the complete metals configuration
type Config struct {
	Store      store.Config      `json:"store" yaml:"store"`
	Indicators indicators.Params `json:"indicators" yaml:"indicators"`
	Ingest     IngestConfig      `json:"ingest" yaml:"ingest"`
	Log        LogConfig         `json:"log" yaml:"log"`
	Server     ServerConfig      `json:"server" yaml:"server"`
	Schedule   ScheduleConfig    `json:"schedule" yaml:"schedule"`
}

// IngestConfig says where price tables come from
type IngestConfig struct {
	CSVPath    string `json:"csv_path" yaml:"csv_path"`
	DateColumn string `json:"date_column" yaml:"date_column"`
}

// LogConfig controls the process log and the timing sink
type LogConfig struct {
	Level      string `json:"level" yaml:"level"`
	TimingFile string `json:"timing_file,omitempty" yaml:"timing_file,omitempty"`
}

// ServerConfig contains HTTP API parameters
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// ScheduleConfig holds the cron expression for scheduled ingestion.
// Expressions carry a leading seconds field.
type ScheduleConfig struct {
	Cron string `json:"cron" yaml:"cron"`
}

// LoadFromFile loads configuration from a file (YAML, falling back to
// JSON) on top of the defaults, then applies environment overrides.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Load reads path if it is non-empty, otherwise starts from the defaults.
// Environment overrides apply either way.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}

	cfg := Default()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is
// not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from the environment through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDBDriver); ok && v != "" {
		c.Store.Driver = v
	}
	if v, ok := lookup(EnvDBDSN); ok && v != "" {
		c.Store.DSN = v
	}
	if v, ok := lookup(EnvMaxOpenConns); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxOpenConns, err)
		}
		c.Store.MaxOpenConns = n
	}
	if v, ok := lookup(EnvCSV); ok && v != "" {
		c.Ingest.CSVPath = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvServerAddr); ok && v != "" {
		c.Server.Addr = v
	}
	return nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch strings.ToLower(c.Store.Driver) {
	case "sqlite", store.DriverSQLite, store.DriverPostgres, "postgresql", "pgx":
	default:
		return fmt.Errorf("store.driver must be 'sqlite3' or 'postgres'")
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required")
	}
	if c.Store.MaxOpenConns < 0 {
		return fmt.Errorf("store.max_open_conns must not be negative")
	}
	if err := c.Indicators.Validate(); err != nil {
		return fmt.Errorf("indicators: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Store: store.Config{
			Driver:       store.DriverSQLite,
			DSN:          "./metals.db",
			MaxOpenConns: store.DefaultMaxOpenConns,
		},
		Indicators: indicators.DefaultParams(),
		Ingest: IngestConfig{
			CSVPath:    "./metal_prices.csv",
			DateColumn: "Dates",
		},
		Log: LogConfig{
			Level:      "info",
			TimingFile: "./sql_timing.log",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Schedule: ScheduleConfig{
			Cron: "0 30 18 * * 1-5",
		},
	}
}
