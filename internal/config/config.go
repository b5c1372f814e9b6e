package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all trainrx configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Tenant used when a request names none
	Tenant string `yaml:"tenant"`

	// Rule engine behavior
	Engine EngineConfig `yaml:"engine"`

	// Rule repository
	Store StoreConfig `yaml:"store"`

	// HTTP transport
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig configures normalization and aerobic resolution.
type EngineConfig struct {
	DefaultAerobicMethod string          `yaml:"default_aerobic_method"` // FCR, PSE, vVO2, MFEL
	MedicationCautions   []CautionConfig `yaml:"medication_cautions"`
	AuditFactLimit       int             `yaml:"audit_fact_limit"`
}

// CautionConfig maps a medication fact tag to an observation.
type CautionConfig struct {
	Tag     string `yaml:"tag"`
	Caution string `yaml:"caution"`
}

// Store backends.
const (
	BackendCatalog = "catalog"
	BackendSQLite  = "sqlite"
)

// StoreConfig selects where rules are read from.
type StoreConfig struct {
	Backend        string `yaml:"backend"`         // catalog, sqlite
	Driver         string `yaml:"driver"`          // sqlite (pure Go), sqlite3 (cgo)
	DatabasePath   string `yaml:"database_path"`
	CatalogDir     string `yaml:"catalog_dir"`
	WatchCatalog   bool   `yaml:"watch_catalog"`
	ReloadDebounce string `yaml:"reload_debounce"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	ListenAddr      string `yaml:"listen_addr"`
	RequestTimeout  string `yaml:"request_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	TenantHeader    string `yaml:"tenant_header"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "trainrx",
		Version: "0.3.0",
		Tenant:  "default",

		Engine: EngineConfig{
			DefaultAerobicMethod: "FCR",
			MedicationCautions: []CautionConfig{
				{Tag: "beta_blocker", Caution: "Prioritize perceived-exertion (PSE) intensity control due to beta-blocker use"},
			},
			AuditFactLimit: 100000,
		},

		Store: StoreConfig{
			Backend:        BackendCatalog,
			Driver:         "sqlite",
			DatabasePath:   "data/trainrx.db",
			CatalogDir:     "catalog",
			WatchCatalog:   true,
			ReloadDebounce: "500ms",
		},

		Server: ServerConfig{
			ListenAddr:      ":8080",
			RequestTimeout:  "10s",
			ShutdownTimeout: "15s",
			TenantHeader:    "X-Tenant-ID",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults if config file doesn't exist
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TRAINRX_TENANT"); v != "" {
		c.Tenant = v
	}
	if v := os.Getenv("TRAINRX_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("TRAINRX_DB_PATH"); v != "" {
		c.Store.DatabasePath = v
	}
	if v := os.Getenv("TRAINRX_CATALOG_DIR"); v != "" {
		c.Store.CatalogDir = v
	}
	if v := os.Getenv("TRAINRX_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("TRAINRX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetRequestTimeout returns the per-request timeout as a duration.
func (c *Config) GetRequestTimeout() time.Duration {
	return parseDuration(c.Server.RequestTimeout, 10*time.Second)
}

// GetShutdownTimeout returns the graceful shutdown timeout as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 15*time.Second)
}

// GetReloadDebounce returns the catalog reload debounce as a duration.
func (c *Config) GetReloadDebounce() time.Duration {
	return parseDuration(c.Store.ReloadDebounce, 500*time.Millisecond)
}

// ValidAerobicMethods lists the accepted default aerobic methods.
var ValidAerobicMethods = []string{"FCR", "PSE", "vVO2", "MFEL"}

// ValidDrivers lists the registered SQLite driver names.
var ValidDrivers = []string{"sqlite", "sqlite3"}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Tenant == "" {
		return fmt.Errorf("tenant must not be empty")
	}
	if !contains(ValidAerobicMethods, c.Engine.DefaultAerobicMethod) {
		return fmt.Errorf("invalid default aerobic method: %s (valid: %v)", c.Engine.DefaultAerobicMethod, ValidAerobicMethods)
	}
	for i, caution := range c.Engine.MedicationCautions {
		if caution.Tag == "" || caution.Caution == "" {
			return fmt.Errorf("medication caution %d needs both tag and caution", i)
		}
	}

	switch c.Store.Backend {
	case BackendCatalog:
		if c.Store.CatalogDir == "" {
			return fmt.Errorf("catalog backend requires store.catalog_dir")
		}
	case BackendSQLite:
		if c.Store.DatabasePath == "" {
			return fmt.Errorf("sqlite backend requires store.database_path")
		}
		if !contains(ValidDrivers, c.Store.Driver) {
			return fmt.Errorf("invalid sqlite driver: %s (valid: %v)", c.Store.Driver, ValidDrivers)
		}
	default:
		return fmt.Errorf("invalid store backend: %s (valid: catalog, sqlite)", c.Store.Backend)
	}

	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (valid: json, console)", c.Logging.Format)
	}
	return nil
}
