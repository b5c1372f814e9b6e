package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "trainrx" {
		t.Errorf("expected Name=trainrx, got %s", cfg.Name)
	}
	if cfg.Store.Backend != BackendCatalog {
		t.Errorf("expected Backend=catalog, got %s", cfg.Store.Backend)
	}
	if len(cfg.Engine.MedicationCautions) != 1 || cfg.Engine.MedicationCautions[0].Tag != "beta_blocker" {
		t.Errorf("expected the beta_blocker caution by default, got %+v", cfg.Engine.MedicationCautions)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "trainrx.yaml")

	cfg := DefaultConfig()
	cfg.Tenant = "clinic-a"
	cfg.Store.Backend = BackendSQLite
	cfg.Store.Driver = "sqlite3"
	cfg.Engine.DefaultAerobicMethod = "PSE"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Tenant != "clinic-a" {
		t.Errorf("expected Tenant=clinic-a, got %s", loaded.Tenant)
	}
	if loaded.Store.Driver != "sqlite3" {
		t.Errorf("expected Driver=sqlite3, got %s", loaded.Store.Driver)
	}
	if loaded.Engine.DefaultAerobicMethod != "PSE" {
		t.Errorf("expected DefaultAerobicMethod=PSE, got %s", loaded.Engine.DefaultAerobicMethod)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr, got %s", cfg.Server.ListenAddr)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trainrx.yaml")
	if err := os.WriteFile(path, []byte("tenant: clinic-b\nserver:\n  request_timeout: 2s\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Tenant != "clinic-b" {
		t.Errorf("expected Tenant=clinic-b, got %s", cfg.Tenant)
	}
	if cfg.GetRequestTimeout() != 2*time.Second {
		t.Errorf("expected 2s request timeout, got %v", cfg.GetRequestTimeout())
	}
	if cfg.Store.CatalogDir != "catalog" {
		t.Errorf("expected default catalog dir, got %s", cfg.Store.CatalogDir)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("tenant: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDurations_Fallbacks(t *testing.T) {
	cfg := &Config{}
	if cfg.GetRequestTimeout() != 10*time.Second {
		t.Errorf("unexpected request timeout fallback %v", cfg.GetRequestTimeout())
	}
	if cfg.GetShutdownTimeout() != 15*time.Second {
		t.Errorf("unexpected shutdown timeout fallback %v", cfg.GetShutdownTimeout())
	}
	cfg.Store.ReloadDebounce = "-1s"
	if cfg.GetReloadDebounce() != 500*time.Millisecond {
		t.Errorf("unexpected debounce fallback %v", cfg.GetReloadDebounce())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty tenant", func(c *Config) { c.Tenant = "" }},
		{"bad method", func(c *Config) { c.Engine.DefaultAerobicMethod = "HIIT" }},
		{"incomplete caution", func(c *Config) { c.Engine.MedicationCautions = []CautionConfig{{Tag: "insulin"}} }},
		{"bad backend", func(c *Config) { c.Store.Backend = "postgres" }},
		{"catalog without dir", func(c *Config) { c.Store.CatalogDir = "" }},
		{"sqlite without path", func(c *Config) { c.Store.Backend = BackendSQLite; c.Store.DatabasePath = "" }},
		{"bad driver", func(c *Config) { c.Store.Backend = BackendSQLite; c.Store.Driver = "pgx" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	if !lc.IsCategoryEnabled("store") {
		t.Error("categories should be enabled without a filter")
	}
	lc.Categories = map[string]bool{"store": false}
	if lc.IsCategoryEnabled("store") {
		t.Error("store should be disabled")
	}
	if !lc.IsCategoryEnabled("server") {
		t.Error("unlisted categories should stay enabled")
	}
}
