package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Store.Backend != BackendSQLite {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, BackendSQLite)
	}
	if cfg.Query.DefaultLimit != 50 || cfg.Query.MaxLimit != 1000 {
		t.Errorf("Query limits = %d/%d, want 50/1000", cfg.Query.DefaultLimit, cfg.Query.MaxLimit)
	}
	if !cfg.Extractor.Options.RecordAttributeCalls || !cfg.Extractor.Options.IncludeFields {
		t.Error("extractor options should default to enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DataDir != dir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, dir)
	}
	if cfg.Scan.Concurrency != 8 {
		t.Errorf("Scan.Concurrency = %d, want 8", cfg.Scan.Concurrency)
	}
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	content := `version: 1
store:
  backend: badger
query:
  defaultLimit: 10
  maxLimit: 20
  maxDepth: 3
logging:
  level: debug
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Backend != BackendBadger {
		t.Errorf("Store.Backend = %q, want badger", cfg.Store.Backend)
	}
	if cfg.Query.DefaultLimit != 10 || cfg.Query.MaxDepth != 3 {
		t.Errorf("Query = %+v", cfg.Query)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// untouched sections keep their defaults
	if cfg.Server.Addr != "localhost:9130" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CODEFACTS_STORE_BACKEND", "badger")

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Backend != BackendBadger {
		t.Errorf("Store.Backend = %q, want badger from env", cfg.Store.Backend)
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")
	if err := os.WriteFile(path, []byte(`{"version":1,"store":{"backend":"postgres"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(dir, path)
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	cfgErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("error type = %T, want *ConfigError", err)
	}
	if cfgErr.Field != "store.backend" {
		t.Errorf("Field = %q, want store.backend", cfgErr.Field)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad version", func(c *Config) { c.Version = 2 }, "version"},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, "dataDir"},
		{"zero default limit", func(c *Config) { c.Query.DefaultLimit = 0 }, "query.defaultLimit"},
		{"max below default", func(c *Config) { c.Query.MaxLimit = 1 }, "query.maxLimit"},
		{"zero depth", func(c *Config) { c.Query.MaxDepth = 0 }, "query.maxDepth"},
		{"zero concurrency", func(c *Config) { c.Scan.Concurrency = 0 }, "scan.concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			cfgErr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DataDir = dir
	cfg.Store.Backend = BackendBadger

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Store.Backend != BackendBadger {
		t.Errorf("Store.Backend = %q, want badger", loaded.Store.Backend)
	}
}
