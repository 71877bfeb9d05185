package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides (CODEFACTS_STORE_BACKEND, ...).
const EnvPrefix = "CODEFACTS"

// Store backends
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config represents the complete codefacts configuration
type Config struct {
	Version int    `json:"version" yaml:"version" mapstructure:"version"`
	DataDir string `json:"dataDir" yaml:"dataDir" mapstructure:"dataDir"`

	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Extractor ExtractorConfig `json:"extractor" yaml:"extractor" mapstructure:"extractor"`
	Query     QueryConfig     `json:"query" yaml:"query" mapstructure:"query"`
	Scan      ScanConfig      `json:"scan" yaml:"scan" mapstructure:"scan"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging" mapstructure:"logging"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

// StoreConfig selects and tunes the document store backend
type StoreConfig struct {
	Backend string       `json:"backend" yaml:"backend" mapstructure:"backend"`
	SQLite  SQLiteConfig `json:"sqlite" yaml:"sqlite" mapstructure:"sqlite"`
	Badger  BadgerConfig `json:"badger" yaml:"badger" mapstructure:"badger"`
}

// SQLiteConfig contains sqlite backend settings
type SQLiteConfig struct {
	BusyTimeoutMs int `json:"busyTimeoutMs" yaml:"busyTimeoutMs" mapstructure:"busyTimeoutMs"`
}

// BadgerConfig contains badger backend settings
type BadgerConfig struct {
	SyncWrites        bool `json:"syncWrites" yaml:"syncWrites" mapstructure:"syncWrites"`
	GCIntervalSeconds int  `json:"gcIntervalSeconds" yaml:"gcIntervalSeconds" mapstructure:"gcIntervalSeconds"`
}

// ExtractorConfig describes the external extraction front end
type ExtractorConfig struct {
	Command        string           `json:"command" yaml:"command" mapstructure:"command"`
	Args           []string         `json:"args" yaml:"args" mapstructure:"args"`
	TimeoutSeconds int              `json:"timeoutSeconds" yaml:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	Options        ExtractorOptions `json:"options" yaml:"options" mapstructure:"options"`
}

// ExtractorOptions are the capability switches passed to the front end
type ExtractorOptions struct {
	RecordAttributeCalls   bool `json:"recordAttributeCalls" yaml:"recordAttributeCalls" mapstructure:"recordAttributeCalls" toml:"recordAttributeCalls"`
	RecordInitializerCalls bool `json:"recordInitializerCalls" yaml:"recordInitializerCalls" mapstructure:"recordInitializerCalls" toml:"recordInitializerCalls"`
	IncludeProperties      bool `json:"includeProperties" yaml:"includeProperties" mapstructure:"includeProperties" toml:"includeProperties"`
	IncludeFields          bool `json:"includeFields" yaml:"includeFields" mapstructure:"includeFields" toml:"includeFields"`
}

// QueryConfig bounds enumeration and traversal requests
type QueryConfig struct {
	DefaultLimit int `json:"defaultLimit" yaml:"defaultLimit" mapstructure:"defaultLimit"`
	MaxLimit     int `json:"maxLimit" yaml:"maxLimit" mapstructure:"maxLimit"`
	MaxDepth     int `json:"maxDepth" yaml:"maxDepth" mapstructure:"maxDepth"`
}

// ScanConfig tunes full-store scans
type ScanConfig struct {
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Addr      string `json:"addr" yaml:"addr" mapstructure:"addr"`
	TokenHash string `json:"tokenHash" yaml:"tokenHash" mapstructure:"tokenHash"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level" mapstructure:"level"`
	File       string `json:"file" yaml:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" yaml:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" yaml:"maxBackups" mapstructure:"maxBackups"`
}

// MetricsConfig toggles the prometheus endpoint
type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
}

// DefaultDataDir returns ~/.codefacts, or .codefacts when the home dir is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codefacts"
	}
	return filepath.Join(home, ".codefacts")
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		DataDir: DefaultDataDir(),
		Store: StoreConfig{
			Backend: BackendSQLite,
			SQLite:  SQLiteConfig{BusyTimeoutMs: 5000},
			Badger:  BadgerConfig{GCIntervalSeconds: 300},
		},
		Extractor: ExtractorConfig{
			TimeoutSeconds: 600,
			Options: ExtractorOptions{
				RecordAttributeCalls:   true,
				RecordInitializerCalls: true,
				IncludeProperties:      true,
				IncludeFields:          true,
			},
		},
		Query: QueryConfig{
			DefaultLimit: 50,
			MaxLimit:     1000,
			MaxDepth:     10,
		},
		Scan: ScanConfig{Concurrency: 8},
		Server: ServerConfig{
			Addr: "localhost:9130",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// setDefaults registers every default with viper so env overrides
// apply even when no config file exists.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("dataDir", d.DataDir)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.sqlite.busyTimeoutMs", d.Store.SQLite.BusyTimeoutMs)
	v.SetDefault("store.badger.syncWrites", d.Store.Badger.SyncWrites)
	v.SetDefault("store.badger.gcIntervalSeconds", d.Store.Badger.GCIntervalSeconds)
	v.SetDefault("extractor.command", d.Extractor.Command)
	v.SetDefault("extractor.args", d.Extractor.Args)
	v.SetDefault("extractor.timeoutSeconds", d.Extractor.TimeoutSeconds)
	v.SetDefault("extractor.options.recordAttributeCalls", d.Extractor.Options.RecordAttributeCalls)
	v.SetDefault("extractor.options.recordInitializerCalls", d.Extractor.Options.RecordInitializerCalls)
	v.SetDefault("extractor.options.includeProperties", d.Extractor.Options.IncludeProperties)
	v.SetDefault("extractor.options.includeFields", d.Extractor.Options.IncludeFields)
	v.SetDefault("query.defaultLimit", d.Query.DefaultLimit)
	v.SetDefault("query.maxLimit", d.Query.MaxLimit)
	v.SetDefault("query.maxDepth", d.Query.MaxDepth)
	v.SetDefault("scan.concurrency", d.Scan.Concurrency)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.tokenHash", d.Server.TokenHash)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
}

// Load reads configuration. An explicit path wins; otherwise config.{yaml,json,toml}
// is looked up in dataDir. A missing file yields defaults plus env overrides.
func Load(dataDir, explicitPath string) (*Config, error) {
	defaults := DefaultConfig()
	if dataDir != "" {
		defaults.DataDir = dataDir
	}

	v := viper.New()
	setDefaults(v, defaults)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(defaults.DataDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	// A --data-dir flag overrides whatever the file says.
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to <dataDir>/config.yaml
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.DataDir, "config.yaml"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.DataDir == "" {
		return &ConfigError{Field: "dataDir", Message: "must not be empty"}
	}
	switch c.Store.Backend {
	case BackendSQLite, BackendBadger:
	default:
		return &ConfigError{Field: "store.backend", Message: "must be sqlite or badger"}
	}
	if c.Query.DefaultLimit < 1 {
		return &ConfigError{Field: "query.defaultLimit", Message: "must be >= 1"}
	}
	if c.Query.MaxLimit < c.Query.DefaultLimit {
		return &ConfigError{Field: "query.maxLimit", Message: "must be >= query.defaultLimit"}
	}
	if c.Query.MaxDepth < 1 {
		return &ConfigError{Field: "query.maxDepth", Message: "must be >= 1"}
	}
	if c.Scan.Concurrency < 1 {
		return &ConfigError{Field: "scan.concurrency", Message: "must be >= 1"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
