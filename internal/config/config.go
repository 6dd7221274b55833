// Package config handles configuration for salesdw.
// Values are read from a YAML config file and SALESDW_* environment
// variables; CLI flags take precedence over both.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for salesdw.
type Config struct {
	// Storage selects the warehouse backend.
	Storage StorageConfig `mapstructure:"storage"`

	// HTTP holds API server settings.
	HTTP HTTPConfig `mapstructure:"http"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// LogPretty enables human-readable console output instead of JSON.
	LogPretty bool `mapstructure:"log_pretty"`

	// ETL holds pipeline settings.
	ETL ETLConfig `mapstructure:"etl"`

	// Datadog holds optional metrics settings.
	Datadog DatadogConfig `mapstructure:"datadog"`
}

// StorageConfig selects and configures the relational backend.
type StorageConfig struct {
	// Kind is the backend kind: "postgres", "mssql" or "sqlite".
	Kind string `mapstructure:"kind"`

	// DSN is the backend connection string. Environment variables in the
	// form $VAR are expanded before use.
	DSN string `mapstructure:"dsn"`
}

// HTTPConfig holds API server settings.
type HTTPConfig struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string `mapstructure:"addr"`
}

// ETLConfig holds pipeline settings.
type ETLConfig struct {
	// CSVEncoding names the input file character encoding.
	// Empty or "utf-8" means no transcoding; "windows-1251" and
	// "windows-1252" are also supported.
	CSVEncoding string `mapstructure:"csv_encoding"`

	// CSVComma is the field delimiter for delimited input files.
	CSVComma string `mapstructure:"csv_comma"`
}

// DatadogConfig holds optional Datadog metrics settings.
// Credentials come from DD_API_KEY / DD_APP_KEY, never from the file.
type DatadogConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	JobName string   `mapstructure:"job_name"`
	Tags    []string `mapstructure:"tags"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Storage:   StorageConfig{Kind: "sqlite", DSN: "file:salesdw.db"},
		HTTP:      HTTPConfig{Addr: ":8000"},
		LogLevel:  "info",
		LogPretty: true,
		ETL:       ETLConfig{CSVComma: ","},
		Datadog:   DatadogConfig{JobName: "salesdw"},
	}
}

// Load reads configuration from the given file (optional), then applies
// SALESDW_* environment overrides, e.g. SALESDW_STORAGE_DSN.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("salesdw")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/salesdw")
		}
	}

	v.SetEnvPrefix("SALESDW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine; an explicit one is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if configFile != "" {
			if _, statErr := os.Stat(configFile); statErr != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Storage.DSN = os.ExpandEnv(cfg.Storage.DSN)
	return cfg, nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch c.Storage.Kind {
	case "postgres", "mssql", "sqlite":
	case "":
		return fmt.Errorf("storage.kind must be set")
	default:
		return fmt.Errorf("unsupported storage.kind=%q", c.Storage.Kind)
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn must be set")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr must be set")
	}
	return nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("storage.kind", cfg.Storage.Kind)
	v.SetDefault("storage.dsn", cfg.Storage.DSN)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_pretty", cfg.LogPretty)
	v.SetDefault("etl.csv_encoding", cfg.ETL.CSVEncoding)
	v.SetDefault("etl.csv_comma", cfg.ETL.CSVComma)
	v.SetDefault("datadog.enabled", cfg.Datadog.Enabled)
	v.SetDefault("datadog.job_name", cfg.Datadog.JobName)
}
