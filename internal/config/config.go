package config

import (
	"fmt"
	"os"
	"time"

	"credit-feature-pipeline/internal/model"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Database   DatabaseConfig   `yaml:"database"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// InputConfig names the batch of bureau records to read
type InputConfig struct {
	Source string `yaml:"source"` // file path or http(s) URL
}

// OutputConfig holds export settings
type OutputConfig struct {
	Dir  string `yaml:"dir"`  // base directory for per-run API exports
	CSV  string `yaml:"csv"`  // CSV path for CLI runs
	JSON string `yaml:"json"` // optional JSON path for CLI runs
}

// DatabaseConfig holds the SQLite run store settings
type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ExtractionConfig holds feature extraction settings
type ExtractionConfig struct {
	FailurePolicy string `yaml:"failure_policy"` // abort_batch or skip_record
	Timeout       string `yaml:"timeout"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	SourceDir       string        `yaml:"source_dir"` // local files API requests may read; empty allows URLs only
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML file. An empty path yields defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file in the working directory is read first when present.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PIPELINE_INPUT"); v != "" {
		cfg.Input.Source = v
	}
	if v := os.Getenv("PIPELINE_OUTPUT_CSV"); v != "" {
		cfg.Output.CSV = v
	}
	if v := os.Getenv("PIPELINE_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("PIPELINE_DB_PATH"); v != "" {
		cfg.Database.Path = v
		cfg.Database.Enabled = true
	}
	if v := os.Getenv("PIPELINE_FAILURE_POLICY"); v != "" {
		cfg.Extraction.FailurePolicy = v
	}
	if v := os.Getenv("PIPELINE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PIPELINE_SOURCE_DIR"); v != "" {
		cfg.Server.SourceDir = v
	}
	if v := os.Getenv("PIPELINE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PIPELINE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Input.Source == "" {
		c.Input.Source = "credit_bureau_sample_data.json"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "exports"
	}
	if c.Output.CSV == "" {
		c.Output.CSV = "extracted_features.csv"
	}
	if c.Database.Path == "" {
		c.Database.Path = "pipeline.db"
	}
	if c.Extraction.FailurePolicy == "" {
		c.Extraction.FailurePolicy = string(model.FailurePolicyAbortBatch)
	}
	if c.Extraction.Timeout == "" {
		c.Extraction.Timeout = "5m"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 32 << 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	if _, err := model.ParseFailurePolicy(c.Extraction.FailurePolicy); err != nil {
		return fmt.Errorf("extraction.failure_policy: %w", err)
	}
	if _, err := time.ParseDuration(c.Extraction.Timeout); err != nil {
		return fmt.Errorf("extraction.timeout: %w", err)
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must not be negative")
	}
	return nil
}

// FailurePolicy returns the parsed extraction failure policy
func (c *Config) FailurePolicy() model.FailurePolicy {
	policy, err := model.ParseFailurePolicy(c.Extraction.FailurePolicy)
	if err != nil {
		return model.FailurePolicyAbortBatch
	}
	return policy
}
