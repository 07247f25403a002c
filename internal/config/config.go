// Package config loads the application configuration from config.yaml, a
// local .env file, and environment-variable overrides.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the ETL process.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the embedded status API settings.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the optional progress-tracker settings.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// IngestConfig describes where raw property JSON and the field-mapping
// config come from.
type IngestConfig struct {
	DataDir     string   `yaml:"data_dir"`
	FieldConfig string   `yaml:"field_config"`
	S3          S3Config `yaml:"s3"`
}

// S3Config enables picking up raw JSON documents from an S3 bucket.
type S3Config struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	RedactContacts *bool  `yaml:"redact_contacts"`
}

// Load reads a YAML config file and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads the YAML config (falling back to pure defaults when the
// file is absent), then applies .env and environment overrides.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		cfg.applyDefaults()
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if dir := os.Getenv("ETL_DATA_DIR"); dir != "" {
		cfg.Ingest.DataDir = dir
	}
	if fc := os.Getenv("ETL_FIELD_CONFIG"); fc != "" {
		cfg.Ingest.FieldConfig = fc
	}
	if bucket := os.Getenv("ETL_S3_BUCKET"); bucket != "" {
		cfg.Ingest.S3.Bucket = bucket
		cfg.Ingest.S3.Enabled = true
	}
	if region := os.Getenv("ETL_S3_REGION"); region != "" {
		cfg.Ingest.S3.Region = region
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Ingest.DataDir == "" {
		c.Ingest.DataDir = "data"
	}
	if c.Ingest.FieldConfig == "" {
		c.Ingest.FieldConfig = "data/field_config.csv"
	}
	if c.Ingest.S3.Region == "" {
		c.Ingest.S3.Region = "us-east-1"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
}
