// Package config provides configuration management for tagloop.
// It loads settings from environment variables with the TAGLOOP_ prefix and
// provides sensible defaults for all configuration options. An optional YAML
// file (TAGLOOP_CONFIG_FILE) overrides values set in the environment, which
// lets deployments ship a config file while keeping .env for secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the tagloop application.
type Config struct {
	Storage   StorageConfig
	Embedding EmbeddingConfig
	Extractor ExtractorConfig
	Tagging   TaggingConfig
}

// StorageConfig contains database configuration.
type StorageConfig struct {
	Engine      string // Storage engine: sqlite, postgres (default: sqlite)
	DataPath    string // Path to data directory for sqlite (default: ./data)
	PostgresDSN string // PostgreSQL connection string
}

// EmbeddingConfig contains embedding provider configuration.
type EmbeddingConfig struct {
	Provider          string        // Embedding provider: ollama, openai (default: ollama)
	BaseURL           string        // Provider API URL
	Model             string        // Embedding model name
	APIKey            string        // API key for hosted providers
	Timeout           time.Duration // Per-request timeout (default: 10s)
	RequestsPerSecond float64       // Client-side pacing; 0 disables
}

// ExtractorConfig contains the semantic extraction agent configuration.
type ExtractorConfig struct {
	BaseURL           string        // Agent API root
	AgentID           string        // Agent to invoke
	APIKey            string        // Bearer token
	Timeout           time.Duration // Per-call timeout (default: 30s)
	RequestsPerSecond float64       // Client-side pacing; 0 disables
}

// TaggingConfig contains pipeline tuning knobs.
type TaggingConfig struct {
	BatchSize           int     // Max untagged items per run (default: 1000)
	ConfidenceThreshold float64 // Gate threshold (default: 0.80)
	SimilarityFloor     float64 // Matcher similarity floor (default: 0.5)
	MatchLimit          int     // Max ranked candidates per item (default: 20)
}

// LoadConfig loads configuration from environment variables, then overlays
// the YAML file named by TAGLOOP_CONFIG_FILE if set. A named but unreadable
// or invalid file is a configuration error.
func LoadConfig() (*Config, error) {
	cfg := buildBaseConfig()

	if path := os.Getenv("TAGLOOP_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// buildBaseConfig constructs a Config with values from environment variables
// and defaults.
func buildBaseConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Engine:      getEnv("TAGLOOP_STORAGE_ENGINE", "sqlite"),
			DataPath:    getEnv("TAGLOOP_DATA_PATH", "./data"),
			PostgresDSN: getEnv("TAGLOOP_POSTGRES_DSN", ""),
		},
		Embedding: EmbeddingConfig{
			Provider:          getEnv("TAGLOOP_EMBEDDING_PROVIDER", "ollama"),
			BaseURL:           getEnv("TAGLOOP_EMBEDDING_URL", ""),
			Model:             getEnv("TAGLOOP_EMBEDDING_MODEL", ""),
			APIKey:            getEnv("TAGLOOP_EMBEDDING_API_KEY", ""),
			Timeout:           getEnvDuration("TAGLOOP_EMBEDDING_TIMEOUT", 10*time.Second),
			RequestsPerSecond: getEnvFloat("TAGLOOP_EMBEDDING_RPS", 0),
		},
		Extractor: ExtractorConfig{
			BaseURL:           getEnv("TAGLOOP_EXTRACTOR_URL", "https://api.coze.com"),
			AgentID:           getEnv("TAGLOOP_EXTRACTOR_AGENT_ID", ""),
			APIKey:            getEnv("TAGLOOP_EXTRACTOR_API_KEY", ""),
			Timeout:           getEnvDuration("TAGLOOP_EXTRACTOR_TIMEOUT", 30*time.Second),
			RequestsPerSecond: getEnvFloat("TAGLOOP_EXTRACTOR_RPS", 0),
		},
		Tagging: TaggingConfig{
			BatchSize:           getEnvInt("TAGLOOP_BATCH_SIZE", 1000),
			ConfidenceThreshold: getEnvFloat("TAGLOOP_CONFIDENCE_THRESHOLD", 0.80),
			SimilarityFloor:     getEnvFloat("TAGLOOP_SIMILARITY_FLOOR", 0.5),
			MatchLimit:          getEnvInt("TAGLOOP_MATCH_LIMIT", 20),
		},
	}
}

// fileConfig mirrors Config with pointer fields so that only keys present in
// the YAML file override the environment-derived values.
type fileConfig struct {
	Storage struct {
		Engine      *string `yaml:"engine"`
		DataPath    *string `yaml:"data_path"`
		PostgresDSN *string `yaml:"postgres_dsn"`
	} `yaml:"storage"`
	Embedding struct {
		Provider          *string        `yaml:"provider"`
		BaseURL           *string        `yaml:"base_url"`
		Model             *string        `yaml:"model"`
		APIKey            *string        `yaml:"api_key"`
		Timeout           *time.Duration `yaml:"timeout"`
		RequestsPerSecond *float64       `yaml:"requests_per_second"`
	} `yaml:"embedding"`
	Extractor struct {
		BaseURL           *string        `yaml:"base_url"`
		AgentID           *string        `yaml:"agent_id"`
		APIKey            *string        `yaml:"api_key"`
		Timeout           *time.Duration `yaml:"timeout"`
		RequestsPerSecond *float64       `yaml:"requests_per_second"`
	} `yaml:"extractor"`
	Tagging struct {
		BatchSize           *int     `yaml:"batch_size"`
		ConfidenceThreshold *float64 `yaml:"confidence_threshold"`
		SimilarityFloor     *float64 `yaml:"similarity_floor"`
		MatchLimit          *int     `yaml:"match_limit"`
	} `yaml:"tagging"`
}

// applyFile overlays a YAML config file on top of the current values.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read %q: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: failed to parse %q: %w", path, err)
	}

	setString(&c.Storage.Engine, fc.Storage.Engine)
	setString(&c.Storage.DataPath, fc.Storage.DataPath)
	setString(&c.Storage.PostgresDSN, fc.Storage.PostgresDSN)

	setString(&c.Embedding.Provider, fc.Embedding.Provider)
	setString(&c.Embedding.BaseURL, fc.Embedding.BaseURL)
	setString(&c.Embedding.Model, fc.Embedding.Model)
	setString(&c.Embedding.APIKey, fc.Embedding.APIKey)
	setDuration(&c.Embedding.Timeout, fc.Embedding.Timeout)
	setFloat(&c.Embedding.RequestsPerSecond, fc.Embedding.RequestsPerSecond)

	setString(&c.Extractor.BaseURL, fc.Extractor.BaseURL)
	setString(&c.Extractor.AgentID, fc.Extractor.AgentID)
	setString(&c.Extractor.APIKey, fc.Extractor.APIKey)
	setDuration(&c.Extractor.Timeout, fc.Extractor.Timeout)
	setFloat(&c.Extractor.RequestsPerSecond, fc.Extractor.RequestsPerSecond)

	setInt(&c.Tagging.BatchSize, fc.Tagging.BatchSize)
	setFloat(&c.Tagging.ConfidenceThreshold, fc.Tagging.ConfidenceThreshold)
	setFloat(&c.Tagging.SimilarityFloor, fc.Tagging.SimilarityFloor)
	setInt(&c.Tagging.MatchLimit, fc.Tagging.MatchLimit)

	return nil
}

// Validate checks cross-field requirements before the pipeline starts.
func (c *Config) Validate() error {
	switch c.Storage.Engine {
	case "sqlite":
		// DataPath has a default; nothing more to check.
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("config: postgres storage engine requires TAGLOOP_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("config: unsupported storage engine: %q", c.Storage.Engine)
	}

	if c.Tagging.ConfidenceThreshold <= 0 || c.Tagging.ConfidenceThreshold > 1 {
		return fmt.Errorf("config: confidence threshold must be in (0, 1], got %v", c.Tagging.ConfidenceThreshold)
	}

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *time.Duration) {
	if src != nil {
		*dst = *src
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. If the variable exists but cannot be parsed, the default is used.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value. If the variable exists but cannot be parsed, the default is used.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable ("30s", "2m") or
// returns a default value. If the variable exists but cannot be parsed, the
// default is used.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
