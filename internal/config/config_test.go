package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Engine)
	assert.Equal(t, "./data", cfg.Storage.DataPath)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, 10*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Extractor.Timeout)
	assert.Equal(t, 1000, cfg.Tagging.BatchSize)
	assert.Equal(t, 0.80, cfg.Tagging.ConfidenceThreshold)
	assert.Equal(t, 0.5, cfg.Tagging.SimilarityFloor)
	assert.Equal(t, 20, cfg.Tagging.MatchLimit)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("TAGLOOP_STORAGE_ENGINE", "postgres")
	t.Setenv("TAGLOOP_POSTGRES_DSN", "postgres://localhost/tagloop")
	t.Setenv("TAGLOOP_EMBEDDING_PROVIDER", "openai")
	t.Setenv("TAGLOOP_EMBEDDING_API_KEY", "sk-test")
	t.Setenv("TAGLOOP_EMBEDDING_TIMEOUT", "25s")
	t.Setenv("TAGLOOP_BATCH_SIZE", "250")
	t.Setenv("TAGLOOP_CONFIDENCE_THRESHOLD", "0.9")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Engine)
	assert.Equal(t, "postgres://localhost/tagloop", cfg.Storage.PostgresDSN)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, 25*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, 250, cfg.Tagging.BatchSize)
	assert.Equal(t, 0.9, cfg.Tagging.ConfidenceThreshold)
}

func TestLoadConfigUnparsableEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("TAGLOOP_BATCH_SIZE", "lots")
	t.Setenv("TAGLOOP_EMBEDDING_TIMEOUT", "soon")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Tagging.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.Embedding.Timeout)
}

func TestLoadConfigFileOverridesEnvironment(t *testing.T) {
	t.Setenv("TAGLOOP_BATCH_SIZE", "250")
	t.Setenv("TAGLOOP_EMBEDDING_MODEL", "from-env")

	path := filepath.Join(t.TempDir(), "tagloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  engine: postgres
  postgres_dsn: postgres://localhost/tagloop
tagging:
  batch_size: 50
  confidence_threshold: 0.85
`), 0o600))
	t.Setenv("TAGLOOP_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// Keys present in the file win; everything else keeps env/defaults.
	assert.Equal(t, "postgres", cfg.Storage.Engine)
	assert.Equal(t, 50, cfg.Tagging.BatchSize)
	assert.Equal(t, 0.85, cfg.Tagging.ConfidenceThreshold)
	assert.Equal(t, "from-env", cfg.Embedding.Model)
	assert.Equal(t, 0.5, cfg.Tagging.SimilarityFloor)
}

func TestLoadConfigMissingFileIsError(t *testing.T) {
	t.Setenv("TAGLOOP_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigInvalidYAMLIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [not: a: mapping"), 0o600))
	t.Setenv("TAGLOOP_CONFIG_FILE", path)

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	cfg.Storage.Engine = "postgres"
	assert.Error(t, cfg.Validate(), "postgres engine requires a DSN")

	cfg.Storage.PostgresDSN = "postgres://localhost/tagloop"
	assert.NoError(t, cfg.Validate())

	cfg.Storage.Engine = "dynamo"
	assert.Error(t, cfg.Validate())

	cfg.Storage.Engine = "sqlite"
	cfg.Tagging.ConfidenceThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg.Tagging.ConfidenceThreshold = 0
	assert.Error(t, cfg.Validate())
}
