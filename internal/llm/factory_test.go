package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingGeneratorDefaultsToOllama(t *testing.T) {
	gen, err := NewEmbeddingGenerator(ProviderConfig{})
	require.NoError(t, err)
	require.IsType(t, &OllamaClient{}, gen)
	assert.Equal(t, "nomic-embed-text", gen.GetModel())
}

func TestNewEmbeddingGeneratorOpenAI(t *testing.T) {
	gen, err := NewEmbeddingGenerator(ProviderConfig{
		Provider: "openai",
		APIKey:   "sk-test",
		Model:    "text-embedding-3-large",
	})
	require.NoError(t, err)
	require.IsType(t, &OpenAIEmbeddingClient{}, gen)
	assert.Equal(t, "text-embedding-3-large", gen.GetModel())
}

func TestNewEmbeddingGeneratorOpenAIRequiresKey(t *testing.T) {
	_, err := NewEmbeddingGenerator(ProviderConfig{Provider: "openai"})
	assert.Error(t, err)
}

func TestNewEmbeddingGeneratorUnknownProvider(t *testing.T) {
	_, err := NewEmbeddingGenerator(ProviderConfig{Provider: "bedrock"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bedrock")
}
