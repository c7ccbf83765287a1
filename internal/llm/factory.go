package llm

import (
	"fmt"
	"time"
)

// ProviderConfig selects and configures an embedding provider.
// It is a plain struct rather than the application Config type so that this
// package stays independent of the config package.
type ProviderConfig struct {
	Provider          string // "ollama" or "openai"
	BaseURL           string
	Model             string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// NewEmbeddingGenerator creates the appropriate EmbeddingGenerator for the
// configured provider. Ollama is the default.
func NewEmbeddingGenerator(cfg ProviderConfig) (EmbeddingGenerator, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai embedding provider requires an API key")
		}
		return NewOpenAIEmbeddingClient(OpenAIConfig{
			APIKey:            cfg.APIKey,
			Model:             cfg.Model,
			BaseURL:           cfg.BaseURL,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}), nil
	case "ollama", "":
		return NewOllamaClient(OllamaConfig{
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}
}
