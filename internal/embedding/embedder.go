// Package embedding provides text embedding generation with multiple backend support.
package embedding

import (
	"context"
	"fmt"
)

// Embedder defines the interface for text embedding providers.
// The default Frequency provider is deterministic and self-contained;
// Ollama and OpenAI call real embedding models behind the same contract.
type Embedder interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// More efficient than multiple Embed calls for bulk operations.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the embedding vector dimension.
	// Must match the vector store's configured dimension.
	Dimension() int
}

// ProviderType identifies the embedding provider.
type ProviderType string

const (
	// ProviderFrequency is the deterministic bag-of-words stand-in embedding.
	ProviderFrequency ProviderType = "frequency"

	// ProviderOllama uses a local Ollama server for embeddings.
	ProviderOllama ProviderType = "ollama"

	// ProviderOpenAI uses an OpenAI-compatible embeddings API.
	ProviderOpenAI ProviderType = "openai"
)

// Config holds configuration for creating an Embedder.
type Config struct {
	// Provider specifies which embedding backend to use.
	// Empty defaults to the frequency embedder.
	Provider ProviderType

	// Model is the embedding model name (provider-specific).
	Model string

	// Dimension is the required output dimension. 0 uses the
	// provider's default.
	Dimension int

	// OllamaHost overrides the Ollama server URL.
	OllamaHost string

	// OpenAIAPIKey authenticates the OpenAI provider.
	OpenAIAPIKey string

	// CacheSize, when positive, wraps the embedder in an LRU cache of
	// that many entries.
	CacheSize int
}

// New creates an Embedder based on the provided configuration.
func New(cfg Config) (Embedder, error) {
	var (
		e   Embedder
		err error
	)

	switch cfg.Provider {
	case ProviderFrequency, "":
		e = NewFrequency(cfg.Dimension)

	case ProviderOllama:
		e = NewOllama(cfg.OllamaHost, cfg.Model, cfg.Dimension)

	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		e, err = NewOpenAI(cfg.OpenAIAPIKey, cfg.Model, cfg.Dimension)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}

	if cfg.CacheSize > 0 {
		return NewCached(e, cfg.CacheSize)
	}
	return e, nil
}
