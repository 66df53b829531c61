package embedproviders

import (
	"context"
	"os"
	"strings"
)

// Provider selects which concrete Embedder backs a command.
type Provider string

const (
	// ProviderOllama calls a local Ollama server over HTTP.
	ProviderOllama Provider = "ollama"
	// ProviderStatic uses the dependency-free hash-based embedder.
	ProviderStatic Provider = "static"
)

// Embedder is the shape embedengine.Engine and memstore.Store both
// expect; StaticEmbedder and OllamaEmbedder each satisfy it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// New builds the Embedder named by provider. An empty provider falls
// back to the CODEGRAPH_EMBEDDER environment variable, and an empty or
// unrecognized value after that falls back to the static embedder, so
// every command stays runnable without a local model server.
func New(provider Provider, host, model string) Embedder {
	if provider == "" {
		provider = Provider(strings.ToLower(os.Getenv("CODEGRAPH_EMBEDDER")))
	}

	switch provider {
	case ProviderOllama:
		cfg := OllamaConfig{Host: host, Model: model}
		return NewOllamaEmbedder(cfg)
	case ProviderStatic:
		return NewStaticEmbedder()
	default:
		return NewStaticEmbedder()
	}
}
