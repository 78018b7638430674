package embedding

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_provider.go -package=mocks skillhub/internal/embedding Provider

import (
	"context"
	"strings"
)

// Provider maps a text string to a fixed-dimension float vector.
// Implementations: a local OpenAI-compatible embeddings server (llama.cpp)
// and the OpenAI API. The business logic is agnostic to which.
type Provider interface {
	// Embed converts text to a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the dimensionality of the embedding vectors.
	Dimensions() int
}

// Options configures the provider factory.
type Options struct {
	Model      string
	BaseURL    string // local server base URL, e.g. http://localhost:8081
	APIKey     string
	VectorSize int
}

// NewProvider selects a provider by model name: OpenAI models
// ("text-embedding-...") go to the cloud provider, everything else to the
// local embeddings server.
func NewProvider(opts Options) Provider {
	if strings.HasPrefix(opts.Model, "text-embedding-") {
		return NewOpenAIProvider(opts.APIKey, opts.Model)
	}
	return NewLocalProvider(opts.BaseURL, opts.APIKey, opts.Model, opts.VectorSize)
}
