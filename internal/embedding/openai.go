package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// dimsByModel maps OpenAI embedding models to their output dimensionality.
var dimsByModel = map[openai.EmbeddingModel]int{
	openai.SmallEmbedding3: 1536,
	openai.LargeEmbedding3: 3072,
	openai.AdaEmbeddingV2:  1536,
}

// OpenAIProvider generates embeddings through the OpenAI API.
type OpenAIProvider struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dims   int
}

// NewOpenAIProvider creates a cloud embedding provider for the given model.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	m := openai.EmbeddingModel(model)
	dims, ok := dimsByModel[m]
	if !ok {
		dims = 1536
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  m,
		dims:   dims,
	}
}

// Embed converts text to a vector via the OpenAI embeddings endpoint.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(resp.Data))
	}
	return resp.Data[0].Embedding, nil
}

// Dimensions returns the model's output dimensionality.
func (p *OpenAIProvider) Dimensions() int {
	return p.dims
}
