package llm

import (
	"context"
	"fmt"

	"api-load-tester/internal/logger"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client using OpenAI's embeddings API
type OpenAIClient struct {
	*BaseClient
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(config *Config, log *logger.Logger) *OpenAIClient {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIClient{
		BaseClient: NewBaseClient(config, log),
		client:     openai.NewClientWithConfig(clientConfig),
	}
}

// Embed implements Client
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return c.embed(ctx, texts, c.createEmbeddings)
}

func (c *OpenAIClient) createEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.config.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("OpenAI returned embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("no embedding returned for input %d", i)
		}
	}
	return vectors, nil
}
