package llm

import (
	"context"
	"fmt"

	"api-load-tester/internal/logger"
)

// BaseClient carries the configuration and interaction logging shared by providers
type BaseClient struct {
	config *Config
	logger *logger.Logger
}

// NewBaseClient creates a new base LLM client
func NewBaseClient(config *Config, log *logger.Logger) *BaseClient {
	if log == nil {
		log = logger.Nop()
	}
	return &BaseClient{
		config: config,
		logger: log,
	}
}

// embedFunc performs the provider specific embedding call
type embedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// embed validates and logs an embedding call around the provider implementation
func (c *BaseClient) embed(ctx context.Context, texts []string, call embedFunc) ([][]float32, error) {
	input := map[string]interface{}{
		"model": c.config.Model,
		"count": len(texts),
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := call(ctx, texts)
	if err != nil {
		c.logger.LogLLMInteraction("Embed", input, nil, err)
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		err := fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
		c.logger.LogLLMInteraction("Embed", input, nil, err)
		return nil, err
	}

	c.logger.LogLLMInteraction("Embed", input, map[string]interface{}{"dimensions": len(vectors[0])}, nil)
	return vectors, nil
}
