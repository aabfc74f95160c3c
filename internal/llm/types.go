package llm

import (
	"context"
)

// Client produces embedding vectors for text
type Client interface {
	// Embed returns one vector per input text, in input order
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
