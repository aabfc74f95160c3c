package matcher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"api-load-tester/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordClient embeds text as keyword presence flags
type keywordClient struct {
	keywords []string
	err      error
}

func (c *keywordClient) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, len(c.keywords))
		for j, kw := range c.keywords {
			if strings.Contains(strings.ToLower(text), kw) {
				v[j] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func endpoints() []types.Endpoint {
	return []types.Endpoint{
		{Method: "GET", Path: "/pets", Summary: "List pets"},
		{Method: "POST", Path: "/users", Summary: "Create user"},
		{Method: "DELETE", Path: "/users/{id}", Summary: "Remove user", Description: "Deletes a user account"},
	}
}

func TestMatcher_Match(t *testing.T) {
	client := &keywordClient{keywords: []string{"pets", "user", "delete", "create"}}
	m, err := New(context.Background(), client, endpoints())
	require.NoError(t, err)

	matches, err := m.Match(context.Background(), "delete a user", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 2, matches[0].Index)
	assert.Equal(t, "DELETE /users/{id}", matches[0].Endpoint.Key())
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)

	all, err := m.Match(context.Background(), "pets", 0)
	require.NoError(t, err)
	assert.Len(t, all, DefaultTopK)
	assert.Equal(t, 0, all[0].Index)
}

func TestMatcher_EmbeddingErrors(t *testing.T) {
	_, err := New(context.Background(), &keywordClient{err: errors.New("offline")}, endpoints())
	assert.ErrorContains(t, err, "offline")

	_, err = New(context.Background(), nil, endpoints())
	assert.Error(t, err)
}

func TestMatcher_NoEndpoints(t *testing.T) {
	m, err := New(context.Background(), &keywordClient{}, nil)
	require.NoError(t, err)
	matches, err := m.Match(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEndpointText(t *testing.T) {
	assert.Equal(t, "GET /pets List pets", EndpointText(types.Endpoint{Method: "GET", Path: "/pets", Summary: "List pets"}))
}
