package matcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"api-load-tester/internal/llm"
	"api-load-tester/internal/types"
)

// DefaultTopK is the number of matches returned when none is requested
const DefaultTopK = 3

// Match is one endpoint ranked against a query
type Match struct {
	Index    int            `json:"index"`
	Score    float64        `json:"score"`
	Endpoint types.Endpoint `json:"endpoint"`
}

// Matcher ranks endpoints by semantic similarity to free-text queries
type Matcher struct {
	client    llm.Client
	endpoints []types.Endpoint
	vectors   [][]float64
}

// New embeds every endpoint's method, path, summary and description
func New(ctx context.Context, client llm.Client, endpoints []types.Endpoint) (*Matcher, error) {
	if client == nil {
		return nil, errors.New("matcher requires an embedding client")
	}

	texts := make([]string, len(endpoints))
	for i, ep := range endpoints {
		texts[i] = EndpointText(ep)
	}

	raw, err := client.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed endpoints: %w", err)
	}

	vectors := make([][]float64, len(raw))
	for i, v := range raw {
		vectors[i] = normalize(v)
	}
	return &Matcher{client: client, endpoints: endpoints, vectors: vectors}, nil
}

// EndpointText is the text embedded for an endpoint
func EndpointText(ep types.Endpoint) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %s %s", ep.Method, ep.Path, ep.Summary, ep.Description))
}

// Match returns up to topK endpoints ordered by descending cosine similarity to query
func (m *Matcher) Match(ctx context.Context, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if len(m.endpoints) == 0 {
		return []Match{}, nil
	}

	raw, err := m.client.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("embedding client returned no vector for the query")
	}
	q := normalize(raw[0])

	matches := make([]Match, len(m.endpoints))
	for i, v := range m.vectors {
		matches[i] = Match{Index: i, Score: dot(q, v), Endpoint: m.endpoints[i]}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	var norm float64
	for i, x := range v {
		out[i] = float64(x)
		norm += out[i] * out[i]
	}
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i := range out {
		out[i] /= norm
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
