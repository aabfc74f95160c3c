package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEmbeddingServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "requests"}}`))
			return
		}

		// reversed order, the client must reorder by index
		data := make([]map[string]interface{}, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]interface{}{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(i), 1},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  req.Model,
			"data":   data,
		})
	}))
}

func testConfig(baseURL string) *Config {
	cfg := NewDefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = baseURL + "/v1"
	return cfg
}

func TestOpenAIClient_Embed(t *testing.T) {
	srv := fakeEmbeddingServer(t, http.StatusOK)
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	vectors, err := client.Embed(context.Background(), []string{"GET /pets", "POST /pets", "DELETE /pets/{id}"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, v := range vectors {
		assert.Equal(t, []float32{float32(i), 1}, v)
	}
}

func TestOpenAIClient_EmbedEmpty(t *testing.T) {
	client := NewOpenAIClient(testConfig("http://127.0.0.1:1"), nil)
	vectors, err := client.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestOpenAIClient_EmbedError(t *testing.T) {
	srv := fakeEmbeddingServer(t, http.StatusTooManyRequests)
	defer srv.Close()

	client := NewOpenAIClient(testConfig(srv.URL), nil)
	_, err := client.Embed(context.Background(), []string{"GET /pets"})
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "missing key", mutate: func(c *Config) { c.APIKey = "" }, wantErr: "API key"},
		{name: "missing model", mutate: func(c *Config) { c.Model = "" }, wantErr: "model"},
		{name: "missing provider", mutate: func(c *Config) { c.Provider = "" }, wantErr: "provider"},
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "acme" }, wantErr: "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("http://localhost")
			tt.mutate(cfg)
			_, err := NewClient(cfg, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
