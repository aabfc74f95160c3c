package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"api-load-tester/internal/config"
	"api-load-tester/internal/enginetest"
	"api-load-tester/internal/executor"
	"api-load-tester/internal/metrics"
	"api-load-tester/internal/pipeline"
	"api-load-tester/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petstore = `{
  "openapi": "3.0.0",
  "info": {"title": "Pets", "version": "1"},
  "paths": {
    "/pets": {
      "get": {"summary": "List pets"},
      "post": {"summary": "Create pet"}
    },
    "/owners": {
      "delete": {"summary": "Remove owner"}
    }
  }
}`

type wordEmbedder struct{}

func (wordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		v := []float32{0, 0, 0}
		if strings.Contains(lower, "pet") {
			v[0] = 1
		}
		if strings.Contains(lower, "owner") {
			v[1] = 1
		}
		if strings.Contains(lower, "remove") || strings.Contains(lower, "delete") {
			v[2] = 1
		}
		out[i] = v
	}
	return out, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("quota exceeded")
}

func newTestServer(t *testing.T, behavior enginetest.Behavior) (*Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	runner := executor.NewRunner(executor.EngineConfig{Binary: enginetest.Script(t, behavior)}, nil, m)
	coordinator := pipeline.NewCoordinator(pipeline.Config{ResultsRoot: t.TempDir(), Seed: 1}, runner, nil, m)
	defaults := types.RunConfig{Users: 10, SpawnRate: 2, RunTime: "10s", BaseURL: "http://127.0.0.1:8000"}
	return New(config.ServerConfig{}, defaults, Deps{Coordinator: coordinator, Embedder: wordEmbedder{}, Metrics: m}), m
}

func writeSpec(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "petstore.json")
	require.NoError(t, os.WriteFile(path, []byte(petstore), 0644))
	return path
}

func do(t *testing.T, s *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, reader))

	var decoded map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestServer_HealthAndSample(t *testing.T) {
	s, _ := newTestServer(t, enginetest.Succeed)

	rec, body := do(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = do(t, s, http.MethodGet, "/sample", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["message"], "/upload-swagger")
}

func TestServer_SampleSpec(t *testing.T) {
	spec := writeSpec(t)
	s := New(config.ServerConfig{SampleSpec: spec}, types.RunConfig{}, Deps{Metrics: metrics.New()})

	rec, body := do(t, s, http.MethodGet, "/sample", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, spec, body["swagger_path"])
	assert.Equal(t, float64(3), body["count"])
	assert.Len(t, body["endpoints"], 3)

	broken := New(config.ServerConfig{SampleSpec: filepath.Join(t.TempDir(), "missing.json")}, types.RunConfig{}, Deps{})
	rec, _ = do(t, broken, http.MethodGet, "/sample", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_UploadSwagger(t *testing.T) {
	s, _ := newTestServer(t, enginetest.Succeed)
	spec := writeSpec(t)

	rec, body := do(t, s, http.MethodPost, "/upload-swagger", map[string]interface{}{"swagger_path": spec, "users": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, spec, body["swagger_path"])
	cfg := body["config"].(map[string]interface{})
	assert.Equal(t, float64(5), cfg["users"])
	assert.Equal(t, float64(2), cfg["spawn_rate"])
	assert.Equal(t, "10s", cfg["run_time"])

	rec, body = do(t, s, http.MethodPost, "/upload-swagger", map[string]interface{}{"swagger_path": "/no/such/spec.json"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "not found")
}

func TestServer_Endpoints(t *testing.T) {
	s, _ := newTestServer(t, enginetest.Succeed)

	rec, body := do(t, s, http.MethodPost, "/api/endpoints", petstore)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), body["count"])
	first := body["endpoints"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "GET", first["method"])
	assert.Equal(t, "/pets", first["path"])

	rec, _ = do(t, s, http.MethodPost, "/api/endpoints", "openapi: 3.0.0\ninfo: {}\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_Run(t *testing.T) {
	s, _ := newTestServer(t, enginetest.Succeed)

	rec, body := do(t, s, http.MethodPost, "/api/run", map[string]interface{}{
		"swagger_path":     writeSpec(t),
		"users":            3,
		"selected_indexes": []int{0, 2},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, body["summary"], "Summary by Endpoint:")
	assert.Contains(t, body["run_summary"], "Users: 3")
	assert.Contains(t, body["run_summary"], "Endpoints Tested: 2")
	assert.Len(t, body["endpoints"], 3)
	assert.FileExists(t, body["stats_file_path"].(string))
}

func TestServer_RunInlineSpec(t *testing.T) {
	s, _ := newTestServer(t, enginetest.Succeed)

	rec, body := do(t, s, http.MethodPost, "/api/run", map[string]interface{}{"spec": petstore})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, body["endpoints"], 3)
}

func TestServer_RunErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		behavior enginetest.Behavior
		body     interface{}
		status   int
	}{
		{name: "invalid selection", behavior: enginetest.Succeed, body: `{"swagger_path": "x", "selected_indexes": "some"}`, status: http.StatusBadRequest},
		{name: "invalid run config", behavior: enginetest.Succeed, body: map[string]interface{}{"spec": petstore, "users": -1}, status: http.StatusBadRequest},
		{name: "missing spec", behavior: enginetest.Succeed, body: map[string]interface{}{"users": 1}, status: http.StatusBadRequest},
		{name: "malformed spec", behavior: enginetest.Succeed, body: map[string]interface{}{"spec": "[1, 2"}, status: http.StatusUnprocessableEntity},
		{name: "no endpoints", behavior: enginetest.Succeed, body: map[string]interface{}{"spec": `{"paths": {}}`}, status: http.StatusUnprocessableEntity},
		{name: "engine failure", behavior: enginetest.Fail, body: map[string]interface{}{"spec": petstore}, status: http.StatusBadGateway},
		{name: "missing results", behavior: enginetest.NoResults, body: map[string]interface{}{"spec": petstore}, status: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.behavior)
			rec, body := do(t, s, http.MethodPost, "/api/run", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestServer_RunEngineFailureExposesLog(t *testing.T) {
	s, _ := newTestServer(t, enginetest.Fail)

	_, body := do(t, s, http.MethodPost, "/api/run", map[string]interface{}{"spec": petstore})
	assert.Equal(t, float64(enginetest.FailExitCode), body["exit_code"])
	assert.FileExists(t, body["error_log"].(string))
}

func TestServer_Match(t *testing.T) {
	s, _ := newTestServer(t, enginetest.Succeed)

	rec, body := do(t, s, http.MethodPost, "/api/match", map[string]interface{}{
		"swagger_path": writeSpec(t),
		"query":        "remove an owner",
		"top_k":        1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	matches := body["matches"].([]interface{})
	require.Len(t, matches, 1)
	endpoint := matches[0].(map[string]interface{})["endpoint"].(map[string]interface{})
	assert.Equal(t, "/owners", endpoint["path"])

	rec, _ = do(t, s, http.MethodPost, "/api/match", map[string]interface{}{"spec": petstore})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_MatchWithoutEmbedder(t *testing.T) {
	s := New(config.ServerConfig{}, types.RunConfig{}, Deps{Embedder: nil})
	rec, _ := do(t, s, http.MethodPost, "/api/match", map[string]interface{}{"spec": petstore, "query": "pets"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s = New(config.ServerConfig{}, types.RunConfig{}, Deps{Embedder: failingEmbedder{}})
	rec, body := do(t, s, http.MethodPost, "/api/match", map[string]interface{}{"spec": petstore, "query": "pets"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, body["error"], "quota exceeded")
}

func TestServer_Metrics(t *testing.T) {
	s, _ := newTestServer(t, enginetest.Succeed)
	do(t, s, http.MethodPost, "/api/endpoints", petstore)

	rec, _ := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "loadtest_endpoints_parsed 3")
}

func TestServer_CORS(t *testing.T) {
	s, _ := newTestServer(t, enginetest.Succeed)

	req := httptest.NewRequest(http.MethodOptions, "/api/run", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	wrap := func(err error) error { return errors.Join(errors.New("stage x failed"), err) }
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(wrap(&types.SpecParseError{Reason: "bad"})))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(wrap(&types.NoEndpointsError{})))
	assert.Equal(t, http.StatusBadRequest, statusFor(&types.InvalidSelectionError{Value: "x"}))
	assert.Equal(t, http.StatusBadRequest, statusFor(types.ErrInvalidRunConfig))
	assert.Equal(t, http.StatusBadGateway, statusFor(wrap(&types.RunExecutionError{ExitCode: 1})))
	assert.Equal(t, http.StatusBadGateway, statusFor(wrap(&types.ResultsNotFoundError{Path: "x"})))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
