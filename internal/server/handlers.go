package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"api-load-tester/internal/matcher"
	"api-load-tester/internal/types"

	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies, inline specifications included
const maxBodyBytes = 10 << 20

// specRequest names a specification by path or carries it inline
type specRequest struct {
	SwaggerPath string `json:"swagger_path"`
	Spec        string `json:"spec"`
}

type uploadRequest struct {
	SwaggerPath string `json:"swagger_path"`
	Users       int    `json:"users"`
	SpawnRate   int    `json:"spawn_rate"`
	RunTime     string `json:"run_time"`
}

type runRequest struct {
	specRequest
	types.RunConfig
}

type matchRequest struct {
	specRequest
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps the pipeline error kinds to HTTP statuses
func statusFor(err error) int {
	var (
		specErr      *types.SpecParseError
		noEndpoints  *types.NoEndpointsError
		selectionErr *types.InvalidSelectionError
		runErr       *types.RunExecutionError
		notFound     *types.ResultsNotFoundError
	)
	switch {
	case errors.As(err, &specErr), errors.As(err, &noEndpoints):
		return http.StatusUnprocessableEntity
	case errors.As(err, &selectionErr), errors.Is(err, types.ErrInvalidRunConfig):
		return http.StatusBadRequest
	case errors.As(err, &runErr), errors.As(err, &notFound):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.deps.Logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}

	body := map[string]interface{}{"error": err.Error()}
	var runErr *types.RunExecutionError
	if errors.As(err, &runErr) {
		body["error_log"] = runErr.LogPath
		body["exit_code"] = runErr.ExitCode
	}
	var notFound *types.ResultsNotFoundError
	if errors.As(err, &notFound) && notFound.Summary != "" {
		body["summary"] = notFound.Summary
	}
	respondJSON(w, status, body)
}

func decodeJSON(r *http.Request, into interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(into); err != nil {
		var selectionErr *types.InvalidSelectionError
		if errors.As(err, &selectionErr) {
			return selectionErr
		}
		return fmt.Errorf("%w: invalid request body: %v", types.ErrInvalidRunConfig, err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

const sampleMessage = "Post a load test configuration with swagger_path to /upload-swagger, or run one via /api/run"

// handleSample describes the API and, when a sample specification is configured, its endpoints
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	if s.config.SampleSpec == "" {
		respondJSON(w, http.StatusOK, map[string]string{"message": sampleMessage})
		return
	}

	endpoints, err := s.parser.LoadFile(s.config.SampleSpec)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":      sampleMessage,
		"swagger_path": s.config.SampleSpec,
		"count":        len(endpoints),
		"endpoints":    endpoints,
	})
}

// handleUploadSwagger is the control endpoint: it checks the specification exists and echoes the configuration
func (s *Server) handleUploadSwagger(w http.ResponseWriter, r *http.Request) {
	req := uploadRequest{Users: 10, SpawnRate: 2, RunTime: "10s"}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SwaggerPath == "" {
		respondError(w, http.StatusBadRequest, "swagger_path is required")
		return
	}
	if _, err := os.Stat(req.SwaggerPath); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Swagger file not found: %s", req.SwaggerPath))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Swagger file path received successfully",
		"swagger_path": req.SwaggerPath,
		"config": map[string]interface{}{
			"users":      req.Users,
			"spawn_rate": req.SpawnRate,
			"run_time":   req.RunTime,
		},
	})
}

// handleEndpoints lists the endpoints of a specification posted as the raw request body
func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	endpoints, err := s.parser.Parse("request body", data)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	s.deps.Metrics.SetEndpointsParsed(len(endpoints))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(endpoints),
		"endpoints": endpoints,
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Coordinator == nil {
		respondError(w, http.StatusServiceUnavailable, "load test pipeline is not configured")
		return
	}

	req := runRequest{RunConfig: s.defaults}
	if err := decodeJSON(r, &req); err != nil {
		s.respondFailure(w, r, err)
		return
	}

	specPath, cleanup, err := s.specFile(req.specRequest)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	result, err := s.deps.Coordinator.Run(r.Context(), specPath, req.RunConfig)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Embedder == nil {
		respondError(w, http.StatusServiceUnavailable, "embedding provider is not configured")
		return
	}

	var req matchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	specPath, cleanup, err := s.specFile(req.specRequest)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	endpoints, err := s.parser.LoadFile(specPath)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}

	m, err := matcher.New(r.Context(), s.deps.Embedder, endpoints)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	matches, err := m.Match(r.Context(), req.Query, req.TopK)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   req.Query,
		"matches": matches,
	})
}

// specFile returns a path for the requested specification, writing an inline one to a temporary file
func (s *Server) specFile(req specRequest) (string, func(), error) {
	noop := func() {}
	if req.Spec == "" {
		if req.SwaggerPath == "" {
			return "", noop, errors.New("either swagger_path or spec is required")
		}
		return req.SwaggerPath, noop, nil
	}

	file, err := os.CreateTemp("", "loadtest-spec-*")
	if err != nil {
		return "", noop, fmt.Errorf("failed to store specification: %w", err)
	}
	cleanup := func() { _ = os.Remove(file.Name()) }
	if _, err := file.WriteString(req.Spec); err != nil {
		file.Close()
		cleanup()
		return "", noop, fmt.Errorf("failed to store specification: %w", err)
	}
	if err := file.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("failed to store specification: %w", err)
	}
	return file.Name(), cleanup, nil
}
