package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"api-load-tester/internal/metrics"
	"api-load-tester/internal/payload"

	"go.uber.org/zap"
)

// Smoke check statuses
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
	StatusError   = "ERROR"
)

// maxResponseBytes bounds how much of a response body a smoke result keeps
const maxResponseBytes = 4096

// SmokeResult represents the result of a single smoke request
type SmokeResult struct {
	Method     string        `json:"method"`
	URL        string        `json:"url"`
	Status     string        `json:"status"`
	StatusCode int           `json:"status_code,omitempty"`
	Attempts   int           `json:"attempts"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Response   string        `json:"response,omitempty"`
}

// SmokeConfig holds configuration for smoke check execution
type SmokeConfig struct {
	MaxWorkers int
	Timeout    time.Duration
	Retry      RetryConfig
}

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// SmokeChecker fires each synthesized request once against the target before a load test
type SmokeChecker struct {
	config  SmokeConfig
	client  *http.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewSmokeChecker creates a new smoke checker
func NewSmokeChecker(config SmokeConfig, logger *zap.Logger, m *metrics.Metrics) *SmokeChecker {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Retry.Attempts <= 0 {
		config.Retry.Attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SmokeChecker{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		logger:  logger,
		metrics: m,
	}
}

// Check executes every request concurrently and returns the results in request order
func (c *SmokeChecker) Check(ctx context.Context, reqs []payload.Request) []SmokeResult {
	results := make([]SmokeResult, len(reqs))
	var wg sync.WaitGroup

	sem := make(chan struct{}, c.config.MaxWorkers)

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req payload.Request) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			var result SmokeResult
			for attempt := 1; attempt <= c.config.Retry.Attempts; attempt++ {
				result = c.execute(ctx, req)
				result.Attempts = attempt
				if result.Status != StatusError || ctx.Err() != nil {
					break
				}
				if attempt < c.config.Retry.Attempts {
					select {
					case <-ctx.Done():
					case <-time.After(c.config.Retry.Delay):
					}
				}
			}

			c.metrics.RecordSmoke(result.Status)
			c.logger.Debug("Smoke request finished",
				zap.String("method", result.Method),
				zap.String("url", result.URL),
				zap.String("status", result.Status),
				zap.Int("status_code", result.StatusCode),
				zap.Duration("duration", result.Duration),
			)
			results[i] = result
		}(i, req)
	}

	wg.Wait()
	return results
}

func (c *SmokeChecker) execute(ctx context.Context, req payload.Request) SmokeResult {
	result := SmokeResult{Method: req.Method, URL: req.URL}

	httpReq, err := buildHTTPRequest(ctx, req)
	if err != nil {
		result.Status = StatusError
		result.Error = fmt.Sprintf("failed to build request: %v", err)
		return result
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	result.Duration = time.Since(start)
	if err != nil {
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		result.Status = StatusError
		result.Error = fmt.Sprintf("failed to read response body: %v", err)
		return result
	}

	result.StatusCode = resp.StatusCode
	result.Response = formatResponse(resp.Header.Get("Content-Type"), body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Status = StatusSuccess
	} else {
		result.Status = StatusFailure
		result.Error = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
	}
	return result
}

func buildHTTPRequest(ctx context.Context, req payload.Request) (*http.Request, error) {
	var body io.Reader
	if len(req.Body) > 0 && req.Method != http.MethodGet {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	return httpReq, nil
}

// formatResponse pretty-prints JSON bodies and returns others verbatim
func formatResponse(contentType string, body []byte) string {
	if !strings.Contains(contentType, "application/json") {
		return string(body)
	}
	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return string(body)
	}
	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return string(body)
	}
	return string(pretty)
}

// SmokeCounts tallies results by status
func SmokeCounts(results []SmokeResult) map[string]int {
	counts := map[string]int{StatusSuccess: 0, StatusFailure: 0, StatusError: 0}
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}
