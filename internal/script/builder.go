package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"api-load-tester/internal/payload"
	"api-load-tester/internal/types"
)

// ScriptFileName is the name of the generated Locust script inside a run workspace
const ScriptFileName = "locustfile.py"

// ControlPaths get a fixed spec-upload payload instead of a synthesized one,
// so a load test can drive the tester's own front door
var ControlPaths = []string{"/upload-swagger"}

// Options configure script generation
type Options struct {
	// ControlSpecPath is the swagger_path sent to control paths
	ControlSpecPath string
	// Payloads are pre-synthesized requests aligned by position with the endpoint list.
	// Endpoints without one are synthesized on the fly.
	Payloads []payload.Request
	MinWait  int
	MaxWait  int
}

// Task is one generated load-test task
type Task struct {
	Name    string
	Method  string
	Label   string
	URL     string
	Headers map[string]string
	Params  map[string]interface{}
	Payload map[string]interface{}
}

// Builder generates Locust scripts from endpoints
type Builder struct {
	synth *payload.Synthesizer
	opts  Options
}

// NewBuilder creates a new script builder
func NewBuilder(synth *payload.Synthesizer, opts Options) *Builder {
	if synth == nil {
		synth = payload.New(0)
	}
	if opts.MinWait <= 0 {
		opts.MinWait = 1
	}
	if opts.MaxWait < opts.MinWait {
		opts.MaxWait = opts.MinWait + 2
	}
	return &Builder{synth: synth, opts: opts}
}

// Tasks returns one task per selected endpoint, in selection order
func (b *Builder) Tasks(endpoints []types.Endpoint, baseURL string, sel types.Selection) []Task {
	indices := sel.Resolve(len(endpoints))
	tasks := make([]Task, 0, len(indices))

	for position, idx := range indices {
		ep := endpoints[idx]
		req := b.request(endpoints, idx, baseURL)

		body := req.Body
		if isControlPath(ep.Path) {
			body = b.controlPayload()
		}

		tasks = append(tasks, Task{
			Name:    fmt.Sprintf("task_%s_%d", strings.ToLower(ep.Method), position),
			Method:  strings.ToUpper(ep.Method),
			Label:   ep.Path,
			URL:     req.Path,
			Headers: req.Headers,
			Params:  req.Query,
			Payload: body,
		})
	}
	return tasks
}

func (b *Builder) request(endpoints []types.Endpoint, idx int, baseURL string) payload.Request {
	if idx < len(b.opts.Payloads) && b.opts.Payloads[idx].Method == endpoints[idx].Method {
		return b.opts.Payloads[idx]
	}
	return b.synth.BuildRequest(endpoints[idx], baseURL)
}

func (b *Builder) controlPayload() map[string]interface{} {
	return map[string]interface{}{
		"swagger_path": b.opts.ControlSpecPath,
		"users":        5,
		"spawn_rate":   2,
		"run_time":     "10s",
	}
}

func isControlPath(path string) bool {
	for _, control := range ControlPaths {
		if strings.Contains(path, control) {
			return true
		}
	}
	return false
}

// Build renders the Locust script for the selected endpoints
func (b *Builder) Build(endpoints []types.Endpoint, baseURL string, sel types.Selection) (string, error) {
	tasks := b.Tasks(endpoints, baseURL, sel)

	rendered := make([]map[string]interface{}, 0, len(tasks))
	for _, t := range tasks {
		headers, err := pyJSON(t.Headers)
		if err != nil {
			return "", fmt.Errorf("failed to encode headers for %s: %w", t.Name, err)
		}
		params, err := pyJSON(t.Params)
		if err != nil {
			return "", fmt.Errorf("failed to encode params for %s: %w", t.Name, err)
		}
		body, err := pyJSON(t.Payload)
		if err != nil {
			return "", fmt.Errorf("failed to encode payload for %s: %w", t.Name, err)
		}

		rendered = append(rendered, map[string]interface{}{
			"name":    t.Name,
			"method":  pyString(t.Method),
			"label":   pyString(t.Label),
			"url":     pyString(t.URL),
			"headers": headers,
			"params":  params,
			"payload": body,
		})
	}

	out, err := scriptTemplate.RenderString(map[string]interface{}{
		"host":     pyString(strings.TrimRight(baseURL, "/")),
		"min_wait": b.opts.MinWait,
		"max_wait": b.opts.MaxWait,
		"tasks":    rendered,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render script: %w", err)
	}
	return out, nil
}

// Write builds the script and stores it at path, creating parent directories
func (b *Builder) Write(path string, endpoints []types.Endpoint, baseURL string, sel types.Selection) (string, error) {
	text, err := b.Build(endpoints, baseURL, sel)
	if err != nil {
		return "", err
	}
	if err := WriteFile(path, text); err != nil {
		return "", err
	}
	return text, nil
}

// WriteFile stores script text at path
func WriteFile(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create script directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	return nil
}
