package payload

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"api-load-tester/internal/types"
)

// FixturesTemplateName is the file written by WriteFixtures
const FixturesTemplateName = "testdata_template.json"

// Fixture holds fixed request values for one endpoint
type Fixture struct {
	PathParams  map[string]interface{} `json:"path_params,omitempty"`
	QueryParams map[string]interface{} `json:"query_params,omitempty"`
	Body        map[string]interface{} `json:"body,omitempty"`
	Headers     map[string]string      `json:"headers,omitempty"`
}

// Fixtures maps "METHOD /path" keys to fixed request values.
// A nil *Fixtures has no entries.
type Fixtures struct {
	Endpoints map[string]Fixture `json:"endpoints"`
}

// LoadFixtures loads fixtures from a JSON file
func LoadFixtures(path string) (*Fixtures, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}

	var fixtures Fixtures
	if err := json.Unmarshal(file, &fixtures); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures %s: %w", path, err)
	}
	if fixtures.Endpoints == nil {
		fixtures.Endpoints = make(map[string]Fixture)
	}
	return &fixtures, nil
}

// For returns the fixture of an endpoint, or nil
func (f *Fixtures) For(ep types.Endpoint) *Fixture {
	if f == nil {
		return nil
	}
	fx, ok := f.Endpoints[ep.Key()]
	if !ok {
		return nil
	}
	return &fx
}

// Template synthesizes a fixture for every endpoint, for users to edit into fixed values
func (s *Synthesizer) Template(endpoints []types.Endpoint) *Fixtures {
	fixtures := &Fixtures{Endpoints: make(map[string]Fixture, len(endpoints))}
	for _, ep := range endpoints {
		fx := Fixture{
			PathParams:  s.PathParams(ep.Parameters),
			QueryParams: s.QueryParams(ep.Parameters),
			Body:        s.RequestBody(ep.RequestBody),
			Headers:     s.HeaderParams(ep.Parameters),
		}
		fixtures.Endpoints[ep.Key()] = fx
	}
	return fixtures
}

// WriteFixtures writes the fixtures to dir/testdata_template.json and returns the file path
func WriteFixtures(dir string, fixtures *Fixtures) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(fixtures, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal fixtures: %w", err)
	}

	path := filepath.Join(dir, FixturesTemplateName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write fixtures: %w", err)
	}
	return path, nil
}
