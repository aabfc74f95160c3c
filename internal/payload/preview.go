package payload

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PreviewFileName is the artifact holding the first synthesized payloads of a run
const PreviewFileName = "payloads_preview.json"

// WritePreview writes at most limit requests to dir/payloads_preview.json and returns the file path
func WritePreview(dir string, reqs []Request, limit int) (string, error) {
	if limit >= 0 && len(reqs) > limit {
		reqs = reqs[:limit]
	}
	if reqs == nil {
		reqs = []Request{}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create preview directory: %w", err)
	}

	data, err := json.MarshalIndent(reqs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload preview: %w", err)
	}

	path := filepath.Join(dir, PreviewFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write payload preview: %w", err)
	}
	return path, nil
}

// LoadPreview reads a payload preview file written by WritePreview
func LoadPreview(path string) ([]Request, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var reqs []Request
	if err := json.Unmarshal(file, &reqs); err != nil {
		return nil, fmt.Errorf("failed to parse payload preview: %w", err)
	}
	return reqs, nil
}
