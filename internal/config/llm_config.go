package config

import (
	"encoding/json"
	"fmt"
	"os"

	"api-load-tester/internal/llm"
)

// LoadLLMConfig loads embedding provider configuration from a JSON file
func LoadLLMConfig(path string) (*llm.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read LLM config file: %w", err)
	}

	config := llm.Config{}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse LLM config: %w", err)
	}

	applyLLMEnv(&config)
	applyLLMDefaults(&config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid LLM config %s: %w", path, err)
	}
	return &config, nil
}

// SaveLLMConfig saves embedding provider configuration to a file
func SaveLLMConfig(config *llm.Config, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal LLM config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write LLM config file: %w", err)
	}

	return nil
}

func applyLLMEnv(config *llm.Config) {
	if key := os.Getenv(EnvOpenAIKey); key != "" {
		config.APIKey = key
	}
}

func applyLLMDefaults(config *llm.Config) {
	defaults := llm.NewDefaultConfig()
	if config.Provider == "" {
		config.Provider = defaults.Provider
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
}
