package llm

import (
	"errors"
)

// Config represents the configuration for the embedding provider
type Config struct {
	// Provider specifies which LLM provider to use (e.g., "openai")
	Provider string `yaml:"provider" json:"provider"`

	// APIKey is the API key for the LLM provider
	APIKey string `yaml:"api_key" json:"api_key"`

	// Model specifies which embedding model to use
	Model string `yaml:"model" json:"model"`

	// BaseURL overrides the provider endpoint, for proxies and compatible servers
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// NewDefaultConfig returns a default configuration
func NewDefaultConfig() *Config {
	return &Config{
		Provider: "openai",
		Model:    "text-embedding-3-small",
	}
}

// Validate checks that the provider can be contacted
func (c *Config) Validate() error {
	if c.Provider == "" {
		return errors.New("LLM provider is required")
	}
	if c.APIKey == "" {
		return errors.New("API key is required")
	}
	if c.Model == "" {
		return errors.New("model is required")
	}
	return nil
}
