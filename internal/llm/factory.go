package llm

import (
	"fmt"

	"api-load-tester/internal/logger"
)

// NewClient creates a new embedding client based on the provider
func NewClient(config *Config, log *logger.Logger) (Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Provider {
	case "openai":
		return NewOpenAIClient(config, log), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}
}
