package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"api-load-tester/internal/executor"
	"api-load-tester/internal/llm"
	"api-load-tester/internal/logger"
	"api-load-tester/internal/types"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no configuration file is named
const DefaultPath = "config/config.yaml"

// Environment variables that override the file
const (
	EnvEngine     = "LOADTEST_ENGINE"
	EnvResultsDir = "LOADTEST_RESULTS_DIR"
	EnvAddr       = "LOADTEST_ADDR"
	EnvLogLevel   = "LOADTEST_LOG_LEVEL"
	EnvOpenAIKey  = "OPENAI_API_KEY"
)

// Config holds the application configuration. When LLMFile is set, the JSON file it names
// replaces the llm section.
type Config struct {
	Engine  EngineConfig    `yaml:"engine"`
	Run     types.RunConfig `yaml:"run"`
	Results ResultsConfig   `yaml:"results"`
	Payload PayloadConfig   `yaml:"payload"`
	Server  ServerConfig    `yaml:"server"`
	Logging logger.Config   `yaml:"logging"`
	LLM     llm.Config      `yaml:"llm"`
	LLMFile string          `yaml:"llm_file"`
	Smoke   SmokeConfig     `yaml:"smoke"`
}

// EngineConfig holds the load generation engine settings
type EngineConfig struct {
	Binary    string   `yaml:"binary"`
	ExtraArgs []string `yaml:"extra_args"`
}

// ResultsConfig holds where and how run artifacts are written
type ResultsConfig struct {
	Dir         string   `yaml:"dir"`
	PreviewSize int      `yaml:"preview_size"`
	Formats     []string `yaml:"formats"`
	Seed        uint64   `yaml:"seed"`
}

// PayloadConfig holds payload synthesis settings
type PayloadConfig struct {
	// Fixtures names a JSON file of per-endpoint fixed request values
	Fixtures string `yaml:"fixtures"`
}

// ServerConfig holds the front door settings
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	SampleSpec     string   `yaml:"sample_spec"`
}

// SmokeConfig holds smoke check execution configuration
type SmokeConfig struct {
	MaxWorkers int         `yaml:"max_workers"`
	Timeout    int         `yaml:"timeout"`
	Retry      RetryConfig `yaml:"retry"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	Attempts int `yaml:"attempts"`
	Delay    int `yaml:"delay"`
}

// LoadConfig loads the configuration from a YAML file and environment variables.
// An empty path reads DefaultPath when it exists and falls back to defaults otherwise.
func LoadConfig(path string) (*Config, error) {
	var config Config

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("config file not found at %s", path)
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if config.LLMFile != "" {
		llmConfig, err := LoadLLMConfig(config.LLMFile)
		if err != nil {
			return nil, err
		}
		config.LLM = *llmConfig
	}

	config.applyEnv()
	config.applyDefaults()
	return &config, nil
}

// Default returns the configuration used when no file exists
func Default() *Config {
	var config Config
	config.applyDefaults()
	return &config
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvEngine); v != "" {
		c.Engine.Binary = v
	}
	if v := os.Getenv(EnvResultsDir); v != "" {
		c.Results.Dir = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	applyLLMEnv(&c.LLM)
}

func (c *Config) applyDefaults() {
	if c.Engine.Binary == "" {
		c.Engine.Binary = executor.DefaultBinary
	}

	if c.Run.Users == 0 {
		c.Run.Users = 10
	}
	if c.Run.SpawnRate == 0 {
		c.Run.SpawnRate = 2
	}
	if strings.TrimSpace(c.Run.RunTime) == "" {
		c.Run.RunTime = "10s"
	}
	if c.Run.BaseURL == "" {
		c.Run.BaseURL = "http://127.0.0.1:8000"
	}

	if c.Results.Dir == "" {
		c.Results.Dir = "loadtest_results"
	}
	if c.Results.PreviewSize == 0 {
		c.Results.PreviewSize = executor.DefaultPreview
	}
	if len(c.Results.Formats) == 0 {
		c.Results.Formats = []string{"json"}
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	applyLLMDefaults(&c.LLM)

	if c.Smoke.MaxWorkers == 0 {
		c.Smoke.MaxWorkers = 5
	}
	if c.Smoke.Timeout == 0 {
		c.Smoke.Timeout = 30
	}
	if c.Smoke.Retry.Attempts == 0 {
		c.Smoke.Retry.Attempts = 3
	}
	if c.Smoke.Retry.Delay == 0 {
		c.Smoke.Retry.Delay = 1
	}
}

// EngineSettings returns the engine runner settings
func (c *Config) EngineSettings() executor.EngineConfig {
	return executor.EngineConfig{
		Binary:      c.Engine.Binary,
		ExtraArgs:   c.Engine.ExtraArgs,
		PreviewSize: c.Results.PreviewSize,
	}
}

// SmokeSettings returns the smoke checker settings
func (c *Config) SmokeSettings() executor.SmokeConfig {
	return executor.SmokeConfig{
		MaxWorkers: c.Smoke.MaxWorkers,
		Timeout:    time.Duration(c.Smoke.Timeout) * time.Second,
		Retry: executor.RetryConfig{
			Attempts: c.Smoke.Retry.Attempts,
			Delay:    time.Duration(c.Smoke.Retry.Delay) * time.Second,
		},
	}
}
