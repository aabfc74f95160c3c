package types

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// runTimePattern matches the durations the engine accepts: "30", "30s", "5m", "1h30m", "1h2m3s"
var runTimePattern = regexp.MustCompile(`^(\d+|(\d+h)?(\d+m)?(\d+s)?)$`)

// RunConfig holds the parameters of one load-test run
type RunConfig struct {
	Users     int       `json:"users" yaml:"users"`
	SpawnRate int       `json:"spawn_rate" yaml:"spawn_rate"`
	RunTime   string    `json:"run_time" yaml:"run_time"`
	BaseURL   string    `json:"base_url" yaml:"base_url"`
	Selection Selection `json:"selected_indexes" yaml:"-"`
}

// Normalize returns a copy with surrounding whitespace removed and the base URL's trailing slash stripped
func (c RunConfig) Normalize() RunConfig {
	c.RunTime = strings.TrimSpace(c.RunTime)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	return c
}

// Validate checks the run configuration
func (c RunConfig) Validate() error {
	if c.Users <= 0 {
		return fmt.Errorf("%w: users must be positive, got %d", ErrInvalidRunConfig, c.Users)
	}
	if c.SpawnRate <= 0 {
		return fmt.Errorf("%w: spawn rate must be positive, got %d", ErrInvalidRunConfig, c.SpawnRate)
	}
	if c.RunTime == "" || !runTimePattern.MatchString(c.RunTime) {
		return fmt.Errorf("%w: run time %q is not a duration like 10s, 1m or 1h30m", ErrInvalidRunConfig, c.RunTime)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base URL %q: %v", ErrInvalidRunConfig, c.BaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base URL %q must be an absolute http(s) URL", ErrInvalidRunConfig, c.BaseURL)
	}
	return nil
}
