package types

import (
	"errors"
	"fmt"
)

// ErrInvalidRunConfig is wrapped by every run configuration validation failure
var ErrInvalidRunConfig = errors.New("invalid run configuration")

// SpecParseError reports a specification that is unreadable, is neither JSON nor YAML,
// has no paths object or contains a schema that cannot be resolved
type SpecParseError struct {
	Source string
	Reason string
	Err    error
}

func (e *SpecParseError) Error() string {
	msg := "failed to parse specification"
	if e.Source != "" {
		msg += " " + e.Source
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SpecParseError) Unwrap() error {
	return e.Err
}

// NoEndpointsError reports a specification that parsed but declares no operations
type NoEndpointsError struct {
	Source string
}

func (e *NoEndpointsError) Error() string {
	return fmt.Sprintf("no endpoints found in specification %s", e.Source)
}

// InvalidSelectionError reports a selection that is neither "all" nor a list of integer positions
type InvalidSelectionError struct {
	Value string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid endpoint selection %q: expected %q or a list of integer positions", e.Value, SelectAll)
}

// RunExecutionError reports a load-generation engine that exited unsuccessfully.
// LogPath points at the persisted stderr of the engine.
type RunExecutionError struct {
	ExitCode int
	LogPath  string
	Err      error
}

func (e *RunExecutionError) Error() string {
	return fmt.Sprintf("load test engine failed with exit code %d, see log %s", e.ExitCode, e.LogPath)
}

func (e *RunExecutionError) Unwrap() error {
	return e.Err
}

// ResultsNotFoundError reports a statistics artifact missing where the engine should have written it.
// Summary carries the degraded run summary when the engine exited cleanly.
type ResultsNotFoundError struct {
	Path    string
	Summary string
}

func (e *ResultsNotFoundError) Error() string {
	return fmt.Sprintf("load test results not found at %s", e.Path)
}
