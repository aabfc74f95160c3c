package pipeline

import (
	"fmt"

	"api-load-tester/internal/executor"
	"api-load-tester/internal/payload"
	"api-load-tester/internal/reporter"
	"api-load-tester/internal/types"
)

// State is the record threaded through the pipeline stages. Each stage adds its own
// field through a With method that returns a copy; a field is never written twice.
type State struct {
	specPath string
	config   types.RunConfig

	endpoints []types.Endpoint
	payloads  []payload.Request
	run       *executor.RunResult
	report    *reporter.Report

	hasEndpoints bool
	hasPayloads  bool
}

// NewState returns the initial state of an invocation
func NewState(specPath string, config types.RunConfig) State {
	return State{specPath: specPath, config: config}
}

// SpecPath returns the specification the invocation started from
func (s State) SpecPath() string { return s.specPath }

// Config returns the run configuration
func (s State) Config() types.RunConfig { return s.config }

// Endpoints returns the endpoints added by the parse stage
func (s State) Endpoints() []types.Endpoint { return s.endpoints }

// Payloads returns the requests added by the payloads stage
func (s State) Payloads() []payload.Request { return s.payloads }

// Run returns the engine result added by the loadtest stage
func (s State) Run() *executor.RunResult { return s.run }

// Report returns the report added by the summarize stage
func (s State) Report() *reporter.Report { return s.report }

// StatsFilePath returns the statistics artifact of the run stage, or ""
func (s State) StatsFilePath() string {
	if s.run == nil {
		return ""
	}
	return s.run.StatsFilePath
}

// SummaryText returns the aggregated summary, or ""
func (s State) SummaryText() string {
	if s.report == nil {
		return ""
	}
	return s.report.Summary
}

// WithEndpoints returns a copy carrying the parsed endpoints
func (s State) WithEndpoints(endpoints []types.Endpoint) State {
	mustBeUnset("endpoints", s.hasEndpoints)
	s.endpoints = append(make([]types.Endpoint, 0, len(endpoints)), endpoints...)
	s.hasEndpoints = true
	return s
}

// WithPayloads returns a copy carrying the synthesized requests
func (s State) WithPayloads(payloads []payload.Request) State {
	mustBeUnset("payloads", s.hasPayloads)
	s.payloads = append(make([]payload.Request, 0, len(payloads)), payloads...)
	s.hasPayloads = true
	return s
}

// WithRun returns a copy carrying the engine run result
func (s State) WithRun(run *executor.RunResult) State {
	mustBeUnset("run", s.run != nil)
	s.run = run
	return s
}

// WithReport returns a copy carrying the aggregated report
func (s State) WithReport(report *reporter.Report) State {
	mustBeUnset("report", s.report != nil)
	s.report = report
	return s
}

func mustBeUnset(field string, set bool) {
	if set {
		panic(fmt.Sprintf("pipeline state field %q is already set", field))
	}
}
