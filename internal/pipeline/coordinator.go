package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"api-load-tester/internal/executor"
	"api-load-tester/internal/metrics"
	"api-load-tester/internal/parser"
	"api-load-tester/internal/payload"
	"api-load-tester/internal/reporter"
	"api-load-tester/internal/script"
	"api-load-tester/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage names in execution order
const (
	StageParse     = "parse"
	StagePayloads  = "payloads"
	StageLoadTest  = "loadtest"
	StageSummarize = "summarize"
)

// Stage event statuses
const (
	StatusStarted   = "started"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// StageEvent reports the progress of one stage
type StageEvent struct {
	RunID   string
	Stage   string
	Status  string
	Elapsed time.Duration
	Err     error
}

// Observer receives stage events, for example to print console progress
type Observer func(StageEvent)

// Config holds the coordinator settings
type Config struct {
	// ResultsRoot holds one workspace directory per invocation
	ResultsRoot string
	// Seed makes payload synthesis reproducible; zero picks a random seed
	Seed uint64
	// Formats are extra report formats written into the workspace ("json", "text")
	Formats []string
	// Fixtures hold fixed request values laid over synthesized payloads
	Fixtures *payload.Fixtures
}

// Result is what a successful invocation returns to its caller
type Result struct {
	RunID         string              `json:"run_id"`
	Endpoints     []types.Endpoint    `json:"endpoints"`
	SummaryText   string              `json:"summary"`
	StatsFilePath string              `json:"stats_file_path"`
	RunSummary    string              `json:"run_summary"`
	Workspace     string              `json:"workspace"`
	ScriptPath    string              `json:"script_path"`
	Report        *reporter.Report    `json:"report"`
	ReportPaths   []string            `json:"report_paths,omitempty"`
	Run           *executor.RunResult `json:"run"`
}

type stage struct {
	name string
	run  func(ctx context.Context, inv *invocation, s State) (State, error)
}

// invocation holds the per-run values that are not part of the state record
type invocation struct {
	id         string
	workspace  string
	scriptPath string
	synth      *payload.Synthesizer
	reports    []string
}

// Coordinator runs the parse, payloads, loadtest and summarize stages in sequence
type Coordinator struct {
	config   Config
	parser   *parser.SwaggerParser
	runner   *executor.Runner
	logger   *zap.Logger
	metrics  *metrics.Metrics
	observer Observer
	stages   []stage
}

// NewCoordinator creates a new pipeline coordinator
func NewCoordinator(config Config, runner *executor.Runner, logger *zap.Logger, m *metrics.Metrics) *Coordinator {
	if config.ResultsRoot == "" {
		config.ResultsRoot = "loadtest_results"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = executor.NewRunner(executor.EngineConfig{}, logger, m)
	}

	c := &Coordinator{
		config:  config,
		parser:  parser.NewSwaggerParser(logger),
		runner:  runner,
		logger:  logger,
		metrics: m,
	}
	c.stages = []stage{
		{name: StageParse, run: c.parse},
		{name: StagePayloads, run: c.payloads},
		{name: StageLoadTest, run: c.loadTest},
		{name: StageSummarize, run: c.summarize},
	}
	return c
}

// SetObserver registers a receiver for stage events
func (c *Coordinator) SetObserver(observer Observer) {
	c.observer = observer
}

// Run executes the whole pipeline for one specification. It returns a complete result or
// the first stage error, wrapped as "stage <name> failed". The context is checked before
// each stage only.
func (c *Coordinator) Run(ctx context.Context, specPath string, config types.RunConfig) (*Result, error) {
	config = config.Normalize()
	if err := config.Validate(); err != nil {
		c.metrics.RecordPipeline(metrics.OutcomeFailure)
		return nil, err
	}

	inv := &invocation{id: uuid.NewString(), synth: payload.New(c.config.Seed)}
	inv.workspace = filepath.Join(c.config.ResultsRoot, inv.id)
	inv.scriptPath = filepath.Join(inv.workspace, script.ScriptFileName)

	log := c.logger.With(zap.String("run_id", inv.id))
	log.Info("Starting load test pipeline",
		zap.String("spec", specPath),
		zap.String("base_url", config.BaseURL),
		zap.Int("users", config.Users),
		zap.Int("spawn_rate", config.SpawnRate),
		zap.String("run_time", config.RunTime),
		zap.Stringer("selection", config.Selection),
	)

	state := NewState(specPath, config)
	for _, st := range c.stages {
		if err := ctx.Err(); err != nil {
			c.metrics.RecordPipeline(metrics.OutcomeFailure)
			return nil, fmt.Errorf("pipeline cancelled before stage %s: %w", st.name, err)
		}

		c.emit(StageEvent{RunID: inv.id, Stage: st.name, Status: StatusStarted})
		start := time.Now()
		next, err := st.run(ctx, inv, state)
		elapsed := time.Since(start)
		c.metrics.ObserveStage(st.name, elapsed)

		if err != nil {
			c.emit(StageEvent{RunID: inv.id, Stage: st.name, Status: StatusFailed, Elapsed: elapsed, Err: err})
			c.metrics.RecordPipeline(outcome(err))
			log.Error("Pipeline stage failed", zap.String("stage", st.name), zap.Duration("elapsed", elapsed), zap.Error(err))
			return nil, fmt.Errorf("stage %s failed: %w", st.name, err)
		}

		c.emit(StageEvent{RunID: inv.id, Stage: st.name, Status: StatusSucceeded, Elapsed: elapsed})
		log.Info("Pipeline stage complete", zap.String("stage", st.name), zap.Duration("elapsed", elapsed))
		state = next
	}

	c.metrics.RecordPipeline(metrics.OutcomeSuccess)
	return &Result{
		RunID:         inv.id,
		Endpoints:     state.Endpoints(),
		SummaryText:   state.SummaryText(),
		StatsFilePath: state.StatsFilePath(),
		RunSummary:    state.Run().SummaryText,
		Workspace:     state.Run().ResultsDir,
		ScriptPath:    inv.scriptPath,
		Report:        state.Report(),
		ReportPaths:   inv.reports,
		Run:           state.Run(),
	}, nil
}

func (c *Coordinator) parse(_ context.Context, _ *invocation, s State) (State, error) {
	endpoints, err := c.parser.LoadFile(s.SpecPath())
	if err != nil {
		return s, err
	}
	c.metrics.SetEndpointsParsed(len(endpoints))
	return s.WithEndpoints(endpoints), nil
}

func (c *Coordinator) payloads(_ context.Context, inv *invocation, s State) (State, error) {
	if len(s.Endpoints()) == 0 {
		return s, &types.NoEndpointsError{Source: s.SpecPath()}
	}
	reqs := inv.synth.BuildRequestsWith(s.Endpoints(), s.Config().BaseURL, c.config.Fixtures)
	return s.WithPayloads(reqs), nil
}

func (c *Coordinator) loadTest(ctx context.Context, inv *invocation, s State) (State, error) {
	cfg := s.Config()
	builder := script.NewBuilder(inv.synth, script.Options{
		ControlSpecPath: s.SpecPath(),
		Payloads:        s.Payloads(),
	})
	if _, err := builder.Write(inv.scriptPath, s.Endpoints(), cfg.BaseURL, cfg.Selection); err != nil {
		return s, err
	}

	result, err := c.runner.Run(ctx, executor.Job{
		ScriptPath:    inv.scriptPath,
		Config:        cfg,
		ResultsDir:    inv.workspace,
		Payloads:      s.Payloads(),
		EndpointCount: len(cfg.Selection.Resolve(len(s.Endpoints()))),
	})
	if err != nil {
		return s, err
	}
	return s.WithRun(result), nil
}

func (c *Coordinator) summarize(_ context.Context, inv *invocation, s State) (State, error) {
	run := s.Run()
	if !run.Succeeded {
		return s, &types.ResultsNotFoundError{Path: run.StatsFilePath, Summary: run.SummaryText}
	}

	report, err := reporter.Parse(run.StatsFilePath)
	if err != nil {
		return s, err
	}

	if len(c.config.Formats) > 0 {
		paths, err := reporter.NewReporter(reporter.ReportingConfig{
			Format:    c.config.Formats,
			OutputDir: run.ResultsDir,
		}).GenerateReport(report)
		if err != nil {
			return s, err
		}
		inv.reports = paths
	}
	return s.WithReport(report), nil
}

func (c *Coordinator) emit(event StageEvent) {
	if c.observer != nil {
		c.observer(event)
	}
}

func outcome(err error) string {
	var notFound *types.ResultsNotFoundError
	if errors.As(err, &notFound) && notFound.Summary != "" {
		return metrics.OutcomeDegraded
	}
	return metrics.OutcomeFailure
}
