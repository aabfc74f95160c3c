package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"api-load-tester/internal/metrics"
	"api-load-tester/internal/payload"
	"api-load-tester/internal/types"

	"go.uber.org/zap"
)

// Artifact names written into the results directory of a run
const (
	CSVPrefix      = "locust_result"
	StatsFileName  = CSVPrefix + "_stats.csv"
	ErrorLogName   = "locust_error.log"
	OutputLogName  = "locust_output.log"
	DefaultBinary  = "locust"
	DefaultPreview = 5
)

// State is a step of the engine run lifecycle
type State string

const (
	StatePreparing  State = "preparing"
	StateExecuting  State = "executing"
	StateCollecting State = "collecting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// EngineConfig selects the load generation binary
type EngineConfig struct {
	Binary      string
	ExtraArgs   []string
	PreviewSize int
}

// Job describes one engine invocation
type Job struct {
	ScriptPath    string
	Config        types.RunConfig
	ResultsDir    string
	Payloads      []payload.Request
	EndpointCount int
}

// RunResult holds the artifacts and outcome of an engine run
type RunResult struct {
	StatsFilePath string        `json:"stats_file_path"`
	SummaryText   string        `json:"summary"`
	Succeeded     bool          `json:"succeeded"`
	State         State         `json:"state"`
	ResultsDir    string        `json:"results_dir"`
	PreviewPath   string        `json:"preview_path,omitempty"`
	OutputLogPath string        `json:"output_log_path,omitempty"`
	ErrorLogPath  string        `json:"error_log_path,omitempty"`
	ExitCode      int           `json:"exit_code"`
	Duration      time.Duration `json:"duration"`
}

// Runner drives the external load generation engine as a blocking child process
type Runner struct {
	config  EngineConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewRunner creates a new engine runner
func NewRunner(config EngineConfig, logger *zap.Logger, m *metrics.Metrics) *Runner {
	if config.Binary == "" {
		config.Binary = DefaultBinary
	}
	if config.PreviewSize == 0 {
		config.PreviewSize = DefaultPreview
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{config: config, logger: logger, metrics: m}
}

// Args returns the engine command line arguments for a job
func (r *Runner) Args(job Job) []string {
	args := []string{
		"-f", job.ScriptPath,
		"--headless",
		"-u", fmt.Sprint(job.Config.Users),
		"-r", fmt.Sprint(job.Config.SpawnRate),
		"--run-time", job.Config.RunTime,
		"--csv", filepath.Join(job.ResultsDir, CSVPrefix),
	}
	return append(args, r.config.ExtraArgs...)
}

// Run executes the engine for a job and blocks until it exits. The context is only checked
// before the engine starts. A non-zero exit returns a RunExecutionError; a clean exit without
// a statistics file returns a degraded result with Succeeded false.
func (r *Runner) Run(ctx context.Context, job Job) (*RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	dir, err := filepath.Abs(job.ResultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve results directory: %w", err)
	}
	job.ResultsDir = dir
	if job.ScriptPath, err = filepath.Abs(job.ScriptPath); err != nil {
		return nil, fmt.Errorf("failed to resolve script path: %w", err)
	}
	result := &RunResult{ResultsDir: dir}
	log := r.logger.With(zap.String("results_dir", dir))

	r.transition(log, result, StatePreparing)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	preview, err := payload.WritePreview(dir, job.Payloads, r.config.PreviewSize)
	if err != nil {
		return nil, err
	}
	result.PreviewPath = preview
	log.Info("Payload preview saved", zap.String("path", preview), zap.Int("payloads", len(job.Payloads)))

	r.transition(log, result, StateExecuting)
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(r.config.Binary, r.Args(job)...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	result.Duration = time.Since(start)

	r.transition(log, result, StateCollecting)
	result.OutputLogPath = filepath.Join(dir, OutputLogName)
	if err := os.WriteFile(result.OutputLogPath, stdout.Bytes(), 0644); err != nil {
		log.Warn("Failed to persist engine output", zap.Error(err))
	}

	if runErr != nil {
		return nil, r.fail(log, result, runErr, stderr.Bytes())
	}

	stats := filepath.Join(dir, StatsFileName)
	if _, err := os.Stat(stats); err != nil {
		result.StatsFilePath = stats
		result.SummaryText = fmt.Sprintf("Load test failed: %s not found in %s", StatsFileName, dir)
		r.transition(log, result, StateFailed)
		r.metrics.RecordEngineExit("no_results")
		log.Warn("Engine exited cleanly without a statistics file", zap.String("expected", stats))
		return result, nil
	}

	result.StatsFilePath = stats
	result.Succeeded = true
	result.SummaryText = Summary(job, stats)
	r.transition(log, result, StateSucceeded)
	r.metrics.RecordEngineExit("succeeded")
	log.Info("Load test complete", zap.String("stats", stats), zap.Duration("duration", result.Duration))
	return result, nil
}

func (r *Runner) fail(log *zap.Logger, result *RunResult, runErr error, stderr []byte) error {
	result.ExitCode = -1
	outcome := "not_started"
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		outcome = "failed"
	} else if len(stderr) == 0 {
		stderr = []byte(runErr.Error())
	}
	if len(bytes.TrimSpace(stderr)) == 0 {
		stderr = []byte("No stderr output")
	}

	result.ErrorLogPath = filepath.Join(result.ResultsDir, ErrorLogName)
	if err := os.WriteFile(result.ErrorLogPath, stderr, 0644); err != nil {
		log.Error("Failed to persist engine error log", zap.Error(err))
	}

	r.transition(log, result, StateFailed)
	r.metrics.RecordEngineExit(outcome)
	log.Error("Load test engine failed",
		zap.Int("exit_code", result.ExitCode),
		zap.String("error_log", result.ErrorLogPath),
		zap.Error(runErr),
	)
	return &types.RunExecutionError{ExitCode: result.ExitCode, LogPath: result.ErrorLogPath, Err: runErr}
}

func (r *Runner) transition(log *zap.Logger, result *RunResult, state State) {
	result.State = state
	log.Debug("Engine run state", zap.String("state", string(state)))
}

// Summary renders the one-paragraph description of a successful run
func Summary(job Job, statsPath string) string {
	return fmt.Sprintf(
		"Load test completed successfully.\nBase URL: %s\nUsers: %d\nSpawn Rate: %d/s\nRun Time: %s\nEndpoints Tested: %d\nResults File: %s",
		job.Config.BaseURL,
		job.Config.Users,
		job.Config.SpawnRate,
		job.Config.RunTime,
		job.EndpointCount,
		statsPath,
	)
}
