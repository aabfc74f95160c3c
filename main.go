package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"api-load-tester/internal/config"
	"api-load-tester/internal/executor"
	"api-load-tester/internal/llm"
	"api-load-tester/internal/logger"
	"api-load-tester/internal/matcher"
	"api-load-tester/internal/metrics"
	"api-load-tester/internal/parser"
	"api-load-tester/internal/payload"
	"api-load-tester/internal/pipeline"
	"api-load-tester/internal/reporter"
	"api-load-tester/internal/script"
	"api-load-tester/internal/server"
	"api-load-tester/internal/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Load test an API from its OpenAPI specification",
	Long: `loadtest turns an OpenAPI/Swagger document into a Locust load test, runs it
against a target and summarizes the per-endpoint statistics.

Examples:
  loadtest endpoints petstore.yaml                 # List the endpoints of a spec
  loadtest run petstore.yaml -u 20 -r 5 -t 1m      # Run a load test
  loadtest run petstore.yaml --select 0,2          # Only load the first and third endpoint
  loadtest build petstore.yaml -o locustfile.py    # Only generate the Locust script
  loadtest summarize results/locust_result_stats.csv
  loadtest match petstore.yaml "create an order"   # Semantic endpoint search
  loadtest serve                                   # Start the HTTP front door`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run <spec>",
	Short: "Parse a specification, run a load test and print the summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoadTest(cmd, args[0])
	},
}

var endpointsCmd = &cobra.Command{
	Use:   "endpoints <spec-file-or-url>",
	Short: "List the endpoints of a specification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEndpoints(cmd, args[0])
	},
}

var buildCmd = &cobra.Command{
	Use:   "build <spec>",
	Short: "Generate the Locust script without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd, args[0])
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <stats.csv>",
	Short: "Summarize a Locust statistics file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSummarize(cmd, args[0])
	},
}

var matchCmd = &cobra.Command{
	Use:   "match <spec> <query>",
	Short: "Find the endpoints closest to a free-text description",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMatch(cmd, args[0], args[1])
	},
}

var smokeCmd = &cobra.Command{
	Use:   "smoke <spec>",
	Short: "Send one synthesized request per endpoint and report the responses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSmoke(cmd, args[0])
	},
}

var fixturesCmd = &cobra.Command{
	Use:   "fixtures <spec>",
	Short: "Write an editable template of per-endpoint fixed request values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFixtures(cmd, args[0])
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP front door",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

// Global flags
var (
	flagConfig   string
	flagLogLevel string
	flagLogDir   string
)

// Flags shared by the commands that target an API
var (
	flagUsers     int
	flagSpawnRate int
	flagRunTime   string
	flagBaseURL   string
	flagSelect    string
	flagSeed      uint64
	flagFixtures  string
	flagJSON      bool
)

var (
	flagScriptOut string
	flagFixOut    string
	flagReportDir string
	flagTopK      int
	flagAddr      string
	flagSmoke     bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Configuration file (default config/config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug/info/warn/error)")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "Also write JSON logs to a file in this directory")

	for _, cmd := range []*cobra.Command{runCmd, buildCmd, smokeCmd} {
		cmd.Flags().StringVarP(&flagBaseURL, "base-url", "b", "", "Base URL of the API under test")
		cmd.Flags().Uint64Var(&flagSeed, "seed", 0, "Seed for payload synthesis (0 picks a random seed)")
		cmd.Flags().StringVar(&flagFixtures, "fixtures", "", "JSON file of per-endpoint fixed request values (overrides payload.fixtures)")
	}
	for _, cmd := range []*cobra.Command{runCmd, buildCmd} {
		cmd.Flags().StringVarP(&flagSelect, "select", "s", types.SelectAll, `Endpoint positions to load, e.g. "0,2", or "all"`)
	}

	runCmd.Flags().IntVarP(&flagUsers, "users", "u", 0, "Number of virtual users")
	runCmd.Flags().IntVarP(&flagSpawnRate, "spawn-rate", "r", 0, "Users started per second")
	runCmd.Flags().StringVarP(&flagRunTime, "run-time", "t", "", "Test duration, e.g. 10s, 1m, 1h30m")
	runCmd.Flags().BoolVar(&flagSmoke, "smoke", false, "Run a smoke check before the load test")
	runCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the full result as JSON")

	endpointsCmd.Flags().BoolVar(&flagJSON, "json", false, "Print endpoints as JSON")

	buildCmd.Flags().StringVarP(&flagScriptOut, "output", "o", script.ScriptFileName, "Script output path")

	summarizeCmd.Flags().StringVar(&flagReportDir, "report-dir", "", "Also write JSON and text reports into this directory")

	matchCmd.Flags().IntVarP(&flagTopK, "top-k", "k", matcher.DefaultTopK, "Number of matches to return")

	smokeCmd.Flags().BoolVar(&flagJSON, "json", false, "Print results as JSON")

	fixturesCmd.Flags().StringVarP(&flagFixOut, "output", "o", "testdata", "Output directory")
	fixturesCmd.Flags().Uint64Var(&flagSeed, "seed", 0, "Seed for payload synthesis (0 picks a random seed)")

	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (overrides server.addr)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(endpointsCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(smokeCmd)
	rootCmd.AddCommand(fixturesCmd)
	rootCmd.AddCommand(serveCmd)
}

// app holds what every command needs
type app struct {
	config  *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func setup() (*app, error) {
	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagLogDir != "" {
		cfg.Logging.Dir = flagLogDir
	}

	log, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &app{config: cfg, logger: log, metrics: metrics.New()}, nil
}

func (a *app) close() {
	_ = a.logger.Close()
}

// runConfig merges command line flags over the configured run defaults
func (a *app) runConfig(cmd *cobra.Command) (types.RunConfig, error) {
	cfg := a.config.Run
	if cmd.Flags().Changed("users") {
		cfg.Users = flagUsers
	}
	if cmd.Flags().Changed("spawn-rate") {
		cfg.SpawnRate = flagSpawnRate
	}
	if cmd.Flags().Changed("run-time") {
		cfg.RunTime = flagRunTime
	}
	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}
	if cmd.Flags().Lookup("select") != nil {
		sel, err := types.ParseSelection(flagSelect)
		if err != nil {
			return cfg, err
		}
		cfg.Selection = sel
	}
	return cfg.Normalize(), nil
}

func (a *app) seed() uint64 {
	if flagSeed != 0 {
		return flagSeed
	}
	return a.config.Results.Seed
}

// fixtures loads the fixtures named by --fixtures or payload.fixtures, if any
func (a *app) fixtures() (*payload.Fixtures, error) {
	path := a.config.Payload.Fixtures
	if flagFixtures != "" {
		path = flagFixtures
	}
	if path == "" {
		return nil, nil
	}
	return payload.LoadFixtures(path)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runLoadTest(cmd *cobra.Command, specPath string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	runCfg, err := a.runConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fixtures, err := a.fixtures()
	if err != nil {
		return err
	}

	if flagSmoke {
		if err := smokeCheck(ctx, a, specPath, runCfg.BaseURL, fixtures); err != nil {
			return err
		}
	}

	runner := executor.NewRunner(a.config.EngineSettings(), a.logger.Logger, a.metrics)
	coordinator := pipeline.NewCoordinator(pipeline.Config{
		ResultsRoot: a.config.Results.Dir,
		Seed:        a.seed(),
		Formats:     a.config.Results.Formats,
		Fixtures:    fixtures,
	}, runner, a.logger.Logger, a.metrics)
	coordinator.SetObserver(func(e pipeline.StageEvent) {
		switch e.Status {
		case pipeline.StatusStarted:
			fmt.Fprintf(os.Stderr, "[%s] running...\n", e.Stage)
		case pipeline.StatusSucceeded:
			fmt.Fprintf(os.Stderr, "[%s] done in %s\n", e.Stage, e.Elapsed.Round(time.Millisecond))
		case pipeline.StatusFailed:
			fmt.Fprintf(os.Stderr, "[%s] failed after %s\n", e.Stage, e.Elapsed.Round(time.Millisecond))
		}
	})

	result, err := coordinator.Run(ctx, specPath, runCfg)
	if err != nil {
		if summary, ok := degradedSummary(err); ok {
			fmt.Println(summary)
		}
		return err
	}

	if flagJSON {
		return printJSON(result)
	}
	fmt.Println(result.RunSummary)
	fmt.Println()
	fmt.Println(result.SummaryText)
	for _, path := range result.ReportPaths {
		fmt.Printf("\nReport: %s", path)
	}
	fmt.Println()
	return nil
}

// degradedSummary returns the summary of a run whose engine exited without writing statistics
func degradedSummary(err error) (string, bool) {
	var notFound *types.ResultsNotFoundError
	if errors.As(err, &notFound) && notFound.Summary != "" {
		return notFound.Summary, true
	}
	return "", false
}

func loadEndpoints(ctx context.Context, p *parser.SwaggerParser, source string) ([]types.Endpoint, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.FetchURL(ctx, source)
	}
	return p.LoadFile(source)
}

func runEndpoints(cmd *cobra.Command, source string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	endpoints, err := loadEndpoints(ctx, parser.NewSwaggerParser(a.logger.Logger), source)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(endpoints)
	}
	fmt.Printf("Found %d endpoints:\n\n", len(endpoints))
	fmt.Print(parser.Describe(endpoints))
	return nil
}

func runBuild(cmd *cobra.Command, specPath string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	runCfg, err := a.runConfig(cmd)
	if err != nil {
		return err
	}

	endpoints, err := parser.NewSwaggerParser(a.logger.Logger).LoadFile(specPath)
	if err != nil {
		return err
	}
	if len(endpoints) == 0 {
		return &types.NoEndpointsError{Source: specPath}
	}

	fixtures, err := a.fixtures()
	if err != nil {
		return err
	}

	synth := payload.New(a.seed())
	builder := script.NewBuilder(synth, script.Options{
		ControlSpecPath: specPath,
		Payloads:        synth.BuildRequestsWith(endpoints, runCfg.BaseURL, fixtures),
	})
	if _, err := builder.Write(flagScriptOut, endpoints, runCfg.BaseURL, runCfg.Selection); err != nil {
		return err
	}
	a.logger.Info("Locust script written", zap.String("path", flagScriptOut), zap.Int("endpoints", len(endpoints)))
	fmt.Printf("Locust script written to %s\n", flagScriptOut)
	return nil
}

func runSummarize(cmd *cobra.Command, statsPath string) error {
	report, err := reporter.Parse(statsPath)
	if err != nil {
		return err
	}
	fmt.Println(report.Summary)

	if flagReportDir != "" {
		paths, err := reporter.NewReporter(reporter.ReportingConfig{
			Format:    []string{"json", "text"},
			OutputDir: flagReportDir,
		}).GenerateReport(report)
		if err != nil {
			return err
		}
		for _, path := range paths {
			fmt.Printf("Report: %s\n", path)
		}
	}
	return nil
}

func runMatch(cmd *cobra.Command, specPath, query string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	endpoints, err := loadEndpoints(ctx, parser.NewSwaggerParser(a.logger.Logger), specPath)
	if err != nil {
		return err
	}

	client, err := llm.NewClient(&a.config.LLM, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	m, err := matcher.New(ctx, client, endpoints)
	if err != nil {
		return err
	}
	matches, err := m.Match(ctx, query, flagTopK)
	if err != nil {
		return err
	}

	for _, match := range matches {
		fmt.Printf("%.3f  [%d] %s  %s\n", match.Score, match.Index, match.Endpoint.Key(), match.Endpoint.Summary)
	}
	return nil
}

func smokeCheck(ctx context.Context, a *app, specPath, baseURL string, fixtures *payload.Fixtures) error {
	endpoints, err := parser.NewSwaggerParser(a.logger.Logger).LoadFile(specPath)
	if err != nil {
		return err
	}
	reqs := payload.New(a.seed()).BuildRequestsWith(endpoints, baseURL, fixtures)
	results := executor.NewSmokeChecker(a.config.SmokeSettings(), a.logger.Logger, a.metrics).Check(ctx, reqs)

	counts := executor.SmokeCounts(results)
	a.logger.Info("Smoke check complete",
		zap.Int("success", counts[executor.StatusSuccess]),
		zap.Int("failure", counts[executor.StatusFailure]),
		zap.Int("error", counts[executor.StatusError]),
	)
	if counts[executor.StatusError] == len(results) && len(results) > 0 {
		return fmt.Errorf("smoke check failed: none of %d requests reached %s", len(results), baseURL)
	}
	return nil
}

func runSmoke(cmd *cobra.Command, specPath string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	baseURL := a.config.Run.BaseURL
	if flagBaseURL != "" {
		baseURL = flagBaseURL
	}

	ctx, cancel := signalContext()
	defer cancel()

	endpoints, err := parser.NewSwaggerParser(a.logger.Logger).LoadFile(specPath)
	if err != nil {
		return err
	}
	fixtures, err := a.fixtures()
	if err != nil {
		return err
	}
	reqs := payload.New(a.seed()).BuildRequestsWith(endpoints, baseURL, fixtures)
	results := executor.NewSmokeChecker(a.config.SmokeSettings(), a.logger.Logger, a.metrics).Check(ctx, reqs)

	if flagJSON {
		return printJSON(results)
	}
	for _, r := range results {
		line := fmt.Sprintf("%-7s %-6s %s", r.Status, r.Method, r.URL)
		if r.StatusCode != 0 {
			line += fmt.Sprintf(" -> %d", r.StatusCode)
		}
		if r.Error != "" && r.StatusCode == 0 {
			line += " (" + r.Error + ")"
		}
		fmt.Println(line)
	}
	counts := executor.SmokeCounts(results)
	fmt.Printf("\n%d succeeded, %d failed, %d errored\n",
		counts[executor.StatusSuccess], counts[executor.StatusFailure], counts[executor.StatusError])
	return nil
}

func runFixtures(cmd *cobra.Command, specPath string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	endpoints, err := parser.NewSwaggerParser(a.logger.Logger).LoadFile(specPath)
	if err != nil {
		return err
	}
	path, err := payload.WriteFixtures(flagFixOut, payload.New(a.seed()).Template(endpoints))
	if err != nil {
		return err
	}
	fmt.Printf("Fixtures template for %d endpoints written to %s\n", len(endpoints), path)
	return nil
}

func runServe(cmd *cobra.Command) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	serverCfg := a.config.Server
	if flagAddr != "" {
		serverCfg.Addr = flagAddr
	}

	fixtures, err := a.fixtures()
	if err != nil {
		return err
	}

	runner := executor.NewRunner(a.config.EngineSettings(), a.logger.Logger, a.metrics)
	coordinator := pipeline.NewCoordinator(pipeline.Config{
		ResultsRoot: a.config.Results.Dir,
		Seed:        a.config.Results.Seed,
		Formats:     a.config.Results.Formats,
		Fixtures:    fixtures,
	}, runner, a.logger.Logger, a.metrics)

	var embedder llm.Client
	if client, err := llm.NewClient(&a.config.LLM, a.logger); err != nil {
		a.logger.Warn("Endpoint matching disabled", zap.Error(err))
	} else {
		embedder = client
	}

	ctx, cancel := signalContext()
	defer cancel()

	srv := server.New(serverCfg, a.config.Run, server.Deps{
		Coordinator: coordinator,
		Embedder:    embedder,
		Metrics:     a.metrics,
		Logger:      a.logger.Logger,
	})
	return srv.ListenAndServe(ctx)
}
