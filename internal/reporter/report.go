package reporter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"api-load-tester/internal/types"
)

// AggregatedName is the name of the engine's total row
const AggregatedName = "Aggregated"

// Column name variants, matched case-insensitively, exact first and then by substring
var (
	typeColumns       = []string{"type", "method"}
	nameColumns       = []string{"name"}
	requestColumns    = []string{"request count", "# requests"}
	failureColumns    = []string{"failure count", "# fails", "# failures"}
	averageColumns    = []string{"average response time", "average response time (ms)"}
	medianColumns     = []string{"median response time"}
	throughputColumns = []string{"requests/s"}
)

// Row is one line of the engine's statistics table
type Row struct {
	Type           string  `json:"type"`
	Name           string  `json:"name"`
	Requests       int64   `json:"requests"`
	Failures       int64   `json:"failures"`
	AverageMs      float64 `json:"average_ms"`
	MedianMs       float64 `json:"median_ms"`
	RequestsPerSec float64 `json:"requests_per_sec"`
}

// Successes returns the number of requests that did not fail
func (r Row) Successes() int64 {
	if r.Failures > r.Requests {
		return 0
	}
	return r.Requests - r.Failures
}

// Label returns "{type} {name}" without surrounding whitespace
func (r Row) Label() string {
	return strings.TrimSpace(r.Type + " " + r.Name)
}

// IsAggregate reports whether the row is the engine's total row
func (r Row) IsAggregate() bool {
	return strings.EqualFold(strings.TrimSpace(r.Name), AggregatedName)
}

// Report represents the reduced statistics of one load test run
type Report struct {
	Timestamp     time.Time `json:"timestamp"`
	StatsFile     string    `json:"stats_file"`
	Rows          []Row     `json:"rows"`
	Aggregate     *Row      `json:"aggregate,omitempty"`
	TotalRequests int64     `json:"total_requests"`
	TotalFailures int64     `json:"total_failures"`
	Summary       string    `json:"summary"`
}

// Summarize parses the statistics file and renders its summary text
func Summarize(statsFile string) (string, error) {
	report, err := Parse(statsFile)
	if err != nil {
		return "", err
	}
	return report.Summary, nil
}

// Parse reads an engine statistics file. Only a missing or unreadable file is an error;
// malformed rows are skipped and missing cells default to zero. Totals sum the endpoint rows,
// or come from the Aggregated row when it is the only row.
func Parse(statsFile string) (*Report, error) {
	file, err := os.Open(statsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &types.ResultsNotFoundError{Path: statsFile}
		}
		return nil, fmt.Errorf("failed to open statistics file: %w", err)
	}
	defer file.Close()

	rows, err := readRows(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read statistics file %s: %w", statsFile, err)
	}

	report := &Report{
		Timestamp: time.Now(),
		StatsFile: statsFile,
		Rows:      rows,
	}
	for i := range rows {
		if rows[i].IsAggregate() {
			report.Aggregate = &rows[i]
			continue
		}
		report.TotalRequests += rows[i].Requests
		report.TotalFailures += rows[i].Failures
	}
	switch {
	case report.Aggregate == nil && len(rows) > 0:
		report.Aggregate = &Row{
			Name:     AggregatedName,
			Requests: report.TotalRequests,
			Failures: report.TotalFailures,
		}
	case report.Aggregate != nil && len(rows) == 1:
		// the total row is the only source of counts
		report.TotalRequests = report.Aggregate.Requests
		report.TotalFailures = report.Aggregate.Failures
	}
	report.Summary = report.Text()
	return report, nil
}

// Text renders one line per row followed by the failure total
func (r *Report) Text() string {
	var b strings.Builder
	b.WriteString("Summary by Endpoint:")
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "\n%s: %d reqs, %d fails, Avg %.2f ms", row.Label(), row.Requests, row.Failures, row.AverageMs)
	}
	b.WriteString("\n\n")
	if r.TotalFailures == 0 {
		b.WriteString("No failures recorded.")
	} else {
		fmt.Fprintf(&b, "Total Failures: %d", r.TotalFailures)
	}
	return b.String()
}

func readRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return []Row{}, nil
	}
	if err != nil {
		return nil, err
	}

	cols := columns{
		typ:        findColumn(header, typeColumns),
		name:       findColumn(header, nameColumns),
		requests:   findColumn(header, requestColumns),
		failures:   findColumn(header, failureColumns),
		average:    findColumn(header, averageColumns),
		median:     findColumn(header, medianColumns),
		throughput: findColumn(header, throughputColumns),
	}

	rows := make([]Row, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if isBlank(record) {
			continue
		}
		rows = append(rows, cols.row(record))
	}
	return rows, nil
}

type columns struct {
	typ, name, requests, failures, average, median, throughput int
}

func (c columns) row(record []string) Row {
	return Row{
		Type:           cell(record, c.typ),
		Name:           cell(record, c.name),
		Requests:       int64(number(cell(record, c.requests))),
		Failures:       int64(number(cell(record, c.failures))),
		AverageMs:      number(cell(record, c.average)),
		MedianMs:       number(cell(record, c.median)),
		RequestsPerSec: number(cell(record, c.throughput)),
	}
}

// findColumn returns the index of the first header matching a variant, or -1
func findColumn(header []string, variants []string) int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, v := range variants {
		for i, h := range normalized {
			if h == v {
				return i
			}
		}
	}
	for _, v := range variants {
		for i, h := range normalized {
			if strings.Contains(h, v) {
				return i
			}
		}
	}
	return -1
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func number(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// ReportingConfig holds the configuration for reporting
type ReportingConfig struct {
	Format    []string
	OutputDir string
}

// Reporter persists reports in the configured formats
type Reporter struct {
	config ReportingConfig
}

// NewReporter creates a new instance of Reporter
func NewReporter(config ReportingConfig) *Reporter {
	if len(config.Format) == 0 {
		config.Format = []string{"json"}
	}
	return &Reporter{
		config: config,
	}
}

// GenerateReport writes the report in every configured format and returns the written paths.
// Without an output directory the report is written next to its statistics file.
func (r *Reporter) GenerateReport(report *Report) ([]string, error) {
	dir := r.config.OutputDir
	if dir == "" {
		dir = filepath.Dir(report.StatsFile)
	}

	paths := make([]string, 0, len(r.config.Format))
	for _, format := range r.config.Format {
		var (
			path string
			err  error
		)
		switch format {
		case "json":
			path, err = report.WriteJSON(dir)
		case "text":
			path, err = report.WriteText(dir)
		default:
			return paths, fmt.Errorf("unsupported report format %q", format)
		}
		if err != nil {
			return paths, fmt.Errorf("failed to generate %s report: %w", format, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteJSON writes the report as report_<timestamp>.json into dir
func (r *Report) WriteJSON(dir string) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return r.write(dir, "json", data)
}

// WriteText writes the summary text as report_<timestamp>.txt into dir
func (r *Report) WriteText(dir string) (string, error) {
	return r.write(dir, "txt", []byte(r.Summary+"\n"))
}

func (r *Report) write(dir, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("report_%s.%s", r.Timestamp.Format("20060102_150405"), ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
