// Package enginetest provides fake load generation engines for tests.
package enginetest

import (
	"os"
	"path/filepath"
	"testing"
)

// Behavior selects what a fake engine does when invoked
type Behavior int

const (
	// Succeed writes StatsCSV next to the --csv prefix and exits 0
	Succeed Behavior = iota
	// Fail writes to stderr and exits with code 3
	Fail
	// FailSilently exits with code 2 without writing to stderr
	FailSilently
	// NoResults exits 0 without writing a statistics file
	NoResults
)

// FailExitCode is the exit code of the Fail behavior
const FailExitCode = 3

// FailMessage is written to stderr by the Fail behavior
const FailMessage = "locust: target refused connection"

// StatsCSV is the statistics table written by the Succeed behavior
const StatsCSV = `Type,Name,Request Count,Failure Count,Median Response Time,Average Response Time,Min Response Time,Max Response Time,Average Content Size,Requests/s,Failures/s
GET,/pets,120,0,12,14.5,3,80,512,12.0,0.0
POST,/pets,60,3,20,22.25,5,140,128,6.0,0.3
,Aggregated,180,3,14,17.08,3,140,384,18.0,0.3
`

const preamble = `#!/bin/sh
echo "$@"
prefix=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--csv" ]; then prefix="$2"; fi
  shift
done
`

// Script writes an executable fake engine into a temporary directory and returns its path
func Script(t testing.TB, behavior Behavior) string {
	t.Helper()

	body := preamble
	switch behavior {
	case Succeed:
		body += "cat > \"${prefix}_stats.csv\" <<'CSV'\n" + StatsCSV + "CSV\nexit 0\n"
	case Fail:
		body += "echo \"" + FailMessage + "\" >&2\nexit 3\n"
	case FailSilently:
		body += "exit 2\n"
	case NoResults:
		body += "exit 0\n"
	}

	path := filepath.Join(t.TempDir(), "fake-locust")
	if err := os.WriteFile(path, []byte(body), 0755); err != nil {
		t.Fatalf("failed to write fake engine: %v", err)
	}
	return path
}

// WriteStats writes StatsCSV into dir and returns the file path
func WriteStats(t testing.TB, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "locust_result_stats.csv")
	if err := os.WriteFile(path, []byte(StatsCSV), 0644); err != nil {
		t.Fatalf("failed to write statistics file: %v", err)
	}
	return path
}
