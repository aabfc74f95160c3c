package main

import (
	"errors"
	"fmt"
	"testing"

	"api-load-tester/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestDegradedSummary(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   string
		wantOK bool
	}{
		{
			name:   "wrapped degraded run",
			err:    fmt.Errorf("stage summarize failed: %w", &types.ResultsNotFoundError{Path: "/r/locust_result_stats.csv", Summary: "Load test failed: locust_result_stats.csv not found in /r"}),
			want:   "Load test failed: locust_result_stats.csv not found in /r",
			wantOK: true,
		},
		{
			name: "missing file without summary",
			err:  &types.ResultsNotFoundError{Path: "/r/stats.csv"},
		},
		{
			name: "other failure",
			err:  errors.New("boom"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := degradedSummary(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
