package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantAll bool
		want    []int
		wantErr bool
	}{
		{name: "all keyword", input: "all", wantAll: true},
		{name: "all keyword any case", input: " ALL ", wantAll: true},
		{name: "empty means all", input: "", wantAll: true},
		{name: "single index", input: "2", want: []int{2}},
		{name: "ordered list", input: "3, 0,1", want: []int{3, 0, 1}},
		{name: "garbage", input: "first", wantErr: true},
		{name: "partially numeric", input: "1,two", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := ParseSelection(tt.input)
			if tt.wantErr {
				var selErr *InvalidSelectionError
				require.ErrorAs(t, err, &selErr)
				assert.Equal(t, tt.input, selErr.Value)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAll, sel.IsAll())
			assert.Equal(t, tt.want, sel.Indices())
		})
	}
}

func TestSelection_Resolve(t *testing.T) {
	t.Run("all covers every endpoint in order", func(t *testing.T) {
		assert.Equal(t, []int{0, 1, 2}, AllEndpoints().Resolve(3))
	})

	t.Run("zero value selects all", func(t *testing.T) {
		var sel Selection
		assert.Equal(t, []int{0, 1}, sel.Resolve(2))
	})

	t.Run("out of range indices are dropped", func(t *testing.T) {
		assert.Equal(t, []int{1, 0}, SelectIndices(1, 5, -1, 0).Resolve(2))
	})

	t.Run("empty explicit selection yields nothing", func(t *testing.T) {
		assert.Empty(t, SelectIndices().Resolve(4))
	})
}

func TestSelection_JSON(t *testing.T) {
	t.Run("decodes all", func(t *testing.T) {
		var sel Selection
		require.NoError(t, json.Unmarshal([]byte(`"all"`), &sel))
		assert.True(t, sel.IsAll())
	})

	t.Run("decodes index list", func(t *testing.T) {
		var sel Selection
		require.NoError(t, json.Unmarshal([]byte(`[0, 1]`), &sel))
		assert.Equal(t, []int{0, 1}, sel.Indices())
	})

	t.Run("rejects other values", func(t *testing.T) {
		for _, input := range []string{`"some"`, `{"a":1}`, `[1.5]`, `true`} {
			var sel Selection
			err := json.Unmarshal([]byte(input), &sel)
			var selErr *InvalidSelectionError
			assert.True(t, errors.As(err, &selErr), "input %s", input)
		}
	})

	t.Run("encodes round trip", func(t *testing.T) {
		data, err := json.Marshal(SelectIndices(2, 0))
		require.NoError(t, err)
		assert.JSONEq(t, `[2,0]`, string(data))

		data, err = json.Marshal(AllEndpoints())
		require.NoError(t, err)
		assert.JSONEq(t, `"all"`, string(data))
	})
}

func TestRunConfig_Validate(t *testing.T) {
	valid := RunConfig{Users: 10, SpawnRate: 2, RunTime: "10s", BaseURL: "http://127.0.0.1:8000"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{name: "zero users", mutate: func(c *RunConfig) { c.Users = 0 }},
		{name: "negative spawn rate", mutate: func(c *RunConfig) { c.SpawnRate = -1 }},
		{name: "empty run time", mutate: func(c *RunConfig) { c.RunTime = "" }},
		{name: "bad run time", mutate: func(c *RunConfig) { c.RunTime = "ten seconds" }},
		{name: "relative base url", mutate: func(c *RunConfig) { c.BaseURL = "/api" }},
		{name: "unsupported scheme", mutate: func(c *RunConfig) { c.BaseURL = "ftp://host" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidRunConfig)
		})
	}

	for _, runTime := range []string{"30", "1m", "1h30m", "2h5m10s"} {
		cfg := valid
		cfg.RunTime = runTime
		assert.NoError(t, cfg.Validate(), runTime)
	}
}

func TestRunConfig_Normalize(t *testing.T) {
	cfg := RunConfig{RunTime: " 10s ", BaseURL: "http://localhost:8000/"}.Normalize()
	assert.Equal(t, "10s", cfg.RunTime)
	assert.Equal(t, "http://localhost:8000", cfg.BaseURL)
}

func TestEndpoint_ParametersIn(t *testing.T) {
	ep := Endpoint{Method: "GET", Path: "/users/{id}", Parameters: []Parameter{
		{Name: "id", In: InPath},
		{Name: "limit", In: InQuery},
		{Name: "X-Trace", In: InHeader},
		{Name: "offset", In: InQuery},
	}}

	query := ep.ParametersIn(InQuery)
	require.Len(t, query, 2)
	assert.Equal(t, "limit", query[0].Name)
	assert.Equal(t, "offset", query[1].Name)
	assert.Len(t, ep.ParametersIn(InPath), 1)
	assert.NotNil(t, ep.ParametersIn("cookie"))
	assert.Empty(t, ep.ParametersIn("cookie"))
}

func TestRequestBody_JSONSchema(t *testing.T) {
	schema := &Schema{Type: TypeObject}

	assert.Nil(t, (*RequestBody)(nil).JSONSchema())
	assert.Nil(t, (&RequestBody{Content: map[string]*Schema{"text/plain": {Type: TypeString}}}).JSONSchema())
	assert.Same(t, schema, (&RequestBody{Content: map[string]*Schema{"application/json": schema}}).JSONSchema())
	assert.Same(t, schema, (&RequestBody{Content: map[string]*Schema{"application/json; charset=utf-8": schema}}).JSONSchema())
	assert.Same(t, schema, (&RequestBody{Content: map[string]*Schema{"application/problem+json": schema}}).JSONSchema())
}

func TestErrors(t *testing.T) {
	cause := errors.New("boom")

	parseErr := &SpecParseError{Source: "spec.json", Reason: "document has no paths object", Err: cause}
	assert.Contains(t, parseErr.Error(), "spec.json")
	assert.ErrorIs(t, parseErr, cause)

	runErr := &RunExecutionError{ExitCode: 2, LogPath: "/tmp/run/locust_error.log", Err: cause}
	assert.Contains(t, runErr.Error(), "/tmp/run/locust_error.log")
	assert.ErrorIs(t, runErr, cause)

	assert.Contains(t, (&ResultsNotFoundError{Path: "/tmp/stats.csv"}).Error(), "/tmp/stats.csv")
	assert.Contains(t, (&NoEndpointsError{Source: "spec.yaml"}).Error(), "spec.yaml")
}
