package payload

import (
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"api-load-tester/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertEmail(t *testing.T, value string) {
	t.Helper()
	at := strings.Index(value, "@")
	require.Positive(t, at, value)
	assert.Contains(t, value[at+1:], ".", value)
}

func TestSynthesizer_ScalarRanges(t *testing.T) {
	s := New(7)
	for i := 0; i < 200; i++ {
		n, ok := s.Value(&types.Schema{Type: types.TypeInteger}, "").(int)
		require.True(t, ok)
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 1000)

		f, ok := s.Value(&types.Schema{Type: types.TypeNumber}, "").(float64)
		require.True(t, ok)
		assert.GreaterOrEqual(t, f, 1.0)
		assert.LessOrEqual(t, f, 1000.0)
		assert.InDelta(t, f, float64(int64(f*100+0.5))/100, 1e-9, "rounded to 2 decimals")

		_, ok = s.Value(&types.Schema{Type: types.TypeBoolean}, "").(bool)
		assert.True(t, ok)
	}
}

func TestSynthesizer_DefaultsToString(t *testing.T) {
	s := New(1)
	_, ok := s.Value(nil, "").(string)
	assert.True(t, ok)
	_, ok = s.Value(&types.Schema{}, "anything").(string)
	assert.True(t, ok)
	_, ok = s.Value(&types.Schema{Type: "file"}, "").(string)
	assert.True(t, ok)
}

func TestSynthesizer_FormatWinsOverName(t *testing.T) {
	s := New(3)

	v := s.Value(&types.Schema{Type: types.TypeString, Format: "email"}, "phone")
	assertEmail(t, v.(string))

	v = s.Value(&types.Schema{Type: types.TypeString, Format: "date-time"}, "city")
	_, err := time.Parse(time.RFC3339, v.(string))
	assert.NoError(t, err)

	v = s.Value(&types.Schema{Type: types.TypeString, Format: "date"}, "name")
	_, err = time.Parse("2006-01-02", v.(string))
	assert.NoError(t, err)
}

func TestSynthesizer_NameHints(t *testing.T) {
	s := New(5)
	str := &types.Schema{Type: types.TypeString}

	assertEmail(t, s.Value(str, "contactEmail").(string))

	_, err := time.Parse(time.RFC3339, s.Value(str, "birthDate").(string))
	assert.NoError(t, err)

	u, err := url.Parse(s.Value(str, "homepage_URL").(string))
	require.NoError(t, err)
	assert.NotEmpty(t, u.Scheme)

	assert.NotEmpty(t, s.Value(str, "Username"))
	assert.NotEmpty(t, s.Value(str, "mobile"))
	assert.Len(t, s.Value(str, "password").(string), 12)
}

func TestSynthesizer_RuleOrder(t *testing.T) {
	names := make([]string, 0)
	for _, rule := range defaultStringRules() {
		names = append(names, rule.name)
	}

	index := func(name string) int {
		for i, n := range names {
			if n == name {
				return i
			}
		}
		t.Fatalf("rule %s not found", name)
		return -1
	}
	assert.Less(t, index("format:email"), index("enum"))
	assert.Less(t, index("enum"), index("hint:email"))
	assert.Less(t, index("hint:username"), index("hint:name"))
}

func TestSynthesizer_Enum(t *testing.T) {
	s := New(9)
	schema := &types.Schema{Type: types.TypeString, Enum: []interface{}{"available", "sold"}}
	for i := 0; i < 20; i++ {
		assert.Contains(t, schema.Enum, s.Value(schema, "status"))
	}
}

func TestSynthesizer_Array(t *testing.T) {
	s := New(11)
	for i := 0; i < 50; i++ {
		v, ok := s.Value(&types.Schema{Type: types.TypeArray, Items: &types.Schema{Type: types.TypeInteger}}, "ids").([]interface{})
		require.True(t, ok)
		assert.GreaterOrEqual(t, len(v), 1)
		assert.LessOrEqual(t, len(v), 3)
		for _, item := range v {
			assert.IsType(t, 0, item)
		}
	}

	v := s.Value(&types.Schema{Type: types.TypeArray}, "emails").([]interface{})
	for _, item := range v {
		assertEmail(t, item.(string))
	}
}

func TestSynthesizer_ObjectDeclaredPropertiesOnly(t *testing.T) {
	s := New(13)
	schema := &types.Schema{
		Type: types.TypeObject,
		Properties: map[string]*types.Schema{
			"id":   {Type: types.TypeInteger},
			"tags": {Type: types.TypeArray, Items: &types.Schema{Type: types.TypeString}},
			"owner": {Type: types.TypeObject, Properties: map[string]*types.Schema{
				"email": {Type: types.TypeString},
			}},
		},
	}

	v, ok := s.Value(schema, "").(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, v, 3)
	assert.Contains(t, v, "id")
	assert.Contains(t, v, "tags")

	owner, ok := v["owner"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, owner, 1)
	assertEmail(t, owner["email"].(string))
}

func TestSynthesizer_Reproducible(t *testing.T) {
	schema := &types.Schema{Type: types.TypeObject, Properties: map[string]*types.Schema{
		"name":  {Type: types.TypeString},
		"count": {Type: types.TypeInteger},
		"score": {Type: types.TypeNumber},
	}}
	assert.Equal(t, New(42).Value(schema, ""), New(42).Value(schema, ""))
}

func TestSynthesizer_QueryParams(t *testing.T) {
	s := New(17)
	params := []types.Parameter{
		{Name: "limit", In: types.InQuery, Schema: &types.Schema{Type: types.TypeInteger}},
		{Name: "q", In: types.InQuery},
		{Name: "id", In: types.InPath},
		{Name: "X-Trace", In: types.InHeader},
		{Name: "session", In: types.InCookie},
	}

	query := s.QueryParams(params)
	assert.Len(t, query, 2)
	assert.IsType(t, 0, query["limit"])
	assert.IsType(t, "", query["q"])

	assert.Empty(t, s.QueryParams(nil))
	assert.NotNil(t, s.QueryParams(nil))

	assert.Len(t, s.PathParams(params), 1)
	headers := s.HeaderParams(params)
	assert.Len(t, headers, 1)
	assert.NotEmpty(t, headers["X-Trace"])
}

func TestSynthesizer_RequestBody(t *testing.T) {
	s := New(19)

	assert.Equal(t, map[string]interface{}{}, s.RequestBody(nil))
	assert.Equal(t, map[string]interface{}{}, s.RequestBody(&types.RequestBody{
		Content: map[string]*types.Schema{"application/xml": {Type: types.TypeObject}},
	}))

	body := s.RequestBody(&types.RequestBody{Content: map[string]*types.Schema{
		"application/json": {Type: types.TypeObject, Properties: map[string]*types.Schema{
			"email": {Type: types.TypeString},
			"age":   {Type: types.TypeInteger},
		}},
	}})
	assert.Len(t, body, 2)
	assert.Contains(t, body, "email")
	assert.Contains(t, body, "age")
}

func TestSynthesizer_BuildRequest(t *testing.T) {
	s := New(23)
	ep := types.Endpoint{
		Method: "PUT",
		Path:   "/users/{userId}/pets/{petId}",
		Parameters: []types.Parameter{
			{Name: "userId", In: types.InPath, Schema: &types.Schema{Type: types.TypeInteger}},
			{Name: "tags", In: types.InQuery, Schema: &types.Schema{Type: types.TypeArray}},
			{Name: "verbose", In: types.InQuery, Schema: &types.Schema{Type: types.TypeBoolean}},
			{Name: "X-Request-Id", In: types.InHeader, Schema: &types.Schema{Type: types.TypeString, Format: "uuid"}},
		},
		RequestBody: &types.RequestBody{Content: map[string]*types.Schema{
			"application/json": {Type: types.TypeObject, Properties: map[string]*types.Schema{"name": {}}},
		}},
	}

	req := s.BuildRequest(ep, "http://localhost:8000/")
	assert.Equal(t, "PUT", req.Method)
	assert.NotContains(t, req.Path, "{")
	assert.True(t, strings.HasPrefix(req.URL, "http://localhost:8000/users/"), req.URL)

	assert.True(t, strings.HasPrefix(req.URL, "http://localhost:8000"+req.Path+"?"), req.URL)

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	assert.Len(t, u.Query()["tags"], len(req.Query["tags"].([]interface{})))
	assert.Contains(t, []string{"true", "false"}, u.Query().Get("verbose"))

	assert.Equal(t, "application/json", req.Headers["Content-Type"])
	assert.Len(t, req.Headers["X-Request-Id"], 36)
	assert.Contains(t, req.Body, "name")
}

func TestEncodeQuery_SortedKeys(t *testing.T) {
	encoded := EncodeQuery(map[string]interface{}{
		"zeta":  "last",
		"alpha": 1,
		"mid":   []interface{}{"a", "b"},
		"obj":   map[string]interface{}{"k": "v"},
	})
	assert.Equal(t, "alpha=1&mid=a&mid=b&obj=%7B%22k%22%3A%22v%22%7D&zeta=last", encoded)
	assert.Equal(t, "", EncodeQuery(nil))
}

func TestPreview_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	s := New(29)
	reqs := make([]Request, 0)
	for i := 0; i < 8; i++ {
		reqs = append(reqs, s.BuildRequest(types.Endpoint{Method: "GET", Path: "/ping"}, "http://h"))
	}

	path, err := WritePreview(dir, reqs, 5)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, PreviewFileName), path)

	loaded, err := LoadPreview(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 5)
	assert.Equal(t, "http://h/ping", loaded[0].URL)

	path, err = WritePreview(dir, nil, 5)
	require.NoError(t, err)
	loaded, err = LoadPreview(path)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
