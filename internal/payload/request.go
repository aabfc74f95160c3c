package payload

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"api-load-tester/internal/types"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Request is a complete synthesized example request for one endpoint
type Request struct {
	Method  string                 `json:"method"`
	URL     string                 `json:"url"`
	Path    string                 `json:"path"`
	Query   map[string]interface{} `json:"query"`
	Body    map[string]interface{} `json:"body"`
	Headers map[string]string      `json:"headers"`
}

// BuildRequest synthesizes path, query, header and body values for the endpoint against baseURL
func (s *Synthesizer) BuildRequest(ep types.Endpoint, baseURL string) Request {
	return s.BuildRequestWith(ep, baseURL, nil)
}

// BuildRequestWith synthesizes a request and lays the fixture's fixed values over it.
// A nil fixture leaves the synthesized values untouched.
func (s *Synthesizer) BuildRequestWith(ep types.Endpoint, baseURL string, fx *Fixture) Request {
	pathParams := s.PathParams(ep.Parameters)
	query := s.QueryParams(ep.Parameters)
	body := s.RequestBody(ep.RequestBody)

	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	for name, value := range s.HeaderParams(ep.Parameters) {
		headers[name] = value
	}

	if fx != nil {
		merge(pathParams, fx.PathParams)
		merge(query, fx.QueryParams)
		if fx.Body != nil {
			body = fx.Body
		}
		for name, value := range fx.Headers {
			headers[name] = value
		}
	}

	path := s.ExpandPath(ep.Path, pathParams)
	full := strings.TrimRight(baseURL, "/") + path
	if encoded := EncodeQuery(query); encoded != "" {
		full += "?" + encoded
	}

	return Request{
		Method:  ep.Method,
		URL:     full,
		Path:    path,
		Query:   query,
		Body:    body,
		Headers: headers,
	}
}

// BuildRequests synthesizes one request per endpoint, in order
func (s *Synthesizer) BuildRequests(endpoints []types.Endpoint, baseURL string) []Request {
	return s.BuildRequestsWith(endpoints, baseURL, nil)
}

// BuildRequestsWith synthesizes one request per endpoint, applying the matching fixtures
func (s *Synthesizer) BuildRequestsWith(endpoints []types.Endpoint, baseURL string, fixtures *Fixtures) []Request {
	reqs := make([]Request, 0, len(endpoints))
	for _, ep := range endpoints {
		reqs = append(reqs, s.BuildRequestWith(ep, baseURL, fixtures.For(ep)))
	}
	return reqs
}

func merge(dst, src map[string]interface{}) {
	for k, v := range src {
		dst[k] = v
	}
}

// ExpandPath substitutes {param} placeholders with the given values. Placeholders without
// a value get a synthesized string.
func (s *Synthesizer) ExpandPath(template string, values map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := values[name]
		if !ok {
			value = s.Value(nil, name)
		}
		return url.PathEscape(formatScalar(value))
	})
}

// EncodeQuery renders query values with sorted keys. Arrays repeat the key;
// objects are sent as JSON.
func EncodeQuery(query map[string]interface{}) string {
	values := url.Values{}
	for name, value := range query {
		switch v := value.(type) {
		case []interface{}:
			for _, item := range v {
				values.Add(name, queryValue(item))
			}
		default:
			values.Add(name, queryValue(v))
		}
	}
	return values.Encode()
}

func queryValue(value interface{}) string {
	if m, ok := value.(map[string]interface{}); ok {
		data, err := json.Marshal(m)
		if err == nil {
			return string(data)
		}
	}
	return formatScalar(value)
}
