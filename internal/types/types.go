package types

import (
	"mime"
	"sort"
	"strings"
)

// Parameter locations
const (
	InQuery  = "query"
	InPath   = "path"
	InHeader = "header"
	InCookie = "cookie"
	InBody   = "body"
)

// Endpoint represents one API operation extracted from a specification
type Endpoint struct {
	Path        string       `json:"path"`
	Method      string       `json:"method"`
	OperationID string       `json:"operationId,omitempty"`
	Summary     string       `json:"summary"`
	Description string       `json:"description"`
	Parameters  []Parameter  `json:"parameters"`
	RequestBody *RequestBody `json:"requestBody,omitempty"`
	Tags        []string     `json:"tags"`
}

// Key returns the "METHOD /path" identifier of the endpoint
func (e Endpoint) Key() string {
	return e.Method + " " + e.Path
}

// ParametersIn returns the parameters declared at the given location, in declaration order
func (e Endpoint) ParametersIn(in string) []Parameter {
	params := make([]Parameter, 0)
	for _, p := range e.Parameters {
		if p.In == in {
			params = append(params, p)
		}
	}
	return params
}

// Parameter represents an API parameter
type Parameter struct {
	Name     string  `json:"name"`
	In       string  `json:"in"`
	Required bool    `json:"required,omitempty"`
	Schema   *Schema `json:"schema,omitempty"`
}

// RequestBody represents the request body of an operation, keyed by media type
type RequestBody struct {
	Required bool               `json:"required,omitempty"`
	Content  map[string]*Schema `json:"content,omitempty"`
}

// JSONSchema returns the schema of the JSON media type, or nil when the body has no JSON content
func (b *RequestBody) JSONSchema() *Schema {
	if b == nil || len(b.Content) == 0 {
		return nil
	}
	if schema, ok := b.Content["application/json"]; ok {
		return schema
	}

	mediaTypes := make([]string, 0, len(b.Content))
	for mediaType := range b.Content {
		mediaTypes = append(mediaTypes, mediaType)
	}
	sort.Strings(mediaTypes)

	for _, mediaType := range mediaTypes {
		base, _, err := mime.ParseMediaType(mediaType)
		if err != nil {
			base = strings.ToLower(strings.TrimSpace(mediaType))
		}
		if base == "application/json" || strings.HasSuffix(base, "+json") {
			return b.Content[mediaType]
		}
	}
	return nil
}
