package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"api-load-tester/internal/types"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// operationMethods are the path item keys that describe operations
var operationMethods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"options": true, "head": true, "patch": true, "trace": true,
}

// SwaggerParser handles loading of Swagger/OpenAPI specifications
type SwaggerParser struct {
	client *http.Client
	logger *zap.Logger
}

// NewSwaggerParser creates a new instance of SwaggerParser
func NewSwaggerParser(logger *zap.Logger) *SwaggerParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SwaggerParser{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// LoadFile reads and normalizes the specification stored at path
func (p *SwaggerParser) LoadFile(path string) ([]types.Endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.SpecParseError{Source: path, Reason: "cannot read file", Err: err}
	}
	return p.Parse(path, data)
}

// FetchURL downloads and normalizes a remote specification
func (p *SwaggerParser) FetchURL(ctx context.Context, url string) ([]types.Endpoint, error) {
	p.logger.Info("Fetching OpenAPI documentation", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &types.SpecParseError{Source: url, Reason: "invalid request", Err: err}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &types.SpecParseError{Source: url, Reason: "HTTP request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &types.SpecParseError{Source: url, Reason: fmt.Sprintf("unexpected status code: %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.SpecParseError{Source: url, Reason: "failed to read response body", Err: err}
	}
	return p.Parse(url, body)
}

// Parse normalizes raw document bytes, logging the outcome under the given source name
func (p *SwaggerParser) Parse(source string, data []byte) ([]types.Endpoint, error) {
	endpoints, err := normalize(source, data)
	if err != nil {
		p.logger.Error("Failed to parse specification", zap.String("source", source), zap.Error(err))
		return nil, err
	}
	p.logger.Info("Parsed specification",
		zap.String("source", source),
		zap.Int("endpoints", len(endpoints)))
	return endpoints, nil
}

// Normalize extracts the endpoint list from a JSON or YAML OpenAPI/Swagger document.
// Endpoints follow the document order of paths, then methods.
func Normalize(data []byte) ([]types.Endpoint, error) {
	return normalize("", data)
}

func normalize(source string, data []byte) ([]types.Endpoint, error) {
	root, err := decodeDocument(data)
	if err != nil {
		return nil, &types.SpecParseError{Source: source, Reason: "document is neither JSON nor YAML", Err: err}
	}
	if root.Kind != yaml.MappingNode {
		return nil, &types.SpecParseError{Source: source, Reason: "document is not an object"}
	}

	paths := mappingValue(root, "paths")
	if paths == nil || paths.Kind != yaml.MappingNode {
		return nil, &types.SpecParseError{Source: source, Reason: "document has no paths object"}
	}

	conv := &converter{refs: &refResolver{root: root}}
	var doc *openapi3.T
	if mappingValue(root, "openapi") != nil {
		doc = loadTyped(data)
	}

	endpoints := make([]types.Endpoint, 0)
	seen := make(map[string]bool)
	for i := 0; i+1 < len(paths.Content); i += 2 {
		path := paths.Content[i].Value
		item := resolveAlias(paths.Content[i+1])
		if item == nil || item.Kind != yaml.MappingNode {
			continue
		}

		var typedItem *openapi3.PathItem
		if doc != nil && doc.Paths != nil {
			typedItem = doc.Paths.Value(path)
		}
		pathParams := pathLevelParameters(item, typedItem)

		for j := 0; j+1 < len(item.Content); j += 2 {
			method := strings.ToLower(item.Content[j].Value)
			if !operationMethods[method] {
				continue
			}

			op := typedOperation(typedItem, method)
			if op == nil {
				op = &openapi3.Operation{}
				if err := decodeNode(item.Content[j+1], op); err != nil {
					return nil, &types.SpecParseError{
						Source: source,
						Reason: fmt.Sprintf("invalid operation %s %s", strings.ToUpper(method), path),
						Err:    err,
					}
				}
			}

			endpoint, err := conv.endpoint(path, method, op, pathParams)
			if err != nil {
				return nil, &types.SpecParseError{
					Source: source,
					Reason: fmt.Sprintf("unresolvable schema in %s %s", strings.ToUpper(method), path),
					Err:    err,
				}
			}
			if seen[endpoint.Key()] {
				continue
			}
			seen[endpoint.Key()] = true
			endpoints = append(endpoints, endpoint)
		}
	}
	return endpoints, nil
}

// loadTyped loads an OpenAPI 3 document with refs resolved. It returns nil for documents the
// loader rejects, which are then decoded per operation like swagger 2 documents.
func loadTyped(data []byte) *openapi3.T {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil
	}
	return doc
}

func typedOperation(item *openapi3.PathItem, method string) *openapi3.Operation {
	if item == nil {
		return nil
	}
	return item.GetOperation(strings.ToUpper(method))
}

func pathLevelParameters(item *yaml.Node, typed *openapi3.PathItem) openapi3.Parameters {
	if typed != nil {
		return typed.Parameters
	}
	node := mappingValue(item, "parameters")
	if node == nil {
		return nil
	}
	var params openapi3.Parameters
	if err := decodeNode(node, &params); err != nil {
		return nil
	}
	return params
}

func (c *converter) endpoint(path, method string, op *openapi3.Operation, pathParams openapi3.Parameters) (types.Endpoint, error) {
	params, body, err := c.parameters(op.Parameters, pathParams)
	if err != nil {
		return types.Endpoint{}, err
	}

	if op.RequestBody != nil {
		if body, err = c.requestBody(op.RequestBody); err != nil {
			return types.Endpoint{}, err
		}
	}

	summary := op.Summary
	if summary == "" {
		summary = op.OperationID
	}

	tags := make([]string, 0, len(op.Tags))
	tags = append(tags, op.Tags...)

	return types.Endpoint{
		Path:        path,
		Method:      strings.ToUpper(method),
		OperationID: op.OperationID,
		Summary:     summary,
		Description: op.Description,
		Parameters:  params,
		RequestBody: body,
		Tags:        tags,
	}, nil
}
