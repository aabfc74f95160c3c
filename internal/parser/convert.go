package parser

import (
	"errors"

	"api-load-tester/internal/types"

	"github.com/getkin/kin-openapi/openapi3"
)

// maxSchemaDepth bounds schema nesting; self-referencing schemas hit it
const maxSchemaDepth = 32

var errSchemaTooDeep = errors.New("schema nesting exceeds 32 levels (cyclic $ref?)")

// converter turns kin-openapi structures into the normalized endpoint model.
// References left unresolved by the loader are looked up in the raw document.
type converter struct {
	refs *refResolver
}

func (c *converter) schema(ref *openapi3.SchemaRef, depth int) (*types.Schema, error) {
	if ref == nil {
		return nil, nil
	}
	if depth > maxSchemaDepth {
		return nil, errSchemaTooDeep
	}

	value := ref.Value
	if value == nil && ref.Ref != "" {
		var resolved openapi3.Schema
		if c.refs.decode(ref.Ref, &resolved) {
			value = &resolved
		}
	}
	if value == nil {
		return &types.Schema{}, nil
	}

	out := &types.Schema{
		Type:   schemaType(value),
		Format: value.Format,
		Enum:   value.Enum,
	}

	if value.Items != nil {
		items, err := c.schema(value.Items, depth+1)
		if err != nil {
			return nil, err
		}
		out.Items = items
	}

	if len(value.Properties) > 0 {
		out.Properties = make(map[string]*types.Schema, len(value.Properties))
		for name, prop := range value.Properties {
			converted, err := c.schema(prop, depth+1)
			if err != nil {
				return nil, err
			}
			out.Properties[name] = converted
		}
	}

	// allOf members contribute their properties; oneOf/anyOf fall back to the first member
	members := append(openapi3.SchemaRefs{}, value.AllOf...)
	if out.Type == "" && len(value.Properties) == 0 {
		if len(value.OneOf) > 0 {
			members = append(members, value.OneOf[0])
		} else if len(value.AnyOf) > 0 {
			members = append(members, value.AnyOf[0])
		}
	}
	for _, member := range members {
		converted, err := c.schema(member, depth+1)
		if err != nil {
			return nil, err
		}
		mergeSchema(out, converted)
	}

	if out.Type == "" {
		switch {
		case len(out.Properties) > 0:
			out.Type = types.TypeObject
		case out.Items != nil:
			out.Type = types.TypeArray
		}
	}
	return out, nil
}

func schemaType(s *openapi3.Schema) string {
	if s.Type == nil {
		return ""
	}
	for _, t := range *s.Type {
		if t != "null" {
			return t
		}
	}
	return ""
}

func mergeSchema(dst, src *types.Schema) {
	if src == nil {
		return
	}
	if dst.Type == "" {
		dst.Type = src.Type
	}
	if dst.Format == "" {
		dst.Format = src.Format
	}
	if dst.Items == nil {
		dst.Items = src.Items
	}
	if len(dst.Enum) == 0 {
		dst.Enum = src.Enum
	}
	if len(src.Properties) > 0 {
		if dst.Properties == nil {
			dst.Properties = make(map[string]*types.Schema, len(src.Properties))
		}
		for name, prop := range src.Properties {
			if _, exists := dst.Properties[name]; !exists {
				dst.Properties[name] = prop
			}
		}
	}
}

// parameter resolves a parameter reference. It returns nil when the reference cannot be resolved.
func (c *converter) parameter(ref *openapi3.ParameterRef) *openapi3.Parameter {
	if ref == nil {
		return nil
	}
	if ref.Value != nil {
		return ref.Value
	}
	var resolved openapi3.Parameter
	if ref.Ref != "" && c.refs.decode(ref.Ref, &resolved) {
		return &resolved
	}
	return nil
}

// parameters converts operation parameters merged with the path-level ones. Operation
// parameters override path-level parameters of the same name and location. A swagger 2
// "in: body" parameter becomes the JSON request body.
func (c *converter) parameters(operation, pathLevel openapi3.Parameters) ([]types.Parameter, *types.RequestBody, error) {
	params := make([]types.Parameter, 0, len(operation)+len(pathLevel))
	var body *types.RequestBody
	seen := make(map[string]bool)

	for _, ref := range append(append(openapi3.Parameters{}, operation...), pathLevel...) {
		p := c.parameter(ref)
		if p == nil || (p.Name == "" && p.In != types.InBody) {
			continue
		}
		key := p.In + ":" + p.Name
		if seen[key] {
			continue
		}
		seen[key] = true

		schema, err := c.schema(p.Schema, 0)
		if err != nil {
			return nil, nil, err
		}
		if schema == nil && len(p.Content) > 0 {
			if schema, err = c.contentSchema(p.Content); err != nil {
				return nil, nil, err
			}
		}
		if schema == nil {
			schema = inlineSchema(p)
		}

		if p.In == types.InBody {
			if body == nil {
				body = &types.RequestBody{
					Required: p.Required,
					Content:  map[string]*types.Schema{"application/json": schema},
				}
			}
			continue
		}

		params = append(params, types.Parameter{
			Name:     p.Name,
			In:       p.In,
			Required: p.Required,
			Schema:   schema,
		})
	}
	return params, body, nil
}

// contentSchema returns the JSON schema of a content map, or the first one available
func (c *converter) contentSchema(content openapi3.Content) (*types.Schema, error) {
	body, err := c.content(content)
	if err != nil || body == nil {
		return nil, err
	}
	if schema := (&types.RequestBody{Content: body}).JSONSchema(); schema != nil {
		return schema, nil
	}
	for _, schema := range body {
		if schema != nil {
			return schema, nil
		}
	}
	return nil, nil
}

func (c *converter) content(content openapi3.Content) (map[string]*types.Schema, error) {
	if len(content) == 0 {
		return nil, nil
	}
	out := make(map[string]*types.Schema, len(content))
	for mediaType, media := range content {
		var schema *types.Schema
		if media != nil {
			converted, err := c.schema(media.Schema, 0)
			if err != nil {
				return nil, err
			}
			schema = converted
		}
		out[mediaType] = schema
	}
	return out, nil
}

func (c *converter) requestBody(ref *openapi3.RequestBodyRef) (*types.RequestBody, error) {
	if ref == nil {
		return nil, nil
	}
	value := ref.Value
	if value == nil && ref.Ref != "" {
		var resolved openapi3.RequestBody
		if c.refs.decode(ref.Ref, &resolved) {
			value = &resolved
		}
	}
	if value == nil {
		return nil, nil
	}

	content, err := c.content(value.Content)
	if err != nil {
		return nil, err
	}
	return &types.RequestBody{Required: value.Required, Content: content}, nil
}

// inlineSchema reads the swagger 2 form where type and format sit on the parameter itself
func inlineSchema(p *openapi3.Parameter) *types.Schema {
	typ, _ := p.Extensions["type"].(string)
	if typ == "" {
		return nil
	}
	format, _ := p.Extensions["format"].(string)
	schema := &types.Schema{Type: typ, Format: format}
	if enum, ok := p.Extensions["enum"].([]interface{}); ok {
		schema.Enum = enum
	}
	return schema
}
