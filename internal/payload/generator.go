package payload

import (
	"fmt"
	"math"
	"strings"

	"api-load-tester/internal/types"

	"github.com/brianvoe/gofakeit/v7"
)

// Synthesizer generates realistic example values from schemas
type Synthesizer struct {
	faker *gofakeit.Faker
	rules []stringRule
}

// New creates a Synthesizer. A zero seed draws a random one; any other seed makes output reproducible.
func New(seed uint64) *Synthesizer {
	return &Synthesizer{
		faker: gofakeit.New(seed),
		rules: defaultStringRules(),
	}
}

// Value synthesizes a value for schema. The field name hint steers string generation.
// A nil schema or an unknown type produces a string.
func (s *Synthesizer) Value(schema *types.Schema, hint string) interface{} {
	typ := types.TypeString
	if schema != nil && schema.Type != "" {
		typ = schema.Type
	}

	switch typ {
	case types.TypeInteger:
		return s.faker.IntRange(1, 1000)
	case types.TypeNumber:
		return math.Round(s.faker.Float64Range(1.0, 1000.0)*100) / 100
	case types.TypeBoolean:
		return s.faker.Bool()
	case types.TypeArray:
		items := schema.Items
		if items == nil {
			items = &types.Schema{Type: types.TypeString}
		}
		n := s.faker.IntRange(1, 3)
		out := make([]interface{}, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, s.Value(items, hint))
		}
		return out
	case types.TypeObject:
		return s.object(schema)
	default:
		return s.str(schema, hint)
	}
}

func (s *Synthesizer) object(schema *types.Schema) map[string]interface{} {
	out := make(map[string]interface{}, len(schema.Properties))
	for _, name := range schema.PropertyNames() {
		out[name] = s.Value(schema.Properties[name], name)
	}
	return out
}

func (s *Synthesizer) str(schema *types.Schema, hint string) interface{} {
	hint = strings.ToLower(hint)
	for _, rule := range s.rules {
		if rule.matches(schema, hint) {
			return rule.generate(s.faker, schema)
		}
	}
	return s.faker.Word()
}

// QueryParams synthesizes a value for every query parameter
func (s *Synthesizer) QueryParams(params []types.Parameter) map[string]interface{} {
	return s.params(params, types.InQuery)
}

// PathParams synthesizes a value for every path parameter
func (s *Synthesizer) PathParams(params []types.Parameter) map[string]interface{} {
	return s.params(params, types.InPath)
}

// HeaderParams synthesizes header parameters rendered as strings
func (s *Synthesizer) HeaderParams(params []types.Parameter) map[string]string {
	headers := make(map[string]string)
	for name, value := range s.params(params, types.InHeader) {
		headers[name] = formatScalar(value)
	}
	return headers
}

func (s *Synthesizer) params(params []types.Parameter, in string) map[string]interface{} {
	out := make(map[string]interface{})
	for _, p := range (types.Endpoint{Parameters: params}).ParametersIn(in) {
		out[p.Name] = s.Value(p.Schema, p.Name)
	}
	return out
}

// RequestBody synthesizes the properties of the JSON body schema.
// It returns an empty map when the body is absent or has no JSON content.
func (s *Synthesizer) RequestBody(body *types.RequestBody) map[string]interface{} {
	schema := body.JSONSchema()
	if schema == nil || len(schema.Properties) == 0 {
		return make(map[string]interface{})
	}
	return s.object(schema)
}

// formatScalar renders a synthesized value for use in a URL or header
func formatScalar(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}
