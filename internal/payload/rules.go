package payload

import (
	"strings"
	"time"

	"api-load-tester/internal/types"

	"github.com/brianvoe/gofakeit/v7"
)

// stringRule pairs a predicate with the generator used when it matches.
// Rules are evaluated in order and the first match wins.
type stringRule struct {
	name     string
	matches  func(schema *types.Schema, hint string) bool
	generate func(f *gofakeit.Faker, schema *types.Schema) interface{}
}

func formatRule(format string, gen func(f *gofakeit.Faker) string) stringRule {
	return stringRule{
		name: "format:" + format,
		matches: func(schema *types.Schema, _ string) bool {
			return schema != nil && strings.EqualFold(schema.Format, format)
		},
		generate: func(f *gofakeit.Faker, _ *types.Schema) interface{} { return gen(f) },
	}
}

// hintRule matches when the lower-cased field name contains any of the fragments
func hintRule(name string, gen func(f *gofakeit.Faker) string, fragments ...string) stringRule {
	return stringRule{
		name: "hint:" + name,
		matches: func(_ *types.Schema, hint string) bool {
			for _, fragment := range fragments {
				if strings.Contains(hint, fragment) {
					return true
				}
			}
			return false
		},
		generate: func(f *gofakeit.Faker, _ *types.Schema) interface{} { return gen(f) },
	}
}

var enumRule = stringRule{
	name: "enum",
	matches: func(schema *types.Schema, _ string) bool {
		return schema != nil && len(schema.Enum) > 0
	},
	generate: func(f *gofakeit.Faker, schema *types.Schema) interface{} {
		return schema.Enum[f.IntRange(0, len(schema.Enum)-1)]
	},
}

func dateTime(f *gofakeit.Faker) string {
	return f.Date().UTC().Format(time.RFC3339)
}

// defaultStringRules: explicit formats win over enums, enums over field-name inference.
// "username" sits before "name" since every username hint also contains "name".
func defaultStringRules() []stringRule {
	return []stringRule{
		formatRule("email", func(f *gofakeit.Faker) string { return f.Email() }),
		formatRule("date-time", dateTime),
		formatRule("date", func(f *gofakeit.Faker) string { return f.Date().Format("2006-01-02") }),
		formatRule("uuid", func(f *gofakeit.Faker) string { return f.UUID() }),
		formatRule("uri", func(f *gofakeit.Faker) string { return f.URL() }),
		formatRule("ipv4", func(f *gofakeit.Faker) string { return f.IPv4Address() }),
		formatRule("ipv6", func(f *gofakeit.Faker) string { return f.IPv6Address() }),
		enumRule,
		hintRule("email", func(f *gofakeit.Faker) string { return f.Email() }, "email"),
		hintRule("date", dateTime, "date"),
		hintRule("username", func(f *gofakeit.Faker) string { return f.Username() }, "username"),
		hintRule("name", func(f *gofakeit.Faker) string { return f.Name() }, "name"),
		hintRule("phone", func(f *gofakeit.Faker) string { return f.Phone() }, "phone", "mobile"),
		hintRule("address", func(f *gofakeit.Faker) string { return f.Address().Address }, "address"),
		hintRule("city", func(f *gofakeit.Faker) string { return f.City() }, "city"),
		hintRule("country", func(f *gofakeit.Faker) string { return f.Country() }, "country"),
		hintRule("password", func(f *gofakeit.Faker) string {
			return f.Password(true, true, true, true, false, 12)
		}, "password"),
		hintRule("url", func(f *gofakeit.Faker) string { return f.URL() }, "url"),
	}
}
