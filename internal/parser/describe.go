package parser

import (
	"fmt"
	"strings"

	"api-load-tester/internal/types"
)

const maxDescriptionLen = 200

// Describe renders a numbered, human readable listing of the endpoints
func Describe(endpoints []types.Endpoint) string {
	var b strings.Builder
	for i, ep := range endpoints {
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, ep.Method, ep.Path)
		if ep.Summary != "" {
			fmt.Fprintf(&b, "   Summary: %s\n", ep.Summary)
		}
		if ep.Description != "" {
			desc := ep.Description
			if len(desc) >= maxDescriptionLen {
				desc = desc[:maxDescriptionLen-3] + "..."
			}
			fmt.Fprintf(&b, "   Desc: %s\n", desc)
		}
		if len(ep.Parameters) > 0 {
			names := make([]string, 0, len(ep.Parameters))
			for _, p := range ep.Parameters {
				names = append(names, p.Name)
			}
			fmt.Fprintf(&b, "   Params: %s\n", strings.Join(names, ", "))
		}
		if ep.RequestBody != nil {
			b.WriteString("   RequestBody: present\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
