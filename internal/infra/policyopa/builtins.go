package policyopa

import "github.com/open-policy-agent/opa/ast"

// allowedBuiltins keeps usage policies deterministic. Time, rand and http
// builtins are absent from the compiler capabilities.
var allowedBuiltins = map[string]struct{}{
	"and":               {},
	"concat":            {},
	"contains":          {},
	"count":             {},
	"endswith":          {},
	"eq":                {},
	"equal":             {},
	"format_int":        {},
	"gt":                {},
	"gte":               {},
	"indexof":           {},
	"internal.member_2": {},
	"intersection":      {},
	"lower":             {},
	"lt":                {},
	"lte":               {},
	"neq":               {},
	"object.get":        {},
	"or":                {},
	"regex.match":       {},
	"replace":           {},
	"sort":              {},
	"split":             {},
	"sprintf":           {},
	"startswith":        {},
	"substring":         {},
	"trim":              {},
	"trim_space":        {},
	"union":             {},
	"upper":             {},
}

func filterBuiltins(builtins []*ast.Builtin) []*ast.Builtin {
	allowed := make([]*ast.Builtin, 0, len(allowedBuiltins))
	for _, builtin := range builtins {
		if _, ok := allowedBuiltins[builtin.Name]; ok {
			allowed = append(allowed, builtin)
		}
	}
	return allowed
}
