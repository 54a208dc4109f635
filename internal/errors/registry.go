package errors

import "sort"

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// Configuration (R100-R199)

	"R100": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create routefilter.json or pass --config",
	},
	"R101": {
		Category:   CategoryConfig,
		Message:    "Configuration is not valid JSON",
		Suggestion: "Check for trailing commas and unquoted keys",
	},
	"R102": {
		Category:   CategoryConfig,
		Message:    "Unknown hook type",
		Suggestion: `Use one of "log", "deny" or "gate"`,
	},
	"R103": {
		Category:   CategoryConfig,
		Message:    "Duplicate route pattern",
		Suggestion: "Each pattern may appear once in routes; later entries take precedence at match time",
	},
	"R104": {
		Category:   CategoryConfig,
		Message:    "Invalid route pattern",
		Suggestion: "Patterns use :name for a segment, *name for a splat and ( ) for optional parts",
	},
	"R105": {
		Category:   CategoryConfig,
		Message:    "Route has no handler",
		Suggestion: `Give every route a "handler" name`,
	},
	"R106": {
		Category:   CategoryConfig,
		Message:    "Hook registry sets both all and routes",
		Suggestion: `Use "all" for one hook on every route or "routes" for hooks keyed by pattern`,
	},
	"R107": {
		Category:   CategoryConfig,
		Message:    "Invalid log settings",
		Suggestion: `Level is one of debug, info, warn, error; format is "text" or "json"`,
	},
	"R108": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration location",
		Suggestion: "Use a file path or s3://bucket/key",
	},
	"R109": {
		Category:   CategoryConfig,
		Message:    "Failed to fetch remote configuration",
		Suggestion: "Check AWS_REGION and credentials, and that the object exists",
	},
	"R110": {
		Category:   CategoryConfig,
		Message:    "Invalid server settings",
		Suggestion: `metrics_path must start with "/" and events_origins entries look like "https://example.com" or "*"`,
	},
	"R111": {
		Category:   CategoryConfig,
		Message:    "Invalid hook settings",
		Suggestion: "deny hooks need a non-negative param index and at least one value",
	},

	// Navigation (R200-R299)

	"R200": {
		Category:   CategoryNavigation,
		Message:    "No route matches fragment",
		Suggestion: "Run 'routefilter routes' to list the route table",
	},
	"R201": {
		Category:   CategoryNavigation,
		Message:    "Unknown handler",
		Suggestion: "Handler names in routes must be registered before use",
	},
	"R202": {
		Category: CategoryNavigation,
		Message:  "Dispatch failed",
	},
	"R203": {
		Category:   CategoryNavigation,
		Message:    "Invalid fragment",
		Suggestion: "Fragments may not contain backslashes or NUL bytes",
	},

	// Server (R300-R399)

	"R300": {
		Category:   CategoryServer,
		Message:    "Server failed",
		Suggestion: "Check that the address is free",
	},

	// CLI (R900-R999)

	"R900": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
	},
}

// Lookup returns the template for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns all registered codes in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
