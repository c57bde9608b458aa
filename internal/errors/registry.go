package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
	DocURL     string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Tree defects (E200-E299)
	// ============================================

	"E200": {
		Category:   CategoryTree,
		Message:    "Duplicate attribute name",
		Suggestion: "Each attribute name may appear once per element; merge the values before building the node.",
		DocURL:     "https://vango.dev/docs/vdiff/errors/E200",
	},
	"E201": {
		Category:   CategoryTree,
		Message:    "Duplicate list key",
		Suggestion: "Keys must be unique among siblings. Derive them from a stable record id.",
		DocURL:     "https://vango.dev/docs/vdiff/errors/E201",
	},
	"E202": {
		Category:   CategoryTree,
		Message:    "Missing list key",
		Suggestion: "When one child in a list has a key, every sibling needs one.",
		DocURL:     "https://vango.dev/docs/vdiff/errors/E202",
	},
	"E203": {
		Category: CategoryTree,
		Message:  "Unknown node kind",
		DocURL:   "https://vango.dev/docs/vdiff/errors/E203",
	},
	"E204": {
		Category:   CategoryTree,
		Message:    "Duplicate head key",
		Suggestion: "Head entries are addressed by key; use one entry per key.",
		DocURL:     "https://vango.dev/docs/vdiff/errors/E204",
	},
	"E205": {
		Category: CategoryTree,
		Message:  "Invalid tree document",
		DocURL:   "https://vango.dev/docs/vdiff/errors/E205",
	},

	// ============================================
	// Protocol errors (E300-E399)
	// ============================================

	"E300": {
		Category: CategoryProtocol,
		Message:  "Unknown patch operation",
		DocURL:   "https://vango.dev/docs/vdiff/errors/E300",
	},
	"E301": {
		Category: CategoryProtocol,
		Message:  "Malformed batch",
		DocURL:   "https://vango.dev/docs/vdiff/errors/E301",
	},

	// ============================================
	// Host errors (E400-E499)
	// ============================================

	"E400": {
		Category: CategoryHost,
		Message:  "Patch target not found",
		DocURL:   "https://vango.dev/docs/vdiff/errors/E400",
	},
	"E401": {
		Category: CategoryHost,
		Message:  "Malformed markup",
		DocURL:   "https://vango.dev/docs/vdiff/errors/E401",
	},
	"E402": {
		Category:   CategoryHost,
		Message:    "Patch does not apply",
		Suggestion: "The host state diverged from the tree the patches were computed against.",
		DocURL:     "https://vango.dev/docs/vdiff/errors/E402",
	},

	// ============================================
	// Config errors (E500-E599)
	// ============================================

	"E500": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration file",
		Suggestion: "Check vdiff.json for syntax errors.",
		DocURL:     "https://vango.dev/docs/vdiff/errors/E500",
	},
	"E501": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		DocURL:   "https://vango.dev/docs/vdiff/errors/E501",
	},

	// ============================================
	// Transport errors (E600-E699)
	// ============================================

	"E600": {
		Category:   CategoryTransport,
		Message:    "Batch history gap",
		Suggestion: "The host fell too far behind; request a full AddRoot render instead of a replay.",
		DocURL:     "https://vango.dev/docs/vdiff/errors/E600",
	},
	"E601": {
		Category: CategoryTransport,
		Message:  "Archive write failed",
		DocURL:   "https://vango.dev/docs/vdiff/errors/E601",
	},
}

// GetAllCodes returns all registered error codes in sorted order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
