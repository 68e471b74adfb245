package errors

import "sync"

// ErrorCodeDefinition defines an error code's properties
type ErrorCodeDefinition struct {
	Code     string   `json:"code"`
	Category string   `json:"category"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Help     string   `json:"help"`
}

var (
	registry   = make(map[string]ErrorCodeDefinition)
	registryMu sync.RWMutex
)

var defaultCodes = map[string]ErrorCodeDefinition{
	"CFG-001": {
		Code:     "CFG-001",
		Category: "config",
		Severity: SeverityError,
		Message:  "invalid configuration",
		Help:     "Check the ERREXPLAIN_* environment variables and the config file",
	},
	"CFG-002": {
		Code:     "CFG-002",
		Category: "config",
		Severity: SeverityError,
		Message:  "config file could not be read",
		Help:     "Verify ERREXPLAIN_CONFIG points to a readable TOML or YAML file",
	},
	"TPL-001": {
		Code:     "TPL-001",
		Category: "template",
		Severity: SeverityCritical,
		Message:  "template not found",
		Help:     "Fix the template path or unset ERREXPLAIN_TEMPLATE to use the bundled page",
	},
	"TPL-002": {
		Code:     "TPL-002",
		Category: "template",
		Severity: SeverityCritical,
		Message:  "template execution failed",
		Help:     "The template references fields the view data does not provide",
	},
	"RND-001": {
		Code:     "RND-001",
		Category: "render",
		Severity: SeverityError,
		Message:  "writing rendered output failed",
		Help:     "The output stream was closed before the explanation was written",
	},
	"AI-001": {
		Code:     "AI-001",
		Category: "ai",
		Severity: SeverityWarning,
		Message:  "unknown backend",
		Help:     "Use one of none, local, api, openai, anthropic, google, gemini",
	},
	"PAR-001": {
		Code:     "PAR-001",
		Category: "parse",
		Severity: SeverityError,
		Message:  "no panic found in input",
		Help:     "Pass the stderr of a crashed Go process, starting at the \"panic:\" line",
	},
}

// Sentinels for errors.Is matching
var (
	ErrInvalidConfig    = &TracedError{Code: "CFG-001"}
	ErrConfigRead       = &TracedError{Code: "CFG-002"}
	ErrTemplateNotFound = &TracedError{Code: "TPL-001"}
	ErrTemplateExec     = &TracedError{Code: "TPL-002"}
	ErrOutput           = &TracedError{Code: "RND-001"}
	ErrUnknownBackend   = &TracedError{Code: "AI-001"}
	ErrNoPanic          = &TracedError{Code: "PAR-001"}
)

func init() {
	for code, def := range defaultCodes {
		registry[code] = def
	}
}

// Register adds a new error code to the registry
func Register(def ErrorCodeDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[def.Code] = def
}

// Lookup retrieves an error code definition
func Lookup(code string) ErrorCodeDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if def, ok := registry[code]; ok {
		return def
	}

	return ErrorCodeDefinition{
		Code:     code,
		Category: "unknown",
		Severity: SeverityError,
		Message:  "unknown error",
		Help:     "No additional help available for this error code",
	}
}

// CodesByCategory returns all codes in a given category
func CodesByCategory(category string) []ErrorCodeDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []ErrorCodeDefinition
	for _, def := range registry {
		if def.Category == category {
			result = append(result, def)
		}
	}
	return result
}
