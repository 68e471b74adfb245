// Package fault defines the immutable data captured at a hook boundary:
// the kind of fault, its severity, and the call stack that led to it.
package fault

import (
	"strconv"
	"strings"
)

// Kind identifies which hook captured a fault
type Kind string

const (
	KindError     Kind = "error"
	KindException Kind = "exception"
	KindShutdown  Kind = "shutdown"
)

// Severity is a runtime-defined error code. Values are bit flags so they can
// be combined into a reporting mask.
type Severity int

const (
	Error            Severity = 1
	Warning          Severity = 2
	Parse            Severity = 4
	Notice           Severity = 8
	CoreError        Severity = 16
	CoreWarning      Severity = 32
	CompileError     Severity = 64
	CompileWarning   Severity = 128
	UserError        Severity = 256
	UserWarning      Severity = 512
	UserNotice       Severity = 1024
	Strict           Severity = 2048
	RecoverableError Severity = 4096
	Deprecated       Severity = 8192
	UserDeprecated   Severity = 16384

	// All is the mask with every severity enabled
	All Severity = 32767
)

var severityLabels = map[Severity]string{
	Error:            "E_ERROR",
	Warning:          "E_WARNING",
	Parse:            "E_PARSE",
	Notice:           "E_NOTICE",
	CoreError:        "E_CORE_ERROR",
	CoreWarning:      "E_CORE_WARNING",
	CompileError:     "E_COMPILE_ERROR",
	CompileWarning:   "E_COMPILE_WARNING",
	UserError:        "E_USER_ERROR",
	UserWarning:      "E_USER_WARNING",
	UserNotice:       "E_USER_NOTICE",
	Strict:           "E_STRICT",
	RecoverableError: "E_RECOVERABLE_ERROR",
	Deprecated:       "E_DEPRECATED",
	UserDeprecated:   "E_USER_DEPRECATED",
}

// Label returns the stable label for a severity. Unknown values render as
// "E_" followed by the numeric value.
func (s Severity) Label() string {
	if label, ok := severityLabels[s]; ok {
		return label
	}
	return "E_" + strconv.Itoa(int(s))
}

// IsFatal reports whether the severity belongs to the fixed fatal set that a
// shutdown hook acts on.
func (s Severity) IsFatal() bool {
	switch s {
	case Error, Parse, CoreError, CompileError:
		return true
	}
	return false
}

// ParseSeverity maps a label back to its severity
func ParseSeverity(label string) (Severity, bool) {
	label = strings.ToUpper(strings.TrimSpace(label))
	for sev, l := range severityLabels {
		if l == label {
			return sev, true
		}
	}
	return 0, false
}

// Report is the payload of an error hook callback
type Report struct {
	Severity Severity
	Message  string
	File     string
	Line     int

	// Handled is set on the recorded last error once an error hook has
	// explained it
	Handled bool
}

// Event is one captured fault. It is created at the hook boundary and is
// never mutated afterwards.
type Event struct {
	Kind     Kind
	Message  string
	File     string
	Line     int
	Severity Severity // zero when the hook carries no severity
	Trace    []Frame
	// Class is the exception class for KindException events
	Class string
}

// SeverityLabel returns the label of the event severity, or the upper-cased
// kind when no severity was recorded.
func (e Event) SeverityLabel() string {
	if e.Severity == 0 {
		return strings.ToUpper(string(e.Kind))
	}
	return e.Severity.Label()
}
