package errors

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/armorclaw/errexplain/pkg/fault"
)

// Severity levels for errors
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// TracedError is a structured error with the context needed to fix it
type TracedError struct {
	// Identification
	Code     string `json:"code"`
	Category string `json:"category"`
	TraceID  string `json:"trace_id"`

	Severity Severity `json:"severity"`

	Message  string `json:"message"`
	Help     string `json:"help,omitempty"`
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`

	Inputs map[string]interface{} `json:"inputs,omitempty"`
	Stack  []fault.Frame          `json:"stack,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	cause error `json:"-"`
}

// Error implements the error interface
func (e *TracedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *TracedError) Unwrap() error {
	return e.cause
}

// Is matches any TracedError carrying the same code
func (e *TracedError) Is(target error) bool {
	t, ok := target.(*TracedError)
	return ok && t.Code == e.Code
}

// FormatSummary returns a one-paragraph, human-readable summary
func (e *TracedError) FormatSummary() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s %s: %s", strings.ToUpper(string(e.Severity)), e.Code, e.Message))
	if e.cause != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.cause))
	}
	sb.WriteString("\n")
	if e.File != "" {
		sb.WriteString(fmt.Sprintf("Location: %s @ %s:%d\n", e.Function, e.File, e.Line))
	}
	if e.Help != "" {
		sb.WriteString("Help: " + e.Help + "\n")
	}
	return sb.String()
}

// FormatJSON returns the full trace as formatted JSON
func (e *TracedError) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ErrorBuilder constructs TracedError instances with fluent API
type ErrorBuilder struct {
	err *TracedError
}

var (
	traceIDCounter uint64
	traceIDMu      sync.Mutex
)

func generateTraceID() string {
	traceIDMu.Lock()
	defer traceIDMu.Unlock()
	traceIDCounter++
	return fmt.Sprintf("tr_%x_%d", time.Now().UnixNano(), traceIDCounter)
}

// NewBuilder creates a new error builder for the given code
func NewBuilder(code string) *ErrorBuilder {
	pc, file, line, _ := runtime.Caller(1)
	fn := ""
	if f := runtime.FuncForPC(pc); f != nil {
		fn = f.Name()
	}

	def := Lookup(code)

	return &ErrorBuilder{
		err: &TracedError{
			Code:      code,
			Category:  def.Category,
			Severity:  def.Severity,
			Message:   def.Message,
			Help:      def.Help,
			TraceID:   generateTraceID(),
			Timestamp: time.Now(),
			Function:  fn,
			File:      file,
			Line:      line,
			Inputs:    make(map[string]interface{}),
			Stack:     fault.Capture(1),
		},
	}
}

// Wrap wraps an existing error with this code
func (b *ErrorBuilder) Wrap(cause error) *ErrorBuilder {
	b.err.cause = cause
	if b.err.Message == "" && cause != nil {
		b.err.Message = cause.Error()
	}
	return b
}

// WithMessage sets a custom message
func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err.Message = msg
	return b
}

// WithMessagef sets a formatted custom message
func (b *ErrorBuilder) WithMessagef(format string, args ...interface{}) *ErrorBuilder {
	b.err.Message = fmt.Sprintf(format, args...)
	return b
}

// WithSeverity overrides the default severity
func (b *ErrorBuilder) WithSeverity(sev Severity) *ErrorBuilder {
	b.err.Severity = sev
	return b
}

// WithInput adds a single input parameter
func (b *ErrorBuilder) WithInput(key string, value interface{}) *ErrorBuilder {
	b.err.Inputs[key] = value
	return b
}

// Build creates the final TracedError
func (b *ErrorBuilder) Build() *TracedError {
	if len(b.err.Inputs) == 0 {
		b.err.Inputs = nil
	}
	return b.err
}

// New creates a new traced error with just a code and message
func New(code, message string) *TracedError {
	return NewBuilder(code).WithMessage(message).Build()
}

// Newf creates a new traced error with formatted message
func Newf(code, format string, args ...interface{}) *TracedError {
	return NewBuilder(code).WithMessagef(format, args...).Build()
}

// Wrap wraps an error with a code
func Wrap(code string, cause error) *TracedError {
	return NewBuilder(code).Wrap(cause).Build()
}
