// Package explain turns a captured fault into an Explanation, optionally
// enriched by an AI backend.
package explain

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/armorclaw/errexplain/pkg/fault"
)

// Original is the fault as it was reported
type Original struct {
	Message string `json:"message"`
	File    string `json:"file"`
	Line    int    `json:"line"`
}

// Explanation is the renderer-agnostic description of one fault. Title is
// never empty and Suggestions holds no duplicates.
type Explanation struct {
	ID             string        `json:"id"`
	Kind           fault.Kind    `json:"kind"`
	Title          string        `json:"title"`
	Details        string        `json:"details"`
	Suggestions    []string      `json:"suggestions"`
	SeverityLabel  string        `json:"severityLabel"`
	Original       Original      `json:"original"`
	Trace          []fault.Frame `json:"trace"`
	ExceptionClass string        `json:"exceptionClass,omitempty"`

	// Enriched is true when an AI answer was merged in
	Enriched bool `json:"enriched"`
}

// Location renders "file:line", or "" when the file is unknown
func (e *Explanation) Location() string {
	return location(e.Original.File, e.Original.Line)
}

// AddSuggestion appends s unless it is blank or already present
func (e *Explanation) AddSuggestion(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, have := range e.Suggestions {
		if have == s {
			return false
		}
	}
	e.Suggestions = append(e.Suggestions, s)
	return true
}

var bulletRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)

// ParseSuggestions returns the dash, star or numbered bullet lines of text
// with their prefixes removed, in order and without duplicates.
func ParseSuggestions(text string) []string {
	var e Explanation
	for _, line := range strings.Split(text, "\n") {
		if m := bulletRe.FindStringSubmatch(strings.TrimRight(line, "\r")); m != nil {
			e.AddSuggestion(m[1])
		}
	}
	return e.Suggestions
}

// NormalizeFrames copies frames, coercing missing values to their zero form
func NormalizeFrames(frames []fault.Frame) []fault.Frame {
	out := make([]fault.Frame, 0, len(frames))
	for _, f := range frames {
		f.File = strings.TrimSpace(f.File)
		f.Function = strings.TrimSpace(f.Function)
		if f.Line < 0 {
			f.Line = 0
		}
		if f.Class == "" {
			f.CallType = ""
		}
		if len(f.Args) > 0 {
			f.Args = append([]any(nil), f.Args...)
		}
		out = append(out, f)
	}
	return out
}

func location(file string, line int) string {
	if file == "" {
		return ""
	}
	if line <= 0 {
		return file
	}
	return file + ":" + strconv.Itoa(line)
}
