package ai

import (
	"strings"

	"github.com/armorclaw/errexplain/pkg/errors"
)

// Canonical maps a backend id to its adapter name: api becomes openai and
// gemini becomes google. Unknown ids are returned lower-cased.
func Canonical(id string) string {
	switch id = strings.ToLower(strings.TrimSpace(id)); id {
	case "api":
		return "openai"
	case "gemini":
		return "google"
	case "":
		return "none"
	}
	return id
}

// New returns the adapter for a backend id. The none backend yields a nil
// Backend and no error.
func New(id string, opts ...ClientOption) (Backend, error) {
	switch Canonical(id) {
	case "none":
		return nil, nil
	case "local":
		return NewLocal(opts...), nil
	case "openai":
		return NewOpenAI(opts...), nil
	case "anthropic":
		return NewAnthropic(opts...), nil
	case "google":
		return NewGoogle(opts...), nil
	}
	return nil, errors.NewBuilder("AI-001").
		WithMessagef("unknown backend %q", id).
		WithInput("backend", id).
		Build()
}

// Factory builds a backend by id; New is the default
type Factory func(id string) (Backend, error)
