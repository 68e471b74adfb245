// Package ai talks to the text-generation providers that enrich an
// explanation. Every adapter is best-effort: any failure yields the empty
// string, and the caller keeps its non-AI explanation.
package ai

import (
	"context"
	"strings"
)

// SystemInstruction is sent to providers that accept a system prompt
const SystemInstruction = "You are an assistant that explains software errors in an educational, concise way. " +
	"Answer with a short diagnosis followed by a bulleted list of concrete fixes."

// Temperature keeps answers close to deterministic
const Temperature = 0.2

// Options carry the per-call provider settings
type Options struct {
	Model  string
	APIKey string
	// APIURL overrides the provider base URL
	APIURL string
}

// Backend generates an explanation for a prompt. The empty string means no
// answer, whatever the reason.
type Backend interface {
	GenerateExplanation(ctx context.Context, prompt string, opts Options) string
}

// Func adapts a function to Backend
type Func func(ctx context.Context, prompt string, opts Options) string

// GenerateExplanation implements Backend
func (f Func) GenerateExplanation(ctx context.Context, prompt string, opts Options) string {
	return f(ctx, prompt, opts)
}

// Blank reports whether a credential or model value is absent: empty, or
// the literal "0" some environments use for unset.
func Blank(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == "0"
}

func baseURL(opts Options, def string) string {
	if Blank(opts.APIURL) {
		return def
	}
	return strings.TrimRight(strings.TrimSpace(opts.APIURL), "/")
}
