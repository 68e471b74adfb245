// Package render presents an Explanation as terminal text, JSON or HTML,
// picking the format from the configuration and the execution context.
package render

import (
	"context"
	"io"
	"net/http"
	"os"

	"golang.org/x/term"
)

// Context describes where output goes. A nil Response means a
// command-line-like context.
type Context struct {
	Stdout   io.Writer
	Response http.ResponseWriter
	Request  *http.Request

	Getenv     func(string) string
	IsTerminal func(io.Writer) bool
	ReadFile   func(string) ([]byte, error)
}

// CLI returns the process command-line context
func CLI() Context {
	return Context{}.withDefaults()
}

// HTTP returns a context that answers an HTTP request
func HTTP(w http.ResponseWriter, r *http.Request) Context {
	return Context{Response: w, Request: r}.withDefaults()
}

// IsHTTP reports whether output is an HTTP response
func (c Context) IsHTTP() bool {
	return c.Response != nil
}

// Output is the stream rendered bytes are written to
func (c Context) Output() io.Writer {
	if c.Response != nil {
		return c.Response
	}
	return c.Stdout
}

func (c Context) withDefaults() Context {
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Getenv == nil {
		c.Getenv = os.Getenv
	}
	if c.IsTerminal == nil {
		c.IsTerminal = IsTerminal
	}
	if c.ReadFile == nil {
		c.ReadFile = os.ReadFile
	}
	return c
}

// IsTerminal reports whether w is a file attached to a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

type contextKey struct{}

// WithContext attaches rc to ctx
func WithContext(ctx context.Context, rc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, rc)
}

// FromContext returns the Context attached to ctx, or CLI()
func FromContext(ctx context.Context) Context {
	if rc, ok := ctx.Value(contextKey{}).(Context); ok {
		return rc.withDefaults()
	}
	return CLI()
}
