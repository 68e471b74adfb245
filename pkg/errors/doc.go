// Package errors provides the structured errors errexplain raises about
// itself: configuration problems, broken templates and failed output writes.
//
// # Overview
//
// Faults captured from the host application never become TracedErrors; they
// are explained and rendered. TracedErrors are reserved for the failures the
// operator has to see, so they carry a code, a category and the stack of the
// place that raised them.
//
// # Quick Start
//
//	err := errors.NewBuilder("TPL-001").
//	    WithMessagef("template %q does not exist", path).
//	    WithInput("path", path).
//	    Build()
//
// # Error Codes
//
// Codes follow the format CATEGORY-NUMBER:
//   - CFG-001+: configuration errors
//   - TPL-001+: HTML template errors
//   - RND-001+: renderer output errors
//   - AI-001+: backend selection errors
//
// # Matching
//
// TracedError supports errors.Is against another TracedError with the same
// code, so callers can match on a sentinel:
//
//	if errors.Is(err, errors.ErrTemplateNotFound) { ... }
package errors
