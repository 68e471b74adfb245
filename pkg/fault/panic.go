package fault

import (
	"errors"
	"fmt"
)

// StackTracer is implemented by errors that carry the stack of their origin
type StackTracer interface {
	StackTrace() []Frame
}

// PanicError wraps a recovered panic value together with the stack captured
// while the panic was unwinding.
type PanicError struct {
	Value  any
	Frames []Frame
}

// NewPanicError builds a PanicError for a value returned by recover().
// skip counts frames above the caller that belong to the recovery machinery.
func NewPanicError(value any, skip int) *PanicError {
	return &PanicError{Value: value, Frames: Capture(skip + 1)}
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(e.Value)
}

// Unwrap returns the panic value when it is an error
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// StackTrace implements StackTracer
func (e *PanicError) StackTrace() []Frame {
	return e.Frames
}

// ClassOf returns the exception class of an error: the dynamic type of a
// panic value, or the dynamic type of the error itself.
func ClassOf(err error) string {
	if err == nil {
		return ""
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		return fmt.Sprintf("%T", pe.Value)
	}
	return fmt.Sprintf("%T", err)
}

// TraceOf returns the stack carried by err, if any
func TraceOf(err error) ([]Frame, bool) {
	var st StackTracer
	if errors.As(err, &st) {
		return st.StackTrace(), true
	}
	return nil, false
}
