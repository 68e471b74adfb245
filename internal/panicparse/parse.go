// Package panicparse reads the crash output of a Go program, the
// "panic: ..." message followed by goroutine stacks, and turns the panicking
// goroutine into a fault.Event.
package panicparse

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/armorclaw/errexplain/pkg/errors"
	"github.com/armorclaw/errexplain/pkg/fault"
)

// Class values for dumps that carry no concrete type
const (
	ClassPanic        = "panic"
	ClassRuntimeError = "runtime.Error"
	ClassFatal        = "fatal error"
)

// Dump is a parsed crash
type Dump struct {
	// Message is the innermost panic message, or the fatal error text
	Message string
	Class   string

	// Recovered is set when a panic was recovered and re-raised
	Recovered bool

	// Fatal is set for unrecoverable runtime errors such as deadlocks
	Fatal bool

	// Goroutine is the id of the goroutine whose stack was captured
	Goroutine int

	// Frames is the captured stack with runtime internals removed
	Frames []fault.Frame

	// CreatedBy is the frame that started the goroutine, when printed
	CreatedBy *fault.Frame
}

// Event converts the dump to a fault event. Fatal errors become shutdown
// events with an E_ERROR severity.
func (d *Dump) Event() fault.Event {
	ev := fault.Event{
		Kind:    fault.KindException,
		Message: d.Message,
		Class:   d.Class,
		Trace:   append([]fault.Frame(nil), d.Frames...),
	}
	if d.Fatal {
		ev.Kind = fault.KindShutdown
		ev.Severity = fault.Error
		ev.Class = ""
	}
	if len(d.Frames) > 0 {
		ev.File, ev.Line = d.Frames[0].File, d.Frames[0].Line
	}
	return ev
}

// Parse reads crash output from r. Text before the first "panic:" or
// "fatal error:" line is skipped. The first goroutine block after the
// message is the one captured.
func Parse(r io.Reader) (*Dump, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		d        *Dump
		inStack  bool
		done     bool
		function string
	)
	for sc.Scan() && !done {
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case inStack:
			if trimmed == "" {
				inStack, done = false, len(d.Frames) > 0 || d.CreatedBy != nil
				continue
			}
			if strings.HasPrefix(line, "\t") {
				if function == "" {
					continue
				}
				file, ln := parseLocation(trimmed)
				d.addFrame(function, file, ln)
				function = ""
				continue
			}
			function = trimmed

		case d == nil:
			if msg, ok := strings.CutPrefix(trimmed, "panic: "); ok {
				d = &Dump{}
				d.setMessage(msg)
			} else if msg, ok := strings.CutPrefix(trimmed, "fatal error: "); ok {
				d = &Dump{Message: msg, Class: ClassFatal, Fatal: true}
			}

		default:
			if msg, ok := strings.CutPrefix(trimmed, "panic: "); ok && !d.Fatal {
				d.setMessage(msg)
				continue
			}
			if id, ok := goroutineHeader(trimmed); ok {
				d.Goroutine = id
				inStack = true
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.NewBuilder("PAR-001").Wrap(err).Build()
	}
	if d == nil {
		return nil, errors.NewBuilder("PAR-001").Build()
	}
	return d, nil
}

// setMessage records a panic line. Later lines are re-panics and replace the
// message.
func (d *Dump) setMessage(msg string) {
	if i := strings.Index(msg, " [recovered"); i >= 0 && strings.HasSuffix(msg, "]") {
		d.Recovered = true
		msg = msg[:i]
	}
	d.Class = ClassPanic
	switch {
	case strings.HasPrefix(msg, "runtime error: "):
		d.Class = ClassRuntimeError
	case strings.HasPrefix(msg, "("):
		// non-error values print as "(pkg.T) value"
		if end := strings.Index(msg, ") "); end > 1 {
			d.Class = msg[1:end]
			msg = msg[end+2:]
		}
	}
	d.Message = msg
}

func (d *Dump) addFrame(function, file string, line int) {
	if name, ok := strings.CutPrefix(function, "created by "); ok {
		if i := strings.Index(name, " in goroutine "); i >= 0 {
			name = name[:i]
		}
		f := newFrame(name, file, line)
		d.CreatedBy = &f
		return
	}
	name := stripArgs(function)
	if isRuntime(name, file) {
		return
	}
	d.Frames = append(d.Frames, newFrame(name, file, line))
}

func newFrame(name, file string, line int) fault.Frame {
	class, callType, fn := fault.SplitFunction(name)
	return fault.Frame{File: file, Line: line, Class: class, CallType: callType, Function: fn}
}

// isRuntime reports frames raised inside the runtime itself, such as
// runtime.gopanic which newer toolchains print as "panic".
func isRuntime(name, file string) bool {
	if strings.HasPrefix(name, "runtime.") {
		return true
	}
	return name == "panic" && strings.Contains(file, "/runtime/")
}

// goroutineHeader matches "goroutine 7 [running]:"
func goroutineHeader(s string) (int, bool) {
	rest, ok := strings.CutPrefix(s, "goroutine ")
	if !ok || !strings.HasSuffix(rest, ":") {
		return 0, false
	}
	idText, _, ok := strings.Cut(rest, " ")
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(idText)
	if err != nil {
		return 0, false
	}
	return id, true
}

// stripArgs removes the trailing argument list, keeping receiver parentheses
// such as "(*Server)".
func stripArgs(function string) string {
	if !strings.HasSuffix(function, ")") {
		return function
	}
	depth := 0
	for i := len(function) - 1; i >= 0; i-- {
		switch function[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return function[:i]
			}
		}
	}
	return function
}

// parseLocation splits "/src/app/main.go:42 +0x1d"
func parseLocation(s string) (string, int) {
	if i := strings.LastIndex(s, " +0x"); i >= 0 {
		s = s[:i]
	}
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	line, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return s, 0
	}
	return s[:i], line
}
