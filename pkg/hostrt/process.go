// Package hostrt is the process runtime errexplain hooks into. Go has no
// global error or exception handler slots, so Process provides them: an
// error hook fed by Report and the slog bridge, an exception hook fed by
// recovered panics and Throw, and shutdown hooks run by Shutdown and Fatal.
package hostrt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/armorclaw/errexplain/pkg/fault"
)

// ErrorHook receives reported errors. handled=false lets the process print
// the error itself.
type ErrorHook func(ctx context.Context, r fault.Report) (handled bool, err error)

// ExceptionHook receives uncaught panics and thrown errors. A non-nil
// result makes the fault propagate.
type ExceptionHook func(ctx context.Context, err error) error

// ShutdownHook runs when the process shuts down
type ShutdownHook func(ctx context.Context) error

// DefaultSuppressedMask is the reporting mask in effect inside Suppress
const DefaultSuppressedMask = fault.Error | fault.Parse | fault.CoreError | fault.CompileError | fault.UserError | fault.RecoverableError

// FatalExitCode is the status Fatal exits with
const FatalExitCode = 255

const ownPackage = "github.com/armorclaw/errexplain/pkg/hostrt."

// Process holds the hook slots of one runtime. Hooks may be swapped while
// faults are being reported.
type Process struct {
	mu            sync.RWMutex
	errorHook     ErrorHook
	exceptionHook ExceptionHook
	shutdown      []*shutdownEntry
	lastError     *fault.Report

	mask       atomic.Int64
	suppressed fault.Severity

	out  io.Writer
	exit func(int)
}

type shutdownEntry struct {
	hook ShutdownHook
}

// Option configures a Process
type Option func(*Process)

// WithSuppressedMask sets the mask Suppress installs
func WithSuppressedMask(mask fault.Severity) Option {
	return func(p *Process) { p.suppressed = mask }
}

// WithReportingMask sets the initial reporting mask
func WithReportingMask(mask fault.Severity) Option {
	return func(p *Process) { p.mask.Store(int64(mask)) }
}

// WithOutput sets where unhandled faults are printed
func WithOutput(w io.Writer) Option {
	return func(p *Process) { p.out = w }
}

// WithExit replaces os.Exit for Fatal
func WithExit(exit func(int)) Option {
	return func(p *Process) { p.exit = exit }
}

// New creates a Process reporting every severity
func New(opts ...Option) *Process {
	p := &Process{
		suppressed: DefaultSuppressedMask,
		out:        os.Stderr,
		exit:       os.Exit,
	}
	p.mask.Store(int64(fault.All))
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var (
	defaultProcess *Process
	defaultOnce    sync.Once
)

// Default returns the process-wide runtime
func Default() *Process {
	defaultOnce.Do(func() { defaultProcess = New() })
	return defaultProcess
}

// SetErrorHook installs h and returns the hook it replaced
func (p *Process) SetErrorHook(h ErrorHook) ErrorHook {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.errorHook
	p.errorHook = h
	return prev
}

// SetExceptionHook installs h and returns the hook it replaced
func (p *Process) SetExceptionHook(h ExceptionHook) ExceptionHook {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.exceptionHook
	p.exceptionHook = h
	return prev
}

// OnShutdown registers h and returns a function that removes it
func (p *Process) OnShutdown(h ShutdownHook) (remove func()) {
	entry := &shutdownEntry{hook: h}
	p.mu.Lock()
	p.shutdown = append(p.shutdown, entry)
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, e := range p.shutdown {
			if e == entry {
				p.shutdown = append(p.shutdown[:i], p.shutdown[i+1:]...)
				return
			}
		}
	}
}

// ReportingMask returns the severities currently reported
func (p *Process) ReportingMask() fault.Severity {
	return fault.Severity(p.mask.Load())
}

// SetReportingMask replaces the reporting mask and returns the old one
func (p *Process) SetReportingMask(mask fault.Severity) fault.Severity {
	return fault.Severity(p.mask.Swap(int64(mask)))
}

// SuppressedMask is the reporting mask seen by hooks while Suppress runs
func (p *Process) SuppressedMask() fault.Severity {
	return p.suppressed
}

// Suppress runs fn with the reporting mask set to SuppressedMask, the Go
// counterpart of a call-site suppression operator.
func (p *Process) Suppress(fn func()) {
	prev := p.SetReportingMask(p.suppressed)
	defer p.SetReportingMask(prev)
	fn()
}

// LastError returns a copy of the most recently reported error
func (p *Process) LastError() *fault.Report {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.lastError == nil {
		return nil
	}
	r := *p.lastError
	return &r
}

// ClearLastError forgets the last reported error
func (p *Process) ClearLastError() {
	p.mu.Lock()
	p.lastError = nil
	p.mu.Unlock()
}

// Report sends an error to the error hook, located at the caller
func (p *Process) Report(ctx context.Context, sev fault.Severity, message string) error {
	r := fault.Report{Severity: sev, Message: message}
	if _, file, line, ok := runtime.Caller(1); ok {
		r.File, r.Line = file, line
	}
	return p.ReportAt(ctx, r)
}

// ReportAt sends r to the error hook. When no hook handles it the error is
// printed if its severity is in the reporting mask.
func (p *Process) ReportAt(ctx context.Context, r fault.Report) error {
	p.mu.Lock()
	last := r
	p.lastError = &last
	hook := p.errorHook
	p.mu.Unlock()

	if hook != nil {
		handled, err := hook(ctx, r)
		if err != nil {
			return err
		}
		if handled {
			p.mu.Lock()
			if p.lastError == &last {
				last.Handled = true
			}
			p.mu.Unlock()
			return nil
		}
	}
	if p.ReportingMask()&r.Severity != 0 {
		p.printf("%s: %s in %s:%d\n", r.Severity.Label(), r.Message, r.File, r.Line)
	}
	return nil
}

// Throw sends err to the exception hook. Without a hook err is printed and
// returned.
func (p *Process) Throw(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	hook := p.exception()
	if hook == nil {
		p.printf("uncaught %s: %v\n", fault.ClassOf(err), err)
		return err
	}
	return hook(ctx, err)
}

// Guard runs fn and routes a panic to the exception hook. The panic resumes
// with its original value when there is no hook or the hook returns an
// error.
func (p *Process) Guard(ctx context.Context, fn func() error) error {
	defer func() {
		if v := recover(); v != nil {
			p.handlePanic(ctx, v)
		}
	}()
	return fn()
}

// Recover is deferred directly by callers: defer p.Recover(ctx)
func (p *Process) Recover(ctx context.Context) {
	if v := recover(); v != nil {
		p.handlePanic(ctx, v)
	}
}

func (p *Process) handlePanic(ctx context.Context, v any) {
	hook := p.exception()
	if hook == nil {
		panic(v)
	}
	pe := fault.NewPanicError(v, 1)
	pe.Frames = fault.TrimPrefix(pe.Frames, ownPackage)
	if err := hook(ctx, pe); err != nil {
		Repanic(err)
	}
}

// Repanic resumes a panic from an exception hook result: the original panic
// value when err wraps a *fault.PanicError, err itself otherwise.
func Repanic(err error) {
	var pe *fault.PanicError
	if errors.As(err, &pe) {
		panic(pe.Value)
	}
	panic(err)
}

// Shutdown runs the shutdown hooks in registration order
func (p *Process) Shutdown(ctx context.Context) error {
	p.mu.RLock()
	hooks := make([]ShutdownHook, 0, len(p.shutdown))
	for _, e := range p.shutdown {
		hooks = append(hooks, e.hook)
	}
	p.mu.RUnlock()

	var errs []error
	for _, h := range hooks {
		if err := h(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Fatal records a fatal error at the caller, runs the shutdown hooks and
// exits with FatalExitCode.
func (p *Process) Fatal(ctx context.Context, message string) {
	r := fault.Report{Severity: fault.Error, Message: message}
	if _, file, line, ok := runtime.Caller(1); ok {
		r.File, r.Line = file, line
	}
	p.mu.Lock()
	p.lastError = &r
	silent := len(p.shutdown) > 0
	p.mu.Unlock()

	if !silent {
		p.printf("%s: %s in %s:%d\n", r.Severity.Label(), r.Message, r.File, r.Line)
	}
	if err := p.Shutdown(ctx); err != nil {
		p.printf("shutdown: %v\n", err)
	}
	p.exit(FatalExitCode)
}

func (p *Process) exception() ExceptionHook {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exceptionHook
}

func (p *Process) printf(format string, args ...any) {
	if p.out != nil {
		fmt.Fprintf(p.out, format, args...)
	}
}
