// Package handler connects errexplain to a runtime: it installs chained
// error, exception and shutdown hooks and drives the explain and render
// pipeline for every captured fault.
package handler

import (
	"context"
	"log/slog"

	"github.com/armorclaw/errexplain/pkg/config"
	"github.com/armorclaw/errexplain/pkg/explain"
	"github.com/armorclaw/errexplain/pkg/fault"
	"github.com/armorclaw/errexplain/pkg/hostrt"
	"github.com/armorclaw/errexplain/pkg/logger"
	"github.com/armorclaw/errexplain/pkg/metrics"
	"github.com/armorclaw/errexplain/pkg/render"
)

// Runtime is the hook surface a Handler attaches to. *hostrt.Process
// implements it.
type Runtime interface {
	SetErrorHook(hostrt.ErrorHook) hostrt.ErrorHook
	SetExceptionHook(hostrt.ExceptionHook) hostrt.ExceptionHook
	OnShutdown(hostrt.ShutdownHook) (remove func())
	ReportingMask() fault.Severity
	SuppressedMask() fault.Severity
	LastError() *fault.Report
}

// Outcome is the result of dispatching one fault
type Outcome int

const (
	// Handled means the fault was explained and rendered
	Handled Outcome = iota
	// Suppressed means the caller silenced the fault
	Suppressed
	// Disabled means errexplain is off and default handling applies
	Disabled
	// Ignored means a shutdown without a fatal error
	Ignored
)

func (o Outcome) String() string {
	switch o {
	case Handled:
		return "handled"
	case Suppressed:
		return "suppressed"
	case Disabled:
		return "disabled"
	case Ignored:
		return "ignored"
	}
	return "unknown"
}

// ReraiseError asks the runtime to propagate Err unchanged. It is returned
// for exceptions while disabled with no previous hook.
type ReraiseError struct {
	Err error
}

func (e *ReraiseError) Error() string { return "reraise: " + e.Err.Error() }

// Unwrap returns the original error
func (e *ReraiseError) Unwrap() error { return e.Err }

// SuppressionPolicy decides whether an error was silenced at its call site
// given the runtime's current and suppressed reporting masks.
type SuppressionPolicy func(current, suppressed fault.Severity, r fault.Report) bool

// MaskEquals treats the fault as suppressed when the current mask is exactly
// the runtime's suppressed mask. It is the default policy.
func MaskEquals(current, suppressed fault.Severity, _ fault.Report) bool {
	return current == suppressed
}

// NotReported treats the fault as suppressed when its severity is outside
// the current mask.
func NotReported(current, _ fault.Severity, r fault.Report) bool {
	return current&r.Severity == 0
}

// ownFrames are dropped from the top of captured stacks
var ownFrames = []string{
	"github.com/armorclaw/errexplain/pkg/handler.",
	"github.com/armorclaw/errexplain/pkg/hostrt.",
	"log/slog.",
}

// Handler runs the pipeline for one resolved configuration. The previous
// hooks it chains to are fixed at construction.
type Handler struct {
	cfg       *config.Config
	rt        Runtime
	builder   *explain.Builder
	renderers *render.Renderers
	log       *logger.Logger
	metrics   *metrics.Metrics
	suppress  SuppressionPolicy

	prevError     hostrt.ErrorHook
	prevException hostrt.ExceptionHook
}

// New creates a Handler chaining to prevError and prevException, which may
// be nil. It installs nothing; Registry.Register does.
func New(cfg *config.Config, rt Runtime, prevError hostrt.ErrorHook, prevException hostrt.ExceptionHook, opts ...Option) *Handler {
	o := collect(opts)
	log := o.logger(cfg)

	builderOpts := []explain.Option{explain.WithLogger(log), explain.WithMetrics(o.metrics)}
	if o.tr != nil {
		builderOpts = append(builderOpts, explain.WithTranslator(o.tr))
	}
	if o.factory != nil {
		builderOpts = append(builderOpts, explain.WithBackendFactory(o.factory))
	}

	return &Handler{
		cfg:           cfg,
		rt:            rt,
		builder:       explain.NewBuilder(builderOpts...),
		renderers:     render.New(o.tr, render.WithLogger(log), render.WithMetrics(o.metrics)),
		log:           log.WithComponent("handler"),
		metrics:       o.metrics,
		suppress:      o.suppress,
		prevError:     prevError,
		prevException: prevException,
	}
}

// Config returns the configuration the handler was built with
func (h *Handler) Config() *config.Config {
	return h.cfg
}

// HandleError processes an error hook callback. A render failure is
// returned; a failing previous hook is not.
func (h *Handler) HandleError(ctx context.Context, r fault.Report) (Outcome, error) {
	kind := string(fault.KindError)
	label := r.Severity.Label()

	if h.suppress(h.rt.ReportingMask(), h.rt.SuppressedMask(), r) {
		h.record(ctx, kind, label, Suppressed)
		return Suppressed, nil
	}
	if !h.cfg.Enabled {
		h.record(ctx, kind, label, Disabled)
		return Disabled, nil
	}

	ev := fault.Event{
		Kind:     fault.KindError,
		Message:  r.Message,
		File:     r.File,
		Line:     r.Line,
		Severity: r.Severity,
		Trace:    capture(),
	}
	err := h.process(ctx, ev, false)
	h.chainError(ctx, r)
	h.record(ctx, kind, label, Handled)
	return Handled, err
}

// HandleException processes an uncaught error or recovered panic. While
// disabled it defers to the previous hook, or returns a *ReraiseError when
// there is none.
func (h *Handler) HandleException(ctx context.Context, err error) (Outcome, error) {
	kind := string(fault.KindException)
	class := fault.ClassOf(err)

	if !h.cfg.Enabled {
		h.record(ctx, kind, class, Disabled)
		if h.prevException != nil {
			return Disabled, h.prevException(ctx, err)
		}
		return Disabled, &ReraiseError{Err: err}
	}

	trace, ok := fault.TraceOf(err)
	if !ok {
		trace = capture()
	}
	ev := fault.Event{
		Kind:    fault.KindException,
		Message: err.Error(),
		Trace:   trace,
		Class:   class,
	}
	if len(trace) > 0 {
		ev.File, ev.Line = trace[0].File, trace[0].Line
	}

	rerr := h.process(ctx, ev, false)
	h.chainException(ctx, err)
	h.record(ctx, kind, class, Handled)
	return Handled, rerr
}

// HandleShutdown explains the last error when it is fatal and was not
// already explained by the error hook. Other shutdowns are ignored.
func (h *Handler) HandleShutdown(ctx context.Context) (Outcome, error) {
	kind := string(fault.KindShutdown)
	last := h.rt.LastError()
	if last == nil || last.Handled || !last.Severity.IsFatal() {
		h.record(ctx, kind, "", Ignored)
		return Ignored, nil
	}
	if !h.cfg.Enabled {
		h.record(ctx, kind, last.Severity.Label(), Disabled)
		return Disabled, nil
	}

	ev := fault.Event{
		Kind:     fault.KindShutdown,
		Message:  last.Message,
		File:     last.File,
		Line:     last.Line,
		Severity: last.Severity,
		Trace:    capture(),
	}
	err := h.process(ctx, ev, true)
	h.record(ctx, kind, last.Severity.Label(), Handled)
	return Handled, err
}

func (h *Handler) process(ctx context.Context, ev fault.Event, shutdown bool) error {
	exp := h.builder.Explain(ctx, ev, h.cfg)
	format, err := h.renderers.Render(ctx, render.Input{
		Explanation: &exp,
		Config:      h.cfg,
		Kind:        ev.Kind,
		Shutdown:    shutdown,
	})
	if err != nil {
		h.log.ErrorEvent(ctx, "render failed", err,
			slog.String("format", format),
			slog.String("explanation_id", exp.ID),
		)
	}
	return err
}

func (h *Handler) chainError(ctx context.Context, r fault.Report) {
	if h.prevError == nil {
		return
	}
	defer func() { _ = recover() }()
	if _, err := h.prevError(ctx, r); err != nil {
		h.log.Debug("previous error hook failed", slog.String("error", err.Error()))
	}
}

func (h *Handler) chainException(ctx context.Context, err error) {
	if h.prevException == nil {
		return
	}
	defer func() { _ = recover() }()
	if perr := h.prevException(ctx, err); perr != nil {
		h.log.Debug("previous exception hook failed", slog.String("error", perr.Error()))
	}
}

func (h *Handler) record(ctx context.Context, kind, label string, outcome Outcome) {
	h.metrics.RecordFault(kind, outcome.String())
	h.log.FaultEvent(ctx, kind, label, outcome.String())
}

// errorHook adapts HandleError to the runtime. Only Disabled lets the
// runtime continue its default handling.
func (h *Handler) errorHook(ctx context.Context, r fault.Report) (bool, error) {
	outcome, err := h.HandleError(ctx, r)
	return outcome != Disabled, err
}

func (h *Handler) exceptionHook(ctx context.Context, err error) error {
	_, herr := h.HandleException(ctx, err)
	return herr
}

func (h *Handler) shutdownHook(ctx context.Context) error {
	_, err := h.HandleShutdown(ctx)
	return err
}

// capture snapshots the stack starting at the first frame outside the hook
// machinery.
func capture() []fault.Frame {
	return fault.TrimPrefix(fault.Capture(1), ownFrames...)
}
