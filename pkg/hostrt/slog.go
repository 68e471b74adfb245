package hostrt

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/armorclaw/errexplain/pkg/fault"
)

// SlogHandler returns a slog.Handler that passes records to next and
// reports those at warn level and above to the error hook: error records as
// E_USER_ERROR, warnings as E_USER_WARNING. A nil next only reports.
func (p *Process) SlogHandler(next slog.Handler) slog.Handler {
	return &slogBridge{p: p, next: next}
}

type slogBridge struct {
	p    *Process
	next slog.Handler
}

func (b *slogBridge) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= slog.LevelWarn {
		return true
	}
	return b.next != nil && b.next.Enabled(ctx, level)
}

func (b *slogBridge) Handle(ctx context.Context, rec slog.Record) error {
	if b.next != nil && b.next.Enabled(ctx, rec.Level) {
		if err := b.next.Handle(ctx, rec); err != nil {
			return err
		}
	}
	if rec.Level < slog.LevelWarn {
		return nil
	}

	r := fault.Report{Severity: fault.UserWarning, Message: rec.Message}
	if rec.Level >= slog.LevelError {
		r.Severity = fault.UserError
	}
	if rec.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{rec.PC}).Next()
		r.File, r.Line = frame.File, frame.Line
	}
	return b.p.ReportAt(ctx, r)
}

func (b *slogBridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	if b.next == nil {
		return b
	}
	return &slogBridge{p: b.p, next: b.next.WithAttrs(attrs)}
}

func (b *slogBridge) WithGroup(name string) slog.Handler {
	if b.next == nil {
		return b
	}
	return &slogBridge{p: b.p, next: b.next.WithGroup(name)}
}
