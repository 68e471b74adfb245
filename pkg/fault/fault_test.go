package fault

import (
	"errors"
	"strings"
	"testing"
)

func TestSeverityLabel(t *testing.T) {
	tests := []struct {
		sev  Severity
		want string
	}{
		{Error, "E_ERROR"},
		{Warning, "E_WARNING"},
		{Parse, "E_PARSE"},
		{UserDeprecated, "E_USER_DEPRECATED"},
		{RecoverableError, "E_RECOVERABLE_ERROR"},
		{3, "E_3"},
		{99999, "E_99999"},
	}

	for _, tt := range tests {
		if got := tt.sev.Label(); got != tt.want {
			t.Errorf("Severity(%d).Label() = %q, want %q", tt.sev, got, tt.want)
		}
	}
}

func TestSeverityIsFatal(t *testing.T) {
	fatal := []Severity{Error, Parse, CoreError, CompileError}
	for _, s := range fatal {
		if !s.IsFatal() {
			t.Errorf("%s should be fatal", s.Label())
		}
	}
	notFatal := []Severity{Warning, Notice, UserError, RecoverableError, Deprecated, 0}
	for _, s := range notFatal {
		if s.IsFatal() {
			t.Errorf("%s should not be fatal", s.Label())
		}
	}
}

func TestParseSeverity(t *testing.T) {
	sev, ok := ParseSeverity(" e_user_warning ")
	if !ok || sev != UserWarning {
		t.Errorf("ParseSeverity() = %v, %v, want %v, true", sev, ok, UserWarning)
	}
	if _, ok := ParseSeverity("E_NOPE"); ok {
		t.Error("ParseSeverity should reject unknown labels")
	}
}

func TestEventSeverityLabel(t *testing.T) {
	if got := (Event{Kind: KindException}).SeverityLabel(); got != "EXCEPTION" {
		t.Errorf("SeverityLabel() = %q, want EXCEPTION", got)
	}
	if got := (Event{Kind: KindError, Severity: Notice}).SeverityLabel(); got != "E_NOTICE" {
		t.Errorf("SeverityLabel() = %q, want E_NOTICE", got)
	}
}

func TestSplitFunction(t *testing.T) {
	tests := []struct {
		in                  string
		class, callType, fn string
	}{
		{"github.com/acme/app/store.(*DB).Query", "github.com/acme/app/store.DB", CallPointer, "Query"},
		{"github.com/acme/app/store.Config.Validate", "github.com/acme/app/store.Config", CallValue, "Validate"},
		{"main.main", "", "", "main.main"},
		{"main.run.func1", "", "", "main.run.func1"},
		{"github.com/acme/app/store.(*DB).Query.func2", "github.com/acme/app/store.DB", CallPointer, "Query.func2"},
		{"main.gowrap1", "", "", "main.gowrap1"},
		{"noDot", "", "", "noDot"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			class, callType, fn := SplitFunction(tt.in)
			if class != tt.class || callType != tt.callType || fn != tt.fn {
				t.Errorf("SplitFunction(%q) = (%q, %q, %q), want (%q, %q, %q)",
					tt.in, class, callType, fn, tt.class, tt.callType, tt.fn)
			}
		})
	}
}

func TestFrameSignature(t *testing.T) {
	tests := []struct {
		frame Frame
		want  string
	}{
		{Frame{Function: "main.run"}, "main.run"},
		{Frame{Class: "store.DB", CallType: CallPointer, Function: "Query"}, "(*store.DB).Query"},
		{Frame{Class: "store.Config", CallType: CallValue, Function: "Validate"}, "store.Config.Validate"},
	}
	for _, tt := range tests {
		if got := tt.frame.Signature(); got != tt.want {
			t.Errorf("Signature() = %q, want %q", got, tt.want)
		}
	}
}

func captureHere() []Frame {
	return Capture(0)
}

func TestCapture(t *testing.T) {
	frames := captureHere()
	if len(frames) == 0 {
		t.Fatal("Capture returned no frames")
	}
	if !strings.HasSuffix(frames[0].Function, "fault.captureHere") {
		t.Errorf("first frame = %+v, want captureHere", frames[0])
	}
	for _, f := range frames {
		if strings.HasPrefix(f.Function, "runtime.") {
			t.Errorf("runtime frame should be dropped: %+v", f)
		}
	}
}

func TestTrimPrefix(t *testing.T) {
	frames := []Frame{
		{Class: "github.com/armorclaw/errexplain/pkg/handler.Handler", CallType: CallPointer, Function: "HandleError"},
		{Function: "github.com/armorclaw/errexplain/pkg/hostrt.report"},
		{Function: "main.run"},
		{Function: "github.com/armorclaw/errexplain/pkg/hostrt.helper"},
	}

	got := TrimPrefix(frames, "github.com/armorclaw/errexplain/pkg/")
	if len(got) != 2 {
		t.Fatalf("TrimPrefix() kept %d frames, want 2", len(got))
	}
	if got[0].Function != "main.run" {
		t.Errorf("first frame = %q, want main.run", got[0].Function)
	}
}

func TestPanicError(t *testing.T) {
	cause := errors.New("boom")
	pe := NewPanicError(cause, 0)

	if pe.Error() != "boom" {
		t.Errorf("Error() = %q, want boom", pe.Error())
	}
	if !errors.Is(pe, cause) {
		t.Error("errors.Is should see the panic value")
	}
	if len(pe.StackTrace()) == 0 {
		t.Error("PanicError should carry a stack")
	}

	str := &PanicError{Value: "index out of range"}
	if str.Unwrap() != nil {
		t.Error("Unwrap should be nil for non-error values")
	}
	if got := ClassOf(str); got != "string" {
		t.Errorf("ClassOf() = %q, want string", got)
	}
	if got := ClassOf(cause); got != "*errors.errorString" {
		t.Errorf("ClassOf() = %q, want *errors.errorString", got)
	}
	if ClassOf(nil) != "" {
		t.Error("ClassOf(nil) should be empty")
	}
}

func TestTraceOf(t *testing.T) {
	pe := &PanicError{Value: "x", Frames: []Frame{{Function: "main.main"}}}
	wrapped := errors.Join(errors.New("ctx"), pe)

	frames, ok := TraceOf(wrapped)
	if !ok || len(frames) != 1 {
		t.Errorf("TraceOf() = %v, %v, want 1 frame", frames, ok)
	}
	if _, ok := TraceOf(errors.New("plain")); ok {
		t.Error("TraceOf should report false for plain errors")
	}
}
