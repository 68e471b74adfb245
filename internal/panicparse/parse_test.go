package panicparse

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armorclaw/errexplain/pkg/errors"
	"github.com/armorclaw/errexplain/pkg/fault"
)

const nilMapDump = `2026/10/14 09:12:01 starting worker
panic: assignment to entry in nil map

goroutine 1 [running]:
main.(*Cache).Put(0xc000012345, {0x4b2c1e, 0x3}, 0x1)
	/home/dev/app/cache.go:27 +0x4d
main.run(...)
	/home/dev/app/main.go:14
main.main()
	/home/dev/app/main.go:9 +0x25

goroutine 6 [select]:
main.background()
	/home/dev/app/bg.go:3 +0x11
exit status 2
`

func TestParseNilMap(t *testing.T) {
	d, err := Parse(strings.NewReader(nilMapDump))
	require.NoError(t, err)

	assert.Equal(t, "assignment to entry in nil map", d.Message)
	assert.Equal(t, ClassPanic, d.Class)
	assert.Equal(t, 1, d.Goroutine)
	assert.False(t, d.Recovered)
	assert.False(t, d.Fatal)

	want := []fault.Frame{
		{File: "/home/dev/app/cache.go", Line: 27, Class: "main.Cache", CallType: fault.CallPointer, Function: "Put"},
		{File: "/home/dev/app/main.go", Line: 14, Function: "main.run"},
		{File: "/home/dev/app/main.go", Line: 9, Function: "main.main"},
	}
	if diff := cmp.Diff(want, d.Frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

const runtimeErrorDump = `panic: runtime error: invalid memory address or nil pointer dereference [recovered]
	panic: runtime error: invalid memory address or nil pointer dereference
[signal SIGSEGV: segmentation violation code=0x1 addr=0x0 pc=0x48f1a2]

goroutine 21 [running]:
panic({0x4d5e40?, 0x5f7a10?})
	/usr/local/go/src/runtime/panic.go:785 +0x132
github.com/acme/shop/store.OrderRepo.Find({0x0, 0x0}, 0x7)
	/srv/shop/store/orders.go:88 +0x22
github.com/acme/shop/api.handler.func1()
	/srv/shop/api/handler.go:40 +0x3a
created by github.com/acme/shop/api.Serve in goroutine 1
	/srv/shop/api/serve.go:12 +0x9c
`

func TestParseRecoveredRuntimeError(t *testing.T) {
	d, err := Parse(strings.NewReader(runtimeErrorDump))
	require.NoError(t, err)

	assert.Equal(t, "runtime error: invalid memory address or nil pointer dereference", d.Message)
	assert.Equal(t, ClassRuntimeError, d.Class)
	assert.True(t, d.Recovered)
	assert.Equal(t, 21, d.Goroutine)

	require.Len(t, d.Frames, 2)
	assert.Equal(t, "github.com/acme/shop/store.OrderRepo", d.Frames[0].Class)
	assert.Equal(t, fault.CallValue, d.Frames[0].CallType)
	assert.Equal(t, "Find", d.Frames[0].Function)
	assert.Equal(t, "github.com/acme/shop/api.handler.func1", d.Frames[1].Function)

	require.NotNil(t, d.CreatedBy)
	assert.Equal(t, "github.com/acme/shop/api.Serve", d.CreatedBy.Function)
	assert.Equal(t, 12, d.CreatedBy.Line)
}

func TestParseTypedValue(t *testing.T) {
	dump := "panic: (main.ErrCode) 0x2a\n\ngoroutine 1 [running]:\nmain.main()\n\t/app/main.go:5 +0x1\n"
	d, err := Parse(strings.NewReader(dump))
	require.NoError(t, err)
	assert.Equal(t, "main.ErrCode", d.Class)
	assert.Equal(t, "0x2a", d.Message)
}

func TestParseFatalError(t *testing.T) {
	dump := "fatal error: all goroutines are asleep - deadlock!\n\ngoroutine 1 [chan receive]:\nmain.main()\n\t/app/main.go:8 +0x2d\nexit status 2\n"
	d, err := Parse(strings.NewReader(dump))
	require.NoError(t, err)
	assert.True(t, d.Fatal)
	assert.Equal(t, "all goroutines are asleep - deadlock!", d.Message)

	ev := d.Event()
	assert.Equal(t, fault.KindShutdown, ev.Kind)
	assert.Equal(t, fault.Error, ev.Severity)
	assert.Equal(t, "E_ERROR", ev.SeverityLabel())
	assert.Equal(t, "/app/main.go", ev.File)
	assert.Equal(t, 8, ev.Line)
}

func TestEvent(t *testing.T) {
	d, err := Parse(strings.NewReader(nilMapDump))
	require.NoError(t, err)

	ev := d.Event()
	assert.Equal(t, fault.KindException, ev.Kind)
	assert.Equal(t, "EXCEPTION", ev.SeverityLabel())
	assert.Equal(t, ClassPanic, ev.Class)
	assert.Equal(t, "/home/dev/app/cache.go", ev.File)
	assert.Equal(t, 27, ev.Line)

	ev.Trace[0].Line = 0
	assert.Equal(t, 27, d.Frames[0].Line, "event trace must not alias the dump")
}

func TestParseNoPanic(t *testing.T) {
	for _, input := range []string{"", "all good\nexit status 0\n", "goroutine 1 [running]:\nmain.main()\n"} {
		_, err := Parse(strings.NewReader(input))
		assert.True(t, stderrors.Is(err, errors.ErrNoPanic), "input %q", input)
	}
}

func TestStripArgs(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"main.main()", "main.main"},
		{"main.(*S).run(0xc0000, {0x1, 0x2})", "main.(*S).run"},
		{"main.run(...)", "main.run"},
		{"main.Map[...](0x1)", "main.Map[...]"},
		{"main.noargs", "main.noargs"},
	}
	for _, tt := range tests {
		if got := stripArgs(tt.in); got != tt.want {
			t.Errorf("stripArgs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in   string
		file string
		line int
	}{
		{"/app/main.go:42 +0x1d", "/app/main.go", 42},
		{"/app/main.go:7", "/app/main.go", 7},
		{"C:/work/app/main.go:3 +0x5", "C:/work/app/main.go", 3},
		{"?", "?", 0},
	}
	for _, tt := range tests {
		file, line := parseLocation(tt.in)
		if file != tt.file || line != tt.line {
			t.Errorf("parseLocation(%q) = %q, %d; want %q, %d", tt.in, file, line, tt.file, tt.line)
		}
	}
}
