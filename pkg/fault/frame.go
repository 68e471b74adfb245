package fault

import (
	"runtime"
	"strings"
	"unicode"
)

// Receiver kinds stored in Frame.CallType
const (
	CallPointer = "pointer"
	CallValue   = "value"
)

// Frame is a single entry in a captured call stack
type Frame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Class    string `json:"class,omitempty"`
	CallType string `json:"type,omitempty"`
	Function string `json:"function"`
	Args     []any  `json:"args,omitempty"`
}

// Signature renders the frame the way Go prints function names
func (f Frame) Signature() string {
	switch {
	case f.Class == "":
		return f.Function
	case f.CallType == CallPointer:
		return "(*" + f.Class + ")." + f.Function
	default:
		return f.Class + "." + f.Function
	}
}

// SplitFunction splits a runtime function name such as
// "github.com/acme/app/store.(*DB).Query" into the receiver class, receiver
// kind and function name. Free functions keep their package-qualified name
// and return an empty class.
func SplitFunction(full string) (class, callType, function string) {
	slash := strings.LastIndex(full, "/")
	dot := strings.Index(full[slash+1:], ".")
	if dot < 0 {
		return "", "", full
	}
	dot += slash + 1
	pkg, rest := full[:dot], full[dot+1:]

	if strings.HasPrefix(rest, "(*") {
		if end := strings.Index(rest, ")."); end > 0 {
			return pkg + "." + rest[2:end], CallPointer, rest[end+2:]
		}
	}

	recv, method, ok := strings.Cut(rest, ".")
	if !ok || !isValueReceiver(recv, method) {
		return "", "", full
	}
	return pkg + "." + recv, CallValue, method
}

// isValueReceiver tells "T.Method" apart from closures like "run.func1" and
// compiler wrappers like "main.gowrap1".
func isValueReceiver(recv, method string) bool {
	if recv == "" || method == "" {
		return false
	}
	if strings.HasPrefix(method, "func") || strings.Contains(method, "wrap") {
		return false
	}
	if strings.HasPrefix(recv, "init") || strings.HasPrefix(recv, "glob") {
		return false
	}
	r := []rune(recv)[0]
	return unicode.IsLetter(r) || r == '_'
}

// Capture snapshots the current goroutine stack. skip=0 starts at the caller
// of Capture. Runtime internals are dropped.
func Capture(skip int) []Frame {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}
	return FromPCs(pcs[:n])
}

// FromPCs converts program counters into frames, stopping after main.main
func FromPCs(pcs []uintptr) []Frame {
	var frames []Frame
	callers := runtime.CallersFrames(pcs)
	for {
		rf, more := callers.Next()
		if !strings.HasPrefix(rf.Function, "runtime.") {
			class, callType, fn := SplitFunction(rf.Function)
			frames = append(frames, Frame{
				File:     rf.File,
				Line:     rf.Line,
				Class:    class,
				CallType: callType,
				Function: fn,
			})
		}
		if rf.Function == "main.main" || !more {
			break
		}
	}
	return frames
}

// TrimPrefix drops the leading frames whose package path starts with one of
// the given prefixes, so a stack begins at the first caller frame. Frames
// deeper in the stack are kept even when they match.
func TrimPrefix(frames []Frame, prefixes ...string) []Frame {
	i := 0
	for ; i < len(frames); i++ {
		if !ownedBy(frames[i], prefixes) {
			break
		}
	}
	return frames[i:]
}

func ownedBy(f Frame, prefixes []string) bool {
	name := f.Function
	if f.Class != "" {
		name = f.Class
	}
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
