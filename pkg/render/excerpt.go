package render

import (
	"github.com/armorclaw/errexplain/pkg/highlight"
)

// Excerpt radius and frame limits shared by the text and HTML renderers
const (
	ExcerptRadius = 2
	MaxTextFrames = 5
)

// ExcerptLine is one source line around a faulting line
type ExcerptLine struct {
	Number  int
	Tokens  []highlight.Token
	Current bool
}

// Excerpt returns the lines within radius of line in file, tokenized for the
// file type. It returns nil when the file cannot be read.
func Excerpt(rc Context, file string, line, radius int) []ExcerptLine {
	if file == "" || line <= 0 || rc.ReadFile == nil {
		return nil
	}
	src, err := rc.ReadFile(file)
	if err != nil {
		return nil
	}

	lo, hi := max(line-radius, 1), line+radius
	var out []ExcerptLine
	for n, tokens := range highlight.Lines(highlight.ForFile(file)(string(src))) {
		if n < lo {
			continue
		}
		if n > hi {
			break
		}
		out = append(out, ExcerptLine{Number: n, Tokens: tokens, Current: n == line})
	}
	return out
}
