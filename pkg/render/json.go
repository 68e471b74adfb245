package render

import (
	"encoding/json"
	"io"
)

// JSON renders the explanation as an indented document with HTML and
// Unicode characters left unescaped.
type JSON struct{}

// ContentType implements Renderer
func (JSON) ContentType() string { return "application/json; charset=utf-8" }

// Render implements Renderer
func (JSON) Render(w io.Writer, _ Context, in Input) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(in.Explanation)
}
