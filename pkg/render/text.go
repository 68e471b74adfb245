package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/armorclaw/errexplain/pkg/config"
	"github.com/armorclaw/errexplain/pkg/highlight"
	"github.com/armorclaw/errexplain/pkg/i18n"
)

// Text renders for a console. Colour is used only outside HTTP, when
// NO_COLOR is unset and FORCE_COLOR is set or stdout is a terminal.
type Text struct {
	Translator i18n.Translator
}

// ContentType implements Renderer
func (*Text) ContentType() string { return "text/plain; charset=utf-8" }

// ColorEnabled applies the console colour rule to rc
func ColorEnabled(rc Context) bool {
	if rc.IsHTTP() {
		return false
	}
	if rc.Getenv != nil {
		if rc.Getenv("NO_COLOR") != "" {
			return false
		}
		if force := rc.Getenv("FORCE_COLOR"); force != "" && force != "0" {
			return true
		}
	}
	return rc.IsTerminal != nil && rc.IsTerminal(rc.Stdout)
}

type palette struct {
	badge  lipgloss.Style
	title  lipgloss.Style
	label  lipgloss.Style
	dim    lipgloss.Style
	marker lipgloss.Style
	bullet lipgloss.Style
	fatal  lipgloss.Style
	tokens map[highlight.Category]lipgloss.Style
}

func newPalette(w io.Writer, color bool, severity string) palette {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	accent := lipgloss.Color("196")
	switch severityClass(severity) {
	case "warning":
		accent = lipgloss.Color("214")
	case "notice":
		accent = lipgloss.Color("39")
	}

	return palette{
		badge:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(accent),
		title:  r.NewStyle().Bold(true).Foreground(accent),
		label:  r.NewStyle().Bold(true),
		dim:    r.NewStyle().Faint(true),
		marker: r.NewStyle().Bold(true).Foreground(accent),
		bullet: r.NewStyle().Foreground(lipgloss.Color("42")),
		fatal:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		tokens: map[highlight.Category]lipgloss.Style{
			highlight.String:       r.NewStyle().Foreground(lipgloss.Color("114")),
			highlight.Comment:      r.NewStyle().Faint(true).Italic(true),
			highlight.Keyword:      r.NewStyle().Foreground(lipgloss.Color("170")).Bold(true),
			highlight.HTML:         r.NewStyle().Foreground(lipgloss.Color("244")),
			highlight.Variable:     r.NewStyle().Foreground(lipgloss.Color("215")),
			highlight.FunctionCall: r.NewStyle().Foreground(lipgloss.Color("75")),
			highlight.MethodCall:   r.NewStyle().Foreground(lipgloss.Color("80")),
		},
	}
}

func (p palette) code(tokens []highlight.Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		if style, ok := p.tokens[tok.Category]; ok {
			sb.WriteString(style.Render(tok.Text))
			continue
		}
		sb.WriteString(tok.Text)
	}
	return sb.String()
}

// Render implements Renderer
func (t *Text) Render(w io.Writer, rc Context, in Input) error {
	exp, cfg := in.Explanation, in.Config
	tr := func(key string, params map[string]string) string {
		return t.Translator.Translate(cfg.Language, key, params)
	}
	p := newPalette(w, ColorEnabled(rc), exp.SeverityLabel)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", p.badge.Render(" "+exp.SeverityLabel+" "), p.title.Render(exp.Title))
	fmt.Fprintf(&b, "%s %s\n", p.label.Render(tr("label.message", nil)+":"), exp.Original.Message)
	if exp.Original.File != "" {
		fmt.Fprintf(&b, "%s %s\n", p.label.Render(tr("label.location", nil)+":"), displayLocation(cfg, exp.Original.File, exp.Original.Line))
	}
	if exp.ExceptionClass != "" {
		fmt.Fprintf(&b, "%s %s\n", p.label.Render(tr("label.exception", nil)+":"), exp.ExceptionClass)
	}
	if exp.Details != "" {
		fmt.Fprintf(&b, "\n%s\n", exp.Details)
	}

	if len(exp.Trace) > 0 {
		fmt.Fprintf(&b, "\n%s\n", p.label.Render(tr("label.trace", nil)))
		for i, f := range exp.Trace[:min(len(exp.Trace), MaxTextFrames)] {
			fmt.Fprintf(&b, "  #%d %s\n", i, f.Signature())
			if f.File == "" {
				continue
			}
			fmt.Fprintf(&b, "     %s\n", p.dim.Render(displayLocation(cfg, f.File, f.Line)))
			for _, l := range Excerpt(rc, f.File, f.Line, ExcerptRadius) {
				gutter := "  "
				if l.Current {
					gutter = p.marker.Render("> ")
				}
				fmt.Fprintf(&b, "     %s%s %s %s\n", gutter, p.dim.Render(pad(l.Number)), p.dim.Render("|"), p.code(l.Tokens))
			}
		}
		if rest := len(exp.Trace) - MaxTextFrames; rest > 0 {
			fmt.Fprintf(&b, "  %s\n", p.dim.Render("... +"+strconv.Itoa(rest)))
		}
	}

	if len(exp.Suggestions) > 0 {
		fmt.Fprintf(&b, "\n%s\n", p.label.Render(tr("label.suggestions", nil)))
		for _, s := range exp.Suggestions {
			fmt.Fprintf(&b, "  %s %s\n", p.bullet.Render("•"), s)
		}
	}

	if in.Shutdown {
		fmt.Fprintf(&b, "\n%s\n", p.fatal.Render(tr("label.shutdown", nil)))
	}

	if cfg.Verbose {
		footer := tr("footer.verbose", map[string]string{
			"language": cfg.Language,
			"backend":  orNone(cfg.Backend),
			"model":    orNone(cfg.Model),
		})
		fmt.Fprintf(&b, "\n%s %s\n", p.dim.Render(tr("label.diagnostics", nil)+":"), p.dim.Render(footer))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func displayLocation(cfg *config.Config, file string, line int) string {
	rel := RelativePath(file, cfg.ProjectRoot)
	if line > 0 {
		rel += ":" + strconv.Itoa(line)
	}
	if link := EditorLink(cfg.EditorURL, file, line, cfg.ProjectRoot, cfg.HostProjectRoot); link != "" {
		rel += "  " + link
	}
	return rel
}

func pad(n int) string {
	return fmt.Sprintf("%4d", n)
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
