package render

import (
	"embed"
	"html"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/armorclaw/errexplain/pkg/errors"
	"github.com/armorclaw/errexplain/pkg/highlight"
	"github.com/armorclaw/errexplain/pkg/i18n"
)

// EnvTemplate overrides the bundled page when the configuration names none
const EnvTemplate = "ERREXPLAIN_TEMPLATE"

//go:embed templates/page.html.tmpl
var bundledTemplates embed.FS

const bundledPage = "templates/page.html.tmpl"

// HTML renders a page through html/template
type HTML struct {
	Translator i18n.Translator
}

// View is the data a page template receives
type View struct {
	ID             string
	Kind           string
	Severity       string
	SeverityClass  string
	Title          string
	Details        string
	Message        string
	Location       string
	ExceptionClass string
	Suggestions    []string
	Frames         []FrameView
	Shutdown       bool
	Verbose        bool
	Footer         string
	Labels         map[string]string
}

// FrameView is one stack frame of a View
type FrameView struct {
	Index        int
	Signature    string
	File         string
	Line         int
	RelativePath string
	Location     string
	EditorLink   template.URL
	Excerpt      template.HTML
}

// ContentType implements Renderer
func (*HTML) ContentType() string { return "text/html; charset=utf-8" }

// TemplatePath resolves the page template: the configured path, then
// ERREXPLAIN_TEMPLATE, then "" for the bundled page.
func TemplatePath(configured string, rc Context) string {
	if configured != "" {
		return configured
	}
	if rc.Getenv != nil {
		return rc.Getenv(EnvTemplate)
	}
	return ""
}

func (h *HTML) load(rc Context, path string) (*template.Template, error) {
	var (
		src []byte
		err error
		name = "page"
	)
	if path == "" {
		src, err = bundledTemplates.ReadFile(bundledPage)
	} else {
		name = path
		src, err = rc.ReadFile(path)
	}
	if err != nil {
		return nil, errors.NewBuilder("TPL-001").
			Wrap(err).
			WithMessagef("template %q not found", path).
			WithInput("path", path).
			Build()
	}

	tmpl, err := template.New(name).Parse(string(src))
	if err != nil {
		return nil, errors.NewBuilder("TPL-002").
			Wrap(err).
			WithMessagef("template %q does not parse", name).
			WithInput("path", path).
			Build()
	}
	return tmpl, nil
}

// Render implements Renderer
func (h *HTML) Render(w io.Writer, rc Context, in Input) error {
	path := TemplatePath(in.Config.Template, rc)
	tmpl, err := h.load(rc, path)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(w, h.view(rc, in)); err != nil {
		return errors.NewBuilder("TPL-002").
			Wrap(err).
			WithMessage("template execution failed").
			WithInput("path", path).
			Build()
	}
	return nil
}

func (h *HTML) view(rc Context, in Input) View {
	exp, cfg := in.Explanation, in.Config
	tr := func(key string) string { return h.Translator.Translate(cfg.Language, key, nil) }

	v := View{
		ID:             exp.ID,
		Kind:           string(in.Kind),
		Severity:       exp.SeverityLabel,
		SeverityClass:  severityClass(exp.SeverityLabel),
		Title:          exp.Title,
		Details:        exp.Details,
		Message:        exp.Original.Message,
		ExceptionClass: exp.ExceptionClass,
		Suggestions:    exp.Suggestions,
		Shutdown:       in.Shutdown,
		Verbose:        cfg.Verbose,
		Labels:         map[string]string{},
	}
	if exp.Original.File != "" {
		v.Location = RelativePath(exp.Original.File, cfg.ProjectRoot) + lineSuffix(exp.Original.Line)
	}
	for _, key := range []string{"message", "location", "trace", "suggestions", "exception", "diagnostics", "open_editor", "shutdown"} {
		v.Labels[key] = tr("label." + key)
	}
	if cfg.Verbose {
		v.Footer = h.Translator.Translate(cfg.Language, "footer.verbose", map[string]string{
			"language": cfg.Language,
			"backend":  orNone(cfg.Backend),
			"model":    orNone(cfg.Model),
		})
	}

	for i, f := range exp.Trace {
		rel := RelativePath(f.File, cfg.ProjectRoot)
		v.Frames = append(v.Frames, FrameView{
			Index:        i,
			Signature:    f.Signature(),
			File:         f.File,
			Line:         f.Line,
			RelativePath: rel,
			Location:     rel + lineSuffix(f.Line),
			// operator-configured deep links may use custom schemes
			EditorLink: template.URL(EditorLink(cfg.EditorURL, f.File, f.Line, cfg.ProjectRoot, cfg.HostProjectRoot)),
			Excerpt:    excerptTable(Excerpt(rc, f.File, f.Line, ExcerptRadius)),
		})
	}
	return v
}

// excerptTable renders an excerpt as a table with one highlighted row for
// the faulting line. Token text is escaped; categories become CSS classes.
func excerptTable(lines []ExcerptLine) template.HTML {
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<table class="excerpt">`)
	for _, l := range lines {
		if l.Current {
			b.WriteString(`<tr class="current">`)
		} else {
			b.WriteString(`<tr>`)
		}
		b.WriteString(`<td class="ln">`)
		b.WriteString(strconv.Itoa(l.Number))
		b.WriteString(`</td><td class="code"><code>`)
		for _, tok := range l.Tokens {
			if tok.Category == highlight.Default {
				b.WriteString(html.EscapeString(tok.Text))
				continue
			}
			b.WriteString(`<span class="tok-`)
			b.WriteString(string(tok.Category))
			b.WriteString(`">`)
			b.WriteString(html.EscapeString(tok.Text))
			b.WriteString(`</span>`)
		}
		b.WriteString(`</code></td></tr>`)
	}
	b.WriteString(`</table>`)
	return template.HTML(b.String())
}

func severityClass(label string) string {
	switch {
	case strings.Contains(label, "WARNING"):
		return "warning"
	case strings.Contains(label, "NOTICE"), strings.Contains(label, "DEPRECATED"), label == "E_STRICT":
		return "notice"
	}
	return "error"
}

func lineSuffix(line int) string {
	if line <= 0 {
		return ""
	}
	return ":" + strconv.Itoa(line)
}
