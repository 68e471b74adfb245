package render

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/armorclaw/errexplain/pkg/config"
	"github.com/armorclaw/errexplain/pkg/errors"
	"github.com/armorclaw/errexplain/pkg/explain"
	"github.com/armorclaw/errexplain/pkg/fault"
	"github.com/armorclaw/errexplain/pkg/i18n"
	"github.com/armorclaw/errexplain/pkg/logger"
	"github.com/armorclaw/errexplain/pkg/metrics"
)

// Input is everything a renderer needs for one fault
type Input struct {
	Explanation *explain.Explanation
	Config      *config.Config
	Kind        fault.Kind
	Shutdown    bool
}

// Renderer writes one format
type Renderer interface {
	// ContentType is sent with HTTP responses
	ContentType() string
	Render(w io.Writer, rc Context, in Input) error
}

// Renderers holds the renderer for each format
type Renderers struct {
	formats map[string]Renderer
	metrics *metrics.Metrics
	log     *logger.Logger
}

// Option configures Renderers
type Option func(*Renderers)

// WithMetrics counts renders per format
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Renderers) { r.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(r *Renderers) { r.log = l }
}

// WithRenderer installs or replaces the renderer of a format
func WithRenderer(format string, renderer Renderer) Option {
	return func(r *Renderers) { r.formats[format] = renderer }
}

// New builds the text, JSON and HTML renderers over tr
func New(tr i18n.Translator, opts ...Option) *Renderers {
	if tr == nil {
		tr = i18n.Default()
	}
	r := &Renderers{formats: map[string]Renderer{
		config.FormatText: &Text{Translator: tr},
		config.FormatJSON: JSON{},
		config.FormatHTML: &HTML{Translator: tr},
	}}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Global()
	}
	r.log = r.log.WithComponent("render")
	return r
}

// Render negotiates the format from the Context carried by ctx and writes
// the explanation. Output is produced in full before anything is written,
// so an HTTP response gets status 500 and its content type exactly once.
func (r *Renderers) Render(ctx context.Context, in Input) (string, error) {
	rc := FromContext(ctx)
	if in.Config == nil {
		in.Config = config.DefaultConfig()
	}
	format := Negotiate(in.Config.Format, rc)
	renderer, ok := r.formats[format]
	if !ok {
		return format, errors.NewBuilder("CFG-001").
			WithMessagef("no renderer for format %q", format).
			WithInput("field", "format").
			Build()
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, rc, in); err != nil {
		return format, err
	}

	if rc.IsHTTP() {
		rc.Response.Header().Set("Content-Type", renderer.ContentType())
		rc.Response.WriteHeader(http.StatusInternalServerError)
	}
	if _, err := rc.Output().Write(buf.Bytes()); err != nil {
		return format, errors.NewBuilder("RND-001").
			Wrap(err).
			WithMessage("failed to write rendered explanation").
			WithInput("format", format).
			Build()
	}

	r.metrics.RecordRender(format)
	r.log.Debug("explanation rendered",
		slog.String("format", format),
		slog.String("explanation_id", in.Explanation.ID),
		slog.Int("bytes", buf.Len()),
	)
	return format, nil
}
