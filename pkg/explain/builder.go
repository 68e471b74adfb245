package explain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/armorclaw/errexplain/pkg/ai"
	"github.com/armorclaw/errexplain/pkg/config"
	"github.com/armorclaw/errexplain/pkg/fault"
	"github.com/armorclaw/errexplain/pkg/i18n"
	"github.com/armorclaw/errexplain/pkg/logger"
	"github.com/armorclaw/errexplain/pkg/metrics"
	"github.com/armorclaw/errexplain/pkg/sanitize"
)

// Builder produces Explanations. It is safe for concurrent use; decorated
// backends are built once per backend id and settings so their cache and
// rate budget persist across faults.
type Builder struct {
	tr      i18n.Translator
	log     *logger.Logger
	metrics *metrics.Metrics
	factory ai.Factory

	mu       sync.Mutex
	backends map[backendKey]ai.Backend
}

type backendKey struct {
	id        string
	cacheSize int
	cacheTTL  string
	rpm       int
}

// Option configures a Builder
type Option func(*Builder)

// WithTranslator sets the string catalog; i18n.Default() otherwise
func WithTranslator(tr i18n.Translator) Option {
	return func(b *Builder) { b.tr = tr }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// WithMetrics records AI and redaction metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithBackendFactory replaces ai.New as the adapter source
func WithBackendFactory(f ai.Factory) Option {
	return func(b *Builder) { b.factory = f }
}

// NewBuilder creates a Builder
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{backends: make(map[backendKey]ai.Backend)}
	for _, opt := range opts {
		opt(b)
	}
	if b.tr == nil {
		b.tr = i18n.Default()
	}
	if b.log == nil {
		b.log = logger.Global()
	}
	b.log = b.log.WithComponent("explain")
	if b.factory == nil {
		log := b.log
		b.factory = func(id string) (ai.Backend, error) {
			return ai.New(id, ai.WithLogger(log))
		}
	}
	return b
}

// Explain builds the Explanation for ev. AI enrichment is best-effort: any
// backend failure leaves the default title and details in place.
func (b *Builder) Explain(ctx context.Context, ev fault.Event, cfg *config.Config) Explanation {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	lang := cfg.Language

	exp := Explanation{
		ID:             uuid.NewString(),
		Kind:           ev.Kind,
		SeverityLabel:  ev.SeverityLabel(),
		Suggestions:    []string{},
		Original:       Original{Message: ev.Message, File: ev.File, Line: max(ev.Line, 0)},
		Trace:          NormalizeFrames(ev.Trace),
		ExceptionClass: ev.Class,
	}

	loc := exp.Location()
	if loc == "" {
		loc = b.tr.Translate(lang, "location.unknown", nil)
	}
	params := map[string]string{
		"kind":     b.tr.Translate(lang, "kind."+string(ev.Kind), nil),
		"severity": exp.SeverityLabel,
		"message":  ev.Message,
		"location": loc,
		"class":    ev.Class,
	}
	exp.Title = b.title(lang, "title.basic", params, exp.SeverityLabel)
	exp.Details = b.tr.Translate(lang, "details.basic", params)

	if !cfg.AIEnabled() {
		return exp
	}

	answer := strings.TrimSpace(b.ask(ctx, cfg, b.prompt(cfg, exp)))
	log := b.log.WithExplanationID(exp.ID)
	if answer == "" {
		log.Debug("no AI enrichment", slog.String("backend", cfg.Backend))
		return exp
	}

	for _, s := range ParseSuggestions(answer) {
		exp.AddSuggestion(s)
	}
	exp.Details += "\n\n" + b.tr.Translate(lang, "details.ai_marker", nil) + "\n" + answer
	exp.Title = b.title(lang, "title.ai", params, exp.Title)
	exp.Enriched = true
	log.Debug("AI enrichment merged",
		slog.String("backend", cfg.Backend),
		slog.Int("suggestions", len(exp.Suggestions)),
	)
	return exp
}

func (b *Builder) title(lang, key string, params map[string]string, fallback string) string {
	if t := strings.TrimSpace(b.tr.Translate(lang, key, params)); t != "" {
		return t
	}
	if fallback != "" {
		return fallback
	}
	return "Unknown fault"
}

// prompt builds the provider-agnostic request; the answer language is
// named inside it. Sanitized when enabled.
func (b *Builder) prompt(cfg *config.Config, exp Explanation) string {
	loc := exp.Location()
	if loc == "" {
		loc = "unknown"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Answer in the language with code %q.\n", cfg.Language)
	fmt.Fprintf(&sb, "Severity: %s\n", exp.SeverityLabel)
	if exp.ExceptionClass != "" {
		fmt.Fprintf(&sb, "Exception class: %s\n", exp.ExceptionClass)
	}
	fmt.Fprintf(&sb, "Message: %s\n", exp.Original.Message)
	fmt.Fprintf(&sb, "Location: %s\n", loc)
	sb.WriteString("Explain the likely cause, then list concrete fixes as \"- \" bullet points.")

	text := sb.String()
	if cfg.Sanitize.Enabled {
		s := sanitize.New(sanitize.FromConfig(cfg), sanitize.WithObserver(b.metrics.RecordRedactions))
		text = s.Sanitize(text)
	}
	return text
}

func (b *Builder) ask(ctx context.Context, cfg *config.Config, prompt string) string {
	backend, err := b.backend(cfg)
	if err != nil {
		b.log.Warn("AI backend unavailable", slog.String("backend", cfg.Backend), slog.String("error", err.Error()))
		return ""
	}
	if backend == nil {
		return ""
	}
	return backend.GenerateExplanation(ctx, prompt, ai.Options{
		Model:  cfg.Model,
		APIKey: cfg.APIKey,
		APIURL: cfg.APIURL,
	})
}

func (b *Builder) backend(cfg *config.Config) (ai.Backend, error) {
	key := backendKey{
		id:        ai.Canonical(cfg.Backend),
		cacheSize: cfg.AI.CacheSize,
		cacheTTL:  cfg.AI.CacheTTL,
		rpm:       cfg.AI.RequestsPerMinute,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if backend, ok := b.backends[key]; ok {
		return backend, nil
	}

	raw, err := b.factory(key.id)
	if err != nil {
		return nil, err
	}
	backend := ai.Stack{
		Name:              key.id,
		Metrics:           b.metrics,
		CacheSize:         cfg.AI.CacheSize,
		CacheTTL:          cfg.CacheTTLDuration(),
		RequestsPerMinute: cfg.AI.RequestsPerMinute,
	}.Wrap(raw)
	b.backends[key] = backend
	return backend, nil
}
