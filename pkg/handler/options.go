package handler

import (
	"github.com/armorclaw/errexplain/pkg/ai"
	"github.com/armorclaw/errexplain/pkg/config"
	"github.com/armorclaw/errexplain/pkg/i18n"
	"github.com/armorclaw/errexplain/pkg/logger"
	"github.com/armorclaw/errexplain/pkg/metrics"
)

type options struct {
	tr       i18n.Translator
	log      *logger.Logger
	metrics  *metrics.Metrics
	factory  ai.Factory
	suppress SuppressionPolicy
	source   config.Source
}

// Option configures a Handler or Registry
type Option func(*options)

// WithTranslator sets the string catalog used for titles and labels
func WithTranslator(tr i18n.Translator) Option {
	return func(o *options) { o.tr = tr }
}

// WithLogger sets the logger. Without one a logger is built from the
// resolved logging configuration.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records fault, AI, redaction and render metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithBackendFactory replaces ai.New as the source of AI adapters
func WithBackendFactory(f ai.Factory) Option {
	return func(o *options) { o.factory = f }
}

// WithSuppressionPolicy replaces MaskEquals
func WithSuppressionPolicy(p SuppressionPolicy) Option {
	return func(o *options) { o.suppress = p }
}

// WithConfigSource sets where Register resolves configuration from. The
// overrides passed to Register replace src.Overrides.
func WithConfigSource(src config.Source) Option {
	return func(o *options) { o.source = src }
}

func collect(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.suppress == nil {
		o.suppress = MaskEquals
	}
	return o
}

func (o *options) logger(cfg *config.Config) *logger.Logger {
	if o.log != nil {
		return o.log
	}
	l, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		Component: "errexplain",
	})
	if err != nil {
		return logger.Global()
	}
	return l
}
