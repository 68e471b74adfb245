// Package sanitize redacts secrets and personal data from text before it
// leaves the process, typically an AI prompt.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/armorclaw/errexplain/pkg/config"
)

// Custom is a caller-supplied rule. Replacement may reference capture
// groups with $1 or ${name}.
type Custom struct {
	Pattern     string
	Replacement string
}

// Config selects the rule groups and masks a Sanitizer applies
type Config struct {
	// Rules lists the enabled groups: secrets, pii, payment, network
	Rules []string

	// Masks maps a group name, "email" or "default" to its replacement
	Masks map[string]string

	// Custom rules run first, in order, regardless of Rules
	Custom []Custom
}

// FromConfig derives the sanitizer configuration from the resolved config
func FromConfig(cfg *config.Config) Config {
	c := Config{Rules: append([]string(nil), cfg.Sanitize.Rules...)}
	if cfg.Sanitize.Mask != "" {
		c.Masks = map[string]string{MaskDefault: cfg.Sanitize.Mask}
	}
	return c
}

type compiled struct {
	re          *regexp.Regexp
	replacement string
}

// Observer is told how many spans a rule redacted
type Observer func(rule string, count int)

// Sanitizer applies rules in a fixed order. It holds no mutable state and
// is safe for concurrent use.
type Sanitizer struct {
	custom   []compiled
	patterns []*Pattern
	masks    map[string]string
	observe  Observer
}

// Option configures a Sanitizer
type Option func(*Sanitizer)

// WithObserver reports per-rule redaction counts
func WithObserver(fn Observer) Option {
	return func(s *Sanitizer) { s.observe = fn }
}

// New builds a Sanitizer. Custom patterns that do not compile are skipped.
func New(cfg Config, opts ...Option) *Sanitizer {
	s := &Sanitizer{masks: cfg.Masks}

	for _, c := range cfg.Custom {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			continue
		}
		s.custom = append(s.custom, compiled{re: re, replacement: c.Replacement})
	}

	enabled := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		enabled[strings.ToLower(r)] = true
	}
	for _, p := range Patterns() {
		if enabled[p.Group] {
			s.patterns = append(s.patterns, p)
		}
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sanitize is the one-shot form of New(cfg).Sanitize(text)
func Sanitize(text string, cfg Config) string {
	return New(cfg).Sanitize(text)
}

// Sanitize returns text with every enabled rule applied
func (s *Sanitizer) Sanitize(text string) string {
	for _, c := range s.custom {
		text = s.apply("custom", c.re, c.replacement, text)
	}
	for _, p := range s.patterns {
		text = s.apply(p.Name, p.Pattern, p.Keep+escape(s.mask(p.Mask)), text)
	}
	return text
}

func (s *Sanitizer) apply(rule string, re *regexp.Regexp, replacement, text string) string {
	n := len(re.FindAllStringIndex(text, -1))
	if n == 0 {
		return text
	}
	if s.observe != nil {
		s.observe(rule, n)
	}
	return re.ReplaceAllString(text, replacement)
}

func (s *Sanitizer) mask(category string) string {
	if m, ok := s.masks[category]; ok && m != "" {
		return m
	}
	if category == MaskEmail {
		return defaultEmailMask
	}
	if m, ok := s.masks[MaskDefault]; ok && m != "" {
		return m
	}
	return defaultMask
}

// escape makes a literal mask safe inside a regexp replacement template
func escape(mask string) string {
	return strings.ReplaceAll(mask, "$", "$$")
}
