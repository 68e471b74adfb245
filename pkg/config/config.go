// Package config provides configuration management for errexplain.
// Supports TOML or YAML configuration files, .env files and ERREXPLAIN_*
// environment variables, with explicit overrides applied last.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/armorclaw/errexplain/pkg/errors"
)

// Output formats
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatHTML = "html"
	FormatJSON = "json"
)

// BackendNone disables AI enrichment
const BackendNone = "none"

// Sanitizer rule groups
const (
	RuleSecrets = "secrets"
	RulePII     = "pii"
	RulePayment = "payment"
	RuleNetwork = "network"
)

// Config is the resolved errexplain configuration. A resolved value is
// treated as frozen; callers that need a variant use Clone.
type Config struct {
	// Enabled installs the runtime hooks when true
	Enabled bool `toml:"enabled" yaml:"enabled"`

	// Backend selects the AI provider: none, local, api, openai, anthropic, google, gemini
	Backend string `toml:"backend" yaml:"backend"`

	// Model is the provider model id
	Model string `toml:"model" yaml:"model"`

	// Language is the locale used for titles and the AI prompt
	Language string `toml:"language" yaml:"language"`

	// Format is one of auto, text, html, json
	Format string `toml:"format" yaml:"format"`

	// Verbose adds a diagnostic footer to text output
	Verbose bool `toml:"verbose" yaml:"verbose"`

	APIKey string `toml:"api_key" yaml:"api_key"`
	APIURL string `toml:"api_url" yaml:"api_url"`

	// Template is an HTML template path overriding the bundled page
	Template string `toml:"template" yaml:"template"`

	// ProjectRoot is the root paths are shown relative to; inside a
	// container it is the container-side root
	ProjectRoot string `toml:"project_root" yaml:"project_root"`

	// HostProjectRoot is the host-side path of ProjectRoot, used for editor links
	HostProjectRoot string `toml:"host_project_root" yaml:"host_project_root"`

	// EditorURL is a deep-link template with %file and %line placeholders
	EditorURL string `toml:"editor_url" yaml:"editor_url"`

	Sanitize SanitizeConfig `toml:"sanitize" yaml:"sanitize"`
	AI       AIConfig       `toml:"ai" yaml:"ai"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging"`
}

// SanitizeConfig controls redaction of outbound prompts
type SanitizeConfig struct {
	Enabled bool     `toml:"enabled" yaml:"enabled"`
	Rules   []string `toml:"rules" yaml:"rules"`

	// Mask replaces redacted spans; empty uses the sanitizer defaults
	Mask string `toml:"mask" yaml:"mask"`
}

// AIConfig tunes the AI call decorators
type AIConfig struct {
	// CacheSize is the number of cached answers (0 disables the cache)
	CacheSize int `toml:"cache_size" yaml:"cache_size"`

	// CacheTTL is how long an answer stays cached
	CacheTTL string `toml:"cache_ttl" yaml:"cache_ttl"`

	// RequestsPerMinute caps outbound calls (0 = unlimited)
	RequestsPerMinute int `toml:"requests_per_minute" yaml:"requests_per_minute"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	Output string `toml:"output" yaml:"output"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled:  true,
		Backend:  BackendNone,
		Language: "en",
		Format:   FormatAuto,
		Sanitize: SanitizeConfig{
			Enabled: true,
			Rules:   []string{RuleSecrets, RulePII, RulePayment, RuleNetwork},
		},
		AI: AIConfig{
			CacheSize:         128,
			CacheTTL:          "10m",
			RequestsPerMinute: 30,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Clone returns a deep copy
func (c *Config) Clone() *Config {
	cp := *c
	cp.Sanitize.Rules = append([]string(nil), c.Sanitize.Rules...)
	return &cp
}

// AIEnabled reports whether a backend other than none is selected
func (c *Config) AIEnabled() bool {
	return c.Backend != "" && c.Backend != BackendNone
}

// CacheTTLDuration parses AI.CacheTTL, falling back to ten minutes
func (c *Config) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.AI.CacheTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// HasRule reports whether a sanitizer rule group is enabled
func (c *Config) HasRule(rule string) bool {
	for _, r := range c.Sanitize.Rules {
		if r == rule {
			return true
		}
	}
	return false
}

// Masked returns a copy safe to print: the API key is replaced
func (c *Config) Masked() *Config {
	cp := c.Clone()
	if cp.APIKey != "" {
		cp.APIKey = "********"
	}
	return cp
}

var (
	validFormats  = []string{FormatAuto, FormatText, FormatHTML, FormatJSON}
	validBackends = []string{BackendNone, "local", "api", "openai", "anthropic", "google", "gemini"}
	validRules    = []string{RuleSecrets, RulePII, RulePayment, RuleNetwork}
	validLevels   = []string{"debug", "info", "warn", "error"}
	validLogFmts  = []string{"json", "text"}
)

// Backends lists the accepted backend identifiers
func Backends() []string { return append([]string(nil), validBackends...) }

// Formats lists the accepted output formats
func Formats() []string { return append([]string(nil), validFormats...) }

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func invalid(field, value string, allowed []string) error {
	b := errors.NewBuilder("CFG-001").
		WithInput("field", field).
		WithInput("value", value)
	if allowed != nil {
		b = b.WithMessagef("%s must be one of: %s (got %q)", field, strings.Join(allowed, ", "), value)
	} else {
		b = b.WithMessagef("%s is invalid (got %q)", field, value)
	}
	return b.Build()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !oneOf(c.Format, validFormats) {
		return invalid("format", c.Format, validFormats)
	}
	if !oneOf(c.Backend, validBackends) {
		return invalid("backend", c.Backend, validBackends)
	}
	if strings.TrimSpace(c.Language) == "" {
		return invalid("language", c.Language, nil)
	}
	for _, r := range c.Sanitize.Rules {
		if !oneOf(r, validRules) {
			return invalid("sanitize.rules", r, validRules)
		}
	}

	if c.AI.CacheSize < 0 {
		return invalid("ai.cache_size", strconv.Itoa(c.AI.CacheSize), nil)
	}
	if c.AI.RequestsPerMinute < 0 {
		return invalid("ai.requests_per_minute", strconv.Itoa(c.AI.RequestsPerMinute), nil)
	}
	if c.AI.CacheTTL != "" {
		if _, err := time.ParseDuration(c.AI.CacheTTL); err != nil {
			return invalid("ai.cache_ttl", c.AI.CacheTTL, nil)
		}
	}

	if !oneOf(c.Logging.Level, validLevels) {
		return invalid("logging.level", c.Logging.Level, validLevels)
	}
	if !oneOf(c.Logging.Format, validLogFmts) {
		return invalid("logging.format", c.Logging.Format, validLogFmts)
	}

	return nil
}
