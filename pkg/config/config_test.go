// Package config provides configuration tests for errexplain.
package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exerrors "github.com/armorclaw/errexplain/pkg/errors"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func noDotEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, BackendNone, cfg.Backend)
	assert.Equal(t, FormatAuto, cfg.Format)
	assert.Equal(t, "en", cfg.Language)
	assert.True(t, cfg.Sanitize.Enabled)
	assert.ElementsMatch(t, []string{RuleSecrets, RulePII, RulePayment, RuleNetwork}, cfg.Sanitize.Rules)
	assert.False(t, cfg.AIEnabled())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad format", func(c *Config) { c.Format = "xml" }, "format"},
		{"bad backend", func(c *Config) { c.Backend = "skynet" }, "backend"},
		{"empty language", func(c *Config) { c.Language = " " }, "language"},
		{"bad rule", func(c *Config) { c.Sanitize.Rules = []string{"secrets", "dna"} }, "sanitize.rules"},
		{"negative cache", func(c *Config) { c.AI.CacheSize = -1 }, "ai.cache_size"},
		{"bad ttl", func(c *Config) { c.AI.CacheTTL = "soon" }, "ai.cache_ttl"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, exerrors.ErrInvalidConfig))

			var te *exerrors.TracedError
			require.True(t, stderrors.As(err, &te))
			assert.Equal(t, tt.field, te.Inputs["field"])
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "", false},
		{"0", "", false},
		{"  0 ", "", false},
		{" gpt-4o ", "gpt-4o", true},
		{"00", "00", true},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.in)
		assert.Equal(t, tt.want, got, "Normalize(%q)", tt.in)
		assert.Equal(t, tt.ok, ok, "Normalize(%q)", tt.in)
	}
}

func TestResolveEnvironment(t *testing.T) {
	cfg, err := Resolve(Source{
		DotEnv: noDotEnv(t),
		Getenv: envMap(map[string]string{
			"ERREXPLAIN_BACKEND":        "OpenAI",
			"ERREXPLAIN_MODEL":          "gpt-4o-mini",
			"ERREXPLAIN_API_KEY":        "0",
			"ERREXPLAIN_FORMAT":         "JSON",
			"ERREXPLAIN_VERBOSE":        "yes",
			"ERREXPLAIN_SANITIZE":       "0",
			"ERREXPLAIN_SANITIZE_RULES": "secrets, PII",
			"ERREXPLAIN_AI_RPM":         "5",
			"ERREXPLAIN_EDITOR_URL":     "vscode://file/%file:%line",
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Backend)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Empty(t, cfg.APIKey, `"0" is treated as unset`)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.True(t, cfg.Verbose)
	assert.False(t, cfg.Sanitize.Enabled)
	assert.Equal(t, []string{"secrets", "pii"}, cfg.Sanitize.Rules)
	assert.Equal(t, 5, cfg.AI.RequestsPerMinute)
	assert.Equal(t, "vscode://file/%file:%line", cfg.EditorURL)
}

func TestResolveInvalidBool(t *testing.T) {
	_, err := Resolve(Source{
		DotEnv: noDotEnv(t),
		Getenv: envMap(map[string]string{"ERREXPLAIN_ENABLED": "maybe"}),
	})
	assert.True(t, stderrors.Is(err, exerrors.ErrInvalidConfig))
}

func TestResolveFileAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "errexplain.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend = "local"
model = "llama3"
format = "html"
language = "it"

[sanitize]
enabled = true
rules = ["network"]
`), 0600))

	cfg, err := Resolve(Source{
		Path:   path,
		DotEnv: noDotEnv(t),
		Getenv: envMap(map[string]string{"ERREXPLAIN_MODEL": "qwen2"}),
		Overrides: Overrides{
			Format: String("text"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Backend)
	assert.Equal(t, "qwen2", cfg.Model, "environment beats file")
	assert.Equal(t, FormatText, cfg.Format, "overrides beat environment")
	assert.Equal(t, "it", cfg.Language)
	assert.Equal(t, []string{"network"}, cfg.Sanitize.Rules)
}

func TestResolveYAMLFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "errexplain.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: anthropic\nmodel: claude-3-haiku\napi_key: sk-test\n"), 0600))

	cfg, err := Resolve(Source{
		DotEnv: noDotEnv(t),
		Getenv: envMap(map[string]string{EnvConfigFile: path}),
	})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Backend)
	assert.Equal(t, "sk-test", cfg.APIKey)
}

func TestResolveMissingFile(t *testing.T) {
	_, err := Resolve(Source{Path: "/nonexistent/errexplain.toml", DotEnv: noDotEnv(t), Getenv: envMap(nil)})
	assert.True(t, stderrors.Is(err, exerrors.ErrConfigRead))
}

func TestResolveDotEnv(t *testing.T) {
	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("ERREXPLAIN_BACKEND=google\nERREXPLAIN_MODEL=gemini-1.5-flash\n"), 0600))

	cfg, err := Resolve(Source{
		DotEnv: dotenv,
		Getenv: envMap(map[string]string{"ERREXPLAIN_MODEL": "gemini-2.0-flash"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "google", cfg.Backend)
	assert.Equal(t, "gemini-2.0-flash", cfg.Model, "real environment wins over .env")
}

func TestOverridesEmptyStringIsSet(t *testing.T) {
	cfg, err := Resolve(Source{
		DotEnv:    noDotEnv(t),
		Getenv:    envMap(map[string]string{"ERREXPLAIN_TEMPLATE": "/tmp/page.html"}),
		Overrides: Overrides{Template: String(""), Enabled: Bool(false), SanitizeRules: []string{}},
	})
	require.NoError(t, err)
	assert.Empty(t, cfg.Template)
	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.Sanitize.Rules)
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"config.toml", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := DefaultConfig()
			cfg.Backend = "openai"
			cfg.Model = "gpt-4o"
			cfg.ProjectRoot = "/srv/app"

			require.NoError(t, Save(cfg, path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded, err := Resolve(Source{Path: path, DotEnv: noDotEnv(t), Getenv: envMap(nil)})
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = "pdf"
	assert.Error(t, Save(cfg, filepath.Join(t.TempDir(), "c.toml")))
}

func TestMaskedAndClone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "sk-secret"

	masked := cfg.Masked()
	assert.Equal(t, "********", masked.APIKey)
	assert.Equal(t, "sk-secret", cfg.APIKey)

	clone := cfg.Clone()
	clone.Sanitize.Rules[0] = "changed"
	assert.Equal(t, RuleSecrets, cfg.Sanitize.Rules[0])
}

func TestCacheTTLDuration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AI.CacheTTL = "30s"
	assert.Equal(t, "30s", cfg.CacheTTLDuration().String())

	cfg.AI.CacheTTL = ""
	assert.Equal(t, "10m0s", cfg.CacheTTLDuration().String())
}
