package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/armorclaw/errexplain/pkg/errors"
)

// EnvConfigFile names the environment variable holding the config file path
const EnvConfigFile = "ERREXPLAIN_CONFIG"

// Overrides are explicit caller values applied after every other source.
// A nil field leaves the resolved value untouched.
type Overrides struct {
	Enabled         *bool
	Backend         *string
	Model           *string
	Language        *string
	Format          *string
	Verbose         *bool
	APIKey          *string
	APIURL          *string
	Template        *string
	ProjectRoot     *string
	HostProjectRoot *string
	EditorURL       *string
	Sanitize        *bool
	SanitizeRules   []string
	SanitizeMask    *string
}

// String returns a pointer to s, for building Overrides
func String(s string) *string { return &s }

// Bool returns a pointer to b, for building Overrides
func Bool(b bool) *bool { return &b }

// Source describes where a configuration is resolved from
type Source struct {
	// Path is the config file; empty falls back to ERREXPLAIN_CONFIG
	Path string

	// DotEnv is the .env file to read; empty means ".env" in the working
	// directory. A missing file is not an error.
	DotEnv string

	// Getenv reads the real environment; nil means os.Getenv
	Getenv func(string) string

	Overrides Overrides
}

// Normalize is the single ingestion point for string-only sources. It trims
// the value and reports the empty string and the literal "0" as unset.
func Normalize(raw string) (string, bool) {
	v := strings.TrimSpace(raw)
	if v == "" || v == "0" {
		return "", false
	}
	return v, true
}

func parseBool(raw string) (bool, bool, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "":
		return false, false, nil
	case "1", "true", "yes", "on":
		return true, true, nil
	case "0", "false", "no", "off":
		return false, true, nil
	}
	return false, false, fmt.Errorf("invalid boolean %q", raw)
}

// Resolve builds a validated Config from defaults, the config file, the
// .env file, the environment and src.Overrides, in that order.
func Resolve(src Source) (*Config, error) {
	getenv := src.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	dotenvPath := src.DotEnv
	if dotenvPath == "" {
		dotenvPath = ".env"
	}
	dotenv, err := godotenv.Read(dotenvPath)
	if err != nil {
		dotenv = nil
	}

	// the real environment wins over .env
	lookup := func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}

	cfg := DefaultConfig()

	path := src.Path
	if path == "" {
		path, _ = Normalize(lookup(EnvConfigFile))
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg, lookup); err != nil {
		return nil, err
	}

	src.Overrides.apply(cfg)

	cfg.Backend = strings.ToLower(cfg.Backend)
	cfg.Format = strings.ToLower(cfg.Format)
	if cfg.Backend == "" {
		cfg.Backend = BackendNone
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load loads configuration from a file path. An empty path searches
// ConfigPaths and falls back to defaults plus the environment.
func Load(path string) (*Config, error) {
	if path == "" && os.Getenv(EnvConfigFile) == "" {
		for _, p := range ConfigPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	return Resolve(Source{Path: path})
}

// ConfigPaths returns the list of default configuration file paths to check
func ConfigPaths() []string {
	paths := []string{"./errexplain.toml", "./errexplain.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "errexplain", "config.toml"))
	}
	return paths
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewBuilder("CFG-002").
			Wrap(err).
			WithInput("path", path).
			Build()
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return errors.NewBuilder("CFG-001").
			WithMessagef("failed to parse config file %s", path).
			Wrap(err).
			WithInput("path", path).
			Build()
	}
	return nil
}

// applyEnvOverrides applies ERREXPLAIN_* values to the configuration
func applyEnvOverrides(cfg *Config, lookup func(string) string) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"ERREXPLAIN_BACKEND", &cfg.Backend},
		{"ERREXPLAIN_MODEL", &cfg.Model},
		{"ERREXPLAIN_LANGUAGE", &cfg.Language},
		{"ERREXPLAIN_FORMAT", &cfg.Format},
		{"ERREXPLAIN_API_KEY", &cfg.APIKey},
		{"ERREXPLAIN_API_URL", &cfg.APIURL},
		{"ERREXPLAIN_TEMPLATE", &cfg.Template},
		{"ERREXPLAIN_PROJECT_ROOT", &cfg.ProjectRoot},
		{"ERREXPLAIN_HOST_PROJECT_ROOT", &cfg.HostProjectRoot},
		{"ERREXPLAIN_EDITOR_URL", &cfg.EditorURL},
		{"ERREXPLAIN_SANITIZE_MASK", &cfg.Sanitize.Mask},
		{"ERREXPLAIN_AI_CACHE_TTL", &cfg.AI.CacheTTL},
		{"ERREXPLAIN_LOG_LEVEL", &cfg.Logging.Level},
		{"ERREXPLAIN_LOG_FORMAT", &cfg.Logging.Format},
		{"ERREXPLAIN_LOG_OUTPUT", &cfg.Logging.Output},
	}
	for _, s := range strs {
		if v, ok := Normalize(lookup(s.key)); ok {
			*s.dst = v
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"ERREXPLAIN_ENABLED", &cfg.Enabled},
		{"ERREXPLAIN_VERBOSE", &cfg.Verbose},
		{"ERREXPLAIN_SANITIZE", &cfg.Sanitize.Enabled},
	}
	for _, b := range bools {
		v, ok, err := parseBool(lookup(b.key))
		if err != nil {
			return errors.NewBuilder("CFG-001").
				WithMessagef("%s: %v", b.key, err).
				WithInput("field", b.key).
				Build()
		}
		if ok {
			*b.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"ERREXPLAIN_AI_CACHE_SIZE", &cfg.AI.CacheSize},
		{"ERREXPLAIN_AI_RPM", &cfg.AI.RequestsPerMinute},
	}
	for _, i := range ints {
		raw := strings.TrimSpace(lookup(i.key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errors.NewBuilder("CFG-001").
				WithMessagef("%s must be an integer (got %q)", i.key, raw).
				WithInput("field", i.key).
				Build()
		}
		*i.dst = n
	}

	if v, ok := Normalize(lookup("ERREXPLAIN_SANITIZE_RULES")); ok {
		cfg.Sanitize.Rules = splitList(v)
	}

	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (o Overrides) apply(cfg *Config) {
	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}

	setBool(&cfg.Enabled, o.Enabled)
	setStr(&cfg.Backend, o.Backend)
	setStr(&cfg.Model, o.Model)
	setStr(&cfg.Language, o.Language)
	setStr(&cfg.Format, o.Format)
	setBool(&cfg.Verbose, o.Verbose)
	setStr(&cfg.APIKey, o.APIKey)
	setStr(&cfg.APIURL, o.APIURL)
	setStr(&cfg.Template, o.Template)
	setStr(&cfg.ProjectRoot, o.ProjectRoot)
	setStr(&cfg.HostProjectRoot, o.HostProjectRoot)
	setStr(&cfg.EditorURL, o.EditorURL)
	setBool(&cfg.Sanitize.Enabled, o.Sanitize)
	setStr(&cfg.Sanitize.Mask, o.SanitizeMask)
	if o.SanitizeRules != nil {
		cfg.Sanitize.Rules = append([]string(nil), o.SanitizeRules...)
	}
}

// Save saves the configuration to a file, as YAML when the extension is
// .yaml or .yml and TOML otherwise
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("cannot save invalid configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// forward slashes keep Windows paths valid TOML
	cfgCopy := cfg.Clone()
	cfgCopy.Template = filepath.ToSlash(cfg.Template)
	cfgCopy.ProjectRoot = filepath.ToSlash(cfg.ProjectRoot)
	cfgCopy.HostProjectRoot = filepath.ToSlash(cfg.HostProjectRoot)

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfgCopy)
	} else {
		data, err = toml.Marshal(cfgCopy)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	// may contain an API key
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
