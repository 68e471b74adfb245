// Package i18n looks up the user-facing strings of an explanation
package i18n

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Fallback is the locale used when a locale or key is missing
const Fallback = "en"

// Translator resolves a key for a locale. {name} placeholders in the
// result are replaced from params.
type Translator interface {
	Translate(locale, key string, params map[string]string) string
}

// Func adapts a function to Translator
type Func func(locale, key string, params map[string]string) string

// Translate implements Translator
func (f Func) Translate(locale, key string, params map[string]string) string {
	return f(locale, key, params)
}

//go:embed catalog.yaml
var bundled []byte

// Catalog is a Translator over locale -> key -> text tables
type Catalog struct {
	entries map[string]map[string]string
}

// Load parses a YAML catalog
func Load(data []byte) (*Catalog, error) {
	var entries map[string]map[string]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if _, ok := entries[Fallback]; !ok {
		return nil, fmt.Errorf("catalog has no %q locale", Fallback)
	}
	return &Catalog{entries: entries}, nil
}

var (
	defaultCatalog *Catalog
	defaultOnce    sync.Once
)

// Default returns the bundled catalog
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(bundled)
		if err != nil {
			panic("i18n: bundled catalog: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Locales lists the catalog's locales
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.entries))
	for l := range c.entries {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Translate implements Translator. "it-IT" and "it_IT" fall back to "it",
// then to English; a key missing everywhere is returned as is.
func (c *Catalog) Translate(locale, key string, params map[string]string) string {
	text, ok := c.lookup(locale, key)
	if !ok {
		text = key
	}
	return Interpolate(text, params)
}

func (c *Catalog) lookup(locale, key string) (string, bool) {
	locale = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
	candidates := []string{locale}
	if base, _, found := strings.Cut(locale, "-"); found {
		candidates = append(candidates, base)
	}
	candidates = append(candidates, Fallback)

	for _, l := range candidates {
		if text, ok := c.entries[l][key]; ok {
			return text, true
		}
	}
	return "", false
}

// Interpolate replaces {name} placeholders from params
func Interpolate(text string, params map[string]string) string {
	if len(params) == 0 || !strings.Contains(text, "{") {
		return text
	}
	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
