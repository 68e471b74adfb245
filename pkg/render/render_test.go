package render

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armorclaw/errexplain/pkg/config"
	"github.com/armorclaw/errexplain/pkg/errors"
	"github.com/armorclaw/errexplain/pkg/explain"
	"github.com/armorclaw/errexplain/pkg/fault"
	"github.com/armorclaw/errexplain/pkg/i18n"
	"github.com/armorclaw/errexplain/pkg/logger"
	"github.com/armorclaw/errexplain/pkg/metrics"
)

const cacheSrc = `package store

func (c *Cache) Put(k string, v int) {
	// write
	c.items[k] = v
	c.touch(k)
}
`

func files(m map[string]string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		if src, ok := m[path]; ok {
			return []byte(src), nil
		}
		return nil, fs.ErrNotExist
	}
}

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func cliContext(out *bytes.Buffer, vars map[string]string) Context {
	return Context{
		Stdout:     out,
		Getenv:     env(vars),
		IsTerminal: func(io.Writer) bool { return false },
		ReadFile:   files(map[string]string{"/app/store/cache.go": cacheSrc}),
	}
}

func sample() *explain.Explanation {
	return &explain.Explanation{
		ID:            "id-1",
		Kind:          fault.KindException,
		Title:         "Exception captured: EXCEPTION",
		Details:       "assignment to entry in nil map (/app/store/cache.go:5)",
		Suggestions:   []string{"Initialise the map with make"},
		SeverityLabel: "EXCEPTION",
		Original:      explain.Original{Message: "assignment to entry in nil map", File: "/app/store/cache.go", Line: 5},
		Trace: []fault.Frame{
			{File: "/app/store/cache.go", Line: 5, Class: "store.Cache", CallType: fault.CallPointer, Function: "Put"},
			{File: "/app/main.go", Line: 12, Function: "main.main"},
			{Function: "main.init"},
		},
		ExceptionClass: "runtime.plainError",
	}
}

func baseConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ProjectRoot = "/app"
	return cfg
}

func newRenderers(m *metrics.Metrics) *Renderers {
	return New(i18n.Default(), WithLogger(logger.Discard()), WithMetrics(m))
}

func TestNegotiate(t *testing.T) {
	req := func(header, value string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set(header, value)
		}
		return r
	}
	rec := httptest.NewRecorder()

	tests := []struct {
		name   string
		format string
		rc     Context
		want   string
	}{
		{"auto cli", "auto", Context{}, "text"},
		{"empty cli", "", Context{}, "text"},
		{"auto http", "auto", Context{Response: rec, Request: req("", "")}, "html"},
		{"explicit text cli", "text", Context{}, "text"},
		{"explicit html cli", "HTML", Context{}, "html"},
		{"accept json", "auto", Context{Response: rec, Request: req("Accept", "application/JSON")}, "json"},
		{"content type json", "html", Context{Response: rec, Request: req("Content-Type", "application/problem+json")}, "json"},
		{"explicit text over json http", "text", Context{Response: rec, Request: req("Accept", "application/json")}, "json"},
		{"accept html", "auto", Context{Response: rec, Request: req("Accept", "text/html")}, "html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Negotiate(tt.format, tt.rc); got != tt.want {
				t.Errorf("Negotiate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRelativePath(t *testing.T) {
	tests := []struct {
		file, root, want string
	}{
		{"/app/src/Foo.go", "/app", "src/Foo.go"},
		{"/app/src/Foo.go", "/app/", "src/Foo.go"},
		{"/application/x.go", "/app", "application/x.go"},
		{"/srv/lib/vendor/acme/log/log.go", "/app", "vendor/acme/log/log.go"},
		{"/root/go/pkg/mod/github.com/acme/log@v1.2.0/log.go", "", "github.com/acme/log@v1.2.0/log.go"},
		{"/usr/local/go/src/fmt/print.go", "/app", "usr/local/go/src/fmt/print.go"},
		{"", "/app", ""},
	}
	for _, tt := range tests {
		if got := RelativePath(tt.file, tt.root); got != tt.want {
			t.Errorf("RelativePath(%q, %q) = %q, want %q", tt.file, tt.root, got, tt.want)
		}
	}
}

func TestEditorLink(t *testing.T) {
	const tmpl = "proto://file/%file:%line"
	tests := []struct {
		name           string
		tmpl, file     string
		line           int
		root, hostRoot string
		want           string
	}{
		{"remapped", tmpl, "/container/app/src/Foo.php", 10, "/container/app", "/host/app", "proto://file//host/app/src/Foo.php:10"},
		{"outside root", tmpl, "/usr/lib/x.php", 3, "/container/app", "/host/app", "proto://file//usr/lib/x.php:3"},
		{"no host root", tmpl, "/container/app/src/Foo.php", 10, "/container/app", "", "proto://file//container/app/src/Foo.php:10"},
		{"prefix is not a parent", tmpl, "/container/application/a.go", 1, "/container/app", "/host/app", "proto://file//container/application/a.go:1"},
		{"no template", "", "/a.go", 1, "", "", ""},
		{"no file", tmpl, "", 1, "", "", ""},
		{"no line", tmpl, "/a.go", 0, "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EditorLink(tt.tmpl, tt.file, tt.line, tt.root, tt.hostRoot); got != tt.want {
				t.Errorf("EditorLink() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJSONOverHTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Accept", "application/json")

	exp := sample()
	exp.Original.Message = "bad <input> for café"
	ctx := WithContext(context.Background(), HTTP(rec, req))
	format, err := newRenderers(m).Render(ctx, Input{Explanation: exp, Config: baseConfig(), Kind: fault.KindException})
	require.NoError(t, err)

	assert.Equal(t, "json", format)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, []string{"application/json; charset=utf-8"}, rec.Result().Header.Values("Content-Type"))
	assert.Contains(t, rec.Body.String(), "bad <input> for café")
	assert.Contains(t, rec.Body.String(), "\n  \"title\"")
	n, err := testutil.GatherAndCount(reg, "errexplain_renders_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var got struct {
		Title         string         `json:"title"`
		Details       string         `json:"details"`
		Suggestions   []string       `json:"suggestions"`
		SeverityLabel string         `json:"severityLabel"`
		Original      map[string]any `json:"original"`
		Trace         []fault.Frame  `json:"trace"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, exp.Title, got.Title)
	assert.Equal(t, "EXCEPTION", got.SeverityLabel)
	assert.Equal(t, exp.Suggestions, got.Suggestions)
	assert.Equal(t, "/app/store/cache.go", got.Original["file"])
	require.Len(t, got.Trace, len(exp.Trace))
	for i, f := range exp.Trace {
		assert.Equal(t, f.File, got.Trace[i].File)
		assert.Equal(t, f.Line, got.Trace[i].Line)
		assert.Equal(t, f.Class, got.Trace[i].Class)
		assert.Equal(t, f.Function, got.Trace[i].Function)
	}
}

func TestHTMLOverHTTP(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rc := HTTP(rec, req)
	rc.ReadFile = files(map[string]string{"/app/store/cache.go": cacheSrc})

	cfg := baseConfig()
	cfg.ProjectRoot = "/app"
	cfg.HostProjectRoot = "/home/dev/app"
	cfg.EditorURL = "vscode://file/%file:%line"

	format, err := newRenderers(nil).Render(WithContext(context.Background(), rc), Input{Explanation: sample(), Config: cfg, Kind: fault.KindException})
	require.NoError(t, err)
	assert.Equal(t, "html", format)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Exception captured: EXCEPTION</h1>")
	assert.Contains(t, body, `href="vscode://file//home/dev/app/store/cache.go:5"`)
	assert.Contains(t, body, "store/cache.go:5")
	assert.Contains(t, body, `<tr class="current"><td class="ln">5</td>`)
	assert.Contains(t, body, `<span class="tok-keyword">func</span>`)
	assert.Contains(t, body, "<li>Initialise the map with make</li>")
	assert.Contains(t, body, "(*store.Cache).Put")
}

func TestHTMLEscapesContent(t *testing.T) {
	exp := sample()
	exp.Original.Message = `<script>alert(1)</script>`
	var out bytes.Buffer
	err := (&HTML{Translator: i18n.Default()}).Render(&out, cliContext(&out, nil), Input{Explanation: exp, Config: baseConfig()})
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "<script>alert(1)</script>")
	assert.Contains(t, out.String(), "&lt;script&gt;")
}

func TestHTMLTemplateResolution(t *testing.T) {
	custom := map[string]string{
		"/tpl/page.tmpl":   `<p>{{.Title}}|{{len .Frames}}|{{.Severity}}</p>`,
		"/tpl/broken.tmpl": `{{.Title`,
		"/tpl/bad.tmpl":    `{{.NoSuchField}}`,
	}
	render := func(configured string, vars map[string]string) (string, error) {
		var out bytes.Buffer
		rc := Context{Stdout: &out, Getenv: env(vars), ReadFile: files(custom)}
		cfg := baseConfig()
		cfg.Template = configured
		err := (&HTML{Translator: i18n.Default()}).Render(&out, rc, Input{Explanation: sample(), Config: cfg})
		return out.String(), err
	}

	out, err := render("/tpl/page.tmpl", nil)
	require.NoError(t, err)
	assert.Equal(t, "<p>Exception captured: EXCEPTION|3|EXCEPTION</p>", out)

	out, err = render("", map[string]string{EnvTemplate: "/tpl/page.tmpl"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<p>"))

	_, err = render("/tpl/missing.tmpl", nil)
	assert.True(t, stderrors.Is(err, errors.ErrTemplateNotFound))

	_, err = render("", map[string]string{EnvTemplate: "/tpl/gone.tmpl"})
	assert.True(t, stderrors.Is(err, errors.ErrTemplateNotFound))

	_, err = render("/tpl/broken.tmpl", nil)
	assert.True(t, stderrors.Is(err, errors.ErrTemplateExec))

	_, err = render("/tpl/bad.tmpl", nil)
	assert.True(t, stderrors.Is(err, errors.ErrTemplateExec))
}

func TestTemplateErrorWritesNothing(t *testing.T) {
	rec := httptest.NewRecorder()
	rc := HTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	rc.ReadFile = files(nil)
	cfg := baseConfig()
	cfg.Template = "/nope.tmpl"

	_, err := newRenderers(nil).Render(WithContext(context.Background(), rc), Input{Explanation: sample(), Config: cfg})
	require.Error(t, err)
	assert.Empty(t, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Type"))
}

func TestTextPlain(t *testing.T) {
	var out bytes.Buffer
	cfg := baseConfig()
	cfg.Verbose = true
	cfg.Backend = "openai"
	cfg.Model = "gpt-4o"

	format, err := newRenderers(nil).Render(WithContext(context.Background(), cliContext(&out, nil)), Input{Explanation: sample(), Config: cfg, Kind: fault.KindException})
	require.NoError(t, err)
	assert.Equal(t, "text", format)

	text := out.String()
	assert.NotContains(t, text, "\x1b[")
	assert.Contains(t, text, " EXCEPTION  Exception captured: EXCEPTION")
	assert.Contains(t, text, "Message: assignment to entry in nil map")
	assert.Contains(t, text, "Location: store/cache.go:5")
	assert.Contains(t, text, "\nassignment to entry in nil map (/app/store/cache.go:5)\n")
	assert.Contains(t, text, "#0 (*store.Cache).Put")
	assert.Contains(t, text, ">    5 | \tc.items[k] = v")
	assert.Contains(t, text, "     3 | func (c *Cache) Put(k string, v int) {")
	assert.NotContains(t, text, "   2 |")
	assert.Contains(t, text, "• Initialise the map with make")
	assert.Contains(t, text, "Diagnostics: language en, backend openai, model gpt-4o")
}

func TestTextFrameLimitAndShutdown(t *testing.T) {
	exp := sample()
	for i := 0; i < 6; i++ {
		exp.Trace = append(exp.Trace, fault.Frame{Function: "main.step"})
	}
	var out bytes.Buffer
	err := (&Text{Translator: i18n.Default()}).Render(&out, cliContext(&out, nil), Input{Explanation: exp, Config: baseConfig(), Shutdown: true})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "#4 ")
	assert.NotContains(t, out.String(), "#5 ")
	assert.Contains(t, out.String(), "... +4")
	assert.Contains(t, out.String(), "shutting down")
	assert.NotContains(t, out.String(), "Diagnostics")
}

func TestColorEnabled(t *testing.T) {
	terminal := func(io.Writer) bool { return true }
	notTerminal := func(io.Writer) bool { return false }
	rec := httptest.NewRecorder()

	tests := []struct {
		name string
		rc   Context
		want bool
	}{
		{"terminal", Context{Getenv: env(nil), IsTerminal: terminal}, true},
		{"pipe", Context{Getenv: env(nil), IsTerminal: notTerminal}, false},
		{"force", Context{Getenv: env(map[string]string{"FORCE_COLOR": "1"}), IsTerminal: notTerminal}, true},
		{"force zero", Context{Getenv: env(map[string]string{"FORCE_COLOR": "0"}), IsTerminal: notTerminal}, false},
		{"no color wins", Context{Getenv: env(map[string]string{"NO_COLOR": "1", "FORCE_COLOR": "1"}), IsTerminal: terminal}, false},
		{"http", Context{Response: rec, Getenv: env(map[string]string{"FORCE_COLOR": "1"}), IsTerminal: terminal}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ColorEnabled(tt.rc); got != tt.want {
				t.Errorf("ColorEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextForcedColor(t *testing.T) {
	var out bytes.Buffer
	rc := cliContext(&out, map[string]string{"FORCE_COLOR": "1"})
	err := (&Text{Translator: i18n.Default()}).Render(&out, rc, Input{Explanation: sample(), Config: baseConfig()})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "\x1b[")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, stderrors.New("closed pipe") }

func TestWriteFailure(t *testing.T) {
	rc := Context{Stdout: failingWriter{}, Getenv: env(nil), IsTerminal: func(io.Writer) bool { return false }, ReadFile: files(nil)}
	_, err := newRenderers(nil).Render(WithContext(context.Background(), rc), Input{Explanation: sample(), Config: baseConfig()})
	assert.True(t, stderrors.Is(err, errors.ErrOutput))
}

func TestExcerpt(t *testing.T) {
	rc := Context{ReadFile: files(map[string]string{"/a.go": "l1\nl2\nl3\nl4\n"})}

	lines := Excerpt(rc, "/a.go", 1, 2)
	require.Len(t, lines, 3)
	assert.Equal(t, 1, lines[0].Number)
	assert.True(t, lines[0].Current)

	assert.Nil(t, Excerpt(rc, "/missing.go", 1, 2))
	assert.Nil(t, Excerpt(rc, "/a.go", 0, 2))
}

func TestFromContextDefaults(t *testing.T) {
	rc := FromContext(context.Background())
	assert.False(t, rc.IsHTTP())
	assert.NotNil(t, rc.Stdout)
	assert.NotNil(t, rc.Getenv)
	assert.NotNil(t, rc.ReadFile)
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
