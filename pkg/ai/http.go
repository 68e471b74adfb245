package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/armorclaw/errexplain/pkg/logger"
)

const (
	dialTimeout   = 5 * time.Second
	localTimeout  = 12 * time.Second
	hostedTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
)

// NewHTTPClient returns a client with a 5s connect timeout and the given
// total timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: dialTimeout}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   dialTimeout,
			ResponseHeaderTimeout: timeout,
			MaxIdleConns:          4,
			IdleConnTimeout:       30 * time.Second,
		},
	}
}

// ClientOption configures an adapter
type ClientOption func(*client)

// WithHTTPClient replaces the adapter's HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *client) { cl.http = c }
}

// WithLogger sets the adapter logger
func WithLogger(l *logger.Logger) ClientOption {
	return func(cl *client) { cl.log = l }
}

type client struct {
	name string
	http *http.Client
	log  *logger.Logger
}

func newClient(name string, timeout time.Duration, opts []ClientOption) client {
	c := client{name: name}
	for _, opt := range opts {
		opt(&c)
	}
	if c.http == nil {
		c.http = NewHTTPClient(timeout)
	}
	if c.log == nil {
		c.log = logger.Global().WithComponent("ai")
	}
	return c
}

// postJSON sends one POST and decodes a 2xx JSON body into out. It reports
// false on any failure and never logs the provider's response body.
func (c client) postJSON(ctx context.Context, endpoint string, headers map[string]string, payload, out any) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		c.debug(ctx, "encode request", slog.String("error", err.Error()))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		c.debug(ctx, "build request", slog.String("error", err.Error()))
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.debug(ctx, "request failed", slog.String("error", redactURL(err)))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		c.debug(ctx, "non-2xx response", slog.Int("status", resp.StatusCode))
		return false
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		c.debug(ctx, "malformed response", slog.Int("status", resp.StatusCode))
		return false
	}
	return true
}

func (c client) debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	attrs = append([]slog.Attr{slog.String("backend", c.name)}, attrs...)
	c.log.LogAttrs(ctx, slog.LevelDebug, "ai: "+msg, attrs...)
}

// redactURL drops the request URL from transport errors; the Google API
// carries the key in the query string
func redactURL(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) {
		if ue.Timeout() {
			return "timeout"
		}
		return ue.Op + ": " + ue.Err.Error()
	}
	return "transport error"
}
