package handler

import (
	"log/slog"
	"sync"

	"github.com/armorclaw/errexplain/pkg/config"
	"github.com/armorclaw/errexplain/pkg/hostrt"
)

// Registry owns the registration state for one Runtime: whether hooks are
// installed, the hooks they replaced and the resolved configuration.
// Register and Unregister are meant to be called from initialization code.
type Registry struct {
	mu   sync.Mutex
	rt   Runtime
	opts []Option

	handler        *Handler
	installed      bool
	removeShutdown func()
}

// NewRegistry creates a Registry for rt. opts apply to every Register call.
func NewRegistry(rt Runtime, opts ...Option) *Registry {
	return &Registry{rt: rt, opts: opts}
}

// Register resolves the configuration and installs the hooks. A registered
// Registry returns its existing Handler unchanged. When the configuration is
// disabled the Handler is created but no hook is installed.
func (r *Registry) Register(ov config.Overrides, opts ...Option) (*Handler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handler != nil {
		return r.handler, nil
	}

	all := append(append([]Option(nil), r.opts...), opts...)
	o := collect(all)
	src := o.source
	src.Overrides = ov
	cfg, err := config.Resolve(src)
	if err != nil {
		return nil, err
	}

	if !cfg.Enabled {
		r.handler = New(cfg, r.rt, nil, nil, all...)
		r.handler.log.Debug("disabled, no hooks installed")
		return r.handler, nil
	}

	// read the installed hooks and put them straight back
	prevError := r.rt.SetErrorHook(nil)
	r.rt.SetErrorHook(prevError)
	prevException := r.rt.SetExceptionHook(nil)
	r.rt.SetExceptionHook(prevException)

	h := New(cfg, r.rt, prevError, prevException, all...)
	r.rt.SetErrorHook(h.errorHook)
	r.rt.SetExceptionHook(h.exceptionHook)
	r.removeShutdown = r.rt.OnShutdown(h.shutdownHook)

	r.handler = h
	r.installed = true
	h.log.Info("hooks installed",
		slog.String("backend", cfg.Backend),
		slog.String("format", cfg.Format),
		slog.Bool("chained_error_hook", prevError != nil),
		slog.Bool("chained_exception_hook", prevException != nil),
	)
	return h, nil
}

// Unregister restores the hooks that were installed before Register and
// clears the registration. It is a no-op when nothing is registered.
func (r *Registry) Unregister() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handler == nil {
		return
	}
	if r.installed {
		h := r.handler
		func() {
			defer func() { _ = recover() }()
			r.rt.SetErrorHook(h.prevError)
			r.rt.SetExceptionHook(h.prevException)
			if r.removeShutdown != nil {
				r.removeShutdown()
			}
		}()
	}
	r.handler = nil
	r.installed = false
	r.removeShutdown = nil
}

// Installed reports whether hooks are currently installed
func (r *Registry) Installed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.installed
}

// Handler returns the registered Handler, or nil
func (r *Registry) Handler() *Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handler
}

// Config returns the last resolved configuration, or nil when unregistered
func (r *Registry) Config() *config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handler == nil {
		return nil
	}
	return r.handler.cfg
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the Registry bound to hostrt.Default()
func Default() *Registry {
	defaultOnce.Do(func() { defaultRegistry = NewRegistry(hostrt.Default()) })
	return defaultRegistry
}

// Register registers on the Default registry
func Register(ov config.Overrides, opts ...Option) (*Handler, error) {
	return Default().Register(ov, opts...)
}

// Unregister unregisters the Default registry
func Unregister() {
	Default().Unregister()
}

// GetConfig returns the Default registry's configuration
func GetConfig() *config.Config {
	return Default().Config()
}
