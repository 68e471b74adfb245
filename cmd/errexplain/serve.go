package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/armorclaw/errexplain/pkg/config"
	"github.com/armorclaw/errexplain/pkg/fault"
	"github.com/armorclaw/errexplain/pkg/handler"
	"github.com/armorclaw/errexplain/pkg/hostrt"
	"github.com/armorclaw/errexplain/pkg/logger"
	"github.com/armorclaw/errexplain/pkg/metrics"
	"github.com/armorclaw/errexplain/pkg/render"
)

// demoServer is an HTTP server whose handlers fault on purpose
type demoServer struct {
	addr       string
	process    *hostrt.Process
	registry   *prometheus.Registry
	log        *logger.Logger
	httpServer *http.Server
}

func newDemoServer(addr string, p *hostrt.Process, reg *prometheus.Registry, log *logger.Logger) *demoServer {
	if addr == "" {
		addr = ":8080"
	}
	s := &demoServer{addr: addr, process: p, registry: reg, log: log}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the routes wrapped in the panic middleware
func (s *demoServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /panic", s.handlePanic)
	mux.HandleFunc("GET /throw", s.handleThrow)
	mux.HandleFunc("GET /warn", s.handleWarn)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return s.process.Middleware(mux)
}

// Start serves until Stop is called
func (s *demoServer) Start() error {
	s.log.Info("demo server listening", "addr", s.addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server
func (s *demoServer) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *demoServer) handlePanic(w http.ResponseWriter, r *http.Request) {
	var inventory map[string]int
	inventory[r.URL.Query().Get("sku")]++
}

func (s *demoServer) handleThrow(w http.ResponseWriter, r *http.Request) {
	ctx := render.WithContext(r.Context(), render.HTTP(w, r))
	if err := s.process.Throw(ctx, fmt.Errorf("order %q not found", r.URL.Query().Get("id"))); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *demoServer) handleWarn(w http.ResponseWriter, r *http.Request) {
	ctx := render.WithContext(r.Context(), render.HTTP(w, r))
	if err := s.process.Report(ctx, fault.UserWarning, "cache warm-up skipped: upstream timed out"); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *demoServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": version,
	})
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a demo HTTP server with errexplain installed",
		Long: `Starts an HTTP server whose routes fault on purpose, so the HTML and JSON
renderers can be tried from a browser or curl.

Routes:
  /panic    nil map write, recovered by the middleware
  /throw    error passed to the exception hook
  /warn     user warning passed to the error hook
  /health   liveness probe
  /metrics  Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			p := hostrt.New(hostrt.WithOutput(cmd.ErrOrStderr()))
			opts := []handler.Option{
				handler.WithMetrics(metrics.New(reg)),
				handler.WithConfigSource(a.source(config.Overrides{})),
			}
			if a.factory != nil {
				opts = append(opts, handler.WithBackendFactory(a.factory))
			}
			registry := handler.NewRegistry(p, opts...)
			h, err := registry.Register(config.Overrides{})
			if err != nil {
				return err
			}
			defer registry.Unregister()

			log := a.logger(h.Config(), cmd.ErrOrStderr()).WithComponent("serve")
			srv := newDemoServer(addr, p, reg, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				return err
			}
			return <-errCh
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "Listen address")
	return cmd
}
