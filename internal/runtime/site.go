// Package runtime provides the Site struct and lifecycle management for the
// web site server.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/saveman71/saveman71.github.io/internal/core/ports"
	"github.com/saveman71/saveman71.github.io/internal/pipeline"
	"github.com/saveman71/saveman71.github.io/internal/pkg/config"
	"github.com/saveman71/saveman71.github.io/internal/server"
	"github.com/saveman71/saveman71.github.io/web"
)

// Site is the main entry point for running the web site.
// It manages configuration, the request pipeline and the HTTP server
// lifecycle.
type Site struct {
	// Dependencies (injected via options)
	config         ports.ConfigProvider
	logger         *slog.Logger
	viewsFS        fs.FS
	publicFS       fs.FS
	tracerProvider trace.TracerProvider

	// Internal state
	pipeline atomic.Pointer[pipeline.Pipeline]
	current  atomic.Pointer[config.Config]
	server   *server.Server

	// Lifecycle management
	ctx         context.Context
	cancel      context.CancelFunc
	stopWatches context.CancelFunc
	started     bool
	mu          sync.Mutex
}

// New creates a new Site with the given options.
// Views and public files default to the embedded ones.
func New(opts ...Option) (*Site, error) {
	s := &Site{
		logger:   slog.Default(),
		viewsFS:  web.Views(),
		publicFS: web.Public(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if s.config == nil {
		return nil, fmt.Errorf("config provider required (use WithFileConfig or WithConfig)")
	}

	return s, nil
}

// Start loads the configuration, builds the pipeline and starts serving on
// the configured port.
func (s *Site) Start(ctx context.Context) error {
	return s.start(ctx, nil)
}

// StartOn is Start serving on an existing listener.
func (s *Site) StartOn(ctx context.Context, ln net.Listener) error {
	return s.start(ctx, ln)
}

func (s *Site) start(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("site already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	cfg, err := s.config.Load(s.ctx)
	if err != nil {
		s.cancel()
		return fmt.Errorf("load config: %w", err)
	}

	if err := s.apply(cfg); err != nil {
		s.cancel()
		return fmt.Errorf("build pipeline: %w", err)
	}

	s.server = server.New(server.Options{
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		TrustProxy:     cfg.Server.TrustProxy,
		Compress:       cfg.Server.Compress,
		ServiceName:    cfg.Telemetry.ServiceName,
	}, s.logger, http.HandlerFunc(s.serveHTTP))

	if ln != nil {
		err = s.server.Serve(ln)
	} else {
		err = s.server.Start()
	}
	if err != nil {
		s.cancel()
		return fmt.Errorf("start server: %w", err)
	}
	s.started = true

	// Watch for config changes
	go s.watchConfig()

	s.logger.Info("site started",
		slog.String("addr", s.server.Addr().String()),
		slog.String("env", cfg.App.Env),
		slog.Any("stages", s.pipeline.Load().Stages()))

	return nil
}

// Shutdown gracefully stops the site.
func (s *Site) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("shutting down site")

	if s.cancel != nil {
		s.cancel()
	}
	if s.stopWatches != nil {
		s.stopWatches()
	}

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			return err
		}
	}

	if s.config != nil {
		if err := s.config.Close(); err != nil {
			s.logger.Error("failed to close config", slog.String("error", err.Error()))
		}
	}

	s.started = false
	s.logger.Info("site shutdown complete")
	return nil
}

// Handler returns the full HTTP handler, middleware included. It is nil
// before Start.
func (s *Site) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	return s.server.Router
}

// Addr returns the address being served, or nil before Start.
func (s *Site) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	return s.server.Addr()
}

// Config returns the configuration currently in effect.
func (s *Site) Config() *config.Config {
	return s.current.Load()
}

func (s *Site) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.pipeline.Load().ServeHTTP(w, r)
}

// watchConfig watches for config changes and reloads.
func (s *Site) watchConfig() {
	onChange := func(newCfg *config.Config) {
		s.logger.Info("config changed, reloading")
		if err := s.reload(newCfg); err != nil {
			s.logger.Error("failed to reload", slog.String("error", err.Error()))
		}
	}

	if err := s.config.Watch(s.ctx, onChange); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("config watch failed", slog.String("error", err.Error()))
		}
	}
}

// reload rebuilds the pipeline from cfg and swaps it in. Requests already in
// flight finish on the pipeline they started with.
func (s *Site) reload(cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current.Load()
	if err := s.apply(cfg); err != nil {
		return err
	}

	if prev != nil && prev.Server != cfg.Server {
		s.logger.Warn("server settings changed, restart to apply",
			slog.Int("port", prev.Server.Port),
			slog.Int("new_port", cfg.Server.Port))
	}

	s.logger.Info("reload complete",
		slog.Bool("stacktraces", cfg.App.Stacktraces),
		slog.Any("stages", s.pipeline.Load().Stages()))

	return nil
}

// apply builds a pipeline for cfg and makes it current. Callers hold s.mu.
func (s *Site) apply(cfg *config.Config) error {
	p, views, err := NewPipeline(cfg, Assets{Views: s.viewsFS, Public: s.publicFS}, s.logger, s.tracerProvider)
	if err != nil {
		return err
	}

	watchCtx, stop := context.WithCancel(s.ctx)
	if cfg.Views.Reload && cfg.Views.Dir != "" {
		if err := views.Watch(watchCtx, cfg.Views.Dir); err != nil {
			stop()
			return fmt.Errorf("watch views: %w", err)
		}
	}

	if s.stopWatches != nil {
		s.stopWatches()
	}
	s.stopWatches = stop

	s.pipeline.Store(p)
	s.current.Store(cfg)
	return nil
}
