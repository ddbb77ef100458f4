package runtime

import (
	"fmt"
	"io/fs"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/saveman71/saveman71.github.io/internal/adapters/config/file"
	"github.com/saveman71/saveman71.github.io/internal/adapters/config/static"
	"github.com/saveman71/saveman71.github.io/internal/core/ports"
	"github.com/saveman71/saveman71.github.io/internal/pkg/config"
)

// Option is a functional option for configuring a Site.
type Option func(*Site) error

// WithFileConfig uses file-based configuration with hot-reload.
// The path should point to a config.yaml file that will be watched for changes.
func WithFileConfig(path string) Option {
	return func(s *Site) error {
		provider, err := file.NewProvider(path, s.logger)
		if err != nil {
			return fmt.Errorf("create file config provider: %w", err)
		}
		s.config = provider
		return nil
	}
}

// WithConfig serves a fixed configuration. A nil cfg serves the defaults.
func WithConfig(cfg *config.Config) Option {
	return func(s *Site) error {
		s.config = static.NewProvider(cfg)
		return nil
	}
}

// WithConfigProvider sets a custom config provider.
// For advanced use cases where you need full control over config loading.
func WithConfigProvider(provider ports.ConfigProvider) Option {
	return func(s *Site) error {
		if provider == nil {
			return fmt.Errorf("config provider cannot be nil")
		}
		s.config = provider
		return nil
	}
}

// WithLogger sets a custom logger.
// Options that build components (WithFileConfig) pick up the logger only
// when WithLogger comes first.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Site) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithViewsFS replaces the embedded views. views.dir in the config still
// takes precedence.
func WithViewsFS(fsys fs.FS) Option {
	return func(s *Site) error {
		s.viewsFS = fsys
		return nil
	}
}

// WithPublicFS replaces the embedded public files. static.dir in the config
// still takes precedence.
func WithPublicFS(fsys fs.FS) Option {
	return func(s *Site) error {
		s.publicFS = fsys
		return nil
	}
}

// WithTracerProvider sets the tracer provider for per-stage spans. Defaults
// to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Site) error {
		s.tracerProvider = tp
		return nil
	}
}
