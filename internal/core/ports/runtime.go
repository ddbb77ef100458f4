package ports

import (
	"context"

	"github.com/saveman71/saveman71.github.io/internal/pkg/config"
)

// ConfigProvider loads and manages configuration.
// Implementations: file-based with hot reload, static in-memory.
type ConfigProvider interface {
	Load(ctx context.Context) (*config.Config, error)
	Watch(ctx context.Context, onChange func(*config.Config)) error
	Close() error
}
