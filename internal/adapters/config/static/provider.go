// Package static provides a fixed, in-memory configuration.
package static

import (
	"context"
	"errors"

	"github.com/saveman71/saveman71.github.io/internal/pkg/config"
)

// Provider implements ports.ConfigProvider for a configuration built in code.
// It never changes, so Watch only returns.
type Provider struct {
	cfg *config.Config
}

// NewProvider returns a provider serving cfg. A nil cfg serves the defaults.
func NewProvider(cfg *config.Config) *Provider {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Provider{cfg: cfg}
}

func (p *Provider) Load(ctx context.Context) (*config.Config, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	cp := *p.cfg
	return &cp, nil
}

func (p *Provider) Watch(ctx context.Context, onChange func(*config.Config)) error {
	if onChange == nil {
		return errors.New("onChange callback required")
	}
	return nil
}

func (p *Provider) Close() error { return nil }
