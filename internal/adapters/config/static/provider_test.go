package static

import (
	"context"
	"testing"

	"github.com/saveman71/saveman71.github.io/internal/core/ports"
	"github.com/saveman71/saveman71.github.io/internal/pkg/config"
)

var _ ports.ConfigProvider = (*Provider)(nil)

func TestProvider_Defaults(t *testing.T) {
	cfg, err := NewProvider(nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d, want 3000", cfg.Server.Port)
	}
}

func TestProvider_ReturnsCopy(t *testing.T) {
	base := config.Default()
	p := NewProvider(base)

	cfg, err := p.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Server.Port = 1

	if base.Server.Port == 1 {
		t.Error("Load must not hand out the provider's own config")
	}
}

func TestProvider_Invalid(t *testing.T) {
	cfg := config.Default()
	cfg.Body.Limit = -1
	if _, err := NewProvider(cfg).Load(context.Background()); err == nil {
		t.Error("Expected validation error")
	}
}

func TestProvider_Watch(t *testing.T) {
	p := NewProvider(nil)
	if err := p.Watch(context.Background(), func(*config.Config) {}); err != nil {
		t.Errorf("Watch() error = %v", err)
	}
	if err := p.Watch(context.Background(), nil); err == nil {
		t.Error("Expected error for nil callback")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
