package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/saveman71/saveman71.github.io/internal/pkg/config"
)

func TestWatchedConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if got := watchedConfigPath(""); got != "" {
		t.Errorf("without a file = %q, want empty", got)
	}
	if got := watchedConfigPath("other.yaml"); got != "other.yaml" {
		t.Errorf("explicit path = %q, want other.yaml", got)
	}

	if err := os.WriteFile(filepath.Join(dir, config.DefaultPath), []byte("app:\n  name: test\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := watchedConfigPath(""); got != config.DefaultPath {
		t.Errorf("with default file = %q, want %s", got, config.DefaultPath)
	}
}
