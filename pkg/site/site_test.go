package site_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/saveman71/saveman71.github.io/pkg/site"
)

func TestSite_Embedded(t *testing.T) {
	s, err := site.New(
		site.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		site.WithConfig(nil),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.StartOn(context.Background(), ln); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(ctx)
	}()

	resp, err := http.Get("http://" + s.Addr().String() + "/does-not-exist")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
