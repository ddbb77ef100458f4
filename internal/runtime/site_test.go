package runtime

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/saveman71/saveman71.github.io/internal/pkg/config"
	"github.com/saveman71/saveman71.github.io/web"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startSite starts a site on a loopback listener and stops it when the test
// ends.
func startSite(t *testing.T, opts ...Option) *Site {
	t.Helper()

	s, err := New(append([]Option{WithLogger(quietLogger())}, opts...)...)
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

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return s
}

func get(t *testing.T, s *Site, host, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if host != "" {
		req.Host = host
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// brokenIndexViews are the embedded views with an index page that fails to
// execute.
func brokenIndexViews(t *testing.T) fstest.MapFS {
	t.Helper()
	fsys := fstest.MapFS{}
	for _, name := range []string{"layout.html", "pages/404.html", "pages/error.html"} {
		data, err := fs.ReadFile(web.Views(), name)
		if err != nil {
			t.Fatal(err)
		}
		fsys[name] = &fstest.MapFile{Data: data}
	}
	fsys["pages/index.html"] = &fstest.MapFile{Data: []byte(`{{define "title"}}x{{end}}{{define "content"}}{{.Nope.Deeper}}{{end}}`)}
	return fsys
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestSite_New_RequiredOptions(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("Expected error without config provider")
	}
	if err.Error() != "config provider required (use WithFileConfig or WithConfig)" {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestSite_Start_And_Shutdown(t *testing.T) {
	s := startSite(t, WithConfig(nil))

	if s.Addr() == nil {
		t.Fatal("Expected server address")
	}

	resp, err := http.Get("http://" + s.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func TestSite_MultipleStartCalls(t *testing.T) {
	s := startSite(t, WithConfig(nil))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	if err := s.StartOn(context.Background(), ln); err == nil {
		t.Error("Expected error on second start")
	}
}

func TestSite_Start_BadViews(t *testing.T) {
	s, err := New(WithLogger(quietLogger()), WithConfig(nil), WithViewsFS(fstest.MapFS{
		"layout.html":      {Data: []byte(`{{template "content" .}}`)},
		"pages/index.html": {Data: []byte(`{{define "content"}}hi{{end}}`)},
	}))
	if err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	if err := s.StartOn(context.Background(), ln); err == nil || !strings.Contains(err.Error(), `missing "404"`) {
		t.Errorf("Start error = %v, want missing view", err)
	}
}

func TestSite_Start_MissingFavicon(t *testing.T) {
	s, err := New(WithLogger(quietLogger()), WithConfig(nil), WithPublicFS(fstest.MapFS{
		"robots.txt": {Data: []byte("User-agent: *\n")},
	}))
	if err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	if err := s.StartOn(context.Background(), ln); err == nil {
		t.Error("Expected error for missing favicon")
	}
}

// =============================================================================
// Request Pipeline Tests
// =============================================================================

func TestSite_Index(t *testing.T) {
	s := startSite(t, WithConfig(nil))

	rec := get(t, s, "example.com", "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<h1>saveman71</h1>") {
		t.Errorf("home page not rendered: %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing security headers")
	}
}

func TestSite_NotFound(t *testing.T) {
	s := startSite(t, WithConfig(nil))

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/does-not-exist", nil)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 404", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), `<code class="url">/does-not-exist</code>`) {
				t.Errorf("url missing from 404 page: %s", rec.Body.String())
			}
		})
	}
}

func TestSite_NoWWW(t *testing.T) {
	s := startSite(t, WithConfig(nil))

	tests := []struct {
		name     string
		host     string
		target   string
		location string
	}{
		{name: "root", host: "www.example.com", target: "/", location: "http://example.com/"},
		{name: "path and query", host: "WWW.Example.com", target: "/a?b=1", location: "http://Example.com/a?b=1"},
		{name: "port", host: "www.example.com:8080", target: "/x", location: "http://example.com:8080/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.host, tt.target)
			if rec.Code != http.StatusMovedPermanently {
				t.Fatalf("status = %d, want 301", rec.Code)
			}
			if got := rec.Header().Get("Location"); got != tt.location {
				t.Errorf("Location = %q, want %q", got, tt.location)
			}
		})
	}
}

func TestSite_CanonicalHostNeverRedirects(t *testing.T) {
	s := startSite(t, WithConfig(nil))

	for i := 0; i < 3; i++ {
		for _, host := range []string{"example.com", "a.www.com", "wwwexample.com"} {
			if rec := get(t, s, host, "/"); rec.Code == http.StatusMovedPermanently {
				t.Errorf("%s redirected to %s", host, rec.Header().Get("Location"))
			}
		}
	}
}

func TestSite_StaticFiles(t *testing.T) {
	s := startSite(t, WithConfig(nil))

	tests := []struct {
		path        string
		contentType string
	}{
		{path: "/css/style.css", contentType: "text/css"},
		{path: "/javascript/actions.js", contentType: "text/javascript"},
		{path: "/robots.txt", contentType: "text/plain"},
		{path: "/favicon.ico", contentType: "image/x-icon"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, s, "", tt.path)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("Content-Type = %q, want %s", ct, tt.contentType)
			}
			if rec.Body.Len() == 0 {
				t.Error("empty body")
			}
			if !strings.HasPrefix(rec.Header().Get("Cache-Control"), "public, max-age=") {
				t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
			}
		})
	}
}

func TestSite_Compression(t *testing.T) {
	s := startSite(t, WithConfig(nil))

	req := httptest.NewRequest(http.MethodGet, "/css/style.css", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", rec.Header().Get("Content-Encoding"))
	}
}

func TestSite_ErrorPageDiagnostics(t *testing.T) {
	tests := []struct {
		name        string
		stacktraces bool
	}{
		{name: "diagnostics on", stacktraces: true},
		{name: "diagnostics off", stacktraces: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.App.Stacktraces = tt.stacktraces
			s := startSite(t, WithConfig(cfg), WithViewsFS(brokenIndexViews(t)))

			rec := get(t, s, "", "/")

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			body := rec.Body.String()
			if !strings.Contains(body, "Error: ") {
				t.Errorf("message missing: %s", body)
			}
			hasStack := strings.Contains(body, `class="stacktrace"`)
			if hasStack != tt.stacktraces {
				t.Errorf("stack shown = %v, want %v", hasStack, tt.stacktraces)
			}
		})
	}
}

// =============================================================================
// Reload Tests
// =============================================================================

func TestSite_Reload(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("app:\n  name: before\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s := startSite(t, WithFileConfig(configPath))

	if rec := get(t, s, "", "/"); !strings.Contains(rec.Body.String(), "<h1>before</h1>") {
		t.Fatalf("unexpected page: %s", rec.Body.String())
	}

	if err := os.WriteFile(configPath, []byte("app:\n  name: after\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if rec := get(t, s, "", "/"); strings.Contains(rec.Body.String(), "<h1>after</h1>") {
			if s.Config().App.Name != "after" {
				t.Errorf("Config().App.Name = %q", s.Config().App.Name)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("pipeline was not rebuilt after the config file changed")
}

func TestSite_ReloadKeepsPipelineOnError(t *testing.T) {
	s := startSite(t, WithConfig(nil))

	cfg := config.Default()
	cfg.Static.Favicon = "missing.ico"
	if err := s.reload(cfg); err == nil {
		t.Fatal("Expected reload error")
	}

	if rec := get(t, s, "", "/favicon.ico"); rec.Code != http.StatusOK {
		t.Errorf("old pipeline should still serve, got %d", rec.Code)
	}
	if s.Config().Static.Favicon != "favicon.ico" {
		t.Errorf("config swapped despite error: %q", s.Config().Static.Favicon)
	}
}

func TestSite_ViewsDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "pages"), 0755); err != nil {
		t.Fatal(err)
	}
	for name, f := range brokenIndexViews(t) {
		data := f.Data
		if name == "pages/index.html" {
			data = []byte(`{{define "title"}}disk{{end}}{{define "content"}}<p>from disk</p>{{end}}`)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.Views.Dir = dir
	cfg.Views.Reload = true
	s := startSite(t, WithConfig(cfg))

	if rec := get(t, s, "", "/"); !strings.Contains(rec.Body.String(), "from disk") {
		t.Fatalf("views not read from disk: %s", rec.Body.String())
	}

	updated := []byte(`{{define "title"}}disk{{end}}{{define "content"}}<p>edited</p>{{end}}`)
	if err := os.WriteFile(filepath.Join(dir, "pages", "index.html"), updated, 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if rec := get(t, s, "", "/"); strings.Contains(rec.Body.String(), "edited") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("views were not reloaded")
}
