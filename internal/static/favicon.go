package static

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/saveman71/saveman71.github.io/internal/pipeline"
)

const faviconPath = "/favicon.ico"

// Favicon answers /favicon.ico from memory. The icon is read once when the
// stage is built, so a missing icon is a startup error.
type Favicon struct {
	data    []byte
	etag    string
	modTime time.Time
	maxAge  time.Duration
}

// NewFavicon loads name from fsys.
func NewFavicon(fsys fs.FS, name string, maxAge time.Duration) (*Favicon, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("favicon %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("favicon %s: not a regular file", name)
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read favicon %s: %w", name, err)
	}

	sum := sha256.Sum256(data)
	return &Favicon{
		data:    data,
		etag:    `"` + base64.RawURLEncoding.EncodeToString(sum[:12]) + `"`,
		modTime: info.ModTime(),
		maxAge:  maxAge,
	}, nil
}

func (f *Favicon) Name() string { return "favicon" }

func (f *Favicon) Serve(w http.ResponseWriter, r *http.Request) pipeline.Outcome {
	if r.URL.Path != faviconPath {
		return pipeline.Continue()
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
	case http.MethodOptions:
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
		return pipeline.Respond()
	default:
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return pipeline.Respond()
	}

	w.Header().Set("Cache-Control", cacheControl(f.maxAge))
	w.Header().Set("ETag", f.etag)
	w.Header().Set("Content-Type", "image/x-icon")
	http.ServeContent(w, r, faviconPath, f.modTime, bytes.NewReader(f.data))
	return pipeline.Respond()
}
