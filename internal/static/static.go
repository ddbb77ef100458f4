// Package static serves files from an fs.FS as pipeline stages.
package static

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/saveman71/saveman71.github.io/internal/httperr"
	"github.com/saveman71/saveman71.github.io/internal/pipeline"
)

// Dir serves any regular file found in its file system and passes everything
// else on.
type Dir struct {
	fsys   fs.FS
	maxAge time.Duration
}

// NewDir returns a stage serving files from fsys with the given cache lifetime.
func NewDir(fsys fs.FS, maxAge time.Duration) *Dir {
	return &Dir{fsys: fsys, maxAge: maxAge}
}

func (d *Dir) Name() string { return "static" }

func (d *Dir) Serve(w http.ResponseWriter, r *http.Request) pipeline.Outcome {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return pipeline.Continue()
	}

	name, isDir, ok := d.resolve(r.URL.Path)
	if !ok {
		return pipeline.Continue()
	}
	if isDir {
		if !strings.HasSuffix(r.URL.Path, "/") {
			target := path.Base(r.URL.Path) + "/"
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusMovedPermanently)
			return pipeline.Respond()
		}
		name = path.Join(name, "index.html")
	}

	f, err := d.fsys.Open(name)
	if err != nil {
		return pipeline.Fail(openError(name, err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return pipeline.Fail(openError(name, err))
	}

	content, ok := f.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(f)
		if err != nil {
			return pipeline.Fail(openError(name, err))
		}
		content = bytes.NewReader(data)
	}

	w.Header().Set("Cache-Control", cacheControl(d.maxAge))
	http.ServeContent(w, r, info.Name(), info.ModTime(), content)
	return pipeline.Respond()
}

// resolve maps a URL path to a regular file in the file system, or to a
// directory holding an index.html.
func (d *Dir) resolve(urlPath string) (name string, isDir bool, ok bool) {
	name = strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		name = "."
	}
	if !fs.ValidPath(name) || hasHiddenSegment(name) {
		return "", false, false
	}

	info, err := fs.Stat(d.fsys, name)
	if err != nil {
		return "", false, false
	}
	if info.IsDir() {
		index, err := fs.Stat(d.fsys, path.Join(name, "index.html"))
		if err != nil || !index.Mode().IsRegular() {
			return "", false, false
		}
		return name, true, true
	}
	if !info.Mode().IsRegular() {
		return "", false, false
	}
	return name, false, true
}

// openError maps a failure to open a file that was just found.
func openError(name string, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, fs.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, fs.ErrNotExist):
		status = http.StatusNotFound
	}
	return httperr.Wrap(fmt.Errorf("open %s: %w", name, err), status, http.StatusText(status))
}

func hasHiddenSegment(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." {
			return true
		}
	}
	return false
}

func cacheControl(maxAge time.Duration) string {
	return "public, max-age=" + strconv.Itoa(int(maxAge/time.Second))
}
