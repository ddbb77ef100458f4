// Package view renders named HTML views.
//
// Views live in an fs.FS laid out as
//
//	layout.html        shared page skeleton, calls {{template "content" .}}
//	pages/<name>.html  one file per view, defines "title" and "content"
//
// Every page is parsed together with the layout once, at construction or on
// Reload. Render executes into a buffer first, so a failing template never
// leaves a half written response behind.
package view

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrUnknownView is returned by Render for a name with no page file.
var ErrUnknownView = errors.New("unknown view")

const (
	defaultLayout = "layout.html"
	pagesGlob     = "pages/*.html"
)

// Renderer holds the parsed views.
type Renderer struct {
	fsys   fs.FS
	layout string
	funcs  template.FuncMap
	logger *slog.Logger

	mu    sync.RWMutex
	pages map[string]*template.Template
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithFuncs adds template functions available to every view.
func WithFuncs(funcs template.FuncMap) Option {
	return func(r *Renderer) {
		for k, v := range funcs {
			r.funcs[k] = v
		}
	}
}

// WithLayout overrides the layout file name.
func WithLayout(name string) Option {
	return func(r *Renderer) {
		r.layout = name
	}
}

// WithLogger sets the logger used by Watch.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New parses the views found in fsys.
func New(fsys fs.FS, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		fsys:   fsys,
		layout: defaultLayout,
		logger: slog.Default(),
		funcs: template.FuncMap{
			"year": func() int { return time.Now().Year() },
		},
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload parses all views again and swaps them in. On error the previously
// loaded views stay in place.
func (r *Renderer) Reload() error {
	files, err := fs.Glob(r.fsys, pagesGlob)
	if err != nil {
		return fmt.Errorf("list views: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no views matching %s", pagesGlob)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), path.Ext(file))
		t, err := template.New(path.Base(r.layout)).Funcs(r.funcs).ParseFS(r.fsys, r.layout, file)
		if err != nil {
			return fmt.Errorf("parse view %s: %w", name, err)
		}
		pages[name] = t
	}

	r.mu.Lock()
	r.pages = pages
	r.mu.Unlock()
	return nil
}

// Render writes the view called name executed with data to w.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	r.mu.RLock()
	t, ok := r.pages[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownView, name)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Errorf("render view %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Names returns the loaded view names, sorted.
func (r *Renderer) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.pages))
	for name := range r.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
