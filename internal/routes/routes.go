// Package routes holds the application route table and the pipeline stage
// that dispatches to it.
package routes

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saveman71/saveman71.github.io/internal/pipeline"
	"github.com/saveman71/saveman71.github.io/internal/server"
)

// Renderer renders a named view.
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// HandlerFunc handles a matched route. A returned error fails the request
// and is rendered by the error page.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Route is one entry of the route table.
type Route struct {
	Method  string
	Pattern string
	Handler HandlerFunc
}

// Site carries the values shared by every page.
type Site struct {
	Name string
}

// IndexData is the data handed to the index view.
type IndexData struct {
	Site      Site
	RequestID string
}

// Table returns the application's routes.
func Table(views Renderer, site Site) []Route {
	return []Route{
		{Method: http.MethodGet, Pattern: "/", Handler: Index(views, site)},
	}
}

// Index renders the home page.
func Index(views Renderer, site Site) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		data := IndexData{Site: site, RequestID: server.GetRequestID(r.Context())}
		return render(w, views, "index", http.StatusOK, data)
	}
}

func render(w http.ResponseWriter, views Renderer, name string, status int, data any) error {
	var buf bytes.Buffer
	if err := views.Render(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// dispatch records what happened to a request inside the mux.
type dispatch struct {
	matched bool
	err     error
}

type dispatchKey struct{}

// Router is the routes stage. Requests that match no route, or match a path
// under another method, continue down the pipeline.
type Router struct {
	mux    *chi.Mux
	logger *slog.Logger
}

// NewRouter builds the stage from a route table. GET routes also answer HEAD.
func NewRouter(table []Route, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	mux := chi.NewMux()
	unmatched := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	mux.NotFound(unmatched)
	mux.MethodNotAllowed(unmatched)

	for _, rt := range table {
		h := adapt(rt.Handler)
		mux.Method(rt.Method, rt.Pattern, h)
		if rt.Method == http.MethodGet {
			mux.Method(http.MethodHead, rt.Pattern, h)
		}
		logger.Debug("registered route",
			slog.String("method", rt.Method),
			slog.String("path", rt.Pattern))
	}

	return &Router{mux: mux, logger: logger}
}

func adapt(fn HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, _ := r.Context().Value(dispatchKey{}).(*dispatch)
		if d == nil {
			return
		}
		d.matched = true
		d.err = fn(w, r)
	})
}

func (rt *Router) Name() string { return "routes" }

func (rt *Router) Serve(w http.ResponseWriter, r *http.Request) pipeline.Outcome {
	d := &dispatch{}
	ctx := context.WithValue(r.Context(), dispatchKey{}, d)
	// A fresh routing context keeps the outer router's match state intact.
	ctx = context.WithValue(ctx, chi.RouteCtxKey, chi.NewRouteContext())

	rt.mux.ServeHTTP(w, r.WithContext(ctx))

	switch {
	case !d.matched:
		return pipeline.Continue()
	case d.err != nil:
		rt.logger.Debug("route failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", d.err.Error()))
		return pipeline.Fail(d.err)
	default:
		return pipeline.Respond()
	}
}
