// Package errpage renders the not-found page and the error page at the tail
// of the request pipeline.
package errpage

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/saveman71/saveman71.github.io/internal/httperr"
	"github.com/saveman71/saveman71.github.io/internal/pipeline"
	"github.com/saveman71/saveman71.github.io/internal/server"
)

const (
	notFoundView = "404"
	errorView    = "error"
)

// Renderer renders a named view.
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// NotFoundData is the data handed to the 404 view.
type NotFoundData struct {
	Status int
	URL    string
}

// ErrorData is the data handed to the error view. Stacktrace is empty unless
// stack traces are enabled.
type ErrorData struct {
	Status     int
	Message    string
	Stacktrace string
}

// NotFound is the last regular stage: anything reaching it is a 404.
type NotFound struct {
	views Renderer
}

func NewNotFound(views Renderer) *NotFound {
	return &NotFound{views: views}
}

func (n *NotFound) Name() string { return "not-found" }

func (n *NotFound) Serve(w http.ResponseWriter, r *http.Request) pipeline.Outcome {
	data := NotFoundData{Status: http.StatusNotFound, URL: r.URL.RequestURI()}

	var buf bytes.Buffer
	if err := n.views.Render(&buf, notFoundView, data); err != nil {
		return pipeline.Fail(fmt.Errorf("render %s: %w", notFoundView, err))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	buf.WriteTo(w)
	return pipeline.Respond()
}

// Handler renders failures as the error page. It is the pipeline's single
// error handler.
type Handler struct {
	views       Renderer
	logger      *slog.Logger
	stacktraces bool
}

// NewHandler returns an error handler. When stacktraces is set the page shows
// the stack captured where the error was raised.
func NewHandler(views Renderer, logger *slog.Logger, stacktraces bool) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{views: views, logger: logger, stacktraces: stacktraces}
}

func (h *Handler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	status := httperr.StatusOf(err)
	data := ErrorData{
		Status:  status,
		Message: "Error: " + httperr.MessageOf(err),
	}
	if h.stacktraces {
		data.Stacktrace = string(httperr.StackOf(err))
	}

	server.AddError(r.Context(), err)
	h.log(r, status, err)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Del("Content-Length")

	var buf bytes.Buffer
	if rerr := h.views.Render(&buf, errorView, data); rerr != nil {
		h.logger.Error("failed to render error page",
			slog.String("request_id", server.GetRequestID(r.Context())),
			slog.String("error", rerr.Error()))
		h.plain(w, data)
		return
	}

	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *Handler) log(r *http.Request, status int, err error) {
	attrs := []any{
		slog.String("request_id", server.GetRequestID(r.Context())),
		slog.String("url", r.URL.RequestURI()),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", attrs...)
		return
	}
	h.logger.Warn("request failed", attrs...)
}

func (h *Handler) plain(w http.ResponseWriter, data ErrorData) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(data.Status)
	io.WriteString(w, data.Message+"\n")
	if data.Stacktrace != "" {
		io.WriteString(w, "\n"+data.Stacktrace)
	}
}
