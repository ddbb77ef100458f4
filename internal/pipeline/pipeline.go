package pipeline

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/saveman71/saveman71.github.io/internal/httperr"
)

const tracerName = "github.com/saveman71/saveman71.github.io/internal/pipeline"

// Stage is one unit of the pipeline.
type Stage interface {
	Name() string
	Serve(w http.ResponseWriter, r *http.Request) Outcome
}

// ErrorHandler renders the response for a failed request.
type ErrorHandler interface {
	HandleError(w http.ResponseWriter, r *http.Request, err error)
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

func (f ErrorHandlerFunc) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	f(w, r, err)
}

type funcStage struct {
	name string
	fn   func(w http.ResponseWriter, r *http.Request) Outcome
}

func (s funcStage) Name() string { return s.name }

func (s funcStage) Serve(w http.ResponseWriter, r *http.Request) Outcome { return s.fn(w, r) }

// Func returns a stage named name that runs fn.
func Func(name string, fn func(w http.ResponseWriter, r *http.Request) Outcome) Stage {
	return funcStage{name: name, fn: fn}
}

// Pipeline is an immutable ordered list of stages plus the error handler.
type Pipeline struct {
	stages  []Stage
	onError ErrorHandler
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for pipeline diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithErrorHandler sets the handler that renders failed requests.
func WithErrorHandler(h ErrorHandler) Option {
	return func(p *Pipeline) {
		p.onError = h
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) {
		if tp != nil {
			p.tracer = tp.Tracer(tracerName)
		}
	}
}

// New builds a pipeline running stages in the given order.
func New(stages []Stage, opts ...Option) *Pipeline {
	p := &Pipeline{
		stages: append([]Stage(nil), stages...),
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tw := &trackingWriter{ResponseWriter: w}

	for _, stage := range p.stages {
		out := p.run(stage, tw, r)

		switch out.kind {
		case kindRespond:
			return
		case kindFail:
			p.fail(tw, r, stage.Name(), out.err)
			return
		}

		if tw.started {
			p.logger.Warn("stage wrote a response but continued",
				slog.String("stage", stage.Name()),
				slog.String("path", r.URL.Path))
			return
		}
		if out.request != nil {
			r = out.request
		}
	}

	http.NotFound(tw, r)
}

// run serves one stage inside a span and turns a panic into a failure.
func (p *Pipeline) run(stage Stage, w *trackingWriter, r *http.Request) (out Outcome) {
	_, span := p.tracer.Start(r.Context(), "stage "+stage.Name(),
		trace.WithAttributes(attribute.String("pipeline.stage", stage.Name())))
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				span.End()
				panic(rec)
			}
			out = Outcome{kind: kindFail, err: httperr.FromPanic(rec, debug.Stack())}
		}
		span.SetAttributes(attribute.String("pipeline.outcome", out.String()))
		if out.kind == kindFail {
			span.RecordError(out.err)
			span.SetStatus(codes.Error, out.err.Error())
		}
		span.End()
	}()

	return stage.Serve(w, r)
}

func (p *Pipeline) fail(w *trackingWriter, r *http.Request, stage string, err error) {
	if w.started {
		p.logger.Error("stage failed after the response was started",
			slog.String("stage", stage),
			slog.String("url", r.URL.RequestURI()),
			slog.String("error", err.Error()))
		return
	}
	if p.onError == nil {
		http.Error(w, http.StatusText(httperr.StatusOf(err)), httperr.StatusOf(err))
		return
	}
	p.onError.HandleError(w, r, err)
}
