// Package body decodes URL-encoded and JSON request bodies ahead of the
// route handlers.
package body

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/saveman71/saveman71.github.io/internal/httperr"
	"github.com/saveman71/saveman71.github.io/internal/pipeline"
)

// DefaultLimit is the largest body accepted when no limit is configured.
const DefaultLimit int64 = 100 << 10

type contextKey struct{}

// Body holds what the parser extracted from a request.
type Body struct {
	// Form holds url-encoded fields.
	Form url.Values
	// JSON holds the decoded JSON document. Numbers are json.Number.
	JSON any
	// Err is set when the body could not be read or decoded.
	Err error
}

// Value returns a top-level field by key from either encoding.
func (b *Body) Value(key string) (any, bool) {
	if b == nil {
		return nil, false
	}
	if b.Form != nil {
		if vs, ok := b.Form[key]; ok && len(vs) > 0 {
			return vs[0], true
		}
	}
	if obj, ok := b.JSON.(map[string]any); ok {
		v, ok := obj[key]
		return v, ok
	}
	return nil, false
}

// Parser is the body-parsing stage. A body that fails to decode does not stop
// the pipeline; the failure is stored and surfaces through FromRequest.
type Parser struct {
	limit int64
}

// NewParser returns a parser accepting bodies up to limit bytes.
func NewParser(limit int64) *Parser {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Parser{limit: limit}
}

func (p *Parser) Name() string { return "body" }

func (p *Parser) Serve(w http.ResponseWriter, r *http.Request) pipeline.Outcome {
	if r.Body == nil || r.Body == http.NoBody {
		return pipeline.Continue()
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return pipeline.Continue()
	}

	var b *Body
	switch {
	case mediaType == "application/x-www-form-urlencoded":
		b = p.parseForm(w, r)
	case isJSON(mediaType):
		b = p.parseJSON(w, r)
	default:
		return pipeline.Continue()
	}

	return pipeline.ContinueWith(r.WithContext(context.WithValue(r.Context(), contextKey{}, b)))
}

func (p *Parser) parseForm(w http.ResponseWriter, r *http.Request) *Body {
	r.Body = http.MaxBytesReader(connWriter(w), r.Body, p.limit)
	if err := r.ParseForm(); err != nil {
		return &Body{Err: classify(err, "invalid form body")}
	}
	return &Body{Form: r.PostForm}
}

func (p *Parser) parseJSON(w http.ResponseWriter, r *http.Request) *Body {
	data, err := io.ReadAll(http.MaxBytesReader(connWriter(w), r.Body, p.limit))
	if err != nil {
		return &Body{Err: classify(err, "could not read body")}
	}
	// Later stages may read the body again.
	r.Body = io.NopCloser(bytes.NewReader(data))

	if len(bytes.TrimSpace(data)) == 0 {
		return &Body{}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return &Body{Err: httperr.BadRequest(err, "invalid JSON body")}
	}
	if dec.More() {
		return &Body{Err: httperr.BadRequest(errors.New("trailing data after JSON value"), "invalid JSON body")}
	}
	return &Body{JSON: v}
}

// connWriter unwraps w down to the writer net/http handed the server, so an
// oversize body marks the connection for close.
func connWriter(w http.ResponseWriter) http.ResponseWriter {
	for {
		u, ok := w.(interface{ Unwrap() http.ResponseWriter })
		if !ok {
			return w
		}
		w = u.Unwrap()
	}
}

func classify(err error, message string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return httperr.Wrap(err, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body larger than %d bytes", tooLarge.Limit))
	}
	return httperr.BadRequest(err, message)
}

func isJSON(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// FromRequest returns the parsed body, or nil when the request carried no
// body in a supported encoding. The error is the decoding failure, if any.
func FromRequest(r *http.Request) (*Body, error) {
	b, _ := r.Context().Value(contextKey{}).(*Body)
	if b == nil {
		return nil, nil
	}
	return b, b.Err
}
