// Package nowww redirects requests for a www. host to the bare host.
//
// A request whose Host starts with "www." (any case) is answered with a 301
// pointing at the same path and query on the host without the prefix. The
// scheme follows the connection: https when the request arrived over TLS. Only
// a leading "www." is considered, so a.www.example.com is left alone, and the
// redirect target never matches again, so the rule cannot loop.
package nowww

import (
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/saveman71/saveman71.github.io/internal/pipeline"
)

var wwwPrefix = regexp.MustCompile(`(?i)^www\.`)

// Normalizer is the pipeline stage performing the redirect.
type Normalizer struct {
	trustProxy bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithTrustProxy makes the normalizer honour X-Forwarded-Proto and
// X-Forwarded-Host set by a reverse proxy in front of the server.
func WithTrustProxy(trust bool) Option {
	return func(n *Normalizer) {
		n.trustProxy = trust
	}
}

// New returns a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Normalizer) Name() string { return "no-www" }

func (n *Normalizer) Serve(w http.ResponseWriter, r *http.Request) pipeline.Outcome {
	location, ok := n.Target(r)
	if !ok {
		return pipeline.Continue()
	}

	_, hostAndURI, _ := strings.Cut(location, "://")
	w.Header().Set("Location", location)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusMovedPermanently)
	io.WriteString(w, "Redirecting to "+hostAndURI)
	return pipeline.Respond()
}

// Target returns the redirect location for r, or false when r is already on
// the canonical host.
func (n *Normalizer) Target(r *http.Request) (string, bool) {
	host, ok := CanonicalHost(n.host(r))
	if !ok {
		return "", false
	}
	return n.scheme(r) + "://" + host + requestURI(r), true
}

// CanonicalHost strips a leading "www." from host. It reports false when host
// has no such prefix or nothing would be left of the host name.
func CanonicalHost(host string) (string, bool) {
	loc := wwwPrefix.FindStringIndex(host)
	if loc == nil {
		return host, false
	}
	rest := host[loc[1]:]
	name := rest
	if h, _, err := net.SplitHostPort(rest); err == nil {
		name = h
	}
	if name == "" {
		return host, false
	}
	return rest, true
}

func (n *Normalizer) host(r *http.Request) string {
	if n.trustProxy {
		if fwd := firstValue(r.Header.Get("X-Forwarded-Host")); fwd != "" {
			return fwd
		}
	}
	return r.Host
}

func (n *Normalizer) scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if n.trustProxy && strings.EqualFold(firstValue(r.Header.Get("X-Forwarded-Proto")), "https") {
		return "https"
	}
	return "http"
}

// requestURI is the original path and query as sent by the client.
func requestURI(r *http.Request) string {
	if r.RequestURI != "" && strings.HasPrefix(r.RequestURI, "/") {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}

// firstValue returns the first entry of a comma separated header value.
func firstValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
