package server

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

var securityHeaders = map[string]string{
	"X-Frame-Options":        "DENY",
	"X-Content-Type-Options": "nosniff",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
}

// SecurityHeaders sets the static security headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	for k, v := range securityHeaders {
		next = middleware.SetHeader(k, v)(next)
	}
	return next
}
