/*
Package server provides the outer HTTP server and the middleware wrapped around
the request pipeline.

# Middleware Components

## Request ID (requestid.go)

RequestIDMiddleware assigns each request a UUID and adds it to:
  - The request context (accessible via GetRequestID)
  - The X-Request-ID response header

An incoming X-Request-ID that parses as a UUID is reused.

## Logging (logging.go)

LoggingMiddleware provides structured request logging using slog:
  - Logs request start (method, host, path, remote_addr)
  - Logs request completion (status, duration), at error level for 5xx
  - Supports custom log fields via AddLogField/AddError

## Security headers (headers.go)

SecurityHeaders sets X-Frame-Options, X-Content-Type-Options and
Referrer-Policy on every response.

## Timeout (timeout.go)

TimeoutMiddleware puts a deadline on the request context. Stages check
ctx.Done() for cooperative cancellation.

# Middleware Chain Order

New applies:
 1. RealIP (only when proxy headers are trusted)
 2. RequestIDMiddleware
 3. LoggingMiddleware
 4. SecurityHeaders
 5. TimeoutMiddleware
 6. Recoverer (last line behind the pipeline's own panic handling)
 7. Compress (when enabled)
 8. OTel instrumentation

# Example Usage

	srv := server.New(server.Options{Port: 3000}, logger, pipeline)
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Shutdown(ctx)
*/
package server
