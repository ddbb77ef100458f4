package pipeline

import "net/http"

// trackingWriter records whether a response was started so the pipeline can
// keep the one-response-per-request invariant.
type trackingWriter struct {
	http.ResponseWriter
	status  int
	started bool
}

func (tw *trackingWriter) WriteHeader(code int) {
	if tw.started {
		return
	}
	// informational responses do not start the final response
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		tw.ResponseWriter.WriteHeader(code)
		return
	}
	tw.started = true
	tw.status = code
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *trackingWriter) Write(b []byte) (int, error) {
	if !tw.started {
		tw.started = true
		tw.status = http.StatusOK
	}
	return tw.ResponseWriter.Write(b)
}

// Flush forwards Flush to the underlying ResponseWriter if it supports http.Flusher.
func (tw *trackingWriter) Flush() {
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		tw.started = true
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (tw *trackingWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}
