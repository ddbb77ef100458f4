// Package pipeline provides the ordered request pipeline.
//
// A pipeline is a fixed list of stages built once and then shared by every
// request. Each stage serves the request and reports an Outcome:
//
//   - Continue / ContinueWith: hand the (possibly derived) request to the next stage
//   - Respond: the stage wrote the response; no later stage runs
//   - Fail: skip the remaining stages and let the error handler answer
//
// # Guarantees
//
// Every request gets exactly one terminal action. A panic inside a stage is
// recovered into a 500 error carrying the goroutine stack. A failure after
// the response was started is logged, never written. A request that no stage
// answers gets a plain 404.
//
// # Tracing
//
// Each stage runs in its own OpenTelemetry span named "stage <name>" with the
// outcome recorded as the pipeline.outcome attribute.
//
//	p := pipeline.New(stages,
//	    pipeline.WithLogger(logger),
//	    pipeline.WithErrorHandler(errorPage),
//	)
//	http.ListenAndServe(":3000", p)
package pipeline
