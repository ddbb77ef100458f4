// Package site provides the public API for embedding the web site server.
// This is the stable API for external consumers.
package site

import (
	"github.com/saveman71/saveman71.github.io/internal/runtime"
)

// Site is the main entry point for running the web site.
// See internal/runtime.Site for full documentation.
type Site = runtime.Site

// Option is a functional option for configuring a Site.
type Option = runtime.Option

// New creates a new Site with the given options.
// Example:
//
//	s, err := site.New(
//	    site.WithFileConfig("config.yaml"),
//	    site.WithLogger(logger),
//	)
var New = runtime.New

// Configuration options
var (
	// Config sources
	WithFileConfig     = runtime.WithFileConfig
	WithConfig         = runtime.WithConfig
	WithConfigProvider = runtime.WithConfigProvider

	// Assets
	WithViewsFS  = runtime.WithViewsFS
	WithPublicFS = runtime.WithPublicFS

	// Observability
	WithLogger         = runtime.WithLogger
	WithTracerProvider = runtime.WithTracerProvider
)
