package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. SITE_SERVER__PORT.
const EnvPrefix = "SITE_"

// DefaultPath is read when no config path is given. It may be absent.
const DefaultPath = "config.yaml"

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Views     ViewsConfig     `koanf:"views"`
	Static    StaticConfig    `koanf:"static"`
	Body      BodyConfig      `koanf:"body"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type AppConfig struct {
	Name string `koanf:"name"`
	Env  string `koanf:"env"` // development, production
	// Stacktraces shows the error stack on the error page.
	Stacktraces bool `koanf:"stacktraces"`
}

// Development reports whether the app runs in development mode.
func (a AppConfig) Development() bool {
	return a.Env == "development"
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	TrustProxy      bool          `koanf:"trust_proxy"` // honour X-Forwarded-* headers
	Compress        bool          `koanf:"compress"`
}

type ViewsConfig struct {
	Dir    string `koanf:"dir"`    // empty: embedded views
	Reload bool   `koanf:"reload"` // watch Dir and re-parse on change
}

type StaticConfig struct {
	Dir           string        `koanf:"dir"` // empty: embedded public files
	Favicon       string        `koanf:"favicon"`
	MaxAge        time.Duration `koanf:"max_age"`
	FaviconMaxAge time.Duration `koanf:"favicon_max_age"`
}

type BodyConfig struct {
	Limit int64 `koanf:"limit"` // bytes
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

var defaults = map[string]any{
	"app.name":                "saveman71",
	"app.env":                 "production",
	"app.stacktraces":         false,
	"server.port":             3000,
	"server.read_timeout":     "30s",
	"server.write_timeout":    "30s",
	"server.request_timeout":  "30s",
	"server.shutdown_timeout": "30s",
	"server.trust_proxy":      false,
	"server.compress":         true,
	"views.dir":               "",
	"views.reload":            false,
	"static.dir":              "",
	"static.favicon":          "favicon.ico",
	"static.max_age":          "1h",
	"static.favicon_max_age":  "24h",
	"body.limit":              102400,
	"telemetry.enabled":       false,
	"telemetry.service_name":  "site",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads the YAML file at path, then SITE_ environment overrides, then
// fills defaults. An empty path reads config.yaml if it exists.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	optional := path == ""
	if optional {
		path = DefaultPath
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// A missing default file is OK, we'll use env vars
		if !optional || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// Default values
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Views.Dir = substituteEnvVars(cfg.Views.Dir)
	cfg.Static.Dir = substituteEnvVars(cfg.Static.Dir)
	cfg.Static.Favicon = substituteEnvVars(cfg.Static.Favicon)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	k := koanf.New(".")
	for key, value := range defaults {
		k.Set(key, value)
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &cfg
}

// Validate checks values that cannot be served with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	for name, d := range map[string]time.Duration{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.request_timeout":  c.Server.RequestTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"static.max_age":          c.Static.MaxAge,
		"static.favicon_max_age":  c.Static.FaviconMaxAge,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if c.Body.Limit <= 0 {
		errs = append(errs, fmt.Errorf("body.limit must be positive"))
	}
	if c.Views.Reload && c.Views.Dir == "" {
		errs = append(errs, fmt.Errorf("views.reload needs views.dir"))
	}
	if c.Static.Favicon == "" {
		errs = append(errs, fmt.Errorf("static.favicon must be set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
