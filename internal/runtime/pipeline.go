package runtime

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"

	"github.com/saveman71/saveman71.github.io/internal/body"
	"github.com/saveman71/saveman71.github.io/internal/errpage"
	"github.com/saveman71/saveman71.github.io/internal/nowww"
	"github.com/saveman71/saveman71.github.io/internal/pipeline"
	"github.com/saveman71/saveman71.github.io/internal/pkg/config"
	"github.com/saveman71/saveman71.github.io/internal/routes"
	"github.com/saveman71/saveman71.github.io/internal/static"
	"github.com/saveman71/saveman71.github.io/internal/view"
)

// Assets are the file systems the pipeline serves from when the config does
// not name on-disk directories.
type Assets struct {
	Views  fs.FS
	Public fs.FS
}

// resolve picks the configured directories over the given file systems.
func (a Assets) resolve(cfg *config.Config) (Assets, error) {
	out := a
	if cfg.Views.Dir != "" {
		if err := isDir(cfg.Views.Dir); err != nil {
			return Assets{}, fmt.Errorf("views.dir: %w", err)
		}
		out.Views = os.DirFS(cfg.Views.Dir)
	}
	if cfg.Static.Dir != "" {
		if err := isDir(cfg.Static.Dir); err != nil {
			return Assets{}, fmt.Errorf("static.dir: %w", err)
		}
		out.Public = os.DirFS(cfg.Static.Dir)
	}
	if out.Views == nil {
		return Assets{}, fmt.Errorf("no views configured")
	}
	if out.Public == nil {
		return Assets{}, fmt.Errorf("no public files configured")
	}
	return out, nil
}

func isDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// NewPipeline composes the request pipeline:
//
//	no-www -> favicon -> body -> routes -> static -> not-found
//
// with the error page as its error handler. The views are parsed before the
// first stage runs and shared by every stage that renders.
func NewPipeline(cfg *config.Config, assets Assets, logger *slog.Logger, tp trace.TracerProvider) (*pipeline.Pipeline, *view.Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	assets, err := assets.resolve(cfg)
	if err != nil {
		return nil, nil, err
	}

	views, err := view.New(assets.Views, view.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("load views: %w", err)
	}
	for _, name := range []string{"index", "404", "error"} {
		if !hasView(views, name) {
			return nil, nil, fmt.Errorf("load views: missing %q", name)
		}
	}

	favicon, err := static.NewFavicon(assets.Public, cfg.Static.Favicon, cfg.Static.FaviconMaxAge)
	if err != nil {
		return nil, nil, err
	}

	stages := []pipeline.Stage{
		nowww.New(nowww.WithTrustProxy(cfg.Server.TrustProxy)),
		favicon,
		body.NewParser(cfg.Body.Limit),
		routes.NewRouter(routes.Table(views, routes.Site{Name: cfg.App.Name}), logger),
		static.NewDir(assets.Public, cfg.Static.MaxAge),
		errpage.NewNotFound(views),
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithErrorHandler(errpage.NewHandler(views, logger, cfg.App.Stacktraces)),
	}
	if tp != nil {
		opts = append(opts, pipeline.WithTracerProvider(tp))
	}

	return pipeline.New(stages, opts...), views, nil
}

func hasView(views *view.Renderer, name string) bool {
	for _, n := range views.Names() {
		if n == name {
			return true
		}
	}
	return false
}
