// Package web embeds the site's views and public assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed views
var views embed.FS

//go:embed public
var public embed.FS

// Views returns the view tree: layout.html and pages/*.html.
func Views() fs.FS {
	return mustSub(views, "views")
}

// Public returns the files served as static assets.
func Public() fs.FS {
	return mustSub(public, "public")
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
