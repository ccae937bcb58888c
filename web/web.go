// Package web carries the embedded dashboard assets: the HTML templates and
// the static files (including the PWA manifest and service worker that must
// be served from the site root).
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var assets embed.FS

// GetTemplatesFS returns the dashboard template files.
func GetTemplatesFS() fs.FS {
	sub, _ := fs.Sub(assets, "templates")
	return sub
}

// GetStaticFS returns the static asset files.
func GetStaticFS() fs.FS {
	sub, _ := fs.Sub(assets, "static")
	return sub
}
