// Package web embeds the map page, its HTML fragments and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var content embed.FS

// TemplatePatterns are the template globs parsed by the renderer.
var TemplatePatterns = []string{"templates/*.html", "templates/fragments/*.html"}

// FS returns the embedded files.
func FS() fs.FS { return content }

// Static returns the static assets rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
