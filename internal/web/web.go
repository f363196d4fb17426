// Package web holds the HTML templates of the patient pages.
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

// Templates parses every page. The layout is "base"; it picks the page
// template from .Page.
func Templates() (*template.Template, error) {
	return template.New("").ParseFS(files, "templates/*.html")
}

func MustTemplates() *template.Template {
	return template.Must(Templates())
}
