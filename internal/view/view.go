// Package view holds the server-rendered pages.
package view

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var files embed.FS

const timeLayout = "Mon Jan 2, 15:04"

var funcs = template.FuncMap{
	"when": func(t time.Time) string { return t.Local().Format(timeLayout) },
	"minutes": func(start, end time.Time) int {
		return int(end.Sub(start).Minutes())
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// Load parses every page. Templates are addressed by file name, e.g. "home.html".
func Load() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
}
