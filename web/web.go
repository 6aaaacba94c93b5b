// Package web holds the html templates rendered by the api
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.tmpl
var templates embed.FS

// ParseTemplates parses every embedded template
func ParseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"pct": func(score int) int {
			if score < 0 {
				return 0
			}
			if score > 100 {
				return 100
			}
			return score
		},
	}
	return template.New("").Funcs(funcMap).ParseFS(templates, "templates/*.tmpl")
}
