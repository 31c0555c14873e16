// Package templates renders the editor pages and the HTMX fragments
// returned by mutation endpoints. All templates are embedded.
package templates

import (
	"embed"
	"html/template"
)

//go:embed *.tmpl
var files embed.FS

// Parse parses every embedded template into one set rooted at name, so
// pages can nest the shared partials and fragment templates. Executing
// the returned template renders the named one.
func Parse(name string) (*template.Template, error) {
	t := template.New(name).Funcs(template.FuncMap{
		"safeHTML": func(s string) template.HTML { return template.HTML(s) },
	})
	return t.ParseFS(files, "*.tmpl")
}

// MustParse parses the named template and panics on failure. Intended for
// package-level template variables.
func MustParse(name string) *template.Template {
	t, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return t
}
