// Package templates holds the embedded HTML pages for the hosted checkout
// surfaces: the payment form, and the success and failure result pages.
package templates

import (
	"embed"
	"html/template"
)

//go:embed *.html
var files embed.FS

// Pages is the parsed template set. Lookup names match the file names.
var Pages = template.Must(template.ParseFS(files, "*.html"))
