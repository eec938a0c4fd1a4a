// Package pagegen renders the page-source file generated for each city and
// the per-category route manifest.
//
// Output is a pure function of its inputs: the same name, category and slug
// always render byte-identical files.
package pagegen

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"text/template"

	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/naming"
)

// Ext is the extension of generated page files.
const Ext = ".jsx"

//go:embed templates/*.tmpl
var templateFS embed.FS

// Templates use [[ ]] delimiters so JSX object literals ({{ }}) pass through.
var templates = template.Must(
	template.New("pages").Delims("[[", "]]").ParseFS(templateFS, "templates/*.tmpl"),
)

type pageData struct {
	Header     string
	Name       string
	Slug       string
	Component  string
	Endpoint   string
	PublicPath string
}

// ComponentName returns the generated component identifier, e.g. PuneTaxiPage.
func ComponentName(name string, cat category.Category) (string, error) {
	id, err := naming.Identifier(name)
	if err != nil {
		return "", err
	}
	return id + cat.FileSuffix, nil
}

// FileName returns the page file name for a city, e.g. PuneTaxiPage.jsx.
func FileName(name string, cat category.Category) (string, error) {
	comp, err := ComponentName(name, cat)
	if err != nil {
		return "", err
	}
	return comp + Ext, nil
}

// RelPath returns the page path relative to the pages root.
func RelPath(name string, cat category.Category) (string, error) {
	file, err := FileName(name, cat)
	if err != nil {
		return "", err
	}
	return path.Join(cat.Dir, file), nil
}

// Render produces the page source for a city.
func Render(name string, cat category.Category, slug string) ([]byte, error) {
	comp, err := ComponentName(name, cat)
	if err != nil {
		return nil, err
	}
	header, err := Header{
		Generator: Generator,
		Category:  cat.Key,
		Name:      name,
		Slug:      slug,
		Component: comp,
	}.Encode()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = templates.ExecuteTemplate(&buf, cat.Key+".jsx.tmpl", pageData{
		Header:     header,
		Name:       name,
		Slug:       slug,
		Component:  comp,
		Endpoint:   cat.EndpointPath(slug),
		PublicPath: cat.PublicPath(slug),
	})
	if err != nil {
		return nil, fmt.Errorf("pagegen: render %s page for %q: %w", cat, name, err)
	}
	return buf.Bytes(), nil
}
