package pagegen

import (
	"bytes"
	"fmt"
	"path"

	"github.com/starford/citypages/internal/category"
)

// ManifestFile is the generated route registration module in each page directory.
const ManifestFile = "routes.generated.js"

// ManifestEntry is one city registered in the manifest.
type ManifestEntry struct {
	ComponentName string
	FullPath      string
	ShortPath     string
}

type manifestData struct {
	Header  string
	Var     string
	Entries []ManifestEntry
}

// ManifestPath returns the manifest path relative to the pages root.
func ManifestPath(cat category.Category) string {
	return path.Join(cat.Dir, ManifestFile)
}

// RenderManifest regenerates the whole route module for a category. Entries
// are written in the order given.
func RenderManifest(cat category.Category, entries []ManifestEntry) ([]byte, error) {
	header, err := Header{Generator: Generator, Category: cat.Key}.Encode()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = templates.ExecuteTemplate(&buf, "manifest.js.tmpl", manifestData{
		Header:  header,
		Var:     cat.Key + "CityRoutes",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("pagegen: render %s manifest: %w", cat, err)
	}
	return buf.Bytes(), nil
}
