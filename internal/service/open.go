package service

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeblew999/plat-lots/internal/db"
	"github.com/joeblew999/plat-lots/internal/lots"
)

// DuckDBScheme selects the lots table of the DuckDB store.
const DuckDBScheme = "duckdb:"

// ErrNoStore is returned for a duckdb: source when no database is open.
var ErrNoStore = errors.New("duckdb source requested but no database is available")

// OpenSource resolves a source URI:
//
//	http://..., https://...  GeoJSON over HTTP
//	duckdb:                  the lots table in store
//	*.shp                    ESRI Shapefile
//	anything else            GeoJSON file
//
// Relative file paths are resolved against baseDir.
func OpenSource(uri, baseDir string, store *db.Store) (lots.Source, error) {
	uri = strings.TrimSpace(uri)
	switch {
	case uri == "":
		return nil, errors.New("empty source")
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return lots.HTTPSource{URL: uri, Client: &http.Client{Timeout: 30 * time.Second}}, nil
	case strings.HasPrefix(uri, DuckDBScheme):
		if store == nil {
			return nil, ErrNoStore
		}
		return store, nil
	}

	path := strings.TrimPrefix(uri, "file://")
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return lots.ShapefileSource{Path: path}, nil
	case ".geojson", ".json":
		return lots.FileSource{Path: path}, nil
	}
	return nil, fmt.Errorf("unsupported source %q", uri)
}
