package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-lots/internal/config"
	"github.com/joeblew999/plat-lots/internal/db"
	"github.com/joeblew999/plat-lots/internal/lots"
)

const fixture = "../../internal/lots/testdata/lots.geojson"

func TestWriteSpec(t *testing.T) {
	spec := &huma.OpenAPI{OpenAPI: "3.1.0", Info: &huma.Info{Title: "plat-lots API", Version: "1.0.0"}}

	var js bytes.Buffer
	require.NoError(t, writeSpec(&js, spec, false))
	assert.Contains(t, js.String(), `"title": "plat-lots API"`)

	var ym bytes.Buffer
	require.NoError(t, writeSpec(&ym, spec, true))
	assert.Contains(t, ym.String(), "title: plat-lots API")
}

func TestImportLots(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	store := db.NewStore(conn)

	path, err := filepath.Abs(fixture)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, importLots(ctx, &out, store, path))
	assert.Contains(t, out.String(), "Imported 3 lots")

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Error(t, importLots(ctx, &out, store, "duckdb:"))
	assert.Error(t, importLots(ctx, &out, store, "lots.kml"))
}

func TestPrintLots(t *testing.T) {
	var out bytes.Buffer
	err := printLots(context.Background(), &out, config.NewVariant(), lots.FileSource{Path: fixture})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "12")
	assert.Contains(t, lines[1], "Sold")
	assert.Contains(t, lines[1], "0.5 acres")
	assert.Contains(t, lines[2], "Spec Home")
	assert.Contains(t, lines[3], "N/A")
	assert.Contains(t, out.String(), "3 lots, home view")
}

func TestPrintLotsLoadError(t *testing.T) {
	var out bytes.Buffer
	err := printLots(context.Background(), &out, config.NewVariant(), lots.FileSource{Path: "missing.geojson"})
	assert.Error(t, err)
	assert.Empty(t, out.String())
}
