package lots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/paulmach/orb/geojson"
)

// Source delivers the lot feature collection. It is fetched once per map.
type Source interface {
	Fetch(ctx context.Context) (*geojson.FeatureCollection, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(ctx context.Context) (*geojson.FeatureCollection, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context) (*geojson.FeatureCollection, error) {
	return f(ctx)
}

// FileSource reads a GeoJSON feature collection from disk.
type FileSource struct {
	Path string
}

// Fetch reads and parses the file.
func (s FileSource) Fetch(ctx context.Context) (*geojson.FeatureCollection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading geojson %s: %w", s.Path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing geojson %s: %w", s.Path, err)
	}
	return fc, nil
}

// HTTPSource fetches a GeoJSON feature collection from a static URL.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// maxCollectionBytes caps the size of a fetched collection.
const maxCollectionBytes = 64 << 20

// Fetch GETs the URL and parses the body.
func (s HTTPSource) Fetch(ctx context.Context) (*geojson.FeatureCollection, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", s.URL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCollectionBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.URL, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing geojson from %s: %w", s.URL, err)
	}
	return fc, nil
}
