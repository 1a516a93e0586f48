package lots

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ShapefileSource reads parcel polygons and their DBF attributes from an
// ESRI Shapefile. Attribute names are lower-cased so LOT_NO and lot_no
// both map onto the lot_no property.
type ShapefileSource struct {
	Path string
}

// Fetch converts every polygon record into a GeoJSON feature.
// Non-polygon records are skipped.
func (s ShapefileSource) Fetch(ctx context.Context) (*geojson.FeatureCollection, error) {
	reader, err := shp.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening shapefile %s: %w", s.Path, err)
	}
	defer reader.Close()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimSpace(f.String()))
	}

	fc := geojson.NewFeatureCollection()
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			slog.Debug("skipping non-polygon shape", "path", s.Path, "record", n, "type", fmt.Sprintf("%T", shape))
			continue
		}

		f := geojson.NewFeature(convertPolygon(poly))
		for i, name := range names {
			val := strings.TrimSpace(reader.ReadAttribute(n, i))
			if val != "" {
				f.Properties[name] = val
			}
		}
		fc.Append(f)
	}

	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("reading shapefile %s: %w", s.Path, err)
	}
	return fc, nil
}

// convertPolygon treats every part of the record as a ring of one polygon,
// outer ring first.
func convertPolygon(s *shp.Polygon) orb.Polygon {
	var poly orb.Polygon
	for i := 0; i < int(s.NumParts); i++ {
		start := s.Parts[i]
		end := s.NumPoints
		if i < int(s.NumParts)-1 {
			end = s.Parts[i+1]
		}
		ring := make(orb.Ring, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, orb.Point{s.Points[j].X, s.Points[j].Y})
		}
		poly = append(poly, ring)
	}
	return poly
}
