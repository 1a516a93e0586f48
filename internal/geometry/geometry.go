// Package geometry computes label anchor positions for lot polygons.
//
// Coordinates stay in the data's native [lon, lat] order everywhere in this
// package. ToLatLng is the one place the order is flipped for the map.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrInvalidGeometry is returned for geometries that have no usable ring.
var ErrInvalidGeometry = errors.New("invalid geometry")

// topBlend is how far the top anchor moves from the centroid toward the
// north-most vertex.
const topBlend = 0.85

// Centroid returns the arithmetic mean of every vertex in ring, not an
// area-weighted centroid. A closed ring counts its closing vertex.
func Centroid(ring orb.Ring) (orb.Point, error) {
	if len(ring) == 0 {
		return orb.Point{}, fmt.Errorf("%w: empty ring", ErrInvalidGeometry)
	}
	var x, y float64
	for _, p := range ring {
		x += p.X()
		y += p.Y()
	}
	n := float64(len(ring))
	return orb.Point{x / n, y / n}, nil
}

// TopAnchor returns a point biased toward the ring's upper edge: the
// centroid's X, with Y moved 85% of the way from the centroid toward the
// north-most vertex.
func TopAnchor(ring orb.Ring) (orb.Point, error) {
	c, err := Centroid(ring)
	if err != nil {
		return orb.Point{}, err
	}
	maxY := math.Inf(-1)
	for _, p := range ring {
		if p.Y() > maxY {
			maxY = p.Y()
		}
	}
	return orb.Point{c.X(), c.Y() + (maxY-c.Y())*topBlend}, nil
}

// FirstRing returns the ring used for label placement: the outer ring of a
// Polygon, or of the first polygon of a MultiPolygon.
func FirstRing(g orb.Geometry) (orb.Ring, error) {
	var ring orb.Ring
	switch geom := g.(type) {
	case orb.Polygon:
		if len(geom) > 0 {
			ring = geom[0]
		}
	case orb.MultiPolygon:
		if len(geom) > 0 && len(geom[0]) > 0 {
			ring = geom[0][0]
		}
	case orb.Ring:
		ring = geom
	case nil:
		return nil, fmt.Errorf("%w: missing geometry", ErrInvalidGeometry)
	default:
		return nil, fmt.Errorf("%w: unsupported type %s", ErrInvalidGeometry, g.GeoJSONType())
	}
	if len(ring) == 0 {
		return nil, fmt.Errorf("%w: empty ring", ErrInvalidGeometry)
	}
	return ring, nil
}

// LatLng is a coordinate in the map surface's latitude-first order.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ToLatLng flips a native [lon, lat] point.
func ToLatLng(p orb.Point) LatLng {
	return LatLng{Lat: p.Y(), Lng: p.X()}
}

// Point converts back to native [lon, lat] order.
func (ll LatLng) Point() orb.Point {
	return orb.Point{ll.Lng, ll.Lat}
}

// Anchor is the label placement policy, chosen once per map.
type Anchor string

const (
	AnchorCentroid Anchor = "centroid"
	AnchorTop      Anchor = "top"
)

// ParseAnchor validates an anchor policy name. Empty means centroid.
func ParseAnchor(s string) (Anchor, error) {
	switch Anchor(s) {
	case "", AnchorCentroid:
		return AnchorCentroid, nil
	case AnchorTop:
		return AnchorTop, nil
	}
	return "", fmt.Errorf("unknown label anchor %q (want centroid or top)", s)
}

// Place returns the label position for g under the policy, already in
// latitude-first order.
func (a Anchor) Place(g orb.Geometry) (LatLng, error) {
	ring, err := FirstRing(g)
	if err != nil {
		return LatLng{}, err
	}
	var p orb.Point
	if a == AnchorTop {
		p, err = TopAnchor(ring)
	} else {
		p, err = Centroid(ring)
	}
	if err != nil {
		return LatLng{}, err
	}
	return ToLatLng(p), nil
}
