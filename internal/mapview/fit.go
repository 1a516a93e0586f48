package mapview

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/joeblew999/plat-lots/internal/engine"
	"github.com/joeblew999/plat-lots/internal/geometry"
)

// tileSize is the pixel size of one web map tile at zoom 0.
const tileSize = 256

// Viewport is the pixel size of the client map container.
type Viewport struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// DefaultViewport is assumed until the client reports its size.
var DefaultViewport = Viewport{Width: 1280, Height: 800}

// Mobile reports whether the viewport is a phone-sized screen.
func (v Viewport) Mobile() bool {
	return v.Width > 0 && v.Width <= 768
}

// FitView returns the largest integer zoom at which b, padded on every side,
// fits the viewport, centred on b in Web Mercator. The zoom is clamped to
// [0, maxZoom]; a degenerate bound gets maxZoom.
func FitView(b orb.Bound, vp Viewport, pad engine.Padding, maxZoom float64) engine.View {
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = DefaultViewport
	}
	lo := project.WGS84.ToMercator(b.Min)
	hi := project.WGS84.ToMercator(b.Max)
	center := project.Mercator.ToWGS84(orb.Point{(lo.X() + hi.X()) / 2, (lo.Y() + hi.Y()) / 2})

	// Metres across the whole world at zoom 0 map to tileSize pixels.
	world := 2 * math.Pi * orb.EarthRadius

	zoom := maxZoom
	for _, span := range []struct{ metres, pixels float64 }{
		{hi.X() - lo.X(), float64(vp.Width - 2*pad.X)},
		{hi.Y() - lo.Y(), float64(vp.Height - 2*pad.Y)},
	} {
		if span.metres <= 0 {
			continue
		}
		pixels := math.Max(span.pixels, 1)
		z := math.Log2(pixels * world / (tileSize * span.metres))
		zoom = math.Min(zoom, z)
	}
	zoom = math.Max(0, math.Floor(zoom))

	return engine.View{Center: geometry.ToLatLng(center), Zoom: zoom}
}
