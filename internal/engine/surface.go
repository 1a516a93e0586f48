package engine

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-lots/internal/geometry"
	"github.com/joeblew999/plat-lots/internal/lots"
	"github.com/joeblew999/plat-lots/internal/style"
)

// View is a camera position.
type View struct {
	Center geometry.LatLng `json:"center" doc:"Map center"`
	Zoom   float64         `json:"zoom" doc:"Zoom level" example:"18"`
}

// Animation parameters for an animated camera move.
type Animation struct {
	Duration      time.Duration `json:"-"`
	EaseLinearity float64       `json:"easeLinearity"`
}

// Padding in screen pixels applied when fitting bounds.
type Padding struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Cursor is the pointer feedback requested from the surface.
type Cursor string

const (
	CursorDefault Cursor = ""
	CursorPointer Cursor = "pointer"
)

// Camera controls the map view.
type Camera interface {
	View() View
	SetView(v View)
	// FlyTo starts an animated move. A new call retargets any move in flight.
	FlyTo(v View, anim Animation)
	// FitBounds computes the view that contains b with padding. It does not
	// move the camera.
	FitBounds(b orb.Bound, pad Padding) View
	// OnZoomEnd subscribes fn to every completed zoom change.
	OnZoomEnd(fn func(zoom float64))
}

// Layer renders lot polygons and dispatches their pointer events.
type Layer interface {
	Render(features []lots.Feature, styleOf func(lots.FeatureID) style.Style, h PointerHandler)
	SetStyle(id lots.FeatureID, s style.Style)
	// BringToFront raises the lot above its neighbours so its stroke shows.
	BringToFront(id lots.FeatureID)
	SetCursor(c Cursor)
}

// Labels places non-interactive text markers, one per lot.
type Labels interface {
	PlaceLabel(id lots.FeatureID, at geometry.LatLng, text string)
	SetLabelOpacity(id lots.FeatureID, opacity float64)
}

// Tooltips are hover popups bound to individual lots.
type Tooltips interface {
	BindTooltip(id lots.FeatureID, text string)
	OpenTooltip(id lots.FeatureID)
	CloseTooltip(id lots.FeatureID)
	TooltipOpen(id lots.FeatureID) bool
}

// Surface is everything the engine needs from the map.
type Surface interface {
	Camera
	Layer
	Labels
	Tooltips
}

// PointerHandler receives per-lot pointer events from the Layer. Handlers
// identify lots by id only.
type PointerHandler interface {
	HoverEnter(id lots.FeatureID) error
	HoverLeave(id lots.FeatureID) error
	Activate(id lots.FeatureID) error
	TouchActivate(id lots.FeatureID) error
}

// Details is what the details panel displays for a selected lot.
type Details struct {
	ID         lots.FeatureID `json:"id"`
	LotNumber  string         `json:"lotNumber"`
	Acreage    string         `json:"acreage"`
	Dimensions string         `json:"dimensions"`
	Status     string         `json:"status"`
	StatusKey  lots.Status    `json:"statusKey"`
}

// DetailsOf formats a lot for the details panel.
func DetailsOf(f lots.Feature) Details {
	return Details{
		ID:         f.ID,
		LotNumber:  f.Props.LotNumberText(),
		Acreage:    f.Props.AcreageText(),
		Dimensions: f.Props.DimensionsText(),
		Status:     f.Props.Status.DisplayName(),
		StatusKey:  f.Props.Status,
	}
}

// Panel is the passive details drawer.
type Panel interface {
	Show(d Details)
	Hide()
	Visible() bool
}

// Indicator is the loading spinner and user-facing failure notice.
type Indicator interface {
	SetLoading(loading bool)
	Alert(msg string)
}
