package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-lots/internal/engine"
	"github.com/joeblew999/plat-lots/internal/geometry"
	"github.com/joeblew999/plat-lots/internal/lots"
	"github.com/joeblew999/plat-lots/internal/style"
)

var (
	_ engine.Surface   = (*Recorder)(nil)
	_ engine.Panel     = (*Recorder)(nil)
	_ engine.Indicator = (*Recorder)(nil)
)

// Recorder is the server-side stand-in for one browser map. Like the
// engine it serves, it is not safe for concurrent use.
type Recorder struct {
	viewport Viewport
	maxZoom  float64

	view     engine.View
	zoomSubs []func(float64)
	handler  engine.PointerHandler
	cursor   engine.Cursor

	tooltips map[lots.FeatureID]bool // bound tooltip -> open
	opacity  map[lots.FeatureID]float64

	panel   bool
	details engine.Details
	loading bool

	pending []Command
}

// NewRecorder returns a Recorder for a client of the given size.
func NewRecorder(vp Viewport, maxZoom float64) *Recorder {
	return &Recorder{
		viewport: vp,
		maxZoom:  maxZoom,
		tooltips: make(map[lots.FeatureID]bool),
		opacity:  make(map[lots.FeatureID]float64),
	}
}

func (r *Recorder) push(c Command) { r.pending = append(r.pending, c) }

// Drain returns the queued commands in issue order and empties the queue.
func (r *Recorder) Drain() []Command {
	out := r.pending
	r.pending = nil
	return out
}

// Pending returns the number of queued commands.
func (r *Recorder) Pending() int { return len(r.pending) }

// Handler is the pointer handler registered by the last Render, or nil.
func (r *Recorder) Handler() engine.PointerHandler { return r.handler }

// Viewport returns the client size used for bounds fitting.
func (r *Recorder) Viewport() Viewport { return r.viewport }

// ZoomEnd records a zoom the client completed and notifies subscribers.
// It queues nothing: the client already shows the view.
func (r *Recorder) ZoomEnd(v engine.View) {
	r.view = v
	for _, fn := range r.zoomSubs {
		fn(v.Zoom)
	}
}

// Camera

func (r *Recorder) View() engine.View { return r.view }

func (r *Recorder) SetView(v engine.View) {
	r.view = v
	r.push(Command{Op: OpSetView, View: &v})
}

func (r *Recorder) FlyTo(v engine.View, anim engine.Animation) {
	r.view = v
	r.push(Command{Op: OpFlyTo, View: &v, Duration: anim.Duration.Seconds(), Ease: anim.EaseLinearity})
}

func (r *Recorder) FitBounds(b orb.Bound, pad engine.Padding) engine.View {
	return FitView(b, r.viewport, pad, r.maxZoom)
}

func (r *Recorder) OnZoomEnd(fn func(float64)) { r.zoomSubs = append(r.zoomSubs, fn) }

// Layer

func (r *Recorder) Render(features []lots.Feature, styleOf func(lots.FeatureID) style.Style, h engine.PointerHandler) {
	r.handler = h
	fc := geojson.NewFeatureCollection()
	styles := make(map[lots.FeatureID]style.Style, len(features))
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		fc.Append(f.GeoJSON())
		styles[f.ID] = styleOf(f.ID)
	}
	r.push(Command{Op: OpRender, Features: fc, Styles: styles})
}

func (r *Recorder) SetStyle(id lots.FeatureID, s style.Style) {
	r.push(Command{Op: OpSetStyle, ID: idp(id), Style: &s})
}

func (r *Recorder) BringToFront(id lots.FeatureID) {
	r.push(Command{Op: OpRaise, ID: idp(id)})
}

func (r *Recorder) SetCursor(c engine.Cursor) {
	if c == r.cursor {
		return
	}
	r.cursor = c
	r.push(Command{Op: OpCursor, Cursor: &c})
}

// Cursor returns the current pointer cursor.
func (r *Recorder) Cursor() engine.Cursor { return r.cursor }

// Labels

func (r *Recorder) PlaceLabel(id lots.FeatureID, at geometry.LatLng, text string) {
	r.opacity[id] = 1
	r.push(Command{Op: OpLabel, ID: idp(id), At: &at, Text: text})
}

// SetLabelOpacity only queues a command when the opacity changes.
func (r *Recorder) SetLabelOpacity(id lots.FeatureID, opacity float64) {
	if cur, ok := r.opacity[id]; ok && cur == opacity {
		return
	}
	r.opacity[id] = opacity
	r.push(Command{Op: OpLabelOpacity, ID: idp(id), Opacity: &opacity})
}

// LabelOpacity returns a placed label's opacity.
func (r *Recorder) LabelOpacity(id lots.FeatureID) (float64, bool) {
	o, ok := r.opacity[id]
	return o, ok
}

// Tooltips

func (r *Recorder) BindTooltip(id lots.FeatureID, text string) {
	r.tooltips[id] = false
	r.push(Command{Op: OpTooltip, Tooltip: TooltipBind, ID: idp(id), Text: text})
}

func (r *Recorder) OpenTooltip(id lots.FeatureID) {
	open, bound := r.tooltips[id]
	if !bound || open {
		return
	}
	r.tooltips[id] = true
	r.push(Command{Op: OpTooltip, Tooltip: TooltipOpen, ID: idp(id)})
}

func (r *Recorder) CloseTooltip(id lots.FeatureID) {
	if !r.tooltips[id] {
		return
	}
	r.tooltips[id] = false
	r.push(Command{Op: OpTooltip, Tooltip: TooltipClose, ID: idp(id)})
}

func (r *Recorder) TooltipOpen(id lots.FeatureID) bool { return r.tooltips[id] }

// Panel

func (r *Recorder) Show(d engine.Details) {
	r.panel, r.details = true, d
	r.push(Command{Op: OpPanel, On: boolp(true), Details: &d})
}

func (r *Recorder) Hide() {
	r.panel = false
	r.push(Command{Op: OpPanel, On: boolp(false)})
}

func (r *Recorder) Visible() bool { return r.panel }

// Details returns the lot last shown in the panel.
func (r *Recorder) Details() engine.Details { return r.details }

// Indicator

func (r *Recorder) SetLoading(loading bool) {
	r.loading = loading
	r.push(Command{Op: OpLoading, On: boolp(loading)})
}

func (r *Recorder) Alert(msg string) {
	r.push(Command{Op: OpAlert, Message: msg})
}

// Loading reports whether the loading indicator is shown.
func (r *Recorder) Loading() bool { return r.loading }
