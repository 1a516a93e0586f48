package engine

import (
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-lots/internal/geometry"
	"github.com/joeblew999/plat-lots/internal/lots"
	"github.com/joeblew999/plat-lots/internal/style"
)

// fakeSurface is an in-memory map that keeps just enough state to assert on.
type fakeSurface struct {
	view     View
	flights  []View
	fitZoom  float64
	subs     []func(float64)
	rendered []lots.Feature
	handler  PointerHandler
	styles   map[lots.FeatureID]style.Style
	raised   []lots.FeatureID
	cursor   Cursor
	labels   map[lots.FeatureID]geometry.LatLng
	texts    map[lots.FeatureID]string
	opacity  map[lots.FeatureID]float64
	bound    map[lots.FeatureID]string
	open     map[lots.FeatureID]bool
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		fitZoom: 17,
		styles:  map[lots.FeatureID]style.Style{},
		labels:  map[lots.FeatureID]geometry.LatLng{},
		texts:   map[lots.FeatureID]string{},
		opacity: map[lots.FeatureID]float64{},
		bound:   map[lots.FeatureID]string{},
		open:    map[lots.FeatureID]bool{},
	}
}

func (s *fakeSurface) View() View     { return s.view }
func (s *fakeSurface) SetView(v View) { s.view = v }

func (s *fakeSurface) FlyTo(v View, _ Animation) {
	s.flights = append(s.flights, v)
	s.view = v
}

func (s *fakeSurface) FitBounds(b orb.Bound, _ Padding) View {
	return View{Center: geometry.ToLatLng(b.Center()), Zoom: s.fitZoom}
}

func (s *fakeSurface) OnZoomEnd(fn func(float64)) { s.subs = append(s.subs, fn) }

// zoomTo simulates the user zooming the map.
func (s *fakeSurface) zoomTo(z float64) {
	s.view.Zoom = z
	for _, fn := range s.subs {
		fn(z)
	}
}

func (s *fakeSurface) Render(fs []lots.Feature, styleOf func(lots.FeatureID) style.Style, h PointerHandler) {
	s.rendered = fs
	s.handler = h
	for _, f := range fs {
		s.styles[f.ID] = styleOf(f.ID)
	}
}

func (s *fakeSurface) SetStyle(id lots.FeatureID, st style.Style) { s.styles[id] = st }
func (s *fakeSurface) BringToFront(id lots.FeatureID)            { s.raised = append(s.raised, id) }
func (s *fakeSurface) SetCursor(c Cursor)                        { s.cursor = c }

func (s *fakeSurface) PlaceLabel(id lots.FeatureID, at geometry.LatLng, text string) {
	s.labels[id] = at
	s.texts[id] = text
}

func (s *fakeSurface) SetLabelOpacity(id lots.FeatureID, o float64) { s.opacity[id] = o }

func (s *fakeSurface) BindTooltip(id lots.FeatureID, text string) { s.bound[id] = text }

func (s *fakeSurface) OpenTooltip(id lots.FeatureID) {
	if _, ok := s.bound[id]; ok {
		s.open[id] = true
	}
}

func (s *fakeSurface) CloseTooltip(id lots.FeatureID)     { delete(s.open, id) }
func (s *fakeSurface) TooltipOpen(id lots.FeatureID) bool { return s.open[id] }

type fakePanel struct {
	visible bool
	details Details
	shown   int
	hidden  int
}

func (p *fakePanel) Show(d Details) { p.visible, p.details = true, d; p.shown++ }
func (p *fakePanel) Hide()          { p.visible = false; p.hidden++ }
func (p *fakePanel) Visible() bool  { return p.visible }

type fakeIndicator struct {
	history []bool
	alerts  []string
}

func (i *fakeIndicator) SetLoading(l bool) { i.history = append(i.history, l) }
func (i *fakeIndicator) Alert(msg string)  { i.alerts = append(i.alerts, msg) }

func (i *fakeIndicator) loading() bool {
	return len(i.history) > 0 && i.history[len(i.history)-1]
}
