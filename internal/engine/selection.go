package engine

import (
	"math"
	"time"

	"github.com/joeblew999/plat-lots/internal/geometry"
	"github.com/joeblew999/plat-lots/internal/lots"
	"github.com/joeblew999/plat-lots/internal/style"
)

// selectionController is the single-selection state machine. At most one
// lot is in the Selected state; every transition restyles both the lot
// leaving a state and the lot entering one.
type selectionController struct {
	cfg     Config
	catalog *lots.Catalog
	layer   Layer
	camera  Camera
	labels  *labelController
	panel   Panel
	now     func() time.Time

	states   []style.InteractionState
	selected lots.FeatureID
	active   bool

	lastTouch   lots.FeatureID
	lastTouchAt time.Time
}

func (s *selectionController) restyle(id lots.FeatureID, state style.InteractionState) {
	s.states[id] = state
	f, _ := s.catalog.Get(id)
	s.layer.SetStyle(id, style.Resolve(f.Props.Status, state))
}

func (s *selectionController) isSelected(id lots.FeatureID) bool {
	return s.active && s.selected == id
}

func (s *selectionController) HoverEnter(id lots.FeatureID) {
	if !s.isSelected(id) {
		s.restyle(id, style.Hovered)
	}
	s.layer.BringToFront(id)
	s.layer.SetCursor(CursorPointer)
	s.labels.HoverEnter(id)
}

func (s *selectionController) HoverLeave(id lots.FeatureID) {
	if !s.isSelected(id) {
		s.restyle(id, style.Default)
	}
	s.layer.SetCursor(CursorDefault)
	s.labels.HoverLeave(id)
}

// Activate selects id, flies the camera to it and fills the details panel.
// Activating the current selection repeats every step.
func (s *selectionController) Activate(id lots.FeatureID) {
	if id != s.lastTouch {
		s.forgetTouch()
	}
	s.labels.Close(id)

	if s.active && s.selected != id {
		s.restyle(s.selected, style.Default)
	}
	s.selected, s.active = id, true
	s.restyle(id, style.Selected)

	f, _ := s.catalog.Get(id)
	if b, ok := f.Extent(); ok {
		target := View{
			Center: geometry.ToLatLng(b.Center()),
			Zoom:   math.Max(s.camera.View().Zoom, s.cfg.SelectZoom),
		}
		s.camera.FlyTo(target, s.cfg.Fly)
	}
	s.panel.Show(DetailsOf(f))
}

// TouchActivate is Activate for touch surfaces. It remembers the gesture so
// the synthetic click some browsers emit afterwards is not handled twice.
func (s *selectionController) TouchActivate(id lots.FeatureID) {
	s.lastTouch, s.lastTouchAt = id, s.now()
	s.Activate(id)
}

// syntheticClick reports whether a click on id is the echo of a touch. A
// touch is echoed at most once.
func (s *selectionController) syntheticClick(id lots.FeatureID) bool {
	if s.lastTouchAt.IsZero() || s.lastTouch != id {
		return false
	}
	echo := s.now().Sub(s.lastTouchAt) <= s.cfg.TouchClickWindow
	s.forgetTouch()
	return echo
}

func (s *selectionController) forgetTouch() { s.lastTouchAt = time.Time{} }

// Close clears the selection and hides the panel.
func (s *selectionController) Close() {
	s.forgetTouch()
	if s.active {
		s.restyle(s.selected, style.Default)
		s.active = false
	}
	s.panel.Hide()
}

func (s *selectionController) Selected() (lots.FeatureID, bool) {
	return s.selected, s.active
}
