// Package engine turns a static collection of lot polygons into an
// interactive, zoom-aware, single-selection map layer.
//
// An Engine owns all interaction state for one map: the selection, each
// lot's interaction state, the label set and the home view. It talks to the
// map, the details panel and the loading indicator through interfaces, so
// the same engine drives a browser over SSE or a fake in tests.
//
// An Engine is not safe for concurrent use. Callers deliver events one at a
// time, and each handler runs to completion before the next.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/joeblew999/plat-lots/internal/geometry"
	"github.com/joeblew999/plat-lots/internal/lots"
	"github.com/joeblew999/plat-lots/internal/style"
)

var (
	// ErrAlreadyLoaded is returned by a second Load on the same engine.
	ErrAlreadyLoaded = errors.New("engine already loaded")
	// ErrNotLoaded is returned for pointer events before Load succeeded.
	ErrNotLoaded = errors.New("engine not loaded")
)

// LoadFailedMessage is shown to the user when the lots cannot be loaded.
const LoadFailedMessage = "Error loading property data. Please refresh the page."

// Config holds the engine's tunables.
type Config struct {
	InitialView      View
	LabelMinZoom     float64 // labels show at zoom >= this; 0 keeps them always on
	SelectZoom       float64 // minimum zoom after selecting a lot
	HomeZoomBias     float64 // added to the fitted zoom when capturing home
	MaxZoom          float64
	FitPadding       Padding
	Fly              Animation
	Anchor           geometry.Anchor
	TouchClickWindow time.Duration
}

// DefaultConfig returns the settings of the built-in subdivision map.
func DefaultConfig() Config {
	return Config{
		InitialView:      View{Center: geometry.LatLng{Lat: 40.23305, Lng: -83.02365}, Zoom: 18},
		LabelMinZoom:     18,
		SelectZoom:       18,
		HomeZoomBias:     1,
		MaxZoom:          21,
		FitPadding:       Padding{X: 50, Y: 50},
		Fly:              Animation{Duration: 1200 * time.Millisecond, EaseLinearity: 0.25},
		Anchor:           geometry.AnchorCentroid,
		TouchClickWindow: 600 * time.Millisecond,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the feature-interaction engine of one map.
type Engine struct {
	cfg       Config
	log       *slog.Logger
	now       func() time.Time
	surface   Surface
	panel     Panel
	indicator Indicator

	catalog *lots.Catalog
	labels  *labelController
	sel     *selectionController
	home    View
	loaded  bool
}

// New creates an engine and puts the camera at the initial view.
func New(cfg Config, surface Surface, panel Panel, indicator Indicator, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		log:       slog.Default(),
		now:       time.Now,
		surface:   surface,
		panel:     panel,
		indicator: indicator,
		home:      cfg.InitialView,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.labels = newLabelController(surface, surface, cfg.LabelMinZoom)
	surface.SetView(cfg.InitialView)
	return e
}

// Load fetches the lots once and builds the interactive layer. On failure
// the loading indicator is dismissed, the user is alerted and the map stays
// basemap-only.
func (e *Engine) Load(ctx context.Context, src lots.Source) error {
	if e.loaded {
		return ErrAlreadyLoaded
	}

	e.indicator.SetLoading(true)
	fc, err := src.Fetch(ctx)
	if err != nil {
		e.indicator.SetLoading(false)
		e.indicator.Alert(LoadFailedMessage)
		e.log.Error("Error loading lots data", "error", err)
		return fmt.Errorf("loading lots: %w", err)
	}

	e.catalog = lots.NewCatalog(fc)
	e.sel = &selectionController{
		cfg:     e.cfg,
		catalog: e.catalog,
		layer:   e.surface,
		camera:  e.surface,
		labels:  e.labels,
		panel:   e.panel,
		now:     e.now,
		states:  make([]style.InteractionState, e.catalog.Len()),
	}

	e.surface.Render(e.catalog.All(), e.styleOf, e)
	e.placeLabels()

	e.labels.OnZoom(e.surface.View().Zoom)
	e.surface.OnZoomEnd(e.labels.OnZoom)

	if b, ok := e.catalog.Bound(); ok {
		fit := e.surface.FitBounds(b, e.cfg.FitPadding)
		e.home = View{
			Center: fit.Center,
			Zoom:   math.Min(fit.Zoom+e.cfg.HomeZoomBias, e.cfg.MaxZoom),
		}
		e.surface.SetView(e.home)
		e.labels.OnZoom(e.home.Zoom)
	}

	e.loaded = true
	e.indicator.SetLoading(false)
	e.log.Info("Lots loaded", "lots", e.catalog.Len(), "home_zoom", e.home.Zoom)
	return nil
}

func (e *Engine) styleOf(id lots.FeatureID) style.Style {
	f, _ := e.catalog.Get(id)
	return style.Resolve(f.Props.Status, e.sel.states[id])
}

// placeLabels puts one label on every lot with a lot number. A lot whose
// geometry has no usable ring keeps its tooltip but gets no label.
func (e *Engine) placeLabels() {
	for _, f := range e.catalog.All() {
		text := f.Props.LabelText()
		if text == "" {
			continue
		}
		e.surface.BindTooltip(f.ID, text)
		e.labels.addTooltip(f.ID)

		at, err := e.cfg.Anchor.Place(f.Geometry)
		if err != nil {
			e.log.Warn("Skipping label for malformed lot", "lot", f.Props.LotNo, "id", int(f.ID), "error", err)
			continue
		}
		e.surface.PlaceLabel(f.ID, at, text)
		e.labels.addLabel(f.ID)
	}
}

func (e *Engine) lookup(id lots.FeatureID) error {
	if !e.loaded {
		return ErrNotLoaded
	}
	_, err := e.catalog.Get(id)
	return err
}

// HoverEnter handles the pointer entering a lot.
func (e *Engine) HoverEnter(id lots.FeatureID) error {
	if err := e.lookup(id); err != nil {
		return err
	}
	e.sel.HoverEnter(id)
	return nil
}

// HoverLeave handles the pointer leaving a lot.
func (e *Engine) HoverLeave(id lots.FeatureID) error {
	if err := e.lookup(id); err != nil {
		return err
	}
	e.sel.HoverLeave(id)
	return nil
}

// Activate handles a click on a lot. A click that echoes a touch on the same
// lot is dropped.
func (e *Engine) Activate(id lots.FeatureID) error {
	if err := e.lookup(id); err != nil {
		return err
	}
	if e.sel.syntheticClick(id) {
		e.log.Debug("Dropping click after touch", "id", int(id))
		return nil
	}
	e.sel.Activate(id)
	return nil
}

// TouchActivate handles a tap on a lot.
func (e *Engine) TouchActivate(id lots.FeatureID) error {
	if err := e.lookup(id); err != nil {
		return err
	}
	e.sel.TouchActivate(id)
	return nil
}

// ClosePanel closes the details panel and clears the selection.
func (e *Engine) ClosePanel() {
	if e.sel == nil {
		e.panel.Hide()
		return
	}
	e.sel.Close()
}

// ClickOutside handles a click outside both the map and the panel. It only
// closes an open panel; it never moves the camera.
func (e *Engine) ClickOutside() {
	if !e.panel.Visible() {
		return
	}
	e.ClosePanel()
}

// ResetView closes the panel and flies back to the home view.
func (e *Engine) ResetView() {
	e.ClosePanel()
	e.surface.FlyTo(e.home, e.cfg.Fly)
}

// Selected returns the selected lot, if any.
func (e *Engine) Selected() (lots.FeatureID, bool) {
	if e.sel == nil {
		return 0, false
	}
	return e.sel.Selected()
}

// StateOf returns a lot's interaction state.
func (e *Engine) StateOf(id lots.FeatureID) (style.InteractionState, error) {
	if err := e.lookup(id); err != nil {
		return style.Default, err
	}
	return e.sel.states[id], nil
}

// LabelsVisible reports whether labels are the active affordance.
func (e *Engine) LabelsVisible() bool { return e.labels.Visible() }

// HomeView returns the view restored by ResetView.
func (e *Engine) HomeView() View { return e.home }

// Loaded reports whether Load succeeded.
func (e *Engine) Loaded() bool { return e.loaded }

// Catalog returns the loaded lots, or nil before Load.
func (e *Engine) Catalog() *lots.Catalog { return e.catalog }

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }
