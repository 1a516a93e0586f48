package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-lots/internal/geometry"
	"github.com/joeblew999/plat-lots/internal/lots"
	"github.com/joeblew999/plat-lots/internal/style"
)

func square(x, y float64) orb.Polygon {
	return orb.Polygon{{{x, y}, {x + 2, y}, {x + 2, y + 2}, {x, y + 2}}}
}

func lot(g orb.Geometry, props geojson.Properties) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.Properties = props
	return f
}

// subdivision returns lots A (sold, "12"), B (spec home, "22") and
// C (available, "3").
func subdivision() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(lot(square(0, 0), geojson.Properties{"lot_no": "12", "status": "sold", "acreage": 0.5, "dimensions": "100' x 218'"}))
	fc.Append(lot(square(2, 0), geojson.Properties{"lot_no": "22", "status": "spec_home"}))
	fc.Append(lot(square(4, 0), geojson.Properties{"lot_no": "3", "status": "available"}))
	return fc
}

func staticSource(fc *geojson.FeatureCollection) lots.Source {
	return lots.SourceFunc(func(context.Context) (*geojson.FeatureCollection, error) {
		return fc, nil
	})
}

type harness struct {
	e   *Engine
	sf  *fakeSurface
	pn  *fakePanel
	ind *fakeIndicator
	now time.Time
}

func newHarness(t *testing.T, fc *geojson.FeatureCollection, mutate ...func(*Config)) *harness {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	h := &harness{
		sf:  newFakeSurface(),
		pn:  &fakePanel{},
		ind: &fakeIndicator{},
		now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	h.e = New(cfg, h.sf, h.pn, h.ind, WithClock(func() time.Time { return h.now }))
	if fc != nil {
		require.NoError(t, h.e.Load(context.Background(), staticSource(fc)))
	}
	return h
}

const (
	lotA lots.FeatureID = 0
	lotB lots.FeatureID = 1
	lotC lots.FeatureID = 2
)

func (h *harness) selectedCount() int {
	n := 0
	for _, f := range h.e.Catalog().All() {
		if s, _ := h.e.StateOf(f.ID); s == style.Selected {
			n++
		}
	}
	return n
}

func TestNewSetsInitialView(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, DefaultConfig().InitialView, h.sf.view)
	assert.False(t, h.e.Loaded())

	_, ok := h.e.Selected()
	assert.False(t, ok)
	assert.ErrorIs(t, h.e.HoverEnter(0), ErrNotLoaded)
	assert.ErrorIs(t, h.e.Activate(0), ErrNotLoaded)
}

func TestLoad(t *testing.T) {
	h := newHarness(t, subdivision())

	assert.True(t, h.e.Loaded())
	assert.Equal(t, []bool{true, false}, h.ind.history)
	assert.Empty(t, h.ind.alerts)
	assert.Len(t, h.sf.rendered, 3)
	assert.Same(t, h.e, h.sf.handler)

	assert.Equal(t, style.Resolve(lots.StatusSold, style.Default), h.sf.styles[lotA])
	assert.Equal(t, style.Resolve(lots.StatusSpecHome, style.Default), h.sf.styles[lotB])

	assert.Equal(t, "12", h.sf.texts[lotA])
	assert.Equal(t, "22 ★", h.sf.texts[lotB])
	assert.Equal(t, "22 ★", h.sf.bound[lotB])
	assert.Equal(t, geometry.LatLng{Lat: 1, Lng: 1}, h.sf.labels[lotA])
}

func TestLoadCapturesHomeView(t *testing.T) {
	h := newHarness(t, subdivision())

	home := h.e.HomeView()
	assert.Equal(t, 18.0, home.Zoom, "fitted zoom plus one")
	assert.InDelta(t, 3.0, home.Center.Lng, 1e-9)
	assert.InDelta(t, 1.0, home.Center.Lat, 1e-9)
	assert.Equal(t, home, h.sf.view)
}

func TestLoadHomeZoomClampedToMax(t *testing.T) {
	sf := newFakeSurface()
	sf.fitZoom = 21
	e := New(DefaultConfig(), sf, &fakePanel{}, &fakeIndicator{})
	require.NoError(t, e.Load(context.Background(), staticSource(subdivision())))
	assert.Equal(t, 21.0, e.HomeView().Zoom)
}

func TestLoadTwice(t *testing.T) {
	h := newHarness(t, subdivision())
	assert.ErrorIs(t, h.e.Load(context.Background(), staticSource(subdivision())), ErrAlreadyLoaded)
}

func TestLoadFailure(t *testing.T) {
	h := newHarness(t, nil)
	boom := errors.New("connection refused")

	err := h.e.Load(context.Background(), lots.SourceFunc(func(context.Context) (*geojson.FeatureCollection, error) {
		return nil, boom
	}))
	require.ErrorIs(t, err, boom)

	assert.False(t, h.ind.loading())
	assert.Equal(t, []string{LoadFailedMessage}, h.ind.alerts)
	assert.False(t, h.e.Loaded())
	assert.Empty(t, h.sf.rendered)
	assert.Equal(t, DefaultConfig().InitialView, h.sf.view)
	assert.ErrorIs(t, h.e.Activate(0), ErrNotLoaded)

	// The panel controls stay harmless on a basemap-only map.
	h.e.ClosePanel()
	h.e.ResetView()
	assert.False(t, h.pn.visible)
}

func TestLoadEmptyCollectionKeepsInitialView(t *testing.T) {
	h := newHarness(t, geojson.NewFeatureCollection())
	assert.True(t, h.e.Loaded())
	assert.Equal(t, DefaultConfig().InitialView, h.e.HomeView())
}

func TestMalformedLotGetsNoLabel(t *testing.T) {
	fc := subdivision()
	fc.Append(lot(orb.Polygon{}, geojson.Properties{"lot_no": "99"}))
	h := newHarness(t, fc)

	bad := lots.FeatureID(3)
	_, placed := h.sf.labels[bad]
	assert.False(t, placed)
	assert.Len(t, h.sf.labels, 3)

	// The lot stays interactive.
	require.NoError(t, h.e.Activate(bad))
	id, ok := h.e.Selected()
	assert.True(t, ok)
	assert.Equal(t, bad, id)
	assert.Empty(t, h.sf.flights, "no extent, no fly-to")
	assert.Equal(t, "99", h.pn.details.LotNumber)
}

func TestLotWithoutNumberHasNoTooltip(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(lot(square(0, 0), geojson.Properties{"status": "sold"}))
	h := newHarness(t, fc)
	h.sf.zoomTo(15)

	require.NoError(t, h.e.HoverEnter(0))
	assert.Empty(t, h.sf.open)
	assert.Empty(t, h.sf.labels)
}

func TestUnknownFeature(t *testing.T) {
	h := newHarness(t, subdivision())
	assert.ErrorIs(t, h.e.HoverEnter(42), lots.ErrUnknownFeature)
	assert.ErrorIs(t, h.e.Activate(-1), lots.ErrUnknownFeature)
	_, err := h.e.StateOf(3)
	assert.ErrorIs(t, err, lots.ErrUnknownFeature)
}

func TestHover(t *testing.T) {
	h := newHarness(t, subdivision())

	require.NoError(t, h.e.HoverEnter(lotA))
	assert.Equal(t, style.Resolve(lots.StatusSold, style.Hovered), h.sf.styles[lotA])
	assert.Equal(t, CursorPointer, h.sf.cursor)
	assert.Equal(t, []lots.FeatureID{lotA}, h.sf.raised)

	require.NoError(t, h.e.HoverLeave(lotA))
	assert.Equal(t, style.Resolve(lots.StatusSold, style.Default), h.sf.styles[lotA])
	assert.Equal(t, CursorDefault, h.sf.cursor)
}

func TestHoverDoesNotRestyleSelectedLot(t *testing.T) {
	h := newHarness(t, subdivision())
	require.NoError(t, h.e.Activate(lotA))
	selected := style.Resolve(lots.StatusSold, style.Selected)

	require.NoError(t, h.e.HoverEnter(lotA))
	assert.Equal(t, selected, h.sf.styles[lotA])
	require.NoError(t, h.e.HoverLeave(lotA))
	assert.Equal(t, selected, h.sf.styles[lotA])

	s, err := h.e.StateOf(lotA)
	require.NoError(t, err)
	assert.Equal(t, style.Selected, s)
}

func TestSingletonSelection(t *testing.T) {
	h := newHarness(t, subdivision())

	for _, id := range []lots.FeatureID{lotA, lotB, lotC, lotA, lotA} {
		require.NoError(t, h.e.Activate(id))
		assert.Equal(t, 1, h.selectedCount())
		got, ok := h.e.Selected()
		require.True(t, ok)
		assert.Equal(t, id, got)
	}
	assert.Equal(t, style.Resolve(lots.StatusSpecHome, style.Default), h.sf.styles[lotB])
	assert.Equal(t, style.Resolve(lots.StatusAvailable, style.Default), h.sf.styles[lotC])

	h.e.ClosePanel()
	assert.Equal(t, 0, h.selectedCount())
}

func TestActivateFliesToLot(t *testing.T) {
	h := newHarness(t, subdivision())
	h.sf.zoomTo(16)

	require.NoError(t, h.e.Activate(lotB))
	require.Len(t, h.sf.flights, 1)
	assert.Equal(t, View{Center: geometry.LatLng{Lat: 1, Lng: 3}, Zoom: 18}, h.sf.flights[0])

	// Already deeper than the selection zoom: keep it.
	h.sf.zoomTo(20)
	require.NoError(t, h.e.Activate(lotA))
	assert.Equal(t, 20.0, h.sf.flights[1].Zoom)
}

func TestActivateClosesTooltip(t *testing.T) {
	h := newHarness(t, subdivision())
	h.sf.zoomTo(15)

	require.NoError(t, h.e.HoverEnter(lotA))
	assert.True(t, h.sf.open[lotA])
	require.NoError(t, h.e.Activate(lotA))
	assert.False(t, h.sf.open[lotA])
}

func TestSubdivisionScenario(t *testing.T) {
	h := newHarness(t, subdivision())

	require.NoError(t, h.e.Activate(lotA))
	assert.Equal(t, 0.7, h.sf.styles[lotA].FillOpacity)
	assert.Equal(t, Details{
		ID:         lotA,
		LotNumber:  "12",
		Acreage:    "0.5 acres",
		Dimensions: "100' x 218'",
		Status:     "Sold",
		StatusKey:  lots.StatusSold,
	}, h.pn.details)
	assert.True(t, h.pn.visible)

	require.NoError(t, h.e.Activate(lotB))
	assert.Equal(t, 0.3, h.sf.styles[lotA].FillOpacity)
	assert.Equal(t, 0.7, h.sf.styles[lotB].FillOpacity)
	assert.Equal(t, "22", h.pn.details.LotNumber)
	assert.Equal(t, lots.NotAvailable, h.pn.details.Acreage)
	assert.Equal(t, lots.NotAvailable, h.pn.details.Dimensions)
	assert.Equal(t, "Spec Home", h.pn.details.Status)

	h.e.ClosePanel()
	assert.False(t, h.pn.visible)
	assert.Equal(t, 0.3, h.sf.styles[lotB].FillOpacity)
	_, ok := h.e.Selected()
	assert.False(t, ok)
}

func TestLabelTooltipExclusion(t *testing.T) {
	h := newHarness(t, subdivision())
	assert.True(t, h.e.LabelsVisible(), "home zoom reaches the label threshold")
	assert.Equal(t, 1.0, h.sf.opacity[lotA])

	h.sf.zoomTo(16)
	assert.False(t, h.e.LabelsVisible())
	assert.Equal(t, 0.0, h.sf.opacity[lotA])
	require.NoError(t, h.e.HoverEnter(lotB))
	assert.True(t, h.sf.open[lotB])

	// Zooming in past the threshold while hovering hides the tooltip.
	h.sf.zoomTo(18)
	assert.Equal(t, 1.0, h.sf.opacity[lotB])
	assert.False(t, h.sf.open[lotB])

	require.NoError(t, h.e.HoverEnter(lotA))
	assert.False(t, h.sf.open[lotA])
}

func TestLabelTooltipExclusionRandomized(t *testing.T) {
	h := newHarness(t, subdivision())
	rng := rand.New(rand.NewSource(7))
	ids := []lots.FeatureID{lotA, lotB, lotC}

	for i := 0; i < 500; i++ {
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(4) {
		case 0:
			h.sf.zoomTo(float64(14 + rng.Intn(7)))
		case 1:
			require.NoError(t, h.e.HoverEnter(id))
		case 2:
			require.NoError(t, h.e.HoverLeave(id))
		case 3:
			require.NoError(t, h.e.Activate(id))
		}
		for _, f := range h.e.Catalog().All() {
			if h.sf.opacity[f.ID] == 1 {
				require.False(t, h.sf.open[f.ID], "step %d: lot %d shows label and tooltip", i, f.ID)
			}
		}
		require.LessOrEqual(t, h.selectedCount(), 1)
	}
}

func TestLabelsAlwaysOn(t *testing.T) {
	h := newHarness(t, subdivision(), func(c *Config) { c.LabelMinZoom = 0 })
	h.sf.zoomTo(3)
	assert.True(t, h.e.LabelsVisible())
	require.NoError(t, h.e.HoverEnter(lotA))
	assert.False(t, h.sf.open[lotA])
}

func TestTopAnchorPolicy(t *testing.T) {
	h := newHarness(t, subdivision(), func(c *Config) { c.Anchor = geometry.AnchorTop })
	at := h.sf.labels[lotA]
	assert.Greater(t, at.Lat, 1.0)
}

func TestResetView(t *testing.T) {
	h := newHarness(t, subdivision())
	home := h.e.HomeView()

	require.NoError(t, h.e.Activate(lotC))
	h.e.ResetView()
	assert.False(t, h.pn.visible)
	assert.Equal(t, 0, h.selectedCount())
	assert.Equal(t, home, h.sf.view)

	first := h.sf.flights[len(h.sf.flights)-1]
	h.e.ResetView()
	assert.Equal(t, first, h.sf.flights[len(h.sf.flights)-1])
	assert.Equal(t, home, h.sf.view)
	assert.Equal(t, 0, h.selectedCount())
}

func TestClickOutside(t *testing.T) {
	h := newHarness(t, subdivision())

	h.e.ClickOutside()
	assert.Equal(t, 0, h.pn.hidden, "closed panel is left alone")

	require.NoError(t, h.e.Activate(lotA))
	flights := len(h.sf.flights)
	h.e.ClickOutside()
	assert.False(t, h.pn.visible)
	assert.Equal(t, 0, h.selectedCount())
	assert.Len(t, h.sf.flights, flights, "camera stays put")
}

func TestTouchThenClick(t *testing.T) {
	h := newHarness(t, subdivision())

	require.NoError(t, h.e.TouchActivate(lotA))
	assert.Equal(t, 1, h.pn.shown)

	h.now = h.now.Add(300 * time.Millisecond)
	require.NoError(t, h.e.Activate(lotA))
	assert.Equal(t, 1, h.pn.shown, "synthetic click dropped")

	require.NoError(t, h.e.Activate(lotB))
	assert.Equal(t, 2, h.pn.shown, "click on another lot is handled")

	h.now = h.now.Add(time.Second)
	require.NoError(t, h.e.Activate(lotA))
	assert.Equal(t, 3, h.pn.shown, "late click is handled")
}

func TestClickAfterTouchIsEchoedOnce(t *testing.T) {
	h := newHarness(t, subdivision())

	require.NoError(t, h.e.TouchActivate(lotA))
	h.now = h.now.Add(100 * time.Millisecond)
	require.NoError(t, h.e.Activate(lotA))
	assert.Equal(t, 1, h.pn.shown, "echo dropped")

	h.now = h.now.Add(100 * time.Millisecond)
	require.NoError(t, h.e.Activate(lotA))
	assert.Equal(t, 2, h.pn.shown, "second click is real")
}

func TestClickAfterTouchAndClose(t *testing.T) {
	h := newHarness(t, subdivision())

	require.NoError(t, h.e.TouchActivate(lotA))
	h.e.ClosePanel()
	h.now = h.now.Add(200 * time.Millisecond)
	require.NoError(t, h.e.Activate(lotA))
	assert.Equal(t, 2, h.pn.shown, "click after closing the panel reopens it")
	assert.True(t, h.pn.visible)
}

func TestClickAfterTouchOnOtherLot(t *testing.T) {
	h := newHarness(t, subdivision())

	require.NoError(t, h.e.TouchActivate(lotA))
	require.NoError(t, h.e.Activate(lotB))
	h.now = h.now.Add(200 * time.Millisecond)
	require.NoError(t, h.e.Activate(lotA))
	assert.Equal(t, 3, h.pn.shown)
	id, ok := h.e.Selected()
	require.True(t, ok)
	assert.Equal(t, lotA, id)
}
