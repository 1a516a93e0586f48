// Package session hosts one interaction engine per open map page and
// carries its command batches to the page's event stream.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joeblew999/plat-lots/internal/engine"
	"github.com/joeblew999/plat-lots/internal/geometry"
	"github.com/joeblew999/plat-lots/internal/lots"
	"github.com/joeblew999/plat-lots/internal/mapview"
	"github.com/joeblew999/plat-lots/internal/metrics"
	"github.com/joeblew999/plat-lots/internal/service"
)

var (
	// ErrNotFound is returned for unknown or expired session ids.
	ErrNotFound = errors.New("session not found")
	// ErrNotAttached is returned for events sent before the stream opened.
	ErrNotAttached = errors.New("session has no open stream")
	// ErrBadEvent is returned for malformed events.
	ErrBadEvent = errors.New("bad event")
)

// EventKind names a client interaction.
type EventKind string

const (
	HoverEnter   EventKind = "hover_enter"
	HoverLeave   EventKind = "hover_leave"
	Click        EventKind = "click"
	Touch        EventKind = "touch"
	ZoomEnd      EventKind = "zoom_end"
	ClosePanel   EventKind = "close_panel"
	ResetView    EventKind = "reset_view"
	ClickOutside EventKind = "click_outside"
)

// Event is one interaction reported by the browser.
type Event struct {
	Kind EventKind `json:"kind" enum:"hover_enter,hover_leave,click,touch,zoom_end,close_panel,reset_view,click_outside" doc:"Interaction kind"`
	Lot  *int      `json:"lot,omitempty" doc:"Feature id, required for pointer events" example:"0"`
	Zoom float64   `json:"zoom,omitempty" doc:"Zoom after zoom_end" example:"17"`
	Lat  float64   `json:"lat,omitempty" doc:"Map centre latitude after zoom_end" example:"40.23305"`
	Lng  float64   `json:"lng,omitempty" doc:"Map centre longitude after zoom_end" example:"-83.02365"`
}

// Setup is what a session needs to build its engine.
type Setup struct {
	Config engine.Config
	Source lots.Source
	// Viewport replaces the client's reported size when set.
	Viewport mapview.Viewport
}

// Resolver builds the engine setup for a map variant shown at a viewport.
type Resolver func(variant string, vp mapview.Viewport) (Setup, error)

// Batch is the commands produced by one event, in issue order.
type Batch []mapview.Command

// Session is one open map page. Events are applied one at a time, in
// arrival order, each to completion.
type Session struct {
	ID      string
	Variant string

	resolve Resolver
	now     func() time.Time
	log     *slog.Logger
	bus     *service.Bus[Batch]

	mu       sync.Mutex
	engine   *engine.Engine
	rec      *mapview.Recorder
	stream   chan Batch
	lastSeen time.Time
}

// Attach builds a fresh engine for the client's viewport, loads the lots and
// subscribes to the session's batches. The returned batch holds everything
// the client needs to draw the initial map. A load failure is not an error:
// the batch then carries the alert and the map stays basemap-only.
//
// A session drives one stream at a time: attaching again closes the
// previous stream, whose engine state no longer exists.
func (s *Session) Attach(ctx context.Context, vp mapview.Viewport) (chan Batch, Batch, error) {
	setup, err := s.resolve(s.Variant, vp)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bus.Closed() {
		return nil, nil, ErrNotFound
	}
	s.lastSeen = s.now()

	if setup.Viewport != (mapview.Viewport{}) {
		vp = setup.Viewport
	}
	rec := mapview.NewRecorder(vp, setup.Config.MaxZoom)
	eng := engine.New(setup.Config, rec, rec, rec,
		engine.WithLogger(s.log), engine.WithClock(s.now))

	start := time.Now()
	if err := eng.Load(ctx, setup.Source); err != nil {
		metrics.LoadsTotal.WithLabelValues("error").Inc()
		s.log.Warn("Map loaded without lots", "error", err)
	} else {
		metrics.LoadsTotal.WithLabelValues("ok").Inc()
	}
	metrics.LoadDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)

	s.engine, s.rec = eng, rec
	initial := Batch(rec.Drain())
	countCommands(initial)

	s.bus.Drop()
	s.stream = s.bus.Subscribe()
	return s.stream, initial, nil
}

// Superseded reports whether a later Attach replaced the stream ch.
func (s *Session) Superseded(ch chan Batch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != ch
}

// Detach ends a stream subscription.
func (s *Session) Detach(ch chan Batch) {
	s.bus.Unsubscribe(ch)
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

// Dispatch applies ev and publishes the resulting batch. The batch is
// published even when the event fails part way.
func (s *Session) Dispatch(ev Event) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()

	if s.engine == nil {
		metrics.EventsTotal.WithLabelValues(string(ev.Kind), "detached").Inc()
		return ErrNotAttached
	}

	err := s.apply(ev)
	if batch := Batch(s.rec.Drain()); len(batch) > 0 {
		countCommands(batch)
		s.bus.Publish(batch)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		s.log.Debug("Event rejected", "kind", ev.Kind, "error", err)
	}
	metrics.EventsTotal.WithLabelValues(string(ev.Kind), outcome).Inc()
	metrics.EventDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	return err
}

func (s *Session) apply(ev Event) error {
	switch ev.Kind {
	case HoverEnter, HoverLeave, Click, Touch:
		if ev.Lot == nil {
			return fmt.Errorf("%w: %s without lot", ErrBadEvent, ev.Kind)
		}
		h := s.rec.Handler()
		if h == nil {
			return engine.ErrNotLoaded
		}
		id := lots.FeatureID(*ev.Lot)
		switch ev.Kind {
		case HoverEnter:
			return h.HoverEnter(id)
		case HoverLeave:
			return h.HoverLeave(id)
		case Click:
			return h.Activate(id)
		default:
			return h.TouchActivate(id)
		}
	case ZoomEnd:
		s.rec.ZoomEnd(engine.View{Center: geometry.LatLng{Lat: ev.Lat, Lng: ev.Lng}, Zoom: ev.Zoom})
	case ClosePanel:
		s.engine.ClosePanel()
	case ResetView:
		s.engine.ResetView()
	case ClickOutside:
		s.engine.ClickOutside()
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrBadEvent, ev.Kind)
	}
	return nil
}

// Snapshot is a read-only view of a session's interaction state.
type Snapshot struct {
	ID            string      `json:"id" doc:"Session id"`
	Variant       string      `json:"variant" doc:"Map variant"`
	Attached      bool        `json:"attached" doc:"Whether a stream has been opened"`
	Loaded        bool        `json:"loaded" doc:"Whether the lots loaded"`
	Selected      *int        `json:"selected,omitempty" doc:"Selected feature id"`
	LabelsVisible bool        `json:"labelsVisible" doc:"Whether labels are the active affordance"`
	View          engine.View `json:"view" doc:"Current camera view"`
	Home          engine.View `json:"home" doc:"View restored by reset"`
	Streams       int         `json:"streams" doc:"Open event streams"`
}

// Snapshot reports the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{ID: s.ID, Variant: s.Variant, Streams: s.bus.Subscribers()}
	if s.engine == nil {
		return snap
	}
	snap.Attached = true
	snap.Loaded = s.engine.Loaded()
	if id, ok := s.engine.Selected(); ok {
		v := int(id)
		snap.Selected = &v
	}
	snap.LabelsVisible = s.engine.LabelsVisible()
	snap.View = s.rec.View()
	snap.Home = s.engine.HomeView()
	return snap
}

func (s *Session) idle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.Subscribers() == 0 && now.Sub(s.lastSeen) > ttl
}

func countCommands(b Batch) {
	for _, c := range b {
		metrics.CommandsTotal.WithLabelValues(string(c.Op)).Inc()
	}
}
