package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-lots/internal/engine"
	"github.com/joeblew999/plat-lots/internal/lots"
	"github.com/joeblew999/plat-lots/internal/mapview"
)

const fixture = "../lots/testdata/lots.geojson"

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func fileResolver(variant string, vp mapview.Viewport) (Setup, error) {
	if variant != "default" {
		return Setup{}, errors.New("unknown variant")
	}
	return Setup{Config: engine.DefaultConfig(), Source: lots.FileSource{Path: fixture}}, nil
}

func newManager(t *testing.T, resolve Resolver) (*Manager, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return NewManager(resolve, WithClock(c.now), WithTTL(time.Minute)), c
}

func ops(b Batch) []mapview.Op {
	out := make([]mapview.Op, len(b))
	for i, c := range b {
		out[i] = c.Op
	}
	return out
}

func intp(i int) *int { return &i }

func TestCreateGet(t *testing.T) {
	m, _ := newManager(t, fileResolver)
	s := m.Create("default")
	assert.Len(t, s.ID, 36)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, m.Len())
}

func TestAttachLoads(t *testing.T) {
	m, _ := newManager(t, fileResolver)
	s := m.Create("default")

	ch, initial, err := s.Attach(context.Background(), mapview.Viewport{Width: 1280, Height: 800})
	require.NoError(t, err)
	defer s.Detach(ch)

	got := ops(initial)
	assert.Contains(t, got, mapview.OpRender)
	assert.Contains(t, got, mapview.OpLabel)
	assert.Equal(t, mapview.OpLoading, got[len(got)-1])

	snap := s.Snapshot()
	assert.True(t, snap.Attached)
	assert.True(t, snap.Loaded)
	assert.Equal(t, 1, snap.Streams)
	assert.Equal(t, snap.Home, snap.View)
}

func TestAttachUnknownVariant(t *testing.T) {
	m, _ := newManager(t, fileResolver)
	_, _, err := m.Create("other").Attach(context.Background(), mapview.DefaultViewport)
	assert.Error(t, err)
}

func TestAttachLoadFailure(t *testing.T) {
	m, _ := newManager(t, func(string, mapview.Viewport) (Setup, error) {
		return Setup{Config: engine.DefaultConfig(), Source: lots.FileSource{Path: "missing.geojson"}}, nil
	})
	s := m.Create("default")

	ch, initial, err := s.Attach(context.Background(), mapview.DefaultViewport)
	require.NoError(t, err)
	defer s.Detach(ch)

	require.NotEmpty(t, initial)
	last := initial[len(initial)-1]
	assert.Equal(t, mapview.OpAlert, last.Op)
	assert.Equal(t, engine.LoadFailedMessage, last.Message)
	assert.False(t, s.Snapshot().Loaded)

	assert.ErrorIs(t, s.Dispatch(Event{Kind: Click, Lot: intp(0)}), engine.ErrNotLoaded)
	assert.NoError(t, s.Dispatch(Event{Kind: ResetView}))
}

func TestDispatchBeforeAttach(t *testing.T) {
	m, _ := newManager(t, fileResolver)
	s := m.Create("default")
	assert.ErrorIs(t, s.Dispatch(Event{Kind: ClosePanel}), ErrNotAttached)
}

func TestDispatchPublishesBatches(t *testing.T) {
	m, _ := newManager(t, fileResolver)
	s := m.Create("default")
	ch, _, err := s.Attach(context.Background(), mapview.DefaultViewport)
	require.NoError(t, err)
	defer s.Detach(ch)

	require.NoError(t, s.Dispatch(Event{Kind: Click, Lot: intp(0)}))
	batch := <-ch
	assert.Contains(t, ops(batch), mapview.OpSetStyle)
	assert.Contains(t, ops(batch), mapview.OpPanel)
	require.NotNil(t, s.Snapshot().Selected)
	assert.Equal(t, 0, *s.Snapshot().Selected)

	require.NoError(t, s.Dispatch(Event{Kind: ClickOutside}))
	batch = <-ch
	assert.Contains(t, ops(batch), mapview.OpPanel)
	assert.Nil(t, s.Snapshot().Selected)

	// Zooming out hides every label.
	require.NoError(t, s.Dispatch(Event{Kind: ZoomEnd, Zoom: 15, Lat: 40.2332, Lng: -83.0234}))
	batch = <-ch
	for _, c := range batch {
		assert.Equal(t, mapview.OpLabelOpacity, c.Op)
		assert.Equal(t, 0.0, *c.Opacity)
	}
	assert.False(t, s.Snapshot().LabelsVisible)
	assert.Equal(t, 15.0, s.Snapshot().View.Zoom)
}

func TestDispatchErrors(t *testing.T) {
	m, _ := newManager(t, fileResolver)
	s := m.Create("default")
	ch, _, err := s.Attach(context.Background(), mapview.DefaultViewport)
	require.NoError(t, err)
	defer s.Detach(ch)

	assert.ErrorIs(t, s.Dispatch(Event{Kind: HoverEnter}), ErrBadEvent)
	assert.ErrorIs(t, s.Dispatch(Event{Kind: "wiggle"}), ErrBadEvent)
	assert.ErrorIs(t, s.Dispatch(Event{Kind: Click, Lot: intp(99)}), lots.ErrUnknownFeature)
}

func TestTouchThenClickDeduped(t *testing.T) {
	m, c := newManager(t, fileResolver)
	s := m.Create("default")
	ch, _, err := s.Attach(context.Background(), mapview.DefaultViewport)
	require.NoError(t, err)
	defer s.Detach(ch)

	require.NoError(t, s.Dispatch(Event{Kind: Touch, Lot: intp(1)}))
	<-ch
	c.t = c.t.Add(100 * time.Millisecond)
	require.NoError(t, s.Dispatch(Event{Kind: Click, Lot: intp(1)}))
	select {
	case b := <-ch:
		t.Fatalf("unexpected batch %v", ops(b))
	default:
	}
}

func TestSlowStreamIsClosed(t *testing.T) {
	m, _ := newManager(t, fileResolver)
	s := m.Create("default")
	ch, _, err := s.Attach(context.Background(), mapview.DefaultViewport)
	require.NoError(t, err)

	// Nothing drains ch while the session keeps producing batches.
	for i := 0; i <= batchBuffer; i++ {
		ev := Event{Kind: Click, Lot: intp(0)}
		if i%2 == 1 {
			ev = Event{Kind: ClickOutside}
		}
		require.NoError(t, s.Dispatch(ev))
	}

	n := 0
	for range ch {
		n++
	}
	assert.Equal(t, batchBuffer, n, "the stream ends instead of skipping a batch")
	assert.False(t, s.Superseded(ch))
	assert.Equal(t, 0, s.Snapshot().Streams)

	again, initial, err := s.Attach(context.Background(), mapview.DefaultViewport)
	require.NoError(t, err)
	defer s.Detach(again)
	assert.Contains(t, ops(initial), mapview.OpRender)
	assert.Nil(t, s.Snapshot().Selected, "the rebuilt engine starts unselected")

	require.NoError(t, s.Dispatch(Event{Kind: Click, Lot: intp(1)}))
	assert.Contains(t, ops(<-again), mapview.OpPanel)
}

func TestAttachReplacesStream(t *testing.T) {
	m, _ := newManager(t, fileResolver)
	s := m.Create("default")
	first, _, err := s.Attach(context.Background(), mapview.DefaultViewport)
	require.NoError(t, err)
	second, _, err := s.Attach(context.Background(), mapview.DefaultViewport)
	require.NoError(t, err)
	defer s.Detach(second)

	_, open := <-first
	assert.False(t, open, "the older stream is closed")
	assert.True(t, s.Superseded(first))
	assert.False(t, s.Superseded(second))
	assert.Equal(t, 1, s.Snapshot().Streams)

	// Detaching the replaced stream leaves the live one alone.
	s.Detach(first)
	require.NoError(t, s.Dispatch(Event{Kind: Click, Lot: intp(0)}))
	assert.Contains(t, ops(<-second), mapview.OpPanel)
}

func TestAttachAfterSweep(t *testing.T) {
	m, c := newManager(t, fileResolver)
	s := m.Create("default")
	c.t = c.t.Add(2 * time.Minute)
	assert.Equal(t, 1, m.Sweep())

	_, _, err := s.Attach(context.Background(), mapview.DefaultViewport)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweep(t *testing.T) {
	m, c := newManager(t, fileResolver)
	idle := m.Create("default")
	streaming := m.Create("default")
	ch, _, err := streaming.Attach(context.Background(), mapview.DefaultViewport)
	require.NoError(t, err)

	c.t = c.t.Add(30 * time.Second)
	assert.Equal(t, 0, m.Sweep())

	c.t = c.t.Add(time.Minute)
	assert.Equal(t, 1, m.Sweep())
	_, err = m.Get(idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(streaming.ID)
	assert.NoError(t, err)

	streaming.Detach(ch)
	c.t = c.t.Add(2 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 0, m.Len())
}

func TestRunStopsWithContext(t *testing.T) {
	m, _ := newManager(t, fileResolver)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
