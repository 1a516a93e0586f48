// Package lotmap serves the interactive lot map: the page, its per-session
// Datastar event stream and the endpoint the browser posts pointer events to.
package lotmap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-lots/internal/config"
	"github.com/joeblew999/plat-lots/internal/engine"
	"github.com/joeblew999/plat-lots/internal/humastar"
	"github.com/joeblew999/plat-lots/internal/lots"
	"github.com/joeblew999/plat-lots/internal/mapview"
	"github.com/joeblew999/plat-lots/internal/session"
	"github.com/joeblew999/plat-lots/internal/templates"
)

const (
	sessionsPath = "/api/v1/map/sessions"
	sessionPath  = sessionsPath + "/{id}"

	// applyFn is the browser entry point for client map commands.
	applyFn = "lotmap.apply"
	// drawerSelector is the details panel container patched on selection.
	drawerSelector = "#property-drawer"

	supersededMessage = "This map was opened in another window."
)

// initialSignals are the page's Datastar signals before the stream opens.
var initialSignals = map[string]any{
	"loading":    true,
	"drawerOpen": false,
	"error":      "",
}

// Handler serves map sessions.
type Handler struct {
	humastar.Handler
	sessions *session.Manager
	variants *config.Config
	log      *slog.Logger

	page humastar.PageData
}

// NewHandler creates a map handler.
func NewHandler(sessions *session.Manager, variants *config.Config, renderer *templates.Renderer, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		Handler:  humastar.Handler{Renderer: renderer},
		sessions: sessions,
		variants: variants,
		log:      log,
	}
}

// RegisterRoutes registers the session routes and discovers the page routes
// from them.
func (h *Handler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags(humastar.SessionTag)
	huma.Register(api, huma.Operation{
		OperationID:   "create-map-session",
		Method:        http.MethodPost,
		Path:          sessionsPath,
		Summary:       "Create a map session",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{humastar.SessionTag},
	}, h.CreateSession)
	huma.Get(api, sessionPath, h.GetSession, tags)
	huma.Get(api, sessionPath+"/stream", h.StreamSession, tags)
	huma.Post(api, sessionPath+"/events", h.PostEvent, tags)

	h.page = humastar.BuildPageData(api, sessionPath, initialSignals)
}

// Types

type SessionInput struct {
	ID string `path:"id" doc:"Session id" example:"0b6f9c7e-3f7e-4c1a-9b5e-5d1c0f1e2a3b"`
}

type CreateSessionInput struct {
	Body struct {
		Variant string `json:"variant,omitempty" doc:"Map variant, empty for the default" example:"default"`
	}
}

type CreatedSessionBody struct {
	ID      string `json:"id" doc:"Session id"`
	Variant string `json:"variant" doc:"Map variant"`
	Stream  string `json:"stream" doc:"Datastar event stream URL"`
	Events  string `json:"events" doc:"Event post URL"`
}

type SnapshotOutput struct {
	Body session.Snapshot
}

type StreamInput struct {
	SessionInput
	Width  int `query:"w" minimum:"0" doc:"Map container width in pixels" example:"1280"`
	Height int `query:"h" minimum:"0" doc:"Map container height in pixels" example:"800"`
}

type EventInput struct {
	SessionInput
	Body session.Event
}

// Handlers

func (h *Handler) CreateSession(ctx context.Context, input *CreateSessionInput) (*struct{ Body CreatedSessionBody }, error) {
	s, err := h.create(input.Body.Variant)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	routes := h.page.Routes.Resolve(s.ID)
	return &struct{ Body CreatedSessionBody }{Body: CreatedSessionBody{
		ID: s.ID, Variant: s.Variant, Stream: routes.Stream, Events: routes.Events,
	}}, nil
}

func (h *Handler) GetSession(ctx context.Context, input *SessionInput) (*SnapshotOutput, error) {
	s, err := h.sessions.Get(input.ID)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &SnapshotOutput{Body: s.Snapshot()}, nil
}

// StreamSession attaches a fresh engine to the session, sends the initial
// map and then every batch the session's events produce. A stream that fell
// too far behind is rebuilt from a new engine; a stream replaced by another
// window ends.
func (h *Handler) StreamSession(ctx context.Context, input *StreamInput) (*huma.StreamResponse, error) {
	s, err := h.sessions.Get(input.ID)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	vp := mapview.Viewport{Width: input.Width, Height: input.Height}

	return h.Stream(func(sse humastar.SSE) {
		ch, initial, err := s.Attach(ctx, vp)
		if err != nil {
			h.log.Warn("Stream attach failed", "session", s.ID, "error", err)
			sse.Signals(map[string]any{"loading": false, "error": err.Error()})
			return
		}
		defer func() { s.Detach(ch) }()

		if err := h.send(sse, initial); err != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-ch:
				if !ok {
					if ch, ok = h.resync(ctx, sse, s, ch, vp); !ok {
						return
					}
					continue
				}
				if err := h.send(sse, batch); err != nil {
					h.log.Debug("Stream closed", "session", s.ID, "error", err)
					return
				}
			}
		}
	}), nil
}

// resync handles a closed subscription. An overflowed stream is re-attached
// and redrawn from scratch; it reports false when the stream should end.
func (h *Handler) resync(ctx context.Context, sse sink, s *session.Session, ch chan session.Batch, vp mapview.Viewport) (chan session.Batch, bool) {
	if ctx.Err() != nil {
		return ch, false
	}
	if s.Superseded(ch) {
		h.log.Debug("Stream replaced", "session", s.ID)
		sse.Signals(map[string]any{"loading": false, "error": supersededMessage})
		return ch, false
	}

	h.log.Warn("Stream fell behind, rebuilding", "session", s.ID)
	next, initial, err := s.Attach(ctx, vp)
	if err != nil {
		sse.Signals(map[string]any{"loading": false, "error": err.Error()})
		return ch, false
	}
	if err := sse.Signals(map[string]any{"drawerOpen": false, "error": ""}); err != nil {
		return next, false
	}
	if err := h.send(sse, initial); err != nil {
		return next, false
	}
	return next, true
}

// PostEvent applies one browser interaction. Its effects arrive on the
// session's stream.
func (h *Handler) PostEvent(ctx context.Context, input *EventInput) (*struct{}, error) {
	s, err := h.sessions.Get(input.ID)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	if err := s.Dispatch(input.Body); err != nil {
		return nil, eventError(err)
	}
	return nil, nil
}

func eventError(err error) error {
	switch {
	case errors.Is(err, session.ErrBadEvent), errors.Is(err, lots.ErrUnknownFeature):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, session.ErrNotAttached), errors.Is(err, engine.ErrNotLoaded):
		return huma.Error409Conflict(err.Error())
	}
	return huma.Error500InternalServerError("event failed", err)
}

func (h *Handler) create(variant string) (*session.Session, error) {
	if _, err := h.variants.Variant(variant); err != nil {
		return nil, err
	}
	if variant == "" {
		variant = h.variants.Default
	}
	return h.sessions.Create(variant), nil
}
