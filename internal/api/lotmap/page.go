package lotmap

import (
	"io"
	"net/http"

	"github.com/joeblew999/plat-lots/internal/config"
	"github.com/joeblew999/plat-lots/internal/engine"
	"github.com/joeblew999/plat-lots/internal/geometry"
	"github.com/joeblew999/plat-lots/internal/lots"
)

// MapPage is the data of the map.html template.
type MapPage struct {
	Title     string
	SessionID string
	Signals   string
	StreamURL string
	Legend    []lots.Status
	Client    ClientConfig
}

// ClientConfig is handed to lotmap.js as JSON.
type ClientConfig struct {
	Basemaps  []config.Basemap `json:"basemaps"`
	View      engine.View      `json:"view"`
	MaxZoom   float64          `json:"maxZoom"`
	EventsURL string           `json:"eventsURL"`
	SessionID string           `json:"sessionId"`
}

// ServePage creates a session for the requested variant and renders the map
// page bound to it.
func (h *Handler) ServePage(w http.ResponseWriter, r *http.Request) {
	s, err := h.create(r.URL.Query().Get("variant"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	v, _ := h.variants.Variant(s.Variant)

	data := h.pageData(s.ID, v)
	html, err := h.Renderer.Render("map.html", data)
	if err != nil {
		h.log.Error("Render map page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, html)
}

func (h *Handler) pageData(id string, v *config.Variant) MapPage {
	routes := h.page.Routes.Resolve(id)
	return MapPage{
		Title:     v.Title,
		SessionID: id,
		Signals:   h.page.Signals,
		StreamURL: routes.Stream,
		Legend:    lots.Statuses,
		Client: ClientConfig{
			Basemaps:  v.Basemaps,
			View:      engine.View{Center: geometry.LatLng{Lat: v.View.Lat, Lng: v.View.Lng}, Zoom: v.View.Zoom},
			MaxZoom:   v.MaxZoom,
			EventsURL: routes.Events,
			SessionID: id,
		},
	}
}
