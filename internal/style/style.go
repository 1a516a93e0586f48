// Package style maps a lot's status and interaction state to its polygon style.
package style

import (
	"fmt"

	"github.com/joeblew999/plat-lots/internal/lots"
)

// InteractionState is the transient UI state of a single lot.
type InteractionState int

const (
	Default InteractionState = iota
	Hovered
	Selected
)

func (s InteractionState) String() string {
	switch s {
	case Default:
		return "default"
	case Hovered:
		return "hovered"
	case Selected:
		return "selected"
	}
	return fmt.Sprintf("InteractionState(%d)", int(s))
}

// Style is the rendered look of a lot polygon.
type Style struct {
	FillColor     string  `json:"fillColor" doc:"Fill color (CSS)" example:"#e74c3c"`
	StrokeColor   string  `json:"color" doc:"Stroke color (CSS)" example:"#1a1a1a"`
	StrokeWeight  float64 `json:"weight" doc:"Stroke width in pixels" example:"2"`
	StrokeOpacity float64 `json:"opacity" doc:"Stroke opacity (0-1)" example:"1"`
	FillOpacity   float64 `json:"fillOpacity" doc:"Fill opacity (0-1)" example:"0.3"`
}

const (
	strokeColor   = "#1a1a1a"
	strokeOpacity = 1.0
)

var statusColors = map[lots.Status]string{
	lots.StatusAvailable: "#2ecc71",
	lots.StatusPending:   "#f39c12",
	lots.StatusSold:      "#e74c3c",
	lots.StatusSpecHome:  "#3498db",
}

// StatusColor returns the base fill color of a status. Unknown statuses get
// the available color.
func StatusColor(status lots.Status) string {
	if c, ok := statusColors[status]; ok {
		return c
	}
	return statusColors[lots.StatusAvailable]
}

// Resolve returns the style for a lot in the given state.
func Resolve(status lots.Status, state InteractionState) Style {
	s := Style{
		FillColor:     StatusColor(status),
		StrokeColor:   strokeColor,
		StrokeOpacity: strokeOpacity,
		StrokeWeight:  2,
		FillOpacity:   0.3,
	}
	switch state {
	case Hovered:
		s.StrokeWeight = 3
		s.FillOpacity = 0.6
	case Selected:
		s.StrokeWeight = 3
		s.FillOpacity = 0.7
	}
	return s
}
