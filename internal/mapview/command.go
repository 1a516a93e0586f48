// Package mapview adapts a remote browser map to the engine's surface
// interfaces. The Recorder mirrors the client state the engine reads back
// and queues every mutation as a Command for the transport to ship.
package mapview

import (
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-lots/internal/engine"
	"github.com/joeblew999/plat-lots/internal/geometry"
	"github.com/joeblew999/plat-lots/internal/lots"
	"github.com/joeblew999/plat-lots/internal/style"
)

// Op names a client-side map operation.
type Op string

const (
	OpRender       Op = "render"
	OpSetStyle     Op = "setStyle"
	OpRaise        Op = "raise"
	OpCursor       Op = "cursor"
	OpLabel        Op = "label"
	OpLabelOpacity Op = "labelOpacity"
	OpTooltip      Op = "tooltip"
	OpSetView      Op = "setView"
	OpFlyTo        Op = "flyTo"
	OpPanel        Op = "panel"
	OpLoading      Op = "loading"
	OpAlert        Op = "alert"
)

// TooltipAction is the sub-operation of an OpTooltip command.
type TooltipAction string

const (
	TooltipBind  TooltipAction = "bind"
	TooltipOpen  TooltipAction = "open"
	TooltipClose TooltipAction = "close"
)

// Command is one queued map mutation, encoded as JSON for lotmap.apply.
// Only the fields relevant to Op are set.
type Command struct {
	Op Op `json:"op"`

	ID       *lots.FeatureID                `json:"id,omitempty"`
	Features *geojson.FeatureCollection     `json:"features,omitempty"`
	Styles   map[lots.FeatureID]style.Style `json:"styles,omitempty"`
	Style    *style.Style                   `json:"style,omitempty"`
	Cursor   *engine.Cursor                 `json:"cursor,omitempty"`
	At       *geometry.LatLng               `json:"at,omitempty"`
	Text     string                         `json:"text,omitempty"`
	Opacity  *float64                       `json:"opacity,omitempty"`
	Tooltip  TooltipAction                  `json:"tooltip,omitempty"`
	View     *engine.View                   `json:"view,omitempty"`
	Duration float64                        `json:"duration,omitempty"` // seconds
	Ease     float64                        `json:"easeLinearity,omitempty"`
	Details  *engine.Details                `json:"details,omitempty"`
	On       *bool                          `json:"on,omitempty"` // panel visible, loading shown
	Message  string                         `json:"message,omitempty"`
}

// Client reports whether the command is applied by the browser map script,
// as opposed to page chrome (panel, loading indicator, alert).
func (c Command) Client() bool {
	switch c.Op {
	case OpPanel, OpLoading, OpAlert:
		return false
	}
	return true
}

func idp(id lots.FeatureID) *lots.FeatureID { return &id }
func boolp(b bool) *bool                    { return &b }
