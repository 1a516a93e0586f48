package engine

import (
	"github.com/joeblew999/plat-lots/internal/lots"
)

// labelController makes exactly one of {label, hover tooltip} the visible
// affordance for each lot at the current zoom.
type labelController struct {
	labels   Labels
	tooltips Tooltips

	threshold float64
	visible   bool

	labelled []lots.FeatureID // lots with a placed label
	tipped   []lots.FeatureID // lots with a bound tooltip
	hasTip   map[lots.FeatureID]bool
}

func newLabelController(l Labels, t Tooltips, threshold float64) *labelController {
	return &labelController{labels: l, tooltips: t, threshold: threshold, hasTip: make(map[lots.FeatureID]bool)}
}

func (c *labelController) addLabel(id lots.FeatureID) {
	c.labelled = append(c.labelled, id)
}

func (c *labelController) addTooltip(id lots.FeatureID) {
	c.tipped = append(c.tipped, id)
	c.hasTip[id] = true
}

// OnZoom re-derives visibility and applies it to the whole label set.
func (c *labelController) OnZoom(zoom float64) {
	c.visible = zoom >= c.threshold

	opacity := 0.0
	if c.visible {
		opacity = 1
	}
	for _, id := range c.labelled {
		c.labels.SetLabelOpacity(id, opacity)
	}

	if !c.visible {
		return
	}
	for _, id := range c.tipped {
		if c.tooltips.TooltipOpen(id) {
			c.tooltips.CloseTooltip(id)
		}
	}
}

// HoverEnter opens the tooltip only while labels are hidden.
func (c *labelController) HoverEnter(id lots.FeatureID) {
	if !c.hasTip[id] {
		return
	}
	if c.visible {
		c.tooltips.CloseTooltip(id)
		return
	}
	c.tooltips.OpenTooltip(id)
}

// HoverLeave always closes the tooltip.
func (c *labelController) HoverLeave(id lots.FeatureID) {
	c.tooltips.CloseTooltip(id)
}

// Close dismisses one tooltip, e.g. when the lot is selected.
func (c *labelController) Close(id lots.FeatureID) {
	c.tooltips.CloseTooltip(id)
}

func (c *labelController) Visible() bool { return c.visible }
