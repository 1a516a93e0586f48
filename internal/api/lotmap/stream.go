package lotmap

import (
	"github.com/joeblew999/plat-lots/internal/mapview"
	"github.com/joeblew999/plat-lots/internal/session"
)

// sink is the part of a Datastar stream a batch is written to.
type sink interface {
	Call(fn string, args any) error
	Patch(html, selector string) error
	Signals(signals map[string]any) error
}

// send writes one batch in order. Runs of client map commands go out as a
// single lotmap.apply call; panel, loading and alert commands become the
// drawer fragment and page signals.
func (h *Handler) send(out sink, batch session.Batch) error {
	var pending []mapview.Command
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		err := out.Call(applyFn, pending)
		pending = nil
		return err
	}

	for _, c := range batch {
		if c.Client() {
			pending = append(pending, c)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		if err := h.chrome(out, c); err != nil {
			return err
		}
	}
	return flush()
}

func (h *Handler) chrome(out sink, c mapview.Command) error {
	switch c.Op {
	case mapview.OpPanel:
		open := c.On != nil && *c.On
		if open && c.Details != nil {
			html, err := h.Fragment("lot-details", c.Details, "lot-details-empty")
			if err != nil {
				return err
			}
			if err := out.Patch(html, drawerSelector); err != nil {
				return err
			}
		}
		return out.Signals(map[string]any{"drawerOpen": open})
	case mapview.OpLoading:
		return out.Signals(map[string]any{"loading": c.On != nil && *c.On})
	case mapview.OpAlert:
		return out.Signals(map[string]any{"error": c.Message})
	}
	return nil
}
