// Package humastar bridges Huma (REST/OpenAPI) with Datastar (SSE/hypermedia).
//
// It provides:
//   - SSE: Huma streaming → Datastar SSE protocol via [SSE] and [NewSSE]
//   - Handler: Embeddable base for SSE handlers that render fragments via [Handler]
//   - PageData: route and signal discovery for page templates via [BuildPageData]
//
// A handler embeds [Handler] and streams through it:
//
//	func (h *MapHandler) Stream(ctx context.Context, in *StreamInput) (*huma.StreamResponse, error) {
//	    return h.Handler.Stream(func(sse humastar.SSE) {
//	        sse.Call("lotmap.apply", cmds)
//	    }), nil
//	}
package humastar

import (
	"encoding/json"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/plat-lots/internal/templates"
)

// ---------------------------------------------------------------------------
// Handler: embeddable base for Datastar SSE handlers
// ---------------------------------------------------------------------------

// Handler is an embeddable base for Huma handlers that produce Datastar SSE
// responses. It holds a [templates.Renderer] and provides convenience methods
// to create streams and render fragments.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream returns a Huma StreamResponse that calls fn with a ready SSE helper.
// Use this instead of manually constructing &huma.StreamResponse{Body: ...}.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

// Fragment renders a named template. When data is nil or name is not
// defined, the fallback template is rendered without data instead.
func (h *Handler) Fragment(name string, data any, fallback string) (string, error) {
	if fallback != "" && (data == nil || !h.Renderer.Has(name)) {
		return h.Renderer.Render(fallback, nil)
	}
	return h.Renderer.Render(name, data)
}

// ---------------------------------------------------------------------------
// SSE: Huma to Datastar bridge
// ---------------------------------------------------------------------------

// SSE wraps a Datastar SSE generator with the three operations the map
// stream needs: fragment patches, signal patches and script calls.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE creates a Datastar SSE helper from a Huma streaming context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch sends HTML to replace inner content at a CSS selector.
func (s SSE) Patch(html, selector string) error {
	return s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
	)
}

// Signals sends arbitrary signals to the UI.
func (s SSE) Signals(signals map[string]any) error {
	return s.MarshalAndPatchSignals(signals)
}

// Call executes fn(args) in the browser, where fn is a global function path
// such as "lotmap.apply" and args is JSON encoded.
func (s SSE) Call(fn string, args any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode %s args: %w", fn, err)
	}
	return s.ExecuteScript(fmt.Sprintf("%s(%s)", fn, b))
}

// ---------------------------------------------------------------------------
// Input types
// ---------------------------------------------------------------------------

// EmptyInput is a shared input struct for handlers with no parameters.
type EmptyInput struct{}
