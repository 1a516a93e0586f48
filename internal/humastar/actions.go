package humastar

import (
	"fmt"
	"strings"
)

// Action is a state-dependent hypermedia action, emitted as an RFC 8288
// Link header with method, title and schema extension parameters:
//
//	</map?variant=default>; rel="map"; method="GET"; title="Open the lot map"
type Action struct {
	Rel    string
	Href   string
	Method string
	Title  string
	Schema string // JSON Schema URL of the request body
}

// Actor is implemented by response bodies that provide actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as a Link header value.
func (a Action) LinkHeader() string {
	var b strings.Builder
	b.WriteString(Link(a.Href, a.Rel))
	for _, p := range [][2]string{{"method", a.Method}, {"title", a.Title}, {"schema", a.Schema}} {
		if p[1] != "" {
			fmt.Fprintf(&b, `; %s="%s"`, p[0], p[1])
		}
	}
	return b.String()
}

// ActionDef is a reusable action template. Pattern holds one %s verb,
// filled with a resource id or an encoded query.
type ActionDef struct {
	Rel     string
	Pattern string // e.g. "/map?%s"
	Method  string
	Title   string
	Schema  string
}

// ActionsFor expands defs for one resource.
func ActionsFor(arg string, defs []ActionDef) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		actions[i] = Action{
			Rel:    d.Rel,
			Href:   fmt.Sprintf(d.Pattern, arg),
			Method: d.Method,
			Title:  d.Title,
			Schema: d.Schema,
		}
	}
	return actions
}
