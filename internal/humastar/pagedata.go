// Reverse mapping from the OpenAPI document to page template data.
//
// BuildPageData extracts what a page template needs from the API:
//   - Signals JSON (data-signals init from UI state)
//   - Routes (Resource, Stream, Events, discovered from OpenAPI paths)
//
// Templates never hardcode URLs: {{.Routes.Stream}} is resolved per resource.
package humastar

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// PageData holds everything a page template needs from the OpenAPI spec.
type PageData struct {
	// Signals is the JSON string for data-signals initialization.
	Signals string

	// Routes maps operation names to their resolved paths.
	Routes SchemaRoutes
}

// SchemaRoutes holds discovered API routes for a resource.
type SchemaRoutes struct {
	Resource string // GET single
	Stream   string // GET {resource}/stream SSE
	Events   string // POST {resource}/events
}

// Resolve substitutes the path parameter of every route with id.
func (r SchemaRoutes) Resolve(id string) SchemaRoutes {
	return SchemaRoutes{
		Resource: fillParam(r.Resource, id),
		Stream:   fillParam(r.Stream, id),
		Events:   fillParam(r.Events, id),
	}
}

// DataInit returns a Datastar data-init attribute value for the stream route.
// query is appended verbatim as a JavaScript expression, e.g.
// "'?w=' + window.innerWidth".
func (pd PageData) DataInit(query string) string {
	if pd.Routes.Stream == "" {
		return ""
	}
	if query == "" {
		return fmt.Sprintf("@get('%s')", pd.Routes.Stream)
	}
	return fmt.Sprintf("@get('%s' + %s)", pd.Routes.Stream, query)
}

// BuildPageData discovers the routes under basePath (e.g.
// "/api/v1/map/sessions/{id}") and encodes uiSignals for data-signals.
func BuildPageData(api huma.API, basePath string, uiSignals map[string]any) PageData {
	var pd PageData
	signalsJSON, _ := json.Marshal(uiSignals)
	pd.Signals = string(signalsJSON)
	pd.Routes = discoverRoutes(api, basePath)
	return pd
}

// discoverRoutes finds the routes of one resource by walking OpenAPI paths.
func discoverRoutes(api huma.API, basePath string) SchemaRoutes {
	var routes SchemaRoutes

	paths := api.OpenAPI().Paths
	if paths == nil || basePath == "" {
		return routes
	}

	for path, item := range paths {
		if !strings.HasPrefix(path, basePath) {
			continue
		}
		switch suffix := path[len(basePath):]; {
		case suffix == "" && item.Get != nil:
			routes.Resource = path
		case suffix == "/stream" && item.Get != nil:
			routes.Stream = path
		case suffix == "/events" && item.Post != nil:
			routes.Events = path
		}
	}

	return routes
}

func fillParam(path, id string) string {
	start := strings.IndexByte(path, '{')
	if start < 0 {
		return path
	}
	end := strings.IndexByte(path[start:], '}')
	if end < 0 {
		return path
	}
	return path[:start] + id + path[start+end+1:]
}
