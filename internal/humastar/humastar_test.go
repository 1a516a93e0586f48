package humastar

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type itemOutput struct {
	Body struct {
		ID string `json:"id"`
	}
}

type listOutput struct {
	Body PageBody[string]
}

func testAPI(t *testing.T) (humatest.TestAPI, *Links) {
	t.Helper()
	graph := NewLinks(Link("/map", "map"))
	cfg := huma.DefaultConfig("test", "1.0.0")
	cfg.Transformers = append(cfg.Transformers, graph.Transformer())
	_, api := humatest.New(t, cfg)

	huma.Get(api, "/health", func(ctx context.Context, _ *EmptyInput) (*itemOutput, error) {
		out := &itemOutput{}
		out.Body.ID = "ok"
		return out, nil
	})
	huma.Get(api, "/api/v1/lots", func(ctx context.Context, _ *EmptyInput) (*listOutput, error) {
		out := &listOutput{}
		out.Body = PageBody[string]{Total: 25, Offset: 10, Limit: 10, Data: []string{"a"}}
		return out, nil
	}, func(o *huma.Operation) { o.Tags = []string{"lots"} })
	huma.Get(api, "/api/v1/lots/{lot}", func(ctx context.Context, in *struct {
		Lot string `path:"lot"`
	}) (*itemOutput, error) {
		out := &itemOutput{}
		out.Body.ID = in.Lot
		return out, nil
	}, func(o *huma.Operation) { o.Tags = []string{"lots"} })
	huma.Get(api, "/api/v1/map/sessions/{id}", func(ctx context.Context, in *struct {
		ID string `path:"id"`
	}) (*itemOutput, error) {
		return &itemOutput{}, nil
	}, func(o *huma.Operation) { o.Tags = []string{SessionTag} })
	huma.Get(api, "/api/v1/map/sessions/{id}/stream", func(ctx context.Context, in *struct {
		ID string `path:"id"`
	}) (*huma.StreamResponse, error) {
		return &huma.StreamResponse{Body: func(huma.Context) {}}, nil
	}, func(o *huma.Operation) { o.Tags = []string{SessionTag} })
	huma.Post(api, "/api/v1/map/sessions/{id}/events", func(ctx context.Context, in *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		return nil, nil
	}, func(o *huma.Operation) { o.Tags = []string{SessionTag} })

	graph.Build(api)
	return api, graph
}

func links(resp http.Header) string {
	return strings.Join(resp.Values("Link"), ",")
}

func TestPaginationLinks(t *testing.T) {
	p := PageBody[int]{Total: 25, Offset: 10, Limit: 10}
	got := p.PaginationLinks("/api/v1/lots")
	assert.Equal(t, []string{
		`</api/v1/lots?offset=0&limit=10>; rel="first"`,
		`</api/v1/lots?offset=0&limit=10>; rel="prev"`,
		`</api/v1/lots?offset=20&limit=10>; rel="next"`,
		`</api/v1/lots?offset=20&limit=10>; rel="last"`,
	}, got)

	first := PageBody[int]{Total: 3, Offset: 0, Limit: 10}
	got = first.PaginationLinks("/x")
	assert.Len(t, got, 2)
}

func TestActionsFor(t *testing.T) {
	acts := ActionsFor("12", []ActionDef{
		{Rel: "details", Pattern: "/api/v1/lots/%s", Method: "GET", Title: "Lot details"},
	})
	require.Len(t, acts, 1)
	assert.Equal(t, `</api/v1/lots/12>; rel="details"; method="GET"; title="Lot details"`, acts[0].LinkHeader())
}

func TestRoutesResolve(t *testing.T) {
	r := SchemaRoutes{
		Resource: "/api/v1/map/sessions/{id}",
		Stream:   "/api/v1/map/sessions/{id}/stream",
		Events:   "/api/v1/map/sessions/{id}/events",
	}.Resolve("abc")
	assert.Equal(t, "/api/v1/map/sessions/abc", r.Resource)
	assert.Equal(t, "/api/v1/map/sessions/abc/stream", r.Stream)
	assert.Equal(t, "/api/v1/map/sessions/abc/events", r.Events)
	assert.Equal(t, "/no/params", fillParam("/no/params", "x"))
}

func TestBuildPageData(t *testing.T) {
	api, _ := testAPI(t)
	pd := BuildPageData(api, "/api/v1/map/sessions/{id}", map[string]any{"loading": true})

	assert.JSONEq(t, `{"loading":true}`, pd.Signals)
	assert.Equal(t, "/api/v1/map/sessions/{id}", pd.Routes.Resource)
	assert.Equal(t, "/api/v1/map/sessions/{id}/stream", pd.Routes.Stream)
	assert.Equal(t, "/api/v1/map/sessions/{id}/events", pd.Routes.Events)

	pd.Routes = pd.Routes.Resolve("s1")
	assert.Equal(t, "@get('/api/v1/map/sessions/s1/stream')", pd.DataInit(""))
	assert.Equal(t, "@get('/api/v1/map/sessions/s1/stream' + '?w=' + window.innerWidth)",
		pd.DataInit("'?w=' + window.innerWidth"))
	assert.Empty(t, PageData{}.DataInit(""))
}

func TestLinkTransformer(t *testing.T) {
	api, graph := testAPI(t)

	resp := api.Get("/api/v1/lots/12")
	require.Equal(t, http.StatusOK, resp.Code)
	l := links(resp.Header())
	assert.Contains(t, l, `</api/v1/lots>; rel="collection"`)
	assert.Contains(t, l, `</api/v1/lots/12>; rel="self"`)

	resp = api.Get("/api/v1/lots")
	require.Equal(t, http.StatusOK, resp.Code)
	l = links(resp.Header())
	assert.Contains(t, l, `</api/v1/lots/{lot}>; rel="item"`)
	assert.Contains(t, l, `rel="next"`)

	resp = api.Get("/health")
	l = links(resp.Header())
	assert.Contains(t, l, `</api/v1/lots>; rel="lots"`)
	assert.Contains(t, l, `</map>; rel="map"`)
	assert.Contains(t, l, `</openapi.json>; rel="service-desc"`)
	assert.NotContains(t, l, "/api/v1/map/sessions")

	want := append([]string{}, graph.For("/health")...)
	assert.Equal(t, append(want, `</map>; rel="map"`), graph.Root())
	assert.Empty(t, graph.For("/api/v1/map/sessions/{id}"))
}

func TestActionLinkHeader(t *testing.T) {
	a := Action{Rel: "map", Href: "/map?variant=default", Method: "GET", Title: "Open the lot map"}
	assert.Equal(t, `</map?variant=default>; rel="map"; method="GET"; title="Open the lot map"`, a.LinkHeader())
	assert.Equal(t, `</x>; rel="self"`, Action{Rel: "self", Href: "/x"}.LinkHeader())
}

func TestPaginationEdges(t *testing.T) {
	assert.Nil(t, PageBody[int]{Total: 5}.PaginationLinks("/l"))
	assert.Equal(t, []string{
		`</l?offset=0&limit=10>; rel="first"`,
		`</l?offset=0&limit=10>; rel="last"`,
	}, PageBody[int]{Total: 0, Limit: 10}.PaginationLinks("/l"))
}
