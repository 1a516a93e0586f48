package humastar

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// SessionTag marks per-session map operations. They are excluded from the
// generated link graph.
const SessionTag = "map"

// Links is the RFC 8288 link graph derived from the registered operations.
// Create it before the API so its Transformer can be installed, then Build
// it once every route is registered.
type Links struct {
	// Entry is the API entry point; every collection links back to it.
	Entry string
	// Search is the query endpoint advertised with rel="search", if registered.
	Search string
	// Extra links are appended to the entry point, e.g. non-Huma pages.
	Extra []string

	byPath map[string][]string
}

// NewLinks returns a graph rooted at /health searching via /api/v1/query.
func NewLinks(extra ...string) *Links {
	return &Links{Entry: "/health", Search: "/api/v1/query", Extra: extra}
}

// Link formats one Link header value.
func Link(href, rel string) string {
	return fmt.Sprintf(`<%s>; rel="%s"`, href, rel)
}

type route struct {
	path string
	tags []string
	item *huma.PathItem
}

// Build walks the OpenAPI paths and generates the link graph. Call after all
// routes are registered.
func (l *Links) Build(api huma.API) {
	oapi := api.OpenAPI()
	l.byPath = map[string][]string{}

	var collections, items []route
	for p, pi := range oapi.Paths {
		r := route{path: p, tags: primaryTags(pi), item: pi}
		if hasTag(r.tags, SessionTag) {
			continue
		}
		if strings.Contains(p, "{") {
			items = append(items, r)
		} else {
			collections = append(collections, r)
		}
	}
	// Map iteration order is random; keep the headers stable.
	byName := func(rs []route) func(i, j int) bool {
		return func(i, j int) bool { return rs[i].path < rs[j].path }
	}
	sort.Slice(collections, byName(collections))
	sort.Slice(items, byName(items))

	_, hasSearch := oapi.Paths[l.Search]

	for _, item := range items {
		parent := path.Dir(item.path)
		if _, ok := oapi.Paths[parent]; ok {
			l.add(item.path, parent, "collection")
			l.add(item.path, parent, "up")
		}
		if item.item.Put != nil || item.item.Patch != nil {
			l.add(item.path, item.path, "edit")
		}
	}

	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item.path) == coll.path {
				l.add(coll.path, item.path, "item")
			}
		}
		if coll.path != l.Entry {
			l.add(coll.path, l.Entry, "up")
		}
		if hasSearch && coll.path != l.Search {
			l.add(coll.path, l.Search, "search")
		}
		if creates(coll.item.Post) {
			l.add(coll.path, coll.path, "create-form")
		}
		for _, other := range collections {
			if other.path != coll.path && sharedTag(coll.tags, other.tags) {
				l.add(coll.path, other.path, lastSegment(other.path))
			}
		}
	}

	for _, coll := range collections {
		if coll.path != l.Entry {
			l.add(l.Entry, coll.path, lastSegment(coll.path))
		}
	}
	l.add(l.Entry, "/openapi.json", "describedby")
	l.add(l.Entry, "/openapi.json", "service-desc")
	l.add(l.Entry, "/docs", "service-doc")

	for _, rs := range [][]route{collections, items} {
		for _, r := range rs {
			if ref := responseSchema(r.item); ref != "" {
				l.add(r.path, "/openapi.json#/components/schemas/"+ref, "describedby")
			}
		}
	}

	for p, pi := range oapi.Paths {
		headers, ok := l.byPath[p]
		if !ok {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op != nil {
				injectResponseLinks(op, headers)
			}
		}
	}
}

// For returns the generated Link headers of an operation path.
func (l *Links) For(opPath string) []string {
	return l.byPath[opPath]
}

// Root returns the entry point's links plus the extra links, for the
// non-Huma root handler.
func (l *Links) Root() []string {
	out := append([]string{}, l.byPath[l.Entry]...)
	return append(out, l.Extra...)
}

// Transformer returns a Huma Transformer that injects the generated links,
// a self link on item endpoints, pagination links and body actions.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		links := append([]string{}, l.byPath[op.Path]...)
		if op.Path == l.Entry {
			links = append(links, l.Extra...)
		}
		if strings.Contains(op.Path, "{") {
			links = append(links, Link(ctx.URL().Path, "self"))
		}
		if p, ok := v.(Pager); ok {
			links = append(links, p.PaginationLinks(ctx.URL().Path)...)
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				links = append(links, action.LinkHeader())
			}
		}

		for _, link := range links {
			ctx.AppendHeader("Link", link)
		}
		return v, nil
	}
}

func (l *Links) add(from, to, rel string) {
	val := Link(to, rel)
	for _, existing := range l.byPath[from] {
		if existing == val {
			return
		}
	}
	l.byPath[from] = append(l.byPath[from], val)
}

// creates reports whether a POST creates resources (201) rather than
// computing a result.
func creates(op *huma.Operation) bool {
	return op != nil && op.DefaultStatus == 201
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func sharedTag(a, b []string) bool {
	for _, t := range a {
		if hasTag(b, t) {
			return true
		}
	}
	return false
}

func lastSegment(p string) string {
	return path.Base(strings.TrimRight(p, "/"))
}

// injectResponseLinks documents the links on the operation's success response.
func injectResponseLinks(op *huma.Operation, headers []string) {
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLink(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  fmt.Sprintf("Related: %s", rel),
		}
	}
}

// responseSchema returns the schema name of a GET's success body.
func responseSchema(pi *huma.PathItem) string {
	if pi.Get == nil {
		return ""
	}
	for code, resp := range pi.Get.Responses {
		if !strings.HasPrefix(code, "2") || resp.Content == nil {
			continue
		}
		for _, mt := range resp.Content {
			if mt.Schema != nil && mt.Schema.Ref != "" {
				return path.Base(mt.Schema.Ref)
			}
		}
	}
	return ""
}

// parseLink splits `<href>; rel="name"`.
func parseLink(h string) (rel, href string) {
	target, params, ok := strings.Cut(h, ";")
	if !ok {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(target), "<>")
	params = strings.TrimSpace(params)
	if v, ok := strings.CutPrefix(params, "rel="); ok {
		rel = strings.Trim(v, `"`)
	}
	return rel, href
}
