// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-lots/internal/config"
	"github.com/joeblew999/plat-lots/internal/db"
	"github.com/joeblew999/plat-lots/internal/humastar"
	"github.com/joeblew999/plat-lots/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	// Lots holds one cached dataset per map variant.
	Lots     map[string]*service.LotService
	Source   *service.SourceService
	Variants *config.Config
	// Store is the DuckDB lots table; nil when DuckDB is unavailable.
	Store *db.Store
}

// LotsFor returns the dataset of a variant; "" selects the default.
func (s *Services) LotsFor(variant string) (*service.LotService, error) {
	if s == nil || s.Variants == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	if variant == "" {
		variant = s.Variants.Default
	}
	ls, ok := s.Lots[variant]
	if !ok {
		return nil, huma.Error404NotFound(fmt.Sprintf("unknown map variant %q", variant))
	}
	return ls, nil
}

// Types

type VariantInput struct {
	Variant string `query:"variant" doc:"Map variant, empty for the default" example:"default"`
}

type ListLotsInput struct {
	VariantInput
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit  int `query:"limit" minimum:"1" maximum:"500" default:"50" doc:"Page size"`
}

type LotInput struct {
	VariantInput
	Lot string `path:"lot" doc:"Lot number" example:"12"`
}

type ImportInput struct {
	Name string `path:"name" doc:"Source file name in the sources directory" example:"lots.geojson"`
}

type ImportBody struct {
	Source   string   `json:"source" doc:"Imported file" example:"lots.geojson"`
	Imported int      `json:"imported" doc:"Lots written to the DuckDB lots table" example:"42"`
	Reloaded []string `json:"reloaded" doc:"Variants reading from DuckDB that were reloaded"`
}

type LotsOutput struct {
	Body humastar.PageBody[service.LotSummary]
}

// LotBody is one lot with its map actions.
type LotBody struct {
	service.LotSummary
	Variant string `json:"variant" doc:"Map variant the lot belongs to"`
}

// lotActions are the map actions offered for every lot.
var lotActions = []humastar.ActionDef{
	{Rel: "map", Pattern: "/map?%s", Method: "GET", Title: "Open the lot map"},
	{Rel: "stats", Pattern: "/api/v1/stats?%s", Method: "GET", Title: "Lot counts of the map"},
}

// Actions implements humastar.Actor.
func (b LotBody) Actions() []humastar.Action {
	q := url.Values{"variant": {b.Variant}}
	return humastar.ActionsFor(q.Encode(), lotActions)
}

type LotOutput struct {
	Body LotBody
}

type StatsOutput struct {
	Body service.LotStats
}

// VariantSummary describes one configured map.
type VariantSummary struct {
	Name     string  `json:"name" doc:"Variant name" example:"default"`
	Title    string  `json:"title" doc:"Page title" example:"Subdivision Lot Map"`
	Source   string  `json:"source" doc:"Lot source URI" example:"lots.geojson"`
	Default  bool    `json:"default" doc:"Whether this is the default variant"`
	MaxZoom  float64 `json:"maxZoom" doc:"Maximum zoom" example:"21"`
	Basemaps int     `json:"basemaps" doc:"Number of basemaps" example:"2"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLots registers lot query routes.
func (h *APIHandler) RegisterLots(api huma.API) {
	huma.Get(api, "/api/v1/lots", h.GetLots, huma.OperationTags("lots"))
	huma.Get(api, "/api/v1/lots/{lot}", h.GetLot, huma.OperationTags("lots"))
	huma.Get(api, "/api/v1/stats", h.GetStats, huma.OperationTags("lots"))
}

// RegisterVariants registers map variant routes.
func (h *APIHandler) RegisterVariants(api huma.API) {
	huma.Get(api, "/api/v1/variants", h.GetVariants, huma.OperationTags("variants"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
	huma.Post(api, "/api/v1/sources/{name}/import", h.ImportSource, huma.OperationTags("sources"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetLots(ctx context.Context, input *ListLotsInput) (*LotsOutput, error) {
	ls, err := h.svc.LotsFor(input.Variant)
	if err != nil {
		return nil, err
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}
	page, total, err := ls.List(ctx, input.Offset, limit)
	if err != nil {
		return nil, huma.Error502BadGateway("lots unavailable", err)
	}
	return &LotsOutput{Body: humastar.PageBody[service.LotSummary]{
		Total: total, Offset: input.Offset, Limit: limit, Data: page,
	}}, nil
}

func (h *APIHandler) GetLot(ctx context.Context, input *LotInput) (*LotOutput, error) {
	ls, err := h.svc.LotsFor(input.Variant)
	if err != nil {
		return nil, err
	}
	f, err := ls.Get(ctx, input.Lot)
	if errors.Is(err, service.ErrNotFound) {
		return nil, huma.Error404NotFound(err.Error())
	}
	if err != nil {
		return nil, huma.Error502BadGateway("lots unavailable", err)
	}
	variant := input.Variant
	if variant == "" {
		variant = h.svc.Variants.Default
	}
	return &LotOutput{Body: LotBody{LotSummary: ls.Summarize(f), Variant: variant}}, nil
}

func (h *APIHandler) GetStats(ctx context.Context, input *VariantInput) (*StatsOutput, error) {
	ls, err := h.svc.LotsFor(input.Variant)
	if err != nil {
		return nil, err
	}
	st, err := ls.Stats(ctx)
	if err != nil {
		return nil, huma.Error502BadGateway("lots unavailable", err)
	}
	return &StatsOutput{Body: st}, nil
}

func (h *APIHandler) GetVariants(ctx context.Context, input *struct{}) (*struct{ Body []VariantSummary }, error) {
	out := []VariantSummary{}
	if h.svc == nil || h.svc.Variants == nil {
		return &struct{ Body []VariantSummary }{Body: out}, nil
	}
	cfg := h.svc.Variants
	for _, name := range cfg.Names() {
		v := cfg.Variants[name]
		out = append(out, VariantSummary{
			Name:     name,
			Title:    v.Title,
			Source:   v.Source,
			Default:  name == cfg.Default,
			MaxZoom:  v.MaxZoom,
			Basemaps: len(v.Basemaps),
		})
	}
	return &struct{ Body []VariantSummary }{Body: out}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc == nil || h.svc.Source == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources, err := h.svc.Source.List()
	if err != nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

// ImportSource loads a source file into the DuckDB lots table and reloads
// the variants served from it.
func (h *APIHandler) ImportSource(ctx context.Context, input *ImportInput) (*struct{ Body ImportBody }, error) {
	if h.svc == nil || h.svc.Store == nil || h.svc.Source == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	p, err := h.svc.Source.Path(input.Name)
	if errors.Is(err, service.ErrNotFound) {
		return nil, huma.Error404NotFound(err.Error())
	}
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	src, err := service.OpenSource(p, "", nil)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	fc, err := src.Fetch(ctx)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("cannot read source", err)
	}
	n, err := h.svc.Store.Import(ctx, fc)
	if err != nil {
		return nil, huma.Error500InternalServerError("import failed", err)
	}

	body := ImportBody{Source: input.Name, Imported: n, Reloaded: []string{}}
	for _, name := range h.svc.Variants.Names() {
		if !strings.HasPrefix(h.svc.Variants.Variants[name].Source, service.DuckDBScheme) {
			continue
		}
		if ls, ok := h.svc.Lots[name]; ok && ls.Reload(ctx) == nil {
			body.Reloaded = append(body.Reloaded, name)
		}
	}
	return &struct{ Body ImportBody }{Body: body}, nil
}
