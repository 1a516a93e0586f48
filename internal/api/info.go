package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dataDir  string
	dbOK     bool
	variants []string
	sessions func() int
}

// NewInfoHandler creates the service info handler. sessions reports the
// number of open map sessions.
func NewInfoHandler(dataDir string, dbOK bool, variants []string, sessions func() int) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, dbOK: dbOK, variants: variants, sessions: sessions}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	DB       bool     `json:"db" doc:"Whether database is available"`
	Variants []string `json:"variants" doc:"Configured map variants"`
	Sessions int      `json:"sessions" doc:"Open map sessions"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "plat-lots",
		Version:  "0.1.0",
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Variants: h.variants,
		Features: []string{"geojson", "shapefile", "duckdb", "datastar"},
	}
	if body.Variants == nil {
		body.Variants = []string{}
	}
	if h.sessions != nil {
		body.Sessions = h.sessions()
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
