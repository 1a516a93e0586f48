package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-lots/internal/api"
	"github.com/joeblew999/plat-lots/internal/api/lotmap"
	"github.com/joeblew999/plat-lots/internal/config"
	"github.com/joeblew999/plat-lots/internal/db"
	"github.com/joeblew999/plat-lots/internal/humastar"
	"github.com/joeblew999/plat-lots/internal/lots"
	"github.com/joeblew999/plat-lots/internal/metrics"
	"github.com/joeblew999/plat-lots/internal/service"
	"github.com/joeblew999/plat-lots/internal/session"
	"github.com/joeblew999/plat-lots/internal/templates"
	"github.com/joeblew999/plat-lots/web"
)

// sweepInterval is how often idle map sessions are collected.
const sweepInterval = time.Minute

// Config holds the server configuration.
type Config struct {
	Host       string
	Port       string
	DataDir    string
	WebDir     string // Optional web/ directory overriding the embedded pages and assets
	ConfigPath string // Variants YAML file; empty uses the built-in variant
	Source     string // Overrides the default variant's lot source
	SessionTTL time.Duration
	Logger     *slog.Logger
}

// Server is the lot map HTTP server.
type Server struct {
	config   Config
	log      *slog.Logger
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	store    *db.Store
	variants *config.Config
	services *api.Services
	renderer *templates.Renderer
	sessions *session.Manager
	links    *humastar.Links
}

// New creates a new lot map server.
func New(cfg Config) (*Server, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	variants, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	if cfg.Source != "" {
		v, _ := variants.Variant("")
		v.Source = cfg.Source
	}

	mux := http.NewServeMux()
	links := humastar.NewLinks(humastar.Link("/map", "map"))

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-lots API", "1.0.0")
	humaConfig.Info.Description = "Interactive subdivision lot maps: lot queries, map variants and per-browser map sessions."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	humaAPI := humago.New(mux, humaConfig)

	s := &Server{
		config:   cfg,
		log:      log,
		mux:      mux,
		humaAPI:  humaAPI,
		variants: variants,
		links:    links,
	}

	// Initialize DuckDB connection
	conn, err := db.Get(db.Config{
		DataDir: cfg.DataDir,
		DBName:  "lots",
	})
	if err == nil {
		s.db = conn
		s.store = db.NewStore(conn)
		if err := s.store.Init(context.Background()); err != nil {
			log.Warn("DuckDB lots table unavailable", "error", err)
			s.store = nil
		}
	} else {
		log.Warn("DuckDB unavailable", "error", err)
	}

	// One cached dataset per variant, shared by every session
	services := &api.Services{
		Lots:     map[string]*service.LotService{},
		Source:   service.NewSourceService(cfg.DataDir),
		Variants: variants,
		Store:    s.store,
	}
	for _, name := range variants.Names() {
		v := variants.Variants[name]
		src, err := service.OpenSource(v.Source, services.Source.SourcesDir(), s.store)
		if err != nil {
			return nil, fmt.Errorf("variant %q: %w", name, err)
		}
		services.Lots[name] = service.NewLotService(src, v.Anchor)
	}
	s.services = services

	// Templates: embedded unless a web directory is given (dev hot-reload)
	var tfs fs.FS = web.FS()
	var topts []templates.Option
	if cfg.WebDir != "" {
		tfs = os.DirFS(cfg.WebDir)
		topts = append(topts, templates.WithLiveReload())
	}
	renderer, err := templates.New(tfs, web.TemplatePatterns, topts...)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	s.renderer = renderer

	opts := []session.Option{session.WithLogger(log)}
	if cfg.SessionTTL > 0 {
		opts = append(opts, session.WithTTL(cfg.SessionTTL))
	}
	s.sessions = session.NewManager(variants.Resolver(s.sourceOf), opts...)

	s.routes()
	return s, nil
}

func (s *Server) sourceOf(variant string) (lots.Source, error) {
	ls, ok := s.services.Lots[variant]
	if !ok {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownVariant, variant)
	}
	return ls, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Sessions returns the map session manager.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// Run sweeps idle map sessions until ctx is done.
func (s *Server) Run(ctx context.Context) {
	s.sessions.Run(ctx, sweepInterval)
}

// Close closes server resources.
func (s *Server) Close() error {
	return db.Close()
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(s.config.DataDir, s.db != nil, s.variants.Names(), s.sessions.Len).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Map sessions: Datastar SSE stream + event posts
	mapHandler := lotmap.NewHandler(s.sessions, s.variants, s.renderer, s.log)
	mapHandler.RegisterRoutes(s.humaAPI)

	s.links.Build(s.humaAPI)

	// Static files
	var static http.FileSystem = http.FS(web.Static())
	if s.config.WebDir != "" {
		static = http.Dir(filepath.Join(s.config.WebDir, "static"))
	}
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(static)))

	s.mux.Handle("/metrics", metrics.Handler())

	// Page routes
	s.mux.HandleFunc("/map", mapHandler.ServePage)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	for _, link := range s.links.Root() {
		w.Header().Add("Link", link)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-lots",
		"status":  "running",
		"map":     "/map",
	})
}
