package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-lots/internal/config"
	"github.com/joeblew999/plat-lots/internal/db"
	"github.com/joeblew999/plat-lots/internal/engine"
	"github.com/joeblew999/plat-lots/internal/geometry"
	"github.com/joeblew999/plat-lots/internal/logging"
	"github.com/joeblew999/plat-lots/internal/lots"
	"github.com/joeblew999/plat-lots/internal/mapview"
	"github.com/joeblew999/plat-lots/internal/server"
	"github.com/joeblew999/plat-lots/internal/service"
)

// Options defines all CLI flags and env vars for the lot map server.
// Flags: --host, --port, --data-dir, --web-dir, --config, --source, --log-level
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_WEB_DIR,
// SERVICE_CONFIG, SERVICE_SOURCE, SERVICE_LOG_LEVEL
type Options struct {
	Host       string        `doc:"Host to bind to" default:"0.0.0.0"`
	Port       int           `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir    string        `doc:"Directory for lot data and the DuckDB store" default:".data"`
	WebDir     string        `doc:"Path to a web/ directory overriding the embedded pages"`
	Config     string        `doc:"Map variants YAML file"`
	Source     string        `doc:"Lot source for the default variant (file, URL or duckdb:)"`
	SessionTTL time.Duration `doc:"Idle time before a map session is dropped" default:"30m"`
	LogLevel   string        `doc:"Log level: debug, info, warn, error" default:"info"`
}

func newServer(opts *Options) (*server.Server, error) {
	return server.New(server.Config{
		Host:       opts.Host,
		Port:       fmt.Sprintf("%d", opts.Port),
		DataDir:    opts.DataDir,
		WebDir:     opts.WebDir,
		ConfigPath: opts.Config,
		Source:     opts.Source,
		SessionTTL: opts.SessionTTL,
		Logger:     slog.Default(),
	})
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	_ = godotenv.Load(".env")

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logging.Setup(opts.LogLevel, "")
		srv, err := newServer(opts)
		if err != nil {
			fatal("Server setup failed", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		hooks.OnStart(func() {
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-lots server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Map:     %s/map\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			go srv.Run(ctx)
			if err := http.ListenAndServe(addr, srv); err != nil {
				fatal("Server error", err)
			}
		})
		hooks.OnStop(func() {
			cancel()
			srv.Close()
		})
	})

	cli.Root().Use = "lots"
	cli.Root().Short = "Interactive subdivision lot maps"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logging.Setup(opts.LogLevel, "")
			srv, err := newServer(opts)
			if err != nil {
				fatal("Server setup failed", err)
			}
			defer srv.Close()

			useYAML, _ := cmd.Flags().GetBool("yaml")
			if err := writeSpec(os.Stdout, srv.OpenAPI(), useYAML); err != nil {
				fatal("Error marshaling spec", err)
			}
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// import subcommand: load a GeoJSON or Shapefile into DuckDB
	importCmd := &cobra.Command{
		Use:   "import <source>",
		Short: "Import lots from a GeoJSON file, Shapefile or URL into DuckDB",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logging.Setup(opts.LogLevel, "")
			conn, err := db.Get(db.Config{DataDir: opts.DataDir, DBName: "lots"})
			if err != nil {
				fatal("DuckDB unavailable", err)
			}
			defer db.Close()

			if err := importLots(cmd.Context(), os.Stdout, db.NewStore(conn), args[0]); err != nil {
				fatal("Import failed", err)
			}
		}),
	}
	cli.Root().AddCommand(importCmd)

	// lots subcommand: load a map headlessly and print its lots
	lotsCmd := &cobra.Command{
		Use:   "lots [source]",
		Short: "Print the lots of a map variant with their label positions",
		Args:  cobra.MaximumNArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logging.Setup(opts.LogLevel, "")
			variants, err := config.Load(opts.Config)
			if err != nil {
				fatal("Bad configuration", err)
			}
			name, _ := cmd.Flags().GetString("variant")
			v, err := variants.Variant(name)
			if err != nil {
				fatal("Bad variant", err)
			}

			uri := v.Source
			if len(args) == 1 {
				uri = args[0]
			}
			var store *db.Store
			if uri == service.DuckDBScheme {
				conn, err := db.Get(db.Config{DataDir: opts.DataDir, DBName: "lots"})
				if err != nil {
					fatal("DuckDB unavailable", err)
				}
				defer db.Close()
				store = db.NewStore(conn)
			}
			src, err := service.OpenSource(uri, "", store)
			if err != nil {
				fatal("Bad source", err)
			}
			if err := printLots(cmd.Context(), os.Stdout, v, src); err != nil {
				fatal("Loading lots failed", err)
			}
		}),
	}
	lotsCmd.Flags().String("variant", "", "Map variant from --config (default variant when empty)")
	cli.Root().AddCommand(lotsCmd)

	cli.Run()
}

func writeSpec(w io.Writer, spec *huma.OpenAPI, useYAML bool) error {
	var output []byte
	var err error
	if useYAML {
		output, err = yaml.Marshal(spec)
	} else {
		output, err = json.MarshalIndent(spec, "", "  ")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func importLots(ctx context.Context, w io.Writer, store *db.Store, uri string) error {
	if uri == service.DuckDBScheme {
		return fmt.Errorf("cannot import from %q", uri)
	}
	src, err := service.OpenSource(uri, "", nil)
	if err != nil {
		return err
	}
	fc, err := src.Fetch(ctx)
	if err != nil {
		return err
	}
	n, err := store.Import(ctx, fc)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Imported %d lots from %s\n", n, uri)
	return nil
}

// printLots loads the lots into an engine driving a recorded map, the way a
// browser session does, and prints what the map would show.
func printLots(ctx context.Context, w io.Writer, v *config.Variant, src lots.Source) error {
	rec := mapview.NewRecorder(v.Viewport, v.MaxZoom)
	eng := engine.New(v.EngineConfig(v.Viewport), rec, rec, rec)
	if err := eng.Load(ctx, src); err != nil {
		return err
	}

	labels := map[lots.FeatureID]geometry.LatLng{}
	for _, c := range rec.Drain() {
		if c.Op == mapview.OpLabel && c.ID != nil && c.At != nil {
			labels[*c.ID] = *c.At
		}
	}

	features := eng.Catalog().All()
	sorted := make([]lots.Feature, len(features))
	copy(sorted, features)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLOT\tSTATUS\tACREAGE\tDIMENSIONS\tLABEL")
	for _, f := range sorted {
		at := "-"
		if ll, ok := labels[f.ID]; ok {
			at = fmt.Sprintf("%.6f,%.6f", ll.Lat, ll.Lng)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.Props.LotNumberText(), f.Props.Status.DisplayName(),
			f.Props.AcreageText(), f.Props.DimensionsText(), at)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	home := eng.HomeView()
	fmt.Fprintf(w, "\n%d lots, home view %.6f,%.6f z%g\n", len(sorted), home.Center.Lat, home.Center.Lng, home.Zoom)
	return nil
}
