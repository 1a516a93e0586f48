// Package config loads the map variants served by the application. A variant
// bundles the basemaps, initial view, interaction settings and lot source of
// one subdivision map.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-lots/internal/engine"
	"github.com/joeblew999/plat-lots/internal/geometry"
	"github.com/joeblew999/plat-lots/internal/lots"
	"github.com/joeblew999/plat-lots/internal/mapview"
	"github.com/joeblew999/plat-lots/internal/session"
)

// DefaultVariant is the variant served when none is named.
const DefaultVariant = "default"

// maxTileZoom bounds every zoom setting.
const maxTileZoom = 24

// ErrUnknownVariant is returned for a variant name that is not configured.
var ErrUnknownVariant = errors.New("unknown map variant")

// Config holds every configured map variant.
type Config struct {
	Default  string              `yaml:"default" json:"default"`
	Variants map[string]*Variant `yaml:"variants" json:"variants"`
}

// Basemap is one selectable tile layer.
type Basemap struct {
	Name        string   `yaml:"name" json:"name"`
	URL         string   `yaml:"url" json:"url"`
	Attribution string   `yaml:"attribution" json:"attribution"`
	MaxZoom     float64  `yaml:"max_zoom" json:"maxZoom"`
	Subdomains  []string `yaml:"subdomains,omitempty" json:"subdomains,omitempty"`
}

// ViewConfig is the initial camera before the lots load.
type ViewConfig struct {
	Lat        float64 `yaml:"lat" json:"lat"`
	Lng        float64 `yaml:"lng" json:"lng"`
	Zoom       float64 `yaml:"zoom" json:"zoom"`
	MobileZoom float64 `yaml:"mobile_zoom" json:"mobileZoom"`
}

// Variant is one subdivision map.
type Variant struct {
	Title    string     `yaml:"title" json:"title"`
	Source   string     `yaml:"source" json:"source"`
	Basemaps []Basemap  `yaml:"basemaps" json:"basemaps"`
	View     ViewConfig `yaml:"view" json:"view"`

	// LabelMinZoom is the zoom at which labels replace tooltips; 0 keeps
	// labels always on.
	LabelMinZoom     float64          `yaml:"label_min_zoom" json:"labelMinZoom"`
	SelectZoom       float64          `yaml:"select_zoom" json:"selectZoom"`
	HomeZoomBias     float64          `yaml:"home_zoom_bias" json:"homeZoomBias"`
	MaxZoom          float64          `yaml:"max_zoom" json:"maxZoom"`
	FitPadding       engine.Padding   `yaml:"fit_padding" json:"fitPadding"`
	FlyDuration      Duration         `yaml:"fly_duration" json:"flyDuration"`
	FlyEase          float64          `yaml:"fly_ease" json:"flyEase"`
	Anchor           geometry.Anchor  `yaml:"anchor" json:"anchor"`
	TouchClickWindow Duration         `yaml:"touch_click_window" json:"touchClickWindow"`
	Viewport         mapview.Viewport `yaml:"viewport" json:"viewport"`
}

// Default returns the built-in configuration: one variant reproducing the
// subdivision map.
func Default() *Config {
	return &Config{
		Default:  DefaultVariant,
		Variants: map[string]*Variant{DefaultVariant: NewVariant()},
	}
}

// NewVariant returns a variant with the built-in settings.
func NewVariant() *Variant {
	ec := engine.DefaultConfig()
	return &Variant{
		Title:  "Subdivision Lot Map",
		Source: "lots.geojson",
		Basemaps: []Basemap{
			{
				Name:        "Satellite",
				URL:         "https://mt1.google.com/vt/lyrs=s&x={x}&y={y}&z={z}",
				Attribution: "Google Satellite",
				MaxZoom:     21,
				Subdomains:  []string{"mt0", "mt1", "mt2", "mt3"},
			},
			{
				Name:        "Grey",
				URL:         "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
				Attribution: "&copy; OpenStreetMap contributors &copy; CARTO",
				MaxZoom:     20,
			},
		},
		View: ViewConfig{
			Lat:        ec.InitialView.Center.Lat,
			Lng:        ec.InitialView.Center.Lng,
			Zoom:       ec.InitialView.Zoom,
			MobileZoom: 16,
		},
		LabelMinZoom:     ec.LabelMinZoom,
		SelectZoom:       ec.SelectZoom,
		HomeZoomBias:     ec.HomeZoomBias,
		MaxZoom:          ec.MaxZoom,
		FitPadding:       ec.FitPadding,
		FlyDuration:      Duration(ec.Fly.Duration),
		FlyEase:          ec.Fly.EaseLinearity,
		Anchor:           ec.Anchor,
		TouchClickWindow: Duration(ec.TouchClickWindow),
		Viewport:         mapview.DefaultViewport,
	}
}

// UnmarshalYAML starts every variant from the built-in settings, so a file
// only lists what it changes.
func (v *Variant) UnmarshalYAML(node *yaml.Node) error {
	*v = *NewVariant()
	type plain Variant
	return node.Decode((*plain)(v))
}

// Load reads the variants file at path. An empty path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a variants file.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.Variants) == 0 {
		return nil, errors.New("config: no variants")
	}
	if cfg.Default == "" {
		if _, ok := cfg.Variants[DefaultVariant]; ok {
			cfg.Default = DefaultVariant
		} else {
			cfg.Default = cfg.Names()[0]
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Names returns the variant names, sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Variants))
	for name := range c.Variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Variant returns the named variant; "" selects the default.
func (c *Config) Variant(name string) (*Variant, error) {
	if name == "" {
		name = c.Default
	}
	v, ok := c.Variants[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := c.Variants[c.Default]; !ok {
		errs = append(errs, fmt.Errorf("default variant %q is not configured", c.Default))
	}
	for _, name := range c.Names() {
		v := c.Variants[name]
		if v == nil {
			errs = append(errs, fmt.Errorf("variant %q: empty", name))
			continue
		}
		if err := v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("variant %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks one variant.
func (v *Variant) Validate() error {
	var errs []error
	if v.MaxZoom <= 0 || v.MaxZoom > maxTileZoom {
		errs = append(errs, fmt.Errorf("max_zoom %v out of range (0, %d]", v.MaxZoom, maxTileZoom))
	}
	zooms := []struct {
		name string
		z    float64
	}{
		{"view.zoom", v.View.Zoom},
		{"view.mobile_zoom", v.View.MobileZoom},
		{"label_min_zoom", v.LabelMinZoom},
		{"select_zoom", v.SelectZoom},
	}
	for _, z := range zooms {
		if z.z < 0 || z.z > v.MaxZoom {
			errs = append(errs, fmt.Errorf("%s %v out of range [0, %v]", z.name, z.z, v.MaxZoom))
		}
	}
	if v.View.Lat < -90 || v.View.Lat > 90 || v.View.Lng < -180 || v.View.Lng > 180 {
		errs = append(errs, fmt.Errorf("view centre (%v, %v) is not a coordinate", v.View.Lat, v.View.Lng))
	}
	if len(v.Basemaps) == 0 {
		errs = append(errs, errors.New("no basemaps"))
	}
	for i, b := range v.Basemaps {
		if b.URL == "" {
			errs = append(errs, fmt.Errorf("basemap %d (%s): empty url", i, b.Name))
		}
	}
	if v.FitPadding.X < 0 || v.FitPadding.Y < 0 {
		errs = append(errs, errors.New("fit_padding must not be negative"))
	}
	if v.FlyDuration < 0 || v.TouchClickWindow < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if v.FlyEase <= 0 || v.FlyEase > 1 {
		errs = append(errs, fmt.Errorf("fly_ease %v out of range (0, 1]", v.FlyEase))
	}
	if _, err := geometry.ParseAnchor(string(v.Anchor)); err != nil {
		errs = append(errs, err)
	}
	if v.Viewport.Width < 0 || v.Viewport.Height < 0 {
		errs = append(errs, errors.New("viewport must not be negative"))
	}
	return errors.Join(errs...)
}

// EngineConfig returns the engine settings for a client viewport. Phone
// sized viewports start at the mobile zoom.
func (v *Variant) EngineConfig(vp mapview.Viewport) engine.Config {
	anchor, _ := geometry.ParseAnchor(string(v.Anchor))
	zoom := v.View.Zoom
	if vp.Mobile() {
		zoom = v.View.MobileZoom
	}
	return engine.Config{
		InitialView:      engine.View{Center: geometry.LatLng{Lat: v.View.Lat, Lng: v.View.Lng}, Zoom: zoom},
		LabelMinZoom:     v.LabelMinZoom,
		SelectZoom:       v.SelectZoom,
		HomeZoomBias:     v.HomeZoomBias,
		MaxZoom:          v.MaxZoom,
		FitPadding:       v.FitPadding,
		Fly:              engine.Animation{Duration: time.Duration(v.FlyDuration), EaseLinearity: v.FlyEase},
		Anchor:           anchor,
		TouchClickWindow: time.Duration(v.TouchClickWindow),
	}
}

// Resolver returns a session resolver over cfg. sourceOf supplies the lot
// source of a variant, typically a cached service shared by all sessions.
func (c *Config) Resolver(sourceOf func(variant string) (lots.Source, error)) session.Resolver {
	return func(name string, vp mapview.Viewport) (session.Setup, error) {
		v, err := c.Variant(name)
		if err != nil {
			return session.Setup{}, err
		}
		if name == "" {
			name = c.Default
		}
		src, err := sourceOf(name)
		if err != nil {
			return session.Setup{}, err
		}
		setup := session.Setup{Source: src}
		if vp.Width <= 0 || vp.Height <= 0 {
			vp = v.Viewport
			setup.Viewport = v.Viewport
		}
		setup.Config = v.EngineConfig(vp)
		return setup, nil
	}
}
