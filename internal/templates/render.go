// Package templates renders the map page and its Datastar SSE fragments.
package templates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"sync"

	"github.com/joeblew999/plat-lots/internal/lots"
	"github.com/joeblew999/plat-lots/internal/style"
)

var funcMap = template.FuncMap{
	// json embeds a value as a JavaScript literal.
	"json": func(v any) (template.JS, error) {
		b, err := json.Marshal(v)
		return template.JS(b), err
	},
	// statusColor is the fill color of a lot status, trusted as CSS.
	"statusColor": func(s lots.Status) template.CSS {
		return template.CSS(style.StatusColor(s))
	},
	"statusName": func(s lots.Status) string {
		return s.DisplayName()
	},
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLiveReload re-parses the templates before every render, for editing
// an on-disk web directory without restarting.
func WithLiveReload() Option {
	return func(r *Renderer) { r.live = true }
}

// Renderer holds the templates parsed from a file system.
type Renderer struct {
	fsys     fs.FS
	patterns []string
	live     bool

	mu   sync.RWMutex
	tmpl *template.Template
}

// New parses every template in fsys matching patterns, e.g.
// "templates/*.html" and "templates/fragments/*.html".
func New(fsys fs.FS, patterns []string, opts ...Option) (*Renderer, error) {
	r := &Renderer{fsys: fsys, patterns: patterns}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.Execute(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Execute renders a named template to w. Output is buffered, so nothing is
// written when the template fails.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	if r.live {
		if err := r.Reload(); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	r.mu.RLock()
	err := r.tmpl.ExecuteTemplate(&buf, name, data)
	r.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// Has reports whether a template is defined.
func (r *Renderer) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tmpl.Lookup(name) != nil
}

// Reload re-parses the templates.
func (r *Renderer) Reload() error {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(r.fsys, r.patterns...)
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	r.mu.Lock()
	r.tmpl = tmpl
	r.mu.Unlock()
	return nil
}
