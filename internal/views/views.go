// Package views binds console.View to the HTML templates of the web
// console. Templates are embedded and parsed once; callers pick them by
// typed name.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/yourorg/catalogconsole/internal/console"
)

//go:embed templates/*.html templates/partials/*.html
var files embed.FS

// Name identifies a top-level template.
type Name string

const (
	// Page is the full document: auth forms or the authenticated shell.
	Page Name = "page"
	// Toasts is only the toast container.
	Toasts Name = "toasts"
)

// WebsocketPath is where the live toast/loading feed is served.
const WebsocketPath = "/ws"

// Data is what the templates receive.
type Data struct {
	console.View
	WebsocketPath       string
	ToastLifetimeMillis int64
	ConfirmDelete       string
}

// NewData wraps v with the constants the templates need.
func NewData(v console.View) Data {
	return Data{
		View:                v,
		WebsocketPath:       WebsocketPath,
		ToastLifetimeMillis: console.ToastLifetime.Milliseconds(),
		ConfirmDelete:       console.MsgConfirmDelete,
	}
}

// Renderer executes the parsed templates.
type Renderer struct {
	t *template.Template
}

// New parses every embedded template.
func New() (*Renderer, error) {
	t, err := template.ParseFS(files, "templates/*.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	for _, name := range []Name{Page, Toasts} {
		if t.Lookup(string(name)) == nil {
			return nil, fmt.Errorf("template %q no definido", name)
		}
	}
	return &Renderer{t: t}, nil
}

// Must is New for package-level initialization.
func Must() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Render writes template name with v.
func (r *Renderer) Render(w io.Writer, name Name, v console.View) error {
	return r.t.ExecuteTemplate(w, string(name), NewData(v))
}
