// Package view renders pages from view state. Every render is a pure function
// of its input and can be repeated from any trigger.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/teresa-solution/housezen-portal/internal/form"
	"github.com/teresa-solution/housezen-portal/internal/model"
	"github.com/teresa-solution/housezen-portal/internal/swr"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the stylesheet and other static assets.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

var funcs = template.FuncMap{
	"formatDate":  formatDate,
	"upper":       strings.ToUpper,
	"value":       model.Value,
	"statusClass": statusClass,
}

// Renderer executes the page templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("housezen").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Template exposes the parsed set, for HTML renderers that execute templates
// by name.
func (r *Renderer) Template() *template.Template {
	return r.tmpl
}

// Render executes the named template into w.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}

// Fragment executes the named template and returns the markup.
func (r *Renderer) Fragment(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Page is the state shared by every page.
type Page struct {
	Title  string
	App    string
	User   *model.User
	Notice string
	Error  bool

	// ResetURL is where the browser goes once a submitted form resets.
	ResetURL   string
	ResetDelay time.Duration
}

// UserName is the name shown in the navigation: the first name in the tenant
// app, the full name or email in the landlord app.
func (p Page) UserName() string {
	if p.User == nil {
		return ""
	}
	if p.App == "tenant" {
		return p.User.FirstName()
	}
	return p.User.DisplayName()
}

// WithNotice returns a copy of p showing a transient notice.
func (p Page) WithNotice(msg string, isError bool) Page {
	p.Notice = msg
	p.Error = isError
	return p
}

// ResetDelayMS is ResetDelay in milliseconds, for scripts.
func (p Page) ResetDelayMS() int64 {
	return p.ResetDelay.Milliseconds()
}

// AfterReset returns a copy of p that navigates to url after delay.
func (p Page) AfterReset(url string, delay time.Duration) Page {
	p.ResetURL = url
	p.ResetDelay = delay
	return p
}

// SubmitButton is the rendered state of a form's submit control.
type SubmitButton struct {
	Label     string
	Enabled   bool
	Succeeded bool
}

// Button derives the submit control from the form's slot.
func Button(slot *form.Slot) SubmitButton {
	return SubmitButton{
		Label:     slot.Label(),
		Enabled:   slot.Enabled(),
		Succeeded: slot.Status() == form.Succeeded,
	}
}

// List builds a settled list view from a fetch result.
func List[T any](items []T, err error) swr.View[T] {
	switch {
	case err != nil:
		return swr.View[T]{State: swr.NetworkError}
	case len(items) == 0:
		return swr.View[T]{State: swr.Empty, Items: items}
	}
	return swr.View[T]{State: swr.Fresh, Items: items}
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("2 Jan 2006")
	case *time.Time:
		if t == nil {
			return ""
		}
		return formatDate(*t)
	}
	return ""
}

func statusClass(status string) string {
	return strings.ReplaceAll(strings.ToLower(status), " ", "-")
}
