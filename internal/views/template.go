package views

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Template wraps a parsed template with helper methods for rendering.
type Template struct {
	tmpl *template.Template
}

// TemplateData is the standard data structure passed to all templates.
type TemplateData struct {
	// Current authenticated user (nil if not logged in)
	CurrentUser interface{}

	// CSRF field for forms
	CSRFField template.HTML

	// Flash messages
	Error   string
	Success string

	// Page-specific data
	Data interface{}

	Title       string
	CurrentPath string
}

// DefaultFuncMap returns the functions available in all templates.
func DefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"upper":          strings.ToUpper,
		"lower":          strings.ToLower,
		"formatDateTime": formatDateTime,
		"labelClass":     labelClass,
	}
}

// ParseFS parses the base layout, every partial and the given pages
// from fsys. Pages define a "content" block rendered by "base".
//
//	tmpl, err := views.ParseFS(templates.FS, "pages/home.gohtml")
func ParseFS(fsys fs.FS, patterns ...string) (*Template, error) {
	tmpl := template.New("").Funcs(DefaultFuncMap())

	tmpl, err := tmpl.ParseFS(fsys, "layouts/base.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base template: %w", err)
	}

	partials, err := fs.Glob(fsys, "partials/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to glob partials: %w", err)
	}
	if len(partials) > 0 {
		if tmpl, err = tmpl.ParseFS(fsys, partials...); err != nil {
			return nil, fmt.Errorf("failed to parse partials: %w", err)
		}
	}

	for _, pattern := range patterns {
		if tmpl, err = tmpl.ParseFS(fsys, pattern); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", pattern, err)
		}
	}

	return &Template{tmpl: tmpl}, nil
}

// MustParseFS is like ParseFS but panics on error.
// Use this during initialization when templates must be valid.
func MustParseFS(fsys fs.FS, patterns ...string) *Template {
	tmpl, err := ParseFS(fsys, patterns...)
	if err != nil {
		panic(fmt.Sprintf("failed to parse templates: %v", err))
	}
	return tmpl
}

// Execute renders the template to the given writer with the provided data.
func (t *Template) Execute(w io.Writer, data *TemplateData) error {
	return t.tmpl.ExecuteTemplate(w, "base", data)
}

// ExecuteHTTP renders the template as a 200 response.
func (t *Template) ExecuteHTTP(w http.ResponseWriter, r *http.Request, data *TemplateData) {
	t.ExecuteHTTPWithStatus(w, r, http.StatusOK, data)
}

// ExecuteHTTPWithStatus renders into a buffer first so a failing
// template never produces a half written page.
func (t *Template) ExecuteHTTPWithStatus(w http.ResponseWriter, r *http.Request, status int, data *TemplateData) {
	if data != nil {
		data.CurrentPath = r.URL.Path
	}

	buf := &bytes.Buffer{}
	if err := t.Execute(buf, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", slog.Any("error", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func formatDateTime(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

func labelClass(label string) string {
	switch strings.ToUpper(label) {
	case "MALICIOUS", "DANGER", "악성":
		return "label-danger"
	case "LEGITIMATE", "SAFE", "정상":
		return "label-safe"
	default:
		return "label-caution"
	}
}
