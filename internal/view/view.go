// Package view renders the admin console pages and the HTMX fragments
// returned by the API for partial requests.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/yetla/redirector/internal/models"
)

//go:embed templates
var templatesFS embed.FS

// Template names.
const (
	Login         = "login"
	Dashboard     = "dashboard"
	Password      = "password"
	Alert         = "alert"
	LinkTable     = "link_table"
	LinkRow       = "link_row"
	LinkEditRow   = "link_edit_row"
	LinkCount     = "link_count"
	SubTable      = "subdomain_table"
	SubRow        = "subdomain_row"
	SubEditRow    = "subdomain_edit_row"
	SubCount      = "subdomain_count"
	UserTable     = "user_table"
	UserRow       = "user_row"
	UserEditRow   = "user_edit_row"
	UserCount     = "user_count"
	timeLayout    = "2006-01-02 15:04"
	missingString = "-"
)

type LoginPage struct {
	Next     string
	Username string
	Error    string
}

type DashboardPage struct {
	User       *models.User
	Tab        string
	Links      []models.ShortLink
	Subdomains []models.SubdomainRedirect
	Users      []models.User
}

type PasswordPage struct {
	User    *models.User
	Message string
	Error   string
}

// Row wraps a record rendered as a table row. OOB marks the row for an
// out-of-band swap so HTMX replaces the existing row in place.
type Row[T any] struct {
	Item T
	OOB  bool
}

type AlertData struct {
	Level   string
	Message string
}

type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	funcs := template.FuncMap{
		"linkRow": func(l models.ShortLink, oob bool) Row[models.ShortLink] {
			return Row[models.ShortLink]{Item: l, OOB: oob}
		},
		"subdomainRow": func(s models.SubdomainRedirect, oob bool) Row[models.SubdomainRedirect] {
			return Row[models.SubdomainRedirect]{Item: s, OOB: oob}
		},
		"userRow": func(u models.User, oob bool) Row[models.User] {
			return Row[models.User]{Item: u, OOB: oob}
		},
		"alert": func(level, message string) AlertData {
			return AlertData{Level: level, Message: message}
		},
		"owner":   owner,
		"fmtTime": fmtTime,
	}

	tmpl, err := template.New("yetla").Funcs(funcs).ParseFS(templatesFS,
		"templates/*.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the named template into a buffer first so a template
// error never leaves a half-written response behind.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Fragments renders several templates into one response body, used to pair
// an alert with out-of-band row updates.
func (r *Renderer) Fragments(w http.ResponseWriter, status int, parts ...Part) error {
	var buf bytes.Buffer
	for _, p := range parts {
		if err := r.tmpl.ExecuteTemplate(&buf, p.Name, p.Data); err != nil {
			return fmt.Errorf("failed to render %s: %w", p.Name, err)
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

type Part struct {
	Name string
	Data any
}

func owner(username *string) string {
	if username == nil || *username == "" {
		return missingString
	}
	return *username
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return missingString
	}
	return t.Local().Format(timeLayout)
}
