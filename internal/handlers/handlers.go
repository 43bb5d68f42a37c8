package handlers

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	applog "expense-ledger/internal/log"
	"expense-ledger/internal/metrics"
	"expense-ledger/internal/services"
	"expense-ledger/internal/storage"
)

const (
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// SessionDuration is how long sessions last (30 days).
	SessionDuration = 30 * 24 * time.Hour
)

var views = []string{"login.html", "register.html", "home.html"}

// SessionStore persists server-side session rows.
type SessionStore interface {
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	ValidateSessionWithInfo(ctx context.Context, token string) (*storage.SessionInfo, error)
	RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
}

// Config holds the cookie settings.
type Config struct {
	// Secret signs session cookies.
	Secret       []byte
	SecureCookie bool
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	svc          *services.Services
	sessions     SessionStore
	metrics      *metrics.Metrics
	templates    map[string]*template.Template
	secret       []byte
	secureCookie bool
	now          func() time.Time
}

// NewHandlers parses the templates under templates/ in fsys and returns
// ready handlers. m may be nil.
func NewHandlers(svc *services.Services, sessions SessionStore, fsys fs.FS, m *metrics.Metrics, cfg Config) (*Handlers, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("session secret is required")
	}

	templates := make(map[string]*template.Template, len(views))
	for _, view := range views {
		tmpl, err := template.ParseFS(fsys, "templates/base.html", "templates/"+view)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", view, err)
		}
		templates[view] = tmpl
	}

	return &Handlers{
		svc:          svc,
		sessions:     sessions,
		metrics:      m,
		templates:    templates,
		secret:       cfg.Secret,
		secureCookie: cfg.SecureCookie,
		now:          time.Now,
	}, nil
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	tmpl, ok := h.templates[viewName]
	if !ok {
		h.serverError(w, r, "Unknown template", fmt.Errorf("template %q not loaded", viewName))
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentTemplate).
			Error("Template execution failed", "template", viewName, applog.FieldError, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	applog.FromContext(r.Context()).Error(msg, applog.FieldError, err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
