package handlers

import (
	"errors"
	"net/http"
	"strings"

	"expense-ledger/internal/auth"
	applog "expense-ledger/internal/log"
	"expense-ledger/internal/services"
)

const (
	msgInvalidLogin       = "Invalid username or password"
	msgUsernameTaken      = "Username already exists!"
	msgRegistered         = "Registration successful! Please log in."
	msgCredentialsMissing = "Username and password are required"
	msgTryAgain           = "An error occurred. Please try again."
)

// Page carries the fields every layout needs.
type Page struct {
	Username string
	Flash    string
}

// FormViewModel holds data for the login and register pages.
type FormViewModel struct {
	Page
	Error string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	// If already logged in, go straight to the ledger
	if _, _, err := h.authenticate(r); err == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, r, "login.html", FormViewModel{Page: Page{Flash: h.popFlash(w, r)}})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "login.html", FormViewModel{Error: "Invalid form submission"})
		return
	}

	user, err := h.svc.Accounts.Authenticate(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if errors.Is(err, services.ErrInvalidCredentials) {
		h.metrics.LoginAttempt(false)
		h.render(w, r, "login.html", FormViewModel{Error: msgInvalidLogin})
		return
	}
	if err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).
			Error("Login failed", applog.FieldError, err)
		h.render(w, r, "login.html", FormViewModel{Error: msgTryAgain})
		return
	}

	if err := h.startSession(w, r, auth.Principal{UserID: user.ID, Username: user.Username}); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).
			Error("Failed to start session", applog.FieldError, err)
		h.render(w, r, "login.html", FormViewModel{Error: msgTryAgain})
		return
	}
	h.metrics.LoginAttempt(true)

	http.Redirect(w, r, "/", http.StatusFound)
}

// RegisterForm renders the registration page.
func (h *Handlers) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register.html", FormViewModel{Page: Page{Flash: h.popFlash(w, r)}})
}

// Register creates an account and sends the user to the login page.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "register.html", FormViewModel{Error: "Invalid form submission"})
		return
	}

	username, password := r.PostFormValue("username"), r.PostFormValue("password")
	_, err := h.svc.Accounts.Register(r.Context(), username, password)
	switch {
	case errors.Is(err, services.ErrDuplicateUsername):
		h.setFlash(w, msgUsernameTaken)
	case errors.Is(err, services.ErrInvalidInput):
		msg := msgCredentialsMissing
		if strings.TrimSpace(username) != "" && password != "" {
			msg = "Username is too long"
		}
		h.render(w, r, "register.html", FormViewModel{Error: msg})
		return
	case err != nil:
		h.serverError(w, r, "Registration failed", err)
		return
	default:
		h.metrics.UserRegistered()
		h.setFlash(w, msgRegistered)
	}

	http.Redirect(w, r, "/login", http.StatusFound)
}

// Logout handles user logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if claims, err := auth.VerifySession(cookie.Value, h.secret); err == nil {
			if err := h.sessions.DeleteSession(r.Context(), claims.ID); err != nil {
				applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).
					Warn("Failed to delete session", applog.FieldError, err)
			}
		}
		h.clearSessionCookie(w)
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}
