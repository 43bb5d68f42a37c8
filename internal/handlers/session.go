package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"expense-ledger/internal/auth"
	applog "expense-ledger/internal/log"
	"expense-ledger/internal/services"
	"expense-ledger/internal/storage"
)

type contextKey string

const principalContextKey contextKey = "principal"

var errSessionMismatch = errors.New("session belongs to another user")

// PrincipalFrom returns the identity the guard attached to ctx.
func PrincipalFrom(ctx context.Context) (auth.Principal, error) {
	if p, ok := ctx.Value(principalContextKey).(auth.Principal); ok {
		return p, nil
	}
	return auth.Principal{}, services.ErrNotAuthenticated
}

func withPrincipal(ctx context.Context, p auth.Principal) context.Context {
	ctx = context.WithValue(ctx, principalContextKey, p)
	return applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, p.UserID))
}

// AuthMiddleware wraps handlers to require authentication.
// It also implements rolling sessions: if a session is past the halfway point
// of its lifetime, it automatically renews the session.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, info, err := h.authenticate(r)
		if err != nil {
			if _, cerr := r.Cookie(SessionCookieName); cerr == nil {
				applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).
					Debug("Rejected session cookie", applog.FieldError, err)
				h.clearSessionCookie(w)
			}
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		principal := claims.Principal()

		now := h.now()
		if info.ExpiresAt.Sub(now) < SessionDuration/2 {
			newExpiresAt := now.Add(SessionDuration)
			if err := h.sessions.RenewSession(r.Context(), claims.ID, newExpiresAt); err == nil {
				if err := h.setSessionCookie(w, principal, claims.ID, newExpiresAt); err != nil {
					applog.FromContext(r.Context()).Warn("Failed to re-sign renewed session", applog.FieldError, err)
				}
			}
			// If renewal fails, just continue with the current session
		}

		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

// authenticate resolves the session cookie to a live session row.
func (h *Handlers) authenticate(r *http.Request) (*auth.SessionClaims, *storage.SessionInfo, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil, services.ErrNotAuthenticated
	}

	claims, err := auth.VerifySession(cookie.Value, h.secret)
	if err != nil {
		return nil, nil, fmt.Errorf("verify cookie: %w", err)
	}

	info, err := h.sessions.ValidateSessionWithInfo(r.Context(), claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("validate session: %w", err)
	}
	if info.User.ID != claims.UserID {
		return nil, nil, errSessionMismatch
	}
	return claims, info, nil
}

// startSession creates a session row for p and sets the signed cookie.
func (h *Handlers) startSession(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return fmt.Errorf("generate session token: %w", err)
	}

	expiresAt := h.now().Add(SessionDuration)
	if err := h.sessions.CreateSession(r.Context(), token, p.UserID, expiresAt); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return h.setSessionCookie(w, p, token, expiresAt)
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, p auth.Principal, token string, expiresAt time.Time) error {
	value, err := auth.SignSession(p, token, expiresAt, h.secret)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(expiresAt.Sub(h.now()).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
