package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	localcontext "github.com/rahul4469/qrguard/context"
	"github.com/rahul4469/qrguard/internal/models"
)

// SessionLookup resolves a session token to its user.
type SessionLookup interface {
	User(ctx context.Context, token string) (*models.User, error)
}

type AuthMiddleware struct {
	sessions   SessionLookup
	cookieName string
}

func NewAuthMiddleware(sessions SessionLookup, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		sessions:   sessions,
		cookieName: cookieName,
	}
}

// SetUser loads the authenticated user from the session cookie and
// stores it in the request context. It never blocks a request.
func (m *AuthMiddleware) SetUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.sessions.User(r.Context(), cookie.Value)
		if err != nil {
			// Invalid or expired session - clear the cookie and proceed
			http.SetCookie(w, &http.Cookie{
				Name:     m.cookieName,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				HttpOnly: true,
			})
			next.ServeHTTP(w, r)
			return
		}

		ctx := localcontext.ContextSetUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser answers anonymous requests with a JSON 401.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if localcontext.ContextGetUser(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   "로그인이 필요합니다.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin answers anyone but an ADMIN member with a JSON 403.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !localcontext.ContextGetUser(r.Context()).IsAdmin() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":      false,
				"message": "관리자 권한이 없습니다.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HELPER FUNCS --------------------------------------------

// CurrentUser returns the logged in user or nil.
func CurrentUser(r *http.Request) *models.User {
	return localcontext.ContextGetUser(r.Context())
}

// Visitor identifies who a request acts for: a member or a guest.
type Visitor struct {
	OwnerID string
	Guest   bool
	User    *models.User
}

// CurrentVisitor resolves the request's history owner. OwnerID is empty
// when neither a user nor a guest id is present.
func CurrentVisitor(r *http.Request) Visitor {
	if user := CurrentUser(r); user != nil {
		return Visitor{OwnerID: user.OwnerID(), User: user}
	}
	if guestID := localcontext.ContextGetGuestID(r.Context()); guestID != "" {
		return Visitor{OwnerID: guestID, Guest: true}
	}
	return Visitor{}
}
