package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	localcontext "github.com/rahul4469/qrguard/context"
)

// GuestCookieName holds the sealed anonymous visitor id.
const GuestCookieName = "guest_id"

// CookieCodec signs and encrypts cookie values. securecookie.SecureCookie
// satisfies it.
type CookieCodec interface {
	Encode(name string, value any) (string, error)
	Decode(name, value string, dst any) error
}

// GuestMiddleware gives every anonymous visitor a stable guest id.
type GuestMiddleware struct {
	codec    CookieCodec
	duration time.Duration
	secure   bool
}

func NewGuestMiddleware(codec CookieCodec, duration time.Duration, secure bool) *GuestMiddleware {
	return &GuestMiddleware{codec: codec, duration: duration, secure: secure}
}

// AssignGuest must run after AuthMiddleware.SetUser. Logged in users
// keep their guest cookie untouched so it can be migrated on login.
func (m *GuestMiddleware) AssignGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r) != nil {
			next.ServeHTTP(w, r)
			return
		}

		guestID := m.GuestID(r)
		if guestID == "" {
			guestID = uuid.NewString()
			if err := m.setCookie(w, guestID); err != nil {
				slog.ErrorContext(r.Context(), "Failed to encode guest cookie", slog.Any("error", err))
			}
		}

		ctx := localcontext.ContextSetGuestID(r.Context(), guestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GuestID reads and opens the guest cookie. It returns "" when the
// cookie is missing, tampered with, expired or not a UUID.
func (m *GuestMiddleware) GuestID(r *http.Request) string {
	cookie, err := r.Cookie(GuestCookieName)
	if err != nil {
		return ""
	}
	var id string
	if err := m.codec.Decode(GuestCookieName, cookie.Value, &id); err != nil {
		return ""
	}
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}

func (m *GuestMiddleware) setCookie(w http.ResponseWriter, guestID string) error {
	encoded, err := m.codec.Encode(GuestCookieName, guestID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(m.duration.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
