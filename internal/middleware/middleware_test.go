package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	localcontext "github.com/rahul4469/qrguard/context"
	"github.com/rahul4469/qrguard/internal/crypto"
	"github.com/rahul4469/qrguard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	users map[string]*models.User
}

func (f fakeSessions) User(_ context.Context, token string) (*models.User, error) {
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, models.ErrSessionNotFound
}

func newCodec(t *testing.T) CookieCodec {
	t.Helper()
	c, err := crypto.NewCookieCodec("guest-cookie-secret-for-tests-0123456789", time.Hour)
	require.NoError(t, err)
	return c
}

func captureVisitor(got *Visitor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = CurrentVisitor(r)
	})
}

func TestAssignGuestIssuesAndReusesCookie(t *testing.T) {
	gm := NewGuestMiddleware(newCodec(t), 30*24*time.Hour, false)

	var first Visitor
	rec := httptest.NewRecorder()
	gm.AssignGuest(captureVisitor(&first)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, first.Guest)
	require.NotEmpty(t, first.OwnerID)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, GuestCookieName, cookies[0].Name)
	assert.NotEqual(t, first.OwnerID, cookies[0].Value, "guest id must be encoded")

	var second Visitor
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	gm.AssignGuest(captureVisitor(&second)).ServeHTTP(rec, req)

	assert.Equal(t, first.OwnerID, second.OwnerID)
	assert.Empty(t, rec.Result().Cookies())
}

func TestAssignGuestReplacesTamperedCookie(t *testing.T) {
	gm := NewGuestMiddleware(newCodec(t), time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "not-an-encoded-value"})
	rec := httptest.NewRecorder()

	var v Visitor
	gm.AssignGuest(captureVisitor(&v)).ServeHTTP(rec, req)

	assert.True(t, v.Guest)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestGuestIDRejectsCookieFromAnotherSecret(t *testing.T) {
	other, err := crypto.NewCookieCodec("some-other-guest-cookie-secret-abcdefgh", time.Hour)
	require.NoError(t, err)
	forged, err := other.Encode(GuestCookieName, "7b0c1f6e-5a1d-4c2b-9b51-0d6f7e8a9b10")
	require.NoError(t, err)

	gm := NewGuestMiddleware(newCodec(t), time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookieName, Value: forged})

	assert.Empty(t, gm.GuestID(req))
}

func TestGuestIDRejectsNonUUIDPayload(t *testing.T) {
	codec := newCodec(t)
	encoded, err := codec.Encode(GuestCookieName, "42")
	require.NoError(t, err)

	gm := NewGuestMiddleware(codec, time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookieName, Value: encoded})

	assert.Empty(t, gm.GuestID(req), "a guest cookie must never carry a member id")
}

func TestSetUserAndVisitor(t *testing.T) {
	user := &models.User{ID: 42, Email: "kim@example.com"}
	am := NewAuthMiddleware(fakeSessions{users: map[string]*models.User{"tok": user}}, "session")
	gm := NewGuestMiddleware(newCodec(t), time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "tok"})
	rec := httptest.NewRecorder()

	var v Visitor
	am.SetUser(gm.AssignGuest(captureVisitor(&v))).ServeHTTP(rec, req)

	assert.False(t, v.Guest)
	assert.Equal(t, "42", v.OwnerID)
	assert.Same(t, user, v.User)
	assert.Empty(t, rec.Result().Cookies(), "members do not get a guest cookie")
}

func TestSetUserClearsInvalidSession(t *testing.T) {
	am := NewAuthMiddleware(fakeSessions{}, "session")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "stale"})
	rec := httptest.NewRecorder()

	var v Visitor
	am.SetUser(captureVisitor(&v)).ServeHTTP(rec, req)

	assert.Nil(t, v.User)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestRequireUserRejectsAnonymous(t *testing.T) {
	am := NewAuthMiddleware(fakeSessions{}, "session")
	called := false
	h := am.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/profile-details", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success": false, "error": "로그인이 필요합니다."}`, rec.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	am := NewAuthMiddleware(fakeSessions{}, "session")
	reached := false
	h := am.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	tests := []struct {
		name   string
		user   *models.User
		status int
	}{
		{"anonymous", nil, http.StatusForbidden},
		{"member", &models.User{ID: 1, Role: models.RoleUser}, http.StatusForbidden},
		{"admin", &models.User{ID: 2, Role: models.RoleAdmin}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached = false
			req := httptest.NewRequest(http.MethodPost, "/board/report/1/judgment", nil)
			if tt.user != nil {
				req = req.WithContext(localcontext.ContextSetUser(req.Context(), tt.user))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.status == http.StatusOK, reached)
			if tt.status == http.StatusForbidden {
				assert.JSONEq(t, `{"ok":false,"message":"관리자 권한이 없습니다."}`, rec.Body.String())
			}
		})
	}
}
