package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	localcontext "github.com/rahul4469/qrguard/context"
	"github.com/rahul4469/qrguard/internal/middleware"
	"github.com/rahul4469/qrguard/internal/models"
	"github.com/rahul4469/qrguard/internal/views"
)

// Reply messages for the auth endpoints.
const (
	MsgLoginFailed     = "로그인 정보가 일치하지 않습니다."
	MsgLoginMissing    = "이메일과 비밀번호를 입력해주세요."
	MsgRegisterMissing = "이메일, 비밀번호, 닉네임을 모두 입력해주세요."
	MsgInvalidEmail    = "올바른 이메일 형식이 아닙니다."
	MsgWeakPassword    = "비밀번호는 8자 이상이며 대문자, 숫자, 특수문자(!#%^*)를 포함해야 합니다."
	MsgEmailTaken      = "이미 사용 중인 이메일입니다."
	MsgInternal        = "요청을 처리하지 못했습니다."
	MsgNicknameMissing = "닉네임을 입력해주세요."

	// GuestNickname is how /auth/me names a visitor without an account.
	GuestNickname = "게스트"
)

type UserStore interface {
	Create(ctx context.Context, nu models.NewUser) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, userID int64) error
	UpdateNickname(ctx context.Context, userID int64, nickname string) error
}

type SessionStore interface {
	Create(ctx context.Context, userID int64) (*models.Session, error)
	Delete(ctx context.Context, token string) error
}

// HistoryMigrator hands a guest's history over to a member.
type HistoryMigrator interface {
	MigrateGuestToUser(ctx context.Context, guestID, userID string) error
}

// AuthTemplates holds the auth pages.
type AuthTemplates struct {
	Login    *views.Template
	Register *views.Template
}

// AuthController handles login, logout and registration.
type AuthController struct {
	users     UserStore
	sessions  SessionStore
	history   HistoryMigrator
	cookies   SessionCookies
	templates AuthTemplates
}

func NewAuthController(
	users UserStore,
	sessions SessionStore,
	history HistoryMigrator,
	cookies SessionCookies,
	templates AuthTemplates,
) *AuthController {
	return &AuthController{
		users:     users,
		sessions:  sessions,
		history:   history,
		cookies:   cookies,
		templates: templates,
	}
}

// LoginData holds data for the login page.
type LoginData struct {
	RedirectTo string
}

// RegisterData refills the register form.
type RegisterData struct {
	Email    string
	Nickname string
}

func (c *AuthController) GetLogin(w http.ResponseWriter, r *http.Request) {
	c.templates.Login.ExecuteHTTP(w, r, &views.TemplateData{
		Title:       "로그인",
		CSRFField:   csrf.TemplateField(r),
		CurrentUser: middleware.CurrentUser(r),
		Data:        LoginData{RedirectTo: safeRedirect(r.URL.Query().Get("redirectTo"))},
	})
}

// PostLoginProc authenticates the form credentials, starts a session and
// moves the visitor's guest history to the member.
func (c *AuthController) PostLoginProc(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFailure(w, r, http.StatusBadRequest, MsgLoginMissing)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		writeFailure(w, r, http.StatusBadRequest, MsgLoginMissing)
		return
	}

	user, err := c.users.Authenticate(r.Context(), email, password)
	if err != nil {
		if !errors.Is(err, models.ErrInvalidCredentials) {
			slog.ErrorContext(r.Context(), "Authentication failed", slog.Any("error", err))
		}
		writeFailure(w, r, http.StatusUnauthorized, MsgLoginFailed)
		return
	}

	session, err := c.sessions.Create(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create session", slog.Int64("user_id", user.ID), slog.Any("error", err))
		writeFailure(w, r, http.StatusInternalServerError, MsgInternal)
		return
	}
	c.cookies.set(w, session.Token)

	if guestID := localcontext.ContextGetGuestID(r.Context()); guestID != "" {
		if err := c.history.MigrateGuestToUser(r.Context(), guestID, user.OwnerID()); err != nil {
			slog.WarnContext(r.Context(), "Failed to migrate guest history",
				slog.String("guest_id", guestID),
				slog.Int64("user_id", user.ID),
				slog.Any("error", err),
			)
		}
	}

	if err := c.users.UpdateLastLogin(r.Context(), user.ID); err != nil {
		slog.WarnContext(r.Context(), "Failed to update last login", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}

	slog.InfoContext(r.Context(), "User logged in", slog.Int64("user_id", user.ID))
	writeJSON(w, r, http.StatusOK, map[string]any{
		"success":  true,
		"redirect": safeRedirect(r.FormValue("redirectTo")),
	})
}

// GetLogout ends the session and returns to the login page.
func (c *AuthController) GetLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieSession); err == nil {
		if err := c.sessions.Delete(r.Context(), cookie.Value); err != nil {
			slog.WarnContext(r.Context(), "Failed to delete session", slog.Any("error", err))
		}
	}
	c.cookies.clear(w)
	http.Redirect(w, r, "/auth/login", http.StatusFound)
}

func (c *AuthController) GetRegister(w http.ResponseWriter, r *http.Request) {
	c.templates.Register.ExecuteHTTP(w, r, &views.TemplateData{
		Title:       "회원가입",
		CSRFField:   csrf.TemplateField(r),
		CurrentUser: middleware.CurrentUser(r),
		Data:        RegisterData{},
	})
}

// PostRegisterProc creates a member account.
func (c *AuthController) PostRegisterProc(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFailure(w, r, http.StatusBadRequest, MsgRegisterMissing)
		return
	}

	user, err := c.users.Create(r.Context(), models.NewUser{
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Nickname: r.FormValue("nickname"),
	})
	switch {
	case err == nil:
	case errors.Is(err, models.ErrMissingField):
		writeFailure(w, r, http.StatusBadRequest, MsgRegisterMissing)
		return
	case errors.Is(err, models.ErrInvalidEmail):
		writeFailure(w, r, http.StatusBadRequest, MsgInvalidEmail)
		return
	case errors.Is(err, models.ErrWeakPassword):
		writeFailure(w, r, http.StatusBadRequest, MsgWeakPassword)
		return
	case errors.Is(err, models.ErrEmailAlreadyExists):
		writeFailure(w, r, http.StatusConflict, MsgEmailTaken)
		return
	default:
		slog.ErrorContext(r.Context(), "Failed to register user", slog.Any("error", err))
		writeFailure(w, r, http.StatusInternalServerError, MsgInternal)
		return
	}

	slog.InfoContext(r.Context(), "User registered", slog.Int64("user_id", user.ID))
	writeJSON(w, r, http.StatusCreated, map[string]any{
		"success":  true,
		"redirect": "/auth/login",
	})
}

// GetCheckEmail reports whether an email is already registered.
func (c *AuthController) GetCheckEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, r, http.StatusBadRequest, "email이 필요합니다.")
		return
	}

	exists, err := c.users.EmailExists(r.Context(), email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Email lookup failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, MsgInternal)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"exists": exists})
}

// MeResponse describes the current visitor. Role is null for guests.
type MeResponse struct {
	IsLoggedIn bool    `json:"is_logged_in"`
	IsGuest    bool    `json:"is_guest"`
	UserID     string  `json:"user_id"`
	Nickname   string  `json:"nickname"`
	Role       *string `json:"role"`
}

func (c *AuthController) GetMe(w http.ResponseWriter, r *http.Request) {
	v := middleware.CurrentVisitor(r)
	resp := MeResponse{IsGuest: v.User == nil, UserID: v.OwnerID, Nickname: GuestNickname}
	if v.User != nil {
		role := v.User.Role
		if role == "" {
			role = models.RoleUser
		}
		resp.IsLoggedIn = true
		resp.Nickname = v.User.Nickname
		resp.Role = &role
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// PostUpdateNickname renames the member. Must sit behind RequireUser.
func (c *AuthController) PostUpdateNickname(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Nickname string `json:"nickname"`
	}
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBody)).Decode(&payload)

	nickname := strings.TrimSpace(payload.Nickname)
	if nickname == "" {
		writeFailure(w, r, http.StatusBadRequest, MsgNicknameMissing)
		return
	}

	user := middleware.CurrentUser(r)
	if err := c.users.UpdateNickname(r.Context(), user.ID, nickname); err != nil {
		slog.ErrorContext(r.Context(), "Failed to update nickname", slog.Int64("user_id", user.ID), slog.Any("error", err))
		writeFailure(w, r, http.StatusInternalServerError, MsgInternal)
		return
	}

	slog.InfoContext(r.Context(), "Nickname updated", slog.Int64("user_id", user.ID))
	writeJSON(w, r, http.StatusOK, map[string]any{"success": true, "nickname": nickname})
}

// GetGuestLogin exists for old links. Every visitor is already a guest
// until they log in.
func (c *AuthController) GetGuestLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

// GetProfileDetails must sit behind RequireUser.
func (c *AuthController) GetProfileDetails(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"user":    middleware.CurrentUser(r),
	})
}

// safeRedirect only allows local absolute paths.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}
