package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rahul4469/qrguard/internal/middleware"
	"github.com/rahul4469/qrguard/internal/models"
	"github.com/rahul4469/qrguard/internal/views"
)

type RecentLister interface {
	GuestLimit() int
	ListRecent(ctx context.Context, ownerID string, limit int) ([]models.HistoryEntry, error)
}

// HealthChecker pings a backing store.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// StaticController handles the home page and health check.
type StaticController struct {
	home    *views.Template
	history RecentLister
	db      HealthChecker
}

func NewStaticController(home *views.Template, history RecentLister, db HealthChecker) *StaticController {
	return &StaticController{home: home, history: history, db: db}
}

// HomeData holds data for the home page template.
type HomeData struct {
	Recent     []models.HistoryEntry
	Guest      bool
	GuestLimit int
}

func (c *StaticController) GetHome(w http.ResponseWriter, r *http.Request) {
	v := middleware.CurrentVisitor(r)
	data := HomeData{Guest: v.Guest, GuestLimit: c.history.GuestLimit()}

	if v.OwnerID != "" {
		recent, err := c.history.ListRecent(r.Context(), v.OwnerID, c.history.GuestLimit())
		if err != nil {
			slog.WarnContext(r.Context(), "Failed to load recent history", slog.Any("error", err))
		}
		data.Recent = recent
	}

	var success string
	if r.URL.Query().Get("msg") == "logged_out" {
		success = "로그아웃되었습니다."
	}

	c.home.ExecuteHTTP(w, r, &views.TemplateData{
		Title:       "QR 스캔",
		CurrentUser: v.User,
		Success:     success,
		Data:        data,
	})
}

// HealthCheck reports whether the database answers.
func (c *StaticController) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := c.db.Health(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Health check failed", slog.Any("error", err))
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
