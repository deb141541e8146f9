package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rahul4469/qrguard/internal/middleware"
	"github.com/rahul4469/qrguard/internal/models"
)

const (
	MsgSettingsInvalid = "설정 형식이 올바르지 않습니다."
	MsgSettingsFailed  = "설정을 저장하지 못했습니다."
)

// SettingsReader loads a visitor's settings.
type SettingsReader interface {
	Get(ctx context.Context, ownerID string) (models.Settings, error)
}

type SettingsStore interface {
	SettingsReader
	Save(ctx context.Context, ownerID string, settings models.Settings) error
}

type SettingsController struct {
	settings SettingsStore
}

func NewSettingsController(settings SettingsStore) *SettingsController {
	return &SettingsController{settings: settings}
}

// GetSettings returns the visitor's settings, or the defaults.
func (c *SettingsController) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, c.load(r))
}

// PostSettings merges a partial update into the visitor's settings.
func (c *SettingsController) PostSettings(w http.ResponseWriter, r *http.Request) {
	v := middleware.CurrentVisitor(r)
	if v.OwnerID == "" {
		writeMessage(w, r, http.StatusUnauthorized, MsgReportNoOwner)
		return
	}

	var patch models.SettingsPatch
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBody)).Decode(&patch)
	if err != nil && !errors.Is(err, io.EOF) {
		writeMessage(w, r, http.StatusBadRequest, MsgSettingsInvalid)
		return
	}

	current, err := c.settings.Get(r.Context(), v.OwnerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load settings", slog.String("owner_id", v.OwnerID), slog.Any("error", err))
		writeMessage(w, r, http.StatusInternalServerError, MsgSettingsFailed)
		return
	}

	merged := current.Merge(patch)
	if err := c.settings.Save(r.Context(), v.OwnerID, merged); err != nil {
		slog.ErrorContext(r.Context(), "Failed to save settings", slog.String("owner_id", v.OwnerID), slog.Any("error", err))
		writeMessage(w, r, http.StatusInternalServerError, MsgSettingsFailed)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"ok": true, "settings": merged})
}

// GetGoHistory redirects to /history with the requested filter, falling
// back to the visitor's default filter.
func (c *SettingsController) GetGoHistory(w http.ResponseWriter, r *http.Request) {
	filter := c.load(r).History.DefaultFilter
	if f := r.URL.Query().Get("filter"); f != "" {
		filter = models.ParseHistoryFilter(f)
	}
	http.Redirect(w, r, "/history?"+url.Values{"filter": {string(filter)}}.Encode(), http.StatusFound)
}

func (c *SettingsController) load(r *http.Request) models.Settings {
	v := middleware.CurrentVisitor(r)
	if v.OwnerID == "" {
		return models.DefaultSettings()
	}
	s, err := c.settings.Get(r.Context(), v.OwnerID)
	if err != nil {
		slog.WarnContext(r.Context(), "Failed to load settings, using defaults", slog.String("owner_id", v.OwnerID), slog.Any("error", err))
		return models.DefaultSettings()
	}
	return s
}
