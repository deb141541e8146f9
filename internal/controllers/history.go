package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rahul4469/qrguard/internal/middleware"
	"github.com/rahul4469/qrguard/internal/models"
)

const defaultHistoryPerPage = 10

type HistoryLister interface {
	GuestLimit() int
	ListRecent(ctx context.Context, ownerID string, limit int) ([]models.HistoryEntry, error)
	ListPaginated(ctx context.Context, ownerID string, filter models.HistoryFilter, page, perPage int, q string) (*models.HistoryPage, error)
}

// HistoryResponse is the /history body. Guests only get Entries.
type HistoryResponse struct {
	Filter  models.HistoryFilter  `json:"filter"`
	Guest   bool                  `json:"guest"`
	Entries []models.HistoryEntry `json:"entries"`
	Total   int                   `json:"total"`
	Page    int                   `json:"page,omitempty"`
	PerPage int                   `json:"per_page,omitempty"`
	Pages   int                   `json:"pages,omitempty"`
}

type HistoryController struct {
	history  HistoryLister
	settings SettingsReader
}

// NewHistoryController takes an optional settings reader that supplies
// the default filter when the request names none.
func NewHistoryController(history HistoryLister, settings SettingsReader) *HistoryController {
	return &HistoryController{history: history, settings: settings}
}

// GetHistory lists the visitor's analyzed URLs.
func (c *HistoryController) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := middleware.CurrentVisitor(r)
	filter := c.filter(r, q.Get("filter"), v.OwnerID)

	resp := HistoryResponse{Filter: filter, Guest: v.Guest, Entries: []models.HistoryEntry{}}
	if v.OwnerID == "" {
		writeJSON(w, r, http.StatusOK, resp)
		return
	}

	if v.Guest {
		entries, err := c.history.ListRecent(r.Context(), v.OwnerID, c.history.GuestLimit())
		if err != nil {
			c.fail(w, r, err)
			return
		}
		resp.Entries = filter.Apply(entries)
		resp.Total = len(resp.Entries)
		writeJSON(w, r, http.StatusOK, resp)
		return
	}

	page, err := c.history.ListPaginated(r.Context(), v.OwnerID, filter,
		positiveInt(q.Get("page"), 1),
		positiveInt(q.Get("per_page"), defaultHistoryPerPage),
		q.Get("q"),
	)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	if page.Entries != nil {
		resp.Entries = page.Entries
	}
	resp.Total = page.Total
	resp.Page = page.Page
	resp.PerPage = page.PerPage
	resp.Pages = page.Pages
	writeJSON(w, r, http.StatusOK, resp)
}

func (c *HistoryController) filter(r *http.Request, param, ownerID string) models.HistoryFilter {
	if param != "" || c.settings == nil || ownerID == "" {
		return models.ParseHistoryFilter(param)
	}
	s, err := c.settings.Get(r.Context(), ownerID)
	if err != nil {
		slog.WarnContext(r.Context(), "Failed to load default history filter", slog.String("owner_id", ownerID), slog.Any("error", err))
		return models.FilterAll
	}
	return models.ParseHistoryFilter(string(s.History.DefaultFilter))
}

func (c *HistoryController) fail(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "Failed to list history", slog.Any("error", err))
	writeError(w, r, http.StatusInternalServerError, MsgInternal)
}

func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
