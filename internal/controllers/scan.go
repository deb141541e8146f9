package controllers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rahul4469/qrguard/internal/models"
)

const MsgScanMissing = "qr_code와 url이 필요합니다."

type ScanStore interface {
	Save(ctx context.Context, qrCode, url string) (int64, error)
	All(ctx context.Context) ([]models.ScanLog, error)
}

type ScanController struct {
	scans ScanStore
}

func NewScanController(scans ScanStore) *ScanController {
	return &ScanController{scans: scans}
}

// PostLog records a raw scan.
func (c *ScanController) PostLog(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		QRCode string `json:"qr_code"`
		URL    string `json:"url"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBody)).Decode(&payload); err != nil {
		writeError(w, r, http.StatusBadRequest, MsgScanMissing)
		return
	}
	qrCode := strings.TrimSpace(payload.QRCode)
	url := strings.TrimSpace(payload.URL)
	if qrCode == "" || url == "" {
		writeError(w, r, http.StatusBadRequest, MsgScanMissing)
		return
	}

	id, err := c.scans.Save(r.Context(), qrCode, url)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to log scan", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, MsgInternal)
		return
	}

	writeJSON(w, r, http.StatusCreated, map[string]any{"message": "logged", "scan_id": id})
}

// ScanSummary is one row of GET /scan/all.
type ScanSummary struct {
	URL       string    `json:"url"`
	ScannedAt time.Time `json:"scanned_at"`
}

// GetAll lists every scan newest first.
func (c *ScanController) GetAll(w http.ResponseWriter, r *http.Request) {
	scans, err := c.scans.All(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list scans", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, MsgInternal)
		return
	}

	out := make([]ScanSummary, 0, len(scans))
	for _, s := range scans {
		out = append(out, ScanSummary{URL: s.URL, ScannedAt: s.ScannedAt})
	}
	writeJSON(w, r, http.StatusOK, out)
}
