package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/rahul4469/qrguard/internal/middleware"
	"github.com/rahul4469/qrguard/internal/scanner"
	"github.com/rahul4469/qrguard/internal/services"
)

const maxAnalyzeBody = 64 << 10

// URLAnalyzer produces the analyze reply for a visitor.
type URLAnalyzer interface {
	Analyze(ctx context.Context, rawURL, ownerID string, guest bool) (scanner.AnalysisResponse, error)
}

// AnalyzeController serves POST /analyze.
type AnalyzeController struct {
	analyzer URLAnalyzer
}

func NewAnalyzeController(analyzer URLAnalyzer) *AnalyzeController {
	return &AnalyzeController{analyzer: analyzer}
}

// PostAnalyze looks up the submitted URL. Failures past input parsing
// are answered with a CAUTION reply instead of an error status.
func (c *AnalyzeController) PostAnalyze(w http.ResponseWriter, r *http.Request) {
	rawURL := readAnalyzeURL(r)
	if rawURL == "" {
		writeError(w, r, http.StatusBadRequest, services.MsgMissingURL)
		return
	}

	visitor := middleware.CurrentVisitor(r)
	resp, err := c.analyzer.Analyze(r.Context(), rawURL, visitor.OwnerID, visitor.Guest)
	if err != nil {
		slog.ErrorContext(r.Context(), "Analyze failed",
			slog.String("url", rawURL),
			slog.String("owner_id", visitor.OwnerID),
			slog.Any("error", err),
		)
		resp = services.ServerErrorResponse()
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// readAnalyzeURL accepts a JSON body, a form body or a url query
// parameter. Unparseable bodies yield "".
func readAnalyzeURL(r *http.Request) string {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxAnalyzeBody))
	if err != nil {
		return ""
	}

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		if values, err := url.ParseQuery(string(body)); err == nil {
			return strings.TrimSpace(values.Get("url"))
		}
		return ""
	}

	if len(body) > 0 {
		var payload struct {
			URL any `json:"url"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return ""
		}
		if s, ok := payload.URL.(string); ok {
			return strings.TrimSpace(s)
		}
		return ""
	}

	return strings.TrimSpace(r.URL.Query().Get("url"))
}
