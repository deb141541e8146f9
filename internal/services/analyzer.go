package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/rahul4469/qrguard/internal/models"
	"github.com/rahul4469/qrguard/internal/scanner"
)

// Reply messages sent by the analyze endpoint.
const (
	MsgAnalyzed      = "분석 완료된 URL입니다."
	MsgNotRegistered = "등록 안됨"
	MsgNoAnalysis    = "분석 없음"
	MsgServerError   = "server error"
	MsgMissingURL    = "URL 데이터가 없습니다"

	SourceAnalyzed = "analyzed"
)

// URLStore looks up stored verdicts.
type URLStore interface {
	IsRegistered(ctx context.Context, url string) (bool, error)
	FindByURL(ctx context.Context, url string) (*models.URLAnalysis, error)
}

// HistoryStore records what each visitor analyzed.
type HistoryStore interface {
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	Save(ctx context.Context, ownerID, url, label string, guest bool) (bool, error)
}

// Analyzer answers analyze requests from stored verdicts.
type Analyzer struct {
	urls       URLStore
	history    HistoryStore
	guestLimit int
	now        func() time.Time
}

func NewAnalyzer(urls URLStore, history HistoryStore, guestLimit int) *Analyzer {
	if guestLimit <= 0 {
		guestLimit = models.DefaultGuestHistoryLimit
	}
	return &Analyzer{
		urls:       urls,
		history:    history,
		guestLimit: guestLimit,
		now:        time.Now,
	}
}

// Analyze builds the reply for rawURL on behalf of ownerID. An empty
// ownerID skips history bookkeeping.
//
// Guests at or over the guest limit get the login popup. Unknown URLs
// and URLs without a stored analysis are answered with a CAUTION label
// rather than an error.
func (a *Analyzer) Analyze(ctx context.Context, rawURL, ownerID string, guest bool) (scanner.AnalysisResponse, error) {
	if guest && ownerID != "" {
		n, err := a.history.CountByOwner(ctx, ownerID)
		if err != nil {
			return scanner.AnalysisResponse{}, fmt.Errorf("failed to count guest history: %w", err)
		}
		if n >= a.guestLimit {
			slog.InfoContext(ctx, "Guest reached history limit",
				slog.String("guest_id", ownerID),
				slog.Int("count", n),
			)
			return scanner.NewPopupResponse(), nil
		}
	}

	registered, err := a.urls.IsRegistered(ctx, rawURL)
	if err != nil {
		return scanner.AnalysisResponse{}, err
	}
	if !registered {
		resp := scanner.NewResultResponse(MsgNotRegistered, models.LabelCaution)
		resp.URL = rawURL
		return resp, nil
	}

	analysis, err := a.urls.FindByURL(ctx, rawURL)
	if errors.Is(err, models.ErrAnalysisNotFound) {
		resp := scanner.NewResultResponse(MsgNoAnalysis, models.LabelCaution)
		resp.URL = rawURL
		return resp, nil
	}
	if err != nil {
		return scanner.AnalysisResponse{}, err
	}

	label := analysis.LabelOrDefault()
	if ownerID != "" {
		if _, err := a.history.Save(ctx, ownerID, rawURL, label, guest); err != nil {
			return scanner.AnalysisResponse{}, fmt.Errorf("failed to save history: %w", err)
		}
	}

	resp := scanner.NewResultResponse(MsgAnalyzed, label)
	resp.URL = rawURL
	resp.Domain = domainOf(analysis, rawURL)
	resp.Created = formatDate(analysis.CreatedDate)
	resp.Expiry = formatDate(analysis.ExpiryDate)
	resp.Date = a.now().Format("2006-01-02 15:04")
	resp.Source = SourceAnalyzed
	return resp, nil
}

// ServerErrorResponse is sent when analysis fails unexpectedly so
// clients never wait on an error page.
func ServerErrorResponse() scanner.AnalysisResponse {
	return scanner.NewResultResponse(MsgServerError, models.LabelCaution)
}

func domainOf(a *models.URLAnalysis, rawURL string) string {
	if a.Domain != nil && *a.Domain != "" {
		return *a.Domain
	}
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return "-"
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
