package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rahul4469/qrguard/internal/middleware"
	"github.com/rahul4469/qrguard/internal/models"
)

// Reply messages for the board endpoints.
const (
	MsgReportURLRequired = "URL은 필수입니다."
	MsgReportAccepted    = "신고가 접수되었습니다. 감사합니다."
	MsgReportNoOwner     = "세션 ID를 확인할 수 없습니다."
	MsgReportSaveFailed  = "저장 실패: 서버 오류가 발생했습니다."
	MsgReportsNoOwner    = "로그인 또는 게스트 세션이 필요합니다."
	MsgReportsFailed     = "목록 조회 실패"
	MsgReportNotFound    = "신고를 찾을 수 없습니다."
	MsgJudgmentFailed    = "갱신 실패"
)

type ReportStore interface {
	Create(ctx context.Context, nr models.NewReport) (int64, error)
	List(ctx context.Context, q models.ReportQuery) ([]models.Report, error)
	ListMalicious(ctx context.Context, page, size int, q string) ([]models.MaliciousEntry, error)
	ByID(ctx context.Context, id int64) (*models.Report, error)
	UpdateJudgment(ctx context.Context, id int64, judgment string, confidence *float64, updatedBy string) error
}

// AnalysisLookup finds the stored verdict for a URL.
type AnalysisLookup interface {
	FindByURL(ctx context.Context, url string) (*models.URLAnalysis, error)
}

// BoardController serves the URL report board.
type BoardController struct {
	reports  ReportStore
	analyses AnalysisLookup
}

func NewBoardController(reports ReportStore, analyses AnalysisLookup) *BoardController {
	return &BoardController{reports: reports, analyses: analyses}
}

// PostReport accepts a URL report from a member or a guest.
func (c *BoardController) PostReport(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		URL    string `json:"url"`
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBody)).Decode(&payload)

	if strings.TrimSpace(payload.URL) == "" {
		writeMessage(w, r, http.StatusBadRequest, MsgReportURLRequired)
		return
	}

	v := middleware.CurrentVisitor(r)
	if v.OwnerID == "" {
		writeMessage(w, r, http.StatusUnauthorized, MsgReportNoOwner)
		return
	}
	nick := models.DefaultReporterNick
	if v.User != nil {
		nick = v.User.Nickname
	}

	id, err := c.reports.Create(r.Context(), models.NewReport{
		URL:          payload.URL,
		Reason:       payload.Reason,
		ReporterID:   v.OwnerID,
		ReporterNick: nick,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create report", slog.String("owner_id", v.OwnerID), slog.Any("error", err))
		writeMessage(w, r, http.StatusInternalServerError, MsgReportSaveFailed)
		return
	}

	slog.InfoContext(r.Context(), "URL reported", slog.Int64("report_id", id), slog.String("owner_id", v.OwnerID))
	writeJSON(w, r, http.StatusCreated, map[string]any{
		"ok":        true,
		"message":   MsgReportAccepted,
		"report_id": id,
	})
}

// GetReports lists the visitor's own reports. Admins see every report.
func (c *BoardController) GetReports(w http.ResponseWriter, r *http.Request) {
	v := middleware.CurrentVisitor(r)
	if v.OwnerID == "" {
		writeJSON(w, r, http.StatusUnauthorized, map[string]any{"items": []models.Report{}, "message": MsgReportsNoOwner})
		return
	}

	q := r.URL.Query()
	items, err := c.reports.List(r.Context(), models.ReportQuery{
		ReporterID: v.OwnerID,
		All:        v.User.IsAdmin(),
		Page:       positiveInt(q.Get("page"), 1),
		Size:       positiveInt(q.Get("size"), models.DefaultReportPageSize),
		Q:          q.Get("q"),
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list reports", slog.Any("error", err))
		writeJSON(w, r, http.StatusInternalServerError, map[string]any{"items": []models.Report{}, "message": MsgReportsFailed})
		return
	}
	if items == nil {
		items = []models.Report{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"items": items})
}

// GetMalicious lists confirmed malicious URLs to everyone.
func (c *BoardController) GetMalicious(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := c.reports.ListMalicious(r.Context(),
		positiveInt(q.Get("page"), 1),
		positiveInt(q.Get("size"), models.DefaultReportPageSize),
		q.Get("q"),
	)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list malicious reports", slog.Any("error", err))
		writeJSON(w, r, http.StatusInternalServerError, map[string]any{"items": []models.MaliciousEntry{}, "message": MsgReportsFailed})
		return
	}
	if items == nil {
		items = []models.MaliciousEntry{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"items": items})
}

// PostJudgment records an admin verdict. Must sit behind RequireAdmin.
func (c *BoardController) PostJudgment(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(r)
	if !ok {
		writeMessage(w, r, http.StatusNotFound, MsgReportNotFound)
		return
	}

	var payload struct {
		Judgment   string   `json:"judgment"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBody)).Decode(&payload); err != nil {
		writeMessage(w, r, http.StatusBadRequest, models.ErrInvalidJudgment.Error())
		return
	}

	admin := middleware.CurrentUser(r)
	err := c.reports.UpdateJudgment(r.Context(), id, payload.Judgment, payload.Confidence, admin.OwnerID())
	switch {
	case err == nil:
	case errors.Is(err, models.ErrInvalidJudgment), errors.Is(err, models.ErrInvalidConfidence):
		writeMessage(w, r, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, models.ErrReportNotFound):
		writeMessage(w, r, http.StatusNotFound, MsgReportNotFound)
		return
	default:
		slog.ErrorContext(r.Context(), "Failed to update judgment", slog.Int64("report_id", id), slog.Any("error", err))
		writeMessage(w, r, http.StatusInternalServerError, MsgJudgmentFailed)
		return
	}

	slog.InfoContext(r.Context(), "Report judged",
		slog.Int64("report_id", id),
		slog.String("judgment", strings.ToUpper(strings.TrimSpace(payload.Judgment))),
		slog.Int64("admin_id", admin.ID),
	)
	writeJSON(w, r, http.StatusOK, map[string]any{"ok": true})
}

// ReportAnalysis is the stored verdict shown to an admin reviewing a report.
type ReportAnalysis struct {
	IsMalicious int      `json:"is_malicious"`
	Confidence  *float64 `json:"confidence"`
	TextResult  string   `json:"text_result"`
	Source      string   `json:"source"`
}

// ReportReview is the GET /board/report/{id}/analyze body.
type ReportReview struct {
	OK              bool           `json:"ok"`
	ID              int64          `json:"id"`
	URL             string         `json:"url"`
	Domain          string         `json:"domain"`
	Reason          string         `json:"reason"`
	Status          string         `json:"status"`
	ReporterNick    string         `json:"reporter_nick"`
	CreatedAt       time.Time      `json:"created_at"`
	StatusUpdatedAt *time.Time     `json:"status_updated_at"`
	Analysis        ReportAnalysis `json:"analysis"`
}

// GetReportAnalysis shows a report with the stored verdict for its URL.
// Must sit behind RequireAdmin.
func (c *BoardController) GetReportAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(r)
	if !ok {
		writeMessage(w, r, http.StatusNotFound, MsgReportNotFound)
		return
	}

	report, err := c.reports.ByID(r.Context(), id)
	if errors.Is(err, models.ErrReportNotFound) {
		writeMessage(w, r, http.StatusNotFound, MsgReportNotFound)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load report", slog.Int64("report_id", id), slog.Any("error", err))
		writeMessage(w, r, http.StatusInternalServerError, MsgInternal)
		return
	}

	writeJSON(w, r, http.StatusOK, ReportReview{
		OK:              true,
		ID:              report.ID,
		URL:             report.URL,
		Domain:          report.Domain,
		Reason:          report.Reason,
		Status:          report.Status,
		ReporterNick:    report.ReporterNick,
		CreatedAt:       report.CreatedAt,
		StatusUpdatedAt: report.UpdatedAt,
		Analysis:        c.analysisFor(r, report),
	})
}

func (c *BoardController) analysisFor(r *http.Request, report *models.Report) ReportAnalysis {
	unknown := ReportAnalysis{IsMalicious: -1, TextResult: "저장된 분석 결과: **확인불가**", Source: "db"}

	a, err := c.analyses.FindByURL(r.Context(), report.URL)
	if err != nil {
		if !errors.Is(err, models.ErrAnalysisNotFound) {
			slog.WarnContext(r.Context(), "Report analysis lookup failed", slog.String("url", report.URL), slog.Any("error", err))
		}
		return unknown
	}

	label := strings.ToUpper(a.LabelOrDefault())
	switch label {
	case models.LabelMalicious, models.LabelLegitimate:
	default:
		return unknown
	}

	res := ReportAnalysis{
		Confidence: report.Confidence,
		TextResult: fmt.Sprintf("DB 캐시: **%s**로 판별됨", label),
		Source:     "db",
	}
	if report.Confidence != nil {
		res.TextResult += fmt.Sprintf(" (신뢰도: %.1f%%)", *report.Confidence*100)
	}
	if label == models.LabelMalicious {
		res.IsMalicious = 1
	}
	return res
}

func reportID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
