package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rahul4469/qrguard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type judgmentCall struct {
	id         int64
	judgment   string
	confidence *float64
	updatedBy  string
}

type fakeReports struct {
	created   []models.NewReport
	createErr error
	queries   []models.ReportQuery
	items     []models.Report
	malicious []models.MaliciousEntry
	report    *models.Report
	judged    []judgmentCall
	judgeErr  error
}

func (f *fakeReports) Create(_ context.Context, nr models.NewReport) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, nr)
	return int64(len(f.created)), nil
}

func (f *fakeReports) List(_ context.Context, q models.ReportQuery) ([]models.Report, error) {
	f.queries = append(f.queries, q)
	return f.items, nil
}

func (f *fakeReports) ListMalicious(context.Context, int, int, string) ([]models.MaliciousEntry, error) {
	return f.malicious, nil
}

func (f *fakeReports) ByID(_ context.Context, id int64) (*models.Report, error) {
	if f.report == nil || f.report.ID != id {
		return nil, models.ErrReportNotFound
	}
	return f.report, nil
}

func (f *fakeReports) UpdateJudgment(_ context.Context, id int64, judgment string, confidence *float64, updatedBy string) error {
	if f.judgeErr != nil {
		return f.judgeErr
	}
	if _, err := models.ParseJudgment(judgment); err != nil {
		return err
	}
	f.judged = append(f.judged, judgmentCall{id, judgment, confidence, updatedBy})
	return nil
}

type fakeAnalyses map[string]*models.URLAnalysis

func (f fakeAnalyses) FindByURL(_ context.Context, url string) (*models.URLAnalysis, error) {
	if a, ok := f[url]; ok {
		return a, nil
	}
	return nil, models.ErrAnalysisNotFound
}

func boardRouter(c *BoardController) http.Handler {
	r := chi.NewRouter()
	r.Post("/board/report", c.PostReport)
	r.Get("/board/reports", c.GetReports)
	r.Get("/board/malicious", c.GetMalicious)
	r.Post("/board/report/{id}/judgment", c.PostJudgment)
	r.Get("/board/report/{id}/analyze", c.GetReportAnalysis)
	return r
}

var admin = &models.User{ID: 1, Nickname: "admin", Role: models.RoleAdmin}

func TestPostReport(t *testing.T) {
	reports := &fakeReports{}
	h := boardRouter(NewBoardController(reports, fakeAnalyses{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/board/report", strings.NewReader(`{"url":"phish.example/login","reason":"fake bank"}`))
	h.ServeHTTP(rec, asGuest(req, "g-1"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"ok":true,"message":"신고가 접수되었습니다. 감사합니다.","report_id":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/board/report", strings.NewReader(`{"url":"http://x.example"}`))
	h.ServeHTTP(rec, asUser(req, &models.User{ID: 8, Nickname: "kim"}))
	assert.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, reports.created, 2)
	assert.Equal(t, models.NewReport{URL: "phish.example/login", Reason: "fake bank", ReporterID: "g-1", ReporterNick: "익명"}, reports.created[0])
	assert.Equal(t, models.NewReport{URL: "http://x.example", ReporterID: "8", ReporterNick: "kim"}, reports.created[1])
}

func TestPostReportRejects(t *testing.T) {
	reports := &fakeReports{}
	h := boardRouter(NewBoardController(reports, fakeAnalyses{}))

	for _, body := range []string{`{"url":"  "}`, `{"reason":"x"}`, `garbage`} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, asGuest(httptest.NewRequest(http.MethodPost, "/board/report", strings.NewReader(body)), "g-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"ok":false,"message":"URL은 필수입니다."}`, rec.Body.String())
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/board/report", strings.NewReader(`{"url":"http://a"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, reports.created)

	reports.createErr = errors.New("db down")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, asGuest(httptest.NewRequest(http.MethodPost, "/board/report", strings.NewReader(`{"url":"http://a"}`)), "g-1"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetReportsScopesToReporterUnlessAdmin(t *testing.T) {
	reports := &fakeReports{}
	h := boardRouter(NewBoardController(reports, fakeAnalyses{}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, asGuest(httptest.NewRequest(http.MethodGet, "/board/reports?page=2&size=5&q=bank", nil), "g-1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/board/reports", nil), &models.User{ID: 3, Role: models.RoleUser}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/board/reports", nil), admin))

	require.Len(t, reports.queries, 3)
	assert.Equal(t, models.ReportQuery{ReporterID: "g-1", Page: 2, Size: 5, Q: "bank"}, reports.queries[0])
	assert.Equal(t, models.ReportQuery{ReporterID: "3", Page: 1, Size: models.DefaultReportPageSize}, reports.queries[1])
	assert.True(t, reports.queries[2].All)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/board/reports", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"items":[],"message":"로그인 또는 게스트 세션이 필요합니다."}`, rec.Body.String())
}

func TestGetMalicious(t *testing.T) {
	at := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	reports := &fakeReports{malicious: []models.MaliciousEntry{{ID: 2, URL: "http://bad", Domain: "bad", Source: "REPORT", Severity: "높음", DetectedAt: at}}}

	rec := httptest.NewRecorder()
	boardRouter(NewBoardController(reports, fakeAnalyses{})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/board/malicious", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[{"id":2,"url":"http://bad","domain":"bad","source":"REPORT","severity":"높음","detected_at":"2025-04-01T08:00:00Z"}]}`, rec.Body.String())
}

func TestPostJudgment(t *testing.T) {
	reports := &fakeReports{}
	h := boardRouter(NewBoardController(reports, fakeAnalyses{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/board/report/7/judgment", strings.NewReader(`{"judgment":"MALICIOUS","confidence":0.9}`))
	h.ServeHTTP(rec, asUser(req, admin))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	require.Len(t, reports.judged, 1)
	assert.Equal(t, int64(7), reports.judged[0].id)
	assert.Equal(t, "1", reports.judged[0].updatedBy)
	require.NotNil(t, reports.judged[0].confidence)
	assert.InDelta(t, 0.9, *reports.judged[0].confidence, 1e-9)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/board/report/7/judgment", strings.NewReader(`{"judgment":"MAYBE"}`))
	h.ServeHTTP(rec, asUser(req, admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/board/report/abc/judgment", strings.NewReader(`{"judgment":"MALICIOUS"}`))
	h.ServeHTTP(rec, asUser(req, admin))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	reports.judgeErr = models.ErrReportNotFound
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/board/report/99/judgment", strings.NewReader(`{"judgment":"LEGITIMATE"}`))
	h.ServeHTTP(rec, asUser(req, admin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"ok":false,"message":"신고를 찾을 수 없습니다."}`, rec.Body.String())
}

func TestGetReportAnalysis(t *testing.T) {
	created := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	confidence := 0.925
	reports := &fakeReports{report: &models.Report{
		ID: 5, URL: "http://bad.example", Domain: "bad.example", Reason: "phishing",
		Status: models.StatusMalicious, Confidence: &confidence, ReporterNick: "익명", CreatedAt: created,
	}}
	analyses := fakeAnalyses{"http://bad.example": {URL: "http://bad.example", Label: "malicious"}}
	h := boardRouter(NewBoardController(reports, analyses))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/board/report/5/analyze", nil), admin))
	require.Equal(t, http.StatusOK, rec.Code)

	var review ReportReview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &review))
	assert.True(t, review.OK)
	assert.Equal(t, "bad.example", review.Domain)
	assert.Equal(t, 1, review.Analysis.IsMalicious)
	assert.Equal(t, "DB 캐시: **MALICIOUS**로 판별됨 (신뢰도: 92.5%)", review.Analysis.TextResult)
	assert.Nil(t, review.StatusUpdatedAt)

	delete(analyses, "http://bad.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/board/report/5/analyze", nil), admin))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &review))
	assert.Equal(t, -1, review.Analysis.IsMalicious)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/board/report/6/analyze", nil), admin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
