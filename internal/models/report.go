package models

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Admin verdicts on a report.
const (
	JudgmentLegitimate = LabelLegitimate
	JudgmentMalicious  = LabelMalicious
	JudgmentPending    = "PENDING"
)

// Report statuses shown on the board.
const (
	StatusPending    = "확인중"
	StatusLegitimate = "정상"
	StatusMalicious  = "악성"
)

// Malicious list severities, derived from the admin's confidence.
const (
	SeverityHigh   = "높음"
	SeverityMedium = "보통"
	SeverityLow    = "낮음"
)

const (
	DefaultReportReason   = "URL 신고 (사유 없음)"
	DefaultReporterNick   = "익명"
	DefaultReportPageSize = 20
	MaxReportPageSize     = 100
)

// Report is a URL submitted to the board.
type Report struct {
	ID           int64      `json:"id"`
	URL          string     `json:"url"`
	Domain       string     `json:"domain"`
	Reason       string     `json:"reason"`
	Status       string     `json:"status"`
	Judgment     *string    `json:"judgment"`
	Confidence   *float64   `json:"confidence"`
	ReporterID   string     `json:"-"`
	ReporterNick string     `json:"reporter_nick"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// MaliciousEntry is a report an admin confirmed as malicious.
type MaliciousEntry struct {
	ID         int64     `json:"id"`
	URL        string    `json:"url"`
	Domain     string    `json:"domain"`
	Source     string    `json:"source"`
	Severity   string    `json:"severity"`
	DetectedAt time.Time `json:"detected_at"`
}

// NewReport holds board submission input.
type NewReport struct {
	URL          string
	Reason       string
	ReporterID   string
	ReporterNick string
}

// ReportQuery selects a page of reports. All lifts the reporter filter.
type ReportQuery struct {
	ReporterID string
	All        bool
	Page       int
	Size       int
	Q          string
}

// NormalizeReportURL trims u and adds http:// when it has no scheme.
func NormalizeReportURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return u
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "http://" + u
	}
	return u
}

// ReportDomain returns the host of a normalized URL, or "-".
func ReportDomain(u string) string {
	parsed, err := url.Parse(NormalizeReportURL(u))
	if err != nil || parsed.Hostname() == "" {
		return "-"
	}
	return parsed.Hostname()
}

// ParseJudgment upper-cases j and checks it is a known verdict.
func ParseJudgment(j string) (string, error) {
	j = strings.ToUpper(strings.TrimSpace(j))
	switch j {
	case JudgmentLegitimate, JudgmentMalicious, JudgmentPending:
		return j, nil
	default:
		return "", ErrInvalidJudgment
	}
}

// StatusForJudgment maps a verdict to the board status.
func StatusForJudgment(j string) string {
	switch j {
	case JudgmentLegitimate:
		return StatusLegitimate
	case JudgmentMalicious:
		return StatusMalicious
	default:
		return StatusPending
	}
}

// SeverityFor buckets an admin confidence. Unknown counts as low.
func SeverityFor(confidence *float64) string {
	switch {
	case confidence == nil:
		return SeverityLow
	case *confidence >= 0.85:
		return SeverityHigh
	case *confidence >= 0.60:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func reportPaging(page, size int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultReportPageSize
	}
	if size > MaxReportPageSize {
		size = MaxReportPageSize
	}
	return size, (page - 1) * size
}

type ReportService struct {
	pool *pgxpool.Pool
}

func NewReportService(pool *pgxpool.Pool) *ReportService {
	return &ReportService{pool: pool}
}

// Create stores a pending report and returns its id.
func (s *ReportService) Create(ctx context.Context, nr NewReport) (int64, error) {
	u := NormalizeReportURL(nr.URL)
	if u == "" || nr.ReporterID == "" {
		return 0, ErrMissingField
	}
	reason := strings.TrimSpace(nr.Reason)
	if reason == "" {
		reason = DefaultReportReason
	}
	nick := strings.TrimSpace(nr.ReporterNick)
	if nick == "" {
		nick = DefaultReporterNick
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO url_report (url, domain, reason, status, reporter_id, reporter_nick, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id
	`, u, ReportDomain(u), reason, StatusPending, nr.ReporterID, nick).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create report: %w", err)
	}
	return id, nil
}

// List returns the newest reports matching q in url, domain or reason.
func (s *ReportService) List(ctx context.Context, rq ReportQuery) ([]Report, error) {
	limit, offset := reportPaging(rq.Page, rq.Size)
	pattern := "%" + escapeLike(strings.TrimSpace(rq.Q)) + "%"

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, url, domain, reason, status, judgment, confidence,
		       reporter_id, reporter_nick, created_at, updated_at
		FROM url_report
		WHERE ($1::boolean OR reporter_id = $2)
		  AND (url LIKE $3 ESCAPE '\' OR domain LIKE $3 ESCAPE '\' OR reason LIKE $3 ESCAPE '\')
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, rq.All, rq.ReporterID, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	reports, err := pgx.CollectRows(rows, scanReport)
	if err != nil {
		return nil, fmt.Errorf("failed to scan reports: %w", err)
	}
	return reports, nil
}

// ListMalicious returns reports judged malicious, newest first.
func (s *ReportService) ListMalicious(ctx context.Context, page, size int, q string) ([]MaliciousEntry, error) {
	limit, offset := reportPaging(page, size)
	pattern := "%" + escapeLike(strings.TrimSpace(q)) + "%"

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, url, domain, confidence, created_at
		FROM url_report
		WHERE judgment = $1
		  AND (url LIKE $2 ESCAPE '\' OR domain LIKE $2 ESCAPE '\')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, JudgmentMalicious, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list malicious reports: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (MaliciousEntry, error) {
		var (
			e          MaliciousEntry
			confidence *float64
		)
		err := row.Scan(&e.ID, &e.URL, &e.Domain, &confidence, &e.DetectedAt)
		e.Source = "REPORT"
		e.Severity = SeverityFor(confidence)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan malicious reports: %w", err)
	}
	return entries, nil
}

// ByID returns one report or ErrReportNotFound.
func (s *ReportService) ByID(ctx context.Context, id int64) (*Report, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, url, domain, reason, status, judgment, confidence,
		       reporter_id, reporter_nick, created_at, updated_at
		FROM url_report
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}

	r, err := pgx.CollectExactlyOneRow(rows, scanReport)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}
	return &r, nil
}

// UpdateJudgment records an admin verdict. A LEGITIMATE or MALICIOUS
// verdict also registers the URL and stores it as its analysis label,
// so later lookups of the URL return the admin's answer.
func (s *ReportService) UpdateJudgment(ctx context.Context, id int64, judgment string, confidence *float64, updatedBy string) error {
	j, err := ParseJudgment(judgment)
	if err != nil {
		return err
	}
	if confidence != nil && (*confidence < 0 || *confidence > 1) {
		return ErrInvalidConfidence
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin judgment tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var reportURL, domain string
	err = tx.QueryRow(ctx, `
		UPDATE url_report
		SET judgment = $1, status = $2, confidence = $3, updated_by = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING url, domain
	`, j, StatusForJudgment(j), confidence, updatedBy, id).Scan(&reportURL, &domain)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrReportNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}

	if j != JudgmentPending {
		if _, err := tx.Exec(ctx,
			`INSERT INTO url_only (url) VALUES ($1) ON CONFLICT (url) DO NOTHING`,
			reportURL,
		); err != nil {
			return fmt.Errorf("failed to register reported url: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO url_analysis (url, label, domain, analyzed_at)
			VALUES ($1, $2, NULLIF($3, '-'), NOW())
			ON CONFLICT (url) DO UPDATE
			SET label = EXCLUDED.label, analyzed_at = EXCLUDED.analyzed_at
		`, reportURL, j, domain); err != nil {
			return fmt.Errorf("failed to store report verdict: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit judgment: %w", err)
	}
	return nil
}

func scanReport(row pgx.CollectableRow) (Report, error) {
	var r Report
	err := row.Scan(
		&r.ID, &r.URL, &r.Domain, &r.Reason, &r.Status, &r.Judgment, &r.Confidence,
		&r.ReporterID, &r.ReporterNick, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}
