package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultGuestHistoryLimit caps how many entries a guest may keep.
const DefaultGuestHistoryLimit = 5

// HistoryEntry is one analyzed URL in a visitor's history.
type HistoryEntry struct {
	URL        string    `json:"url"`
	Label      string    `json:"label"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// HistoryFilter narrows history by label family.
type HistoryFilter string

const (
	FilterAll       HistoryFilter = "all"
	FilterLegit     HistoryFilter = "legit"
	FilterMalicious HistoryFilter = "malicious"
)

var (
	legitLabels     = []string{LabelLegitimate, "SAFE", "정상"}
	maliciousLabels = []string{LabelMalicious, "DANGER", "악성"}
)

// ParseHistoryFilter maps a query value onto a filter, defaulting to all.
func ParseHistoryFilter(s string) HistoryFilter {
	switch HistoryFilter(strings.ToLower(strings.TrimSpace(s))) {
	case FilterLegit:
		return FilterLegit
	case FilterMalicious:
		return FilterMalicious
	default:
		return FilterAll
	}
}

// Match reports whether a label belongs to the filter.
func (f HistoryFilter) Match(label string) bool {
	label = strings.ToUpper(strings.TrimSpace(label))
	switch f {
	case FilterLegit:
		return containsLabel(legitLabels, label)
	case FilterMalicious:
		return containsLabel(maliciousLabels, label)
	default:
		return true
	}
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// Labels lists the labels the filter accepts, or nil for all.
func (f HistoryFilter) Labels() []string {
	switch f {
	case FilterLegit:
		return legitLabels
	case FilterMalicious:
		return maliciousLabels
	default:
		return nil
	}
}

// Apply keeps the entries that match the filter.
func (f HistoryFilter) Apply(entries []HistoryEntry) []HistoryEntry {
	if f == FilterAll {
		return entries
	}
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e.Label) {
			out = append(out, e)
		}
	}
	return out
}

// HistoryPage is one page of a member's history.
type HistoryPage struct {
	Entries []HistoryEntry `json:"entries"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Pages   int            `json:"pages"`
}

type HistoryService struct {
	pool       *pgxpool.Pool
	guestLimit int
}

func NewHistoryService(pool *pgxpool.Pool, guestLimit int) *HistoryService {
	if guestLimit <= 0 {
		guestLimit = DefaultGuestHistoryLimit
	}
	return &HistoryService{pool: pool, guestLimit: guestLimit}
}

// GuestLimit returns the guest cap in use.
func (s *HistoryService) GuestLimit() int {
	return s.guestLimit
}

// CountByOwner returns how many entries the owner has.
func (s *HistoryService) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM history WHERE owner_id = $1`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}

// Save records an analyzed URL. Duplicate URLs for the same owner are
// skipped, and guests stop saving once they reach the guest limit.
// It reports whether a row was written.
func (s *HistoryService) Save(ctx context.Context, ownerID, url, label string, guest bool) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin history tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if guest {
		// Concurrent saves for one guest queue here until commit, so the
		// count below cannot be read by two of them at once.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ownerID); err != nil {
			return false, fmt.Errorf("failed to lock guest history: %w", err)
		}

		var n int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM history WHERE owner_id = $1`, ownerID).Scan(&n); err != nil {
			return false, fmt.Errorf("failed to count guest history: %w", err)
		}
		if n >= s.guestLimit {
			return false, nil
		}
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO history (owner_id, url, result_label, scanned_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (owner_id, url) DO NOTHING
	`, ownerID, url, label)
	if err != nil {
		return false, fmt.Errorf("failed to save history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit history: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MigrateGuestToUser moves a guest's entries to the user. Entries the
// user already has are dropped from the guest side.
func (s *HistoryService) MigrateGuestToUser(ctx context.Context, guestID, userID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		WITH moved AS (
			DELETE FROM history WHERE owner_id = $1
			RETURNING url, result_label, scanned_at
		)
		INSERT INTO history (owner_id, url, result_label, scanned_at)
		SELECT $2, url, result_label, scanned_at FROM moved
		ON CONFLICT (owner_id, url) DO NOTHING
	`, guestID, userID)
	if err != nil {
		return fmt.Errorf("failed to migrate guest history: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries for the owner.
func (s *HistoryService) ListRecent(ctx context.Context, ownerID string, limit int) ([]HistoryEntry, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT url, result_label, scanned_at
		FROM history
		WHERE owner_id = $1
		ORDER BY scanned_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return collectHistory(rows)
}

// ListPaginated returns one page of the owner's history matching filter,
// optionally restricted to URLs containing q.
func (s *HistoryService) ListPaginated(ctx context.Context, ownerID string, filter HistoryFilter, page, perPage int, q string) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	pattern := "%" + escapeLike(strings.TrimSpace(q)) + "%"
	labels := filter.Labels()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM history
		 WHERE owner_id = $1 AND url LIKE $2 ESCAPE '\'
		   AND ($3::text[] IS NULL OR UPPER(result_label) = ANY($3))`,
		ownerID, pattern, labels,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count history: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT url, result_label, scanned_at
		FROM history
		WHERE owner_id = $1 AND url LIKE $2 ESCAPE '\'
		  AND ($3::text[] IS NULL OR UPPER(result_label) = ANY($3))
		ORDER BY scanned_at DESC
		LIMIT $4 OFFSET $5
	`, ownerID, pattern, labels, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	entries, err := collectHistory(rows)
	if err != nil {
		return nil, err
	}

	return &HistoryPage{
		Entries: entries,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   (total + perPage - 1) / perPage,
	}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern that uses
// backslash as its escape character.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func collectHistory(rows pgx.Rows) ([]HistoryEntry, error) {
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (HistoryEntry, error) {
		var e HistoryEntry
		err := row.Scan(&e.URL, &e.Label, &e.AnalyzedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan history: %w", err)
	}
	return entries, nil
}
