package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Known analysis labels.
const (
	LabelLegitimate = "LEGITIMATE"
	LabelMalicious  = "MALICIOUS"
	LabelCaution    = "CAUTION"
)

// URLAnalysis is a stored verdict for a URL.
type URLAnalysis struct {
	URL         string     `json:"url"`
	Label       string     `json:"label"`
	Domain      *string    `json:"domain,omitempty"`
	CreatedDate *time.Time `json:"created_date,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	AnalyzedAt  time.Time  `json:"analyzed_at"`
}

// LabelOrDefault returns the label, or CAUTION when none was stored.
func (a *URLAnalysis) LabelOrDefault() string {
	if strings.TrimSpace(a.Label) == "" {
		return LabelCaution
	}
	return a.Label
}

type URLService struct {
	pool *pgxpool.Pool
}

func NewURLService(pool *pgxpool.Pool) *URLService {
	return &URLService{pool: pool}
}

// IsRegistered reports whether the URL is known to the system.
func (s *URLService) IsRegistered(ctx context.Context, url string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM url_only WHERE url = $1)`, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check url registration: %w", err)
	}
	return exists, nil
}

// FindByURL returns the stored analysis or ErrAnalysisNotFound.
func (s *URLService) FindByURL(ctx context.Context, url string) (*URLAnalysis, error) {
	query := `
		SELECT url, label, domain, created_date, expiry_date, analyzed_at
		FROM url_analysis
		WHERE url = $1
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	a := &URLAnalysis{}
	err := s.pool.QueryRow(ctx, query, url).Scan(
		&a.URL, &a.Label, &a.Domain, &a.CreatedDate, &a.ExpiryDate, &a.AnalyzedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query url analysis: %w", err)
	}
	return a, nil
}
