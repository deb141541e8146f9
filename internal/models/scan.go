package models

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScanLog is a raw QR scan as reported by a client.
type ScanLog struct {
	ID        int64     `json:"scan_id"`
	QRCode    string    `json:"qr_code"`
	URL       string    `json:"url"`
	ScannedAt time.Time `json:"scanned_at"`
}

type ScanService struct {
	pool *pgxpool.Pool
}

func NewScanService(pool *pgxpool.Pool) *ScanService {
	return &ScanService{pool: pool}
}

// Save stores a scan and returns its id.
func (s *ScanService) Save(ctx context.Context, qrCode, url string) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO scan_log (qr_code, url, scanned_at) VALUES ($1, $2, NOW()) RETURNING scan_id`,
		qrCode, url,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save scan: %w", err)
	}
	return id, nil
}

// All returns every scan, newest first.
func (s *ScanService) All(ctx context.Context) ([]ScanLog, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT scan_id, qr_code, url, scanned_at
		FROM scan_log
		ORDER BY scanned_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}

	scans, err := pgx.CollectRows(rows, pgx.RowToStructByPos[ScanLog])
	if err != nil {
		return nil, fmt.Errorf("failed to scan rows: %w", err)
	}
	return scans, nil
}
