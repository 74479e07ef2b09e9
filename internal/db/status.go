package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"subscription-report-service/internal/models"
)

// ListStatuses returns every row of the status table.
func (d *DB) ListStatuses(ctx context.Context) ([]models.StatusEntity, error) {
	rows, err := d.Pool.Query(ctx, `SELECT id, code FROM subscription_status ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	defer rows.Close()

	var statuses []models.StatusEntity
	for rows.Next() {
		var s models.StatusEntity
		var code string
		if err := rows.Scan(&s.ID, &code); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		s.Code = models.StatusCode(code)
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// GetStatusByCode fetches one status row by code.
func (d *DB) GetStatusByCode(ctx context.Context, code models.StatusCode) (models.StatusEntity, error) {
	var s models.StatusEntity
	var raw string
	err := d.Pool.QueryRow(ctx,
		`SELECT id, code FROM subscription_status WHERE code = $1`, string(code)).
		Scan(&s.ID, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StatusEntity{}, fmt.Errorf("no status found for code %s", code)
		}
		return models.StatusEntity{}, fmt.Errorf("failed to get status %s: %w", code, err)
	}
	s.Code = models.StatusCode(raw)
	return s, nil
}

// EnsureStatusCodes seeds the status table with any enumeration value not yet
// present. Runs once at startup.
func (d *DB) EnsureStatusCodes(ctx context.Context) error {
	for _, code := range models.AllStatusCodes() {
		_, err := d.Pool.Exec(ctx,
			`INSERT INTO subscription_status (code) VALUES ($1) ON CONFLICT (code) DO NOTHING`,
			string(code))
		if err != nil {
			return fmt.Errorf("failed to seed status %s: %w", code, err)
		}
	}
	return nil
}
