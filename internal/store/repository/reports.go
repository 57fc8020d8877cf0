// Package repository provides data access for the report archive.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/fortuna/victoria/internal/store"
)

// ReportRepository handles replay and report persistence.
type ReportRepository struct {
	db *store.Database
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *store.Database) *ReportRepository {
	return &ReportRepository{db: db}
}

// SaveReplay upserts an archived raw upload. Re-uploading identical content
// hits the same match id and is a no-op.
func (r *ReportRepository) SaveReplay(ctx context.Context, rec *store.ReplayRecord) error {
	query := `
		INSERT INTO replays (match_id, format, raw_replay)
		VALUES ($1, $2, $3)
		ON CONFLICT (match_id) DO NOTHING
	`
	if _, err := r.db.DB().ExecContext(ctx, query, rec.MatchID, rec.Format, rec.RawReplay); err != nil {
		return fmt.Errorf("saving replay %s: %w", rec.MatchID, err)
	}
	return nil
}

// SaveReport upserts the generated report for a match.
func (r *ReportRepository) SaveReport(ctx context.Context, rec *store.ReportRecord) error {
	if rec.ReportID == "" {
		rec.ReportID = uuid.NewString()
	}
	query := `
		INSERT INTO reports (report_id, match_id, team_count, turn_count, report, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id) DO UPDATE SET
			team_count = EXCLUDED.team_count,
			turn_count = EXCLUDED.turn_count,
			report = EXCLUDED.report,
			generated_at = EXCLUDED.generated_at
	`
	_, err := r.db.DB().ExecContext(ctx, query,
		rec.ReportID, rec.MatchID, rec.TeamCount, rec.TurnCount, rec.ReportJSON, rec.GeneratedAt)
	if err != nil {
		return fmt.Errorf("saving report for %s: %w", rec.MatchID, err)
	}
	return nil
}

// GetReport finds the archived report for a match id.
func (r *ReportRepository) GetReport(ctx context.Context, matchID string) (*store.ReportRecord, error) {
	query := `
		SELECT report_id, match_id, team_count, turn_count, report, generated_at, created_at
		FROM reports
		WHERE match_id = $1
	`
	rec := &store.ReportRecord{}
	err := r.db.DB().QueryRowContext(ctx, query, matchID).Scan(
		&rec.ReportID, &rec.MatchID, &rec.TeamCount, &rec.TurnCount,
		&rec.ReportJSON, &rec.GeneratedAt, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report not found: %s", matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying report %s: %w", matchID, err)
	}
	return rec, nil
}

// ListRecent returns the most recently generated reports.
func (r *ReportRepository) ListRecent(ctx context.Context, limit int) ([]*store.ReportRecord, error) {
	query := `
		SELECT report_id, match_id, team_count, turn_count, report, generated_at, created_at
		FROM reports
		ORDER BY generated_at DESC
		LIMIT $1
	`
	rows, err := r.db.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent reports: %w", err)
	}
	defer rows.Close()

	var records []*store.ReportRecord
	for rows.Next() {
		rec := &store.ReportRecord{}
		err := rows.Scan(
			&rec.ReportID, &rec.MatchID, &rec.TeamCount, &rec.TurnCount,
			&rec.ReportJSON, &rec.GeneratedAt, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ListReplays returns archived raw uploads, oldest first, for reprocessing.
func (r *ReportRepository) ListReplays(ctx context.Context, limit int) ([]*store.ReplayRecord, error) {
	query := `
		SELECT match_id, format, raw_replay, uploaded_at
		FROM replays
		ORDER BY uploaded_at ASC
		LIMIT $1
	`
	rows, err := r.db.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying replays: %w", err)
	}
	defer rows.Close()

	var records []*store.ReplayRecord
	for rows.Next() {
		rec := &store.ReplayRecord{}
		if err := rows.Scan(&rec.MatchID, &rec.Format, &rec.RawReplay, &rec.UploadedAt); err != nil {
			return nil, fmt.Errorf("scanning replay: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
