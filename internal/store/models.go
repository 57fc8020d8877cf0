package store

import "time"

// ReplayRecord is an archived raw upload.
type ReplayRecord struct {
	MatchID    string    `json:"match_id"`
	Format     string    `json:"format"`
	RawReplay  string    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ReportRecord is an archived generated report. ReportJSON holds the full
// report document as produced by the analysis pipeline.
type ReportRecord struct {
	ReportID    string    `json:"report_id"`
	MatchID     string    `json:"match_id"`
	TeamCount   int       `json:"team_count"`
	TurnCount   int       `json:"turn_count"`
	ReportJSON  []byte    `json:"-"`
	GeneratedAt time.Time `json:"generated_at"`
	CreatedAt   time.Time `json:"created_at"`
}
