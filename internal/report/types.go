package report

import (
	"time"

	"github.com/fortuna/victoria/internal/replay"
	"github.com/fortuna/victoria/internal/rules"
	"github.com/fortuna/victoria/internal/timeline"
)

// Report is the full coaching report for one uploaded replay.
type Report struct {
	MatchID     string       `json:"match_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Summary     Summary      `json:"summary"`
	Match       Analysis     `json:"match"`
	Teams       []TeamReport `json:"teams"`
}

// Summary describes what was decoded and parsed, including the unknown-code
// tally kept for observability of the still-incomplete mapping table.
type Summary struct {
	Format       string             `json:"format"`
	TeamCount    int                `json:"team_count"`
	TurnCount    int                `json:"turn_count"`
	Teams        []replay.Team      `json:"teams"`
	UnknownCodes []UnknownCodeCount `json:"unknown_codes,omitempty"`
}

// UnknownCodeCount is one unmapped wire code and how often it was seen.
type UnknownCodeCount struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Count    int    `json:"count"`
}

// Analysis is one scope's findings, advice and cross-checked timeline.
type Analysis struct {
	Mode     rules.Mode      `json:"mode"`
	Findings []rules.Finding `json:"findings"`
	Advice   []rules.Advice  `json:"advice"`
	Timeline []timeline.Turn `json:"timeline"`
}

// TeamReport is the scoped analysis for one playable team.
type TeamReport struct {
	Team      replay.Team `json:"team"`
	TurnCount int         `json:"turn_count"`
	Analysis  Analysis    `json:"analysis"`
}
