// Package replay reconstructs a structured turn-by-turn model from canonical
// replay XML. The outer scan is marker-based (exactly four structural tag
// names), not a general recursive parse; embedded fragments are recovered
// from up to two chained base64 passes and classified through a fixed
// root-tag mapping table. Codes the table does not know are tallied, never
// fatal.
package replay

import (
	"crypto/sha256"
	"encoding/hex"
)

// EventType is the semantic classification of a parsed event.
type EventType string

const (
	EventBlock     EventType = "block"
	EventBlitz     EventType = "blitz"
	EventDodge     EventType = "dodge"
	EventReroll    EventType = "reroll"
	EventCasualty  EventType = "casualty"
	EventBallState EventType = "ball_state"
	EventTurnover  EventType = "turnover"
)

// Event is one semantic gameplay event recovered from the wire format.
// All id fields are optional; empty means the fragment did not carry them
// and the step context had no default either.
type Event struct {
	Type       EventType `json:"type"`
	RawTag     string    `json:"raw_tag"`
	PlayerID   string    `json:"player_id,omitempty"`
	TargetID   string    `json:"target_id,omitempty"`
	TeamID     string    `json:"team_id,omitempty"`
	GamerID    string    `json:"gamer_id,omitempty"`
	ActionCode int       `json:"action_code,omitempty"`
	StepCode   int       `json:"step_code,omitempty"`
	ReasonCode int       `json:"reason_code,omitempty"`
	Payload    string    `json:"payload,omitempty"`
}

// Turn is one turn of play. Turn numbers are dense and 1-based within their
// scope. A Turn is mutated only while the parser accumulates into it and is
// frozen once emitted.
type Turn struct {
	Number        int      `json:"number"`
	TeamID        string   `json:"team_id,omitempty"`
	GamerID       string   `json:"gamer_id,omitempty"`
	BallCarrier   string   `json:"ball_carrier,omitempty"`
	Turnover      bool     `json:"turnover"`
	EndReason     int      `json:"end_reason,omitempty"`
	FinishingType int      `json:"finishing_type,omitempty"`
	Events        []Event  `json:"events"`
	ActionTokens  []string `json:"action_tokens,omitempty"`
	EventCount    int      `json:"event_count"`
	Snapshot      string   `json:"snapshot,omitempty"`
}

// Clone returns an independent value copy of the turn. Scoped views are
// built from clones so per-team report generation never aliases the parent
// model.
func (t Turn) Clone() Turn {
	out := t
	out.Events = append([]Event(nil), t.Events...)
	out.ActionTokens = append([]string(nil), t.ActionTokens...)
	return out
}

// Team is one participating team as declared in the replay metadata.
type Team struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Coach string `json:"coach,omitempty"`
}

// UnknownCode identifies an observed wire code with no semantic mapping.
type UnknownCode struct {
	Category string
	Code     string
}

// Model is the reconstructed replay. It owns its turns and events outright
// and is immutable after construction.
type Model struct {
	MatchID      string
	RootTag      string
	Teams        []Team
	Turns        []Turn
	Roster       []string // composite "teamID:playerID" keys
	UnknownCodes map[UnknownCode]int
	Metadata     map[string]string
}

// Tokens derives the deduplicated lowercase action-text tokens for an event
// list. Scoped views use it to recompute tokens after event filtering.
func Tokens(events []Event) []string {
	return actionTokens(events)
}

// ContentID returns the stable match id for a raw upload: a content hash of
// the input text exactly as received.
func ContentID(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
