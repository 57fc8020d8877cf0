// Package timeline builds an independent keyword-based cross-check of event
// counts per turn. The parser's code-to-event mapping table is known to be
// incomplete, so each tracked category reports the maximum of the typed
// event count and a keyword match count over the turn's raw data — keyword
// hits catch what the mapping misses without double-counting what it finds.
package timeline

import (
	"strings"

	"github.com/fortuna/victoria/internal/replay"
)

// Categories tracked by the cross-check, in report order.
var Categories = []string{"turnover", "reroll", "blitz", "dodge", "block"}

var categoryTypes = map[string]replay.EventType{
	"turnover": replay.EventTurnover,
	"reroll":   replay.EventReroll,
	"blitz":    replay.EventBlitz,
	"dodge":    replay.EventDodge,
	"block":    replay.EventBlock,
}

// Turn is one turn's cross-checked summary.
type Turn struct {
	Number     int            `json:"number"`
	TeamID     string         `json:"team_id,omitempty"`
	EventCount int            `json:"event_count"`
	Counts     map[string]int `json:"counts"`
}

// Build produces one summary per turn.
func Build(turns []replay.Turn) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		summary := Turn{
			Number:     t.Number,
			TeamID:     t.TeamID,
			EventCount: t.EventCount,
			Counts:     make(map[string]int, len(Categories)),
		}
		haystack := serialized(t)
		for _, cat := range Categories {
			typed := countTyped(t.Events, categoryTypes[cat])
			matched := strings.Count(haystack, cat)
			summary.Counts[cat] = max(typed, matched)
		}
		out = append(out, summary)
	}
	return out
}

// serialized flattens the turn's raw snapshot and action tokens into one
// lowercase haystack for keyword matching.
func serialized(t replay.Turn) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(t.Snapshot))
	for _, tok := range t.ActionTokens {
		b.WriteByte(' ')
		b.WriteString(tok)
	}
	return b.String()
}

func countTyped(events []replay.Event, typ replay.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}
