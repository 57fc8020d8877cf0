// Package rules evaluates turn sequences against independent risk-pattern
// heuristics and converts the resulting findings into player-facing advice.
// Every rule scans the whole sequence on its own; rules never feed each
// other, so adding or removing one cannot change another's output.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fortuna/victoria/internal/replay"
)

// Severity ranks a finding. Converted 1:1 to advice confidence.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Mode is the team context the analysis runs under; recommendation wording
// changes with it.
type Mode string

const (
	ModeOffense Mode = "offense"
	ModeDefense Mode = "defense"
	ModeMixed   Mode = "mixed"
)

// Finding is one detected risk pattern on one turn.
type Finding struct {
	ID             string   `json:"id"`
	Severity       Severity `json:"severity"`
	Category       string   `json:"category"`
	Title          string   `json:"title"`
	Detail         string   `json:"detail"`
	Recommendation string   `json:"recommendation"`
	Turn           int      `json:"turn"`
	Evidence       []string `json:"evidence,omitempty"`
}

// Context carries the team framing for recommendation text.
type Context struct {
	Mode     Mode
	TeamName string
}

// Config bounds the engine's output.
type Config struct {
	PerCategoryCap int
}

// DefaultConfig matches the shipped limits.
func DefaultConfig() Config {
	return Config{PerCategoryCap: 6}
}

type rule func(turns []replay.Turn, ctx Context) []Finding

// Analyze runs every rule over the turn sequence and applies the
// per-category cap, preserving each rule's original encounter order.
func Analyze(turns []replay.Turn, ctx Context, cfg Config) []Finding {
	if cfg.PerCategoryCap <= 0 {
		cfg.PerCategoryCap = DefaultConfig().PerCategoryCap
	}

	evaluators := []rule{
		turnoverCause,
		actionOrdering,
		rerollTiming,
		ballSafety,
		cageSafety,
		screenLanes,
		blitzValue,
		foulTiming,
	}

	var findings []Finding
	for _, evaluate := range evaluators {
		emitted := evaluate(turns, ctx)
		if len(emitted) > cfg.PerCategoryCap {
			emitted = emitted[:cfg.PerCategoryCap]
		}
		findings = append(findings, emitted...)
	}
	return findings
}

// SortForReport orders findings by severity (high first), then turn number.
func SortForReport(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity != b.Severity {
			return severityRank(a.Severity) > severityRank(b.Severity)
		}
		return a.Turn < b.Turn
	})
}

func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

func newFinding(category string, turn int, severity Severity, title, detail, rec string, evidence []string) Finding {
	return Finding{
		ID:             fmt.Sprintf("%s-%d", category, turn),
		Severity:       severity,
		Category:       category,
		Title:          title,
		Detail:         detail,
		Recommendation: rec,
		Turn:           turn,
		Evidence:       evidence,
	}
}

// --- shared turn inspection helpers ---

func countType(t replay.Turn, typ replay.EventType) int {
	n := 0
	for _, ev := range t.Events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func firstOfType(t replay.Turn, typ replay.EventType) (replay.Event, int) {
	for i, ev := range t.Events {
		if ev.Type == typ {
			return ev, i
		}
	}
	return replay.Event{}, -1
}

// foulHits counts foul occurrences. Fouls carry no semantic event type in
// the mapping table, so detection runs over raw tags and the turn's raw
// snapshot keywords.
func foulHits(t replay.Turn) int {
	n := 0
	for _, ev := range t.Events {
		if strings.Contains(strings.ToLower(ev.RawTag), "foul") {
			n++
		}
	}
	if n == 0 {
		n = strings.Count(strings.ToLower(t.Snapshot), "foul")
	}
	return n
}

// foulBeforeBall reports whether a foul occurs before the first ball-state
// marker in the turn's raw record. A turn with fouls but no ball marker at
// all counts as fouling early — the ball was never secured first.
func foulBeforeBall(t replay.Turn) bool {
	snap := strings.ToLower(t.Snapshot)
	foulAt := strings.Index(snap, "foul")
	if foulAt < 0 {
		return false
	}
	ballAt := -1
	for _, marker := range []string{"ballcarrier", "ballstep", "resulttouchback"} {
		if at := strings.Index(snap, marker); at >= 0 && (ballAt < 0 || at < ballAt) {
			ballAt = at
		}
	}
	return ballAt < 0 || foulAt < ballAt
}

// evidenceFor renders a bounded snippet list from events.
func evidenceFor(events ...replay.Event) []string {
	const maxSnippets = 3
	const maxLen = 120
	var out []string
	for _, ev := range events {
		if ev.RawTag == "" && ev.Type == "" {
			continue
		}
		s := string(ev.Type) + " (" + ev.RawTag
		if ev.PlayerID != "" {
			s += ", player " + ev.PlayerID
		}
		s += ")"
		if len(s) > maxLen {
			s = s[:maxLen]
		}
		out = append(out, s)
		if len(out) == maxSnippets {
			break
		}
	}
	return out
}
