package scope

import (
	"github.com/fortuna/victoria/internal/replay"
)

// maxScopedTurns caps a scoped view to the reportable window. The same
// constant doubles as the direct-match threshold: fewer direct tags than a
// full window means the tagging is probably unreliable, so the inferred
// filter gets a chance to do better.
const maxScopedTurns = 16

// View is a team-scoped replay: filtered, renumbered turns holding only the
// scoped team's events. It is an independent value copy with no aliasing
// into the parent model, so per-team report generation can run concurrently.
type View struct {
	Team  replay.Team
	Turns []replay.Turn
}

// ForTeam builds the scoped view for one team.
//
// Filter preference: direct team tags; then the attribution-inferred filter
// when direct tagging looks too sparse and inference finds more; then, for
// two-team replays only, alternating turns by position as a last resort.
func (r *Resolver) ForTeam(m *replay.Model, team replay.Team) View {
	direct := filterTurns(m.Turns, func(t replay.Turn) bool {
		return t.TeamID == team.ID
	})

	selected := direct
	if len(direct) < maxScopedTurns {
		inferred := filterTurns(m.Turns, func(t replay.Turn) bool {
			return r.TeamFor(t) == team.ID
		})
		if len(inferred) > len(direct) {
			selected = inferred
		}
	}

	if len(selected) == 0 && len(m.Teams) == 2 {
		parity := teamIndex(m.Teams, team.ID) % 2
		for i, t := range m.Turns {
			if i%2 == parity {
				selected = append(selected, t)
			}
		}
	}

	if len(selected) > maxScopedTurns {
		selected = selected[:maxScopedTurns]
	}

	turns := make([]replay.Turn, 0, len(selected))
	for i, t := range selected {
		scoped := t.Clone()
		scoped.Number = i + 1
		scoped.TeamID = team.ID
		scoped.Events = r.filterEvents(scoped.Events, team.ID)
		scoped.EventCount = len(scoped.Events)
		scoped.ActionTokens = replay.Tokens(scoped.Events)
		if scoped.BallCarrier != "" {
			if owner, ok := r.lookup[scoped.BallCarrier]; ok && owner != team.ID {
				scoped.BallCarrier = ""
			}
		}
		turns = append(turns, scoped)
	}

	return View{Team: team, Turns: turns}
}

// filterEvents keeps the events belonging to the scoped team. An event
// belongs if its player resolves to the team; failing that, if its own team
// tag matches; unowned events are kept by default rather than discarded.
func (r *Resolver) filterEvents(events []replay.Event, teamID string) []replay.Event {
	kept := events[:0]
	for _, ev := range events {
		if ev.PlayerID != "" {
			if owner, ok := r.lookup[ev.PlayerID]; ok {
				if owner == teamID {
					kept = append(kept, ev)
				}
				continue
			}
		}
		if ev.TeamID != "" {
			if ev.TeamID == teamID {
				kept = append(kept, ev)
			}
			continue
		}
		kept = append(kept, ev)
	}
	return kept
}

func filterTurns(turns []replay.Turn, keep func(replay.Turn) bool) []replay.Turn {
	var out []replay.Turn
	for _, t := range turns {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func teamIndex(teams []replay.Team, id string) int {
	for i, t := range teams {
		if t.ID == id {
			return i
		}
	}
	return 0
}
