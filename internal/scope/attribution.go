// Package scope resolves turn and event ownership for a parsed replay and
// builds per-team filtered views. Ownership tags in the wire format are
// frequently absent or unreliable, and the two teams may share overlapping
// player-id spaces, so attribution is scored rather than assumed — and any
// tie stays an explicit "undecided" instead of an arbitrary pick.
package scope

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fortuna/victoria/internal/replay"
)

// Attribution weights. High-commitment actions dominate because only the
// acting team ever dodges, blitzes, fouls, or burns a reroll; blocks are
// weaker evidence since both teams appear in block chains.
const (
	weightCommitted = 4
	weightBlock     = 2
	weightOwned     = 1
	bonusBallHeld   = 2
	bonusWeakHint   = 1
)

// PlayerTeams builds the player→team lookup from composite "team:player"
// roster keys. A player id that resolves to more than one team is removed
// entirely — conflicting ids are never guessed at.
func PlayerTeams(roster []string) map[string]string {
	lookup := make(map[string]string)
	conflicted := make(map[string]bool)
	for _, key := range roster {
		teamID, playerID, ok := strings.Cut(key, ":")
		if !ok || teamID == "" || playerID == "" {
			continue
		}
		if conflicted[playerID] {
			continue
		}
		if prev, seen := lookup[playerID]; seen && prev != teamID {
			delete(lookup, playerID)
			conflicted[playerID] = true
			continue
		}
		lookup[playerID] = teamID
	}
	return lookup
}

// Resolver attributes turns and events to teams.
type Resolver struct {
	teams  []replay.Team
	lookup map[string]string
	known  map[string]bool
}

// NewResolver builds a resolver for the model's teams and roster.
func NewResolver(m *replay.Model) *Resolver {
	known := make(map[string]bool, len(m.Teams))
	for _, t := range m.Teams {
		known[t.ID] = true
	}
	return &Resolver{
		teams:  append([]replay.Team(nil), m.Teams...),
		lookup: PlayerTeams(m.Roster),
		known:  known,
	}
}

// Lookup exposes the conflict-free player→team mapping.
func (r *Resolver) Lookup() map[string]string { return r.lookup }

// TeamFor returns the team a turn belongs to, or "" when undecided. A direct
// team tag is trusted only when it names a declared team; otherwise each
// candidate is scored and the strictly highest total wins.
func (r *Resolver) TeamFor(t replay.Turn) string {
	if t.TeamID != "" && r.known[t.TeamID] {
		return t.TeamID
	}

	best, bestScore, tied := "", 0, false
	for idx, team := range r.teams {
		score := r.score(t, team.ID, idx)
		switch {
		case score > bestScore:
			best, bestScore, tied = team.ID, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}
	if tied || bestScore == 0 {
		return ""
	}
	return best
}

func (r *Resolver) score(t replay.Turn, teamID string, teamIdx int) int {
	score := 0
	for _, ev := range t.Events {
		owner := r.eventOwner(ev)
		if owner != teamID {
			continue
		}
		switch {
		case ev.Type == replay.EventDodge, ev.Type == replay.EventBlitz, ev.Type == replay.EventReroll:
			score += weightCommitted
		case isFoulTag(ev.RawTag):
			score += weightCommitted
		case ev.Type == replay.EventBlock:
			score += weightBlock
		default:
			score += weightOwned
		}
	}
	if t.BallCarrier != "" && r.lookup[t.BallCarrier] == teamID {
		score += bonusBallHeld
	}
	// An active-gamer id matching the team's declaration position is an
	// explicit but weak hint: gamer seats usually line up with team order,
	// but not always.
	if t.GamerID != "" && t.GamerID == strconv.Itoa(teamIdx) {
		score += bonusWeakHint
	}
	return score
}

// eventOwner resolves which team an event belongs to, or "" when unowned.
// The roster lookup outranks the event's own team tag.
func (r *Resolver) eventOwner(ev replay.Event) string {
	if ev.PlayerID != "" {
		if team, ok := r.lookup[ev.PlayerID]; ok {
			return team
		}
	}
	if ev.TeamID != "" && r.known[ev.TeamID] {
		return ev.TeamID
	}
	return ""
}

func isFoulTag(tag string) bool {
	return strings.Contains(strings.ToLower(tag), "foul")
}

var genericTeamName = regexp.MustCompile(`^Team\s+\d+$`)

// PlayableTeams selects the two reportable teams: the top two by attributed
// turn usage when at least two have any, otherwise teams with non-generic
// names first, padded with whatever remains. Ordering among equals follows
// declaration order, never map iteration.
func (r *Resolver) PlayableTeams(turns []replay.Turn) []replay.Team {
	if len(r.teams) <= 2 {
		return append([]replay.Team(nil), r.teams...)
	}

	usage := make(map[string]int)
	for _, t := range turns {
		if team := r.TeamFor(t); team != "" {
			usage[team]++
		}
	}

	ranked := append([]replay.Team(nil), r.teams...)
	// Stable sort by usage desc keeps declaration order for equal counts.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && usage[ranked[j].ID] > usage[ranked[j-1].ID]; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	if usage[ranked[0].ID] > 0 && usage[ranked[1].ID] > 0 {
		return ranked[:2]
	}

	var picked []replay.Team
	for _, team := range r.teams {
		if !genericTeamName.MatchString(team.Name) {
			picked = append(picked, team)
		}
		if len(picked) == 2 {
			return picked
		}
	}
	for _, team := range r.teams {
		if len(picked) == 2 {
			break
		}
		if !containsTeam(picked, team.ID) {
			picked = append(picked, team)
		}
	}
	return picked
}

func containsTeam(teams []replay.Team, id string) bool {
	for _, t := range teams {
		if t.ID == id {
			return true
		}
	}
	return false
}
