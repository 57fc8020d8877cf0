package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/victoria/internal/replay"
)

func twoTeamModel() *replay.Model {
	return &replay.Model{
		Teams: []replay.Team{
			{ID: "0", Name: "Reavers"},
			{ID: "1", Name: "Ravens"},
		},
		Roster: []string{"0:1", "0:2", "1:11", "1:12"},
	}
}

func TestPlayerTeamsConflictRemoval(t *testing.T) {
	lookup := PlayerTeams([]string{"0:9", "1:9", "0:3", "1:4"})

	assert.Equal(t, "0", lookup["3"])
	assert.Equal(t, "1", lookup["4"])
	_, ok := lookup["9"]
	assert.False(t, ok, "a player id claimed by both teams is removed, not guessed")
}

func TestTeamForConflictedPlayerStaysUndecided(t *testing.T) {
	m := &replay.Model{
		Teams: []replay.Team{
			{ID: "0", Name: "Reavers"},
			{ID: "1", Name: "Ravens"},
		},
		Roster: []string{"0:9", "1:9"},
	}
	r := NewResolver(m)

	turn := replay.Turn{
		Events: []replay.Event{{Type: replay.EventDodge, PlayerID: "9"}},
	}
	assert.Equal(t, "", r.TeamFor(turn), "a turn resting on a conflicted id cannot be attributed")
}

func TestPlayerTeamsMalformedKeys(t *testing.T) {
	lookup := PlayerTeams([]string{"nocolon", ":5", "0:", "0:7"})
	assert.Equal(t, map[string]string{"7": "0"}, lookup)
}

func TestTeamForDirectTag(t *testing.T) {
	r := NewResolver(twoTeamModel())

	assert.Equal(t, "1", r.TeamFor(replay.Turn{TeamID: "1"}))

	// A tag naming an undeclared team is not trusted; with no other signal
	// the turn stays undecided.
	assert.Equal(t, "", r.TeamFor(replay.Turn{TeamID: "5"}))
}

func TestTeamForScoredAttribution(t *testing.T) {
	r := NewResolver(twoTeamModel())

	// A dodge is committed-action evidence and outweighs an opposing block.
	turn := replay.Turn{
		Events: []replay.Event{
			{Type: replay.EventDodge, PlayerID: "1"},
			{Type: replay.EventBlock, PlayerID: "11"},
		},
	}
	assert.Equal(t, "0", r.TeamFor(turn))
}

func TestTeamForRosterOutranksEventTag(t *testing.T) {
	r := NewResolver(twoTeamModel())

	// Player 11 is rostered on team 1; the event's own tag says 0 and loses.
	turn := replay.Turn{
		Events: []replay.Event{
			{Type: replay.EventDodge, PlayerID: "11", TeamID: "0"},
		},
	}
	assert.Equal(t, "1", r.TeamFor(turn))
}

func TestTeamForUndecided(t *testing.T) {
	r := NewResolver(twoTeamModel())

	// No signal at all.
	assert.Equal(t, "", r.TeamFor(replay.Turn{}))

	// Equal evidence on both sides is a tie, never an arbitrary pick.
	tied := replay.Turn{
		Events: []replay.Event{
			{Type: replay.EventDodge, PlayerID: "1"},
			{Type: replay.EventDodge, PlayerID: "11"},
		},
	}
	assert.Equal(t, "", r.TeamFor(tied))
}

func TestTeamForBallHeldBonus(t *testing.T) {
	r := NewResolver(twoTeamModel())
	assert.Equal(t, "1", r.TeamFor(replay.Turn{BallCarrier: "12"}))
}

func TestTeamForWeakGamerHint(t *testing.T) {
	r := NewResolver(twoTeamModel())
	assert.Equal(t, "1", r.TeamFor(replay.Turn{GamerID: "1"}))
	assert.Equal(t, "0", r.TeamFor(replay.Turn{GamerID: "0"}))
}

func TestTeamForFoulCountsAsCommitted(t *testing.T) {
	r := NewResolver(twoTeamModel())
	turn := replay.Turn{
		Events: []replay.Event{
			{Type: replay.EventBlock, RawTag: "ResultFoulOutcome", PlayerID: "2"},
			{Type: replay.EventBlock, PlayerID: "11"},
		},
	}
	assert.Equal(t, "0", r.TeamFor(turn))
}

func TestPlayableTeamsTwoOrFewer(t *testing.T) {
	r := NewResolver(twoTeamModel())
	teams := r.PlayableTeams(nil)
	require.Len(t, teams, 2)
	assert.Equal(t, "0", teams[0].ID)
	assert.Equal(t, "1", teams[1].ID)
}

func TestPlayableTeamsByUsage(t *testing.T) {
	m := &replay.Model{
		Teams: []replay.Team{
			{ID: "0", Name: "Spectators"},
			{ID: "1", Name: "Reavers"},
			{ID: "2", Name: "Ravens"},
		},
		Roster: []string{"1:11", "2:21"},
	}
	r := NewResolver(m)

	turns := []replay.Turn{
		{TeamID: "1"},
		{TeamID: "2"},
		{TeamID: "1"},
	}
	teams := r.PlayableTeams(turns)
	require.Len(t, teams, 2)
	assert.Equal(t, "1", teams[0].ID)
	assert.Equal(t, "2", teams[1].ID)
}

func TestPlayableTeamsGenericNameFallback(t *testing.T) {
	m := &replay.Model{
		Teams: []replay.Team{
			{ID: "0", Name: "Team 1"},
			{ID: "1", Name: "Reavers"},
			{ID: "2", Name: "Ravens"},
		},
	}
	r := NewResolver(m)

	// No attributable turns: named teams win over the generic placeholder.
	teams := r.PlayableTeams(nil)
	require.Len(t, teams, 2)
	assert.Equal(t, "1", teams[0].ID)
	assert.Equal(t, "2", teams[1].ID)
}
