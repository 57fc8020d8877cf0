package scope

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/victoria/internal/replay"
)

func TestForTeamDirectFilter(t *testing.T) {
	m := twoTeamModel()
	m.Turns = []replay.Turn{
		{Number: 1, TeamID: "0"},
		{Number: 2, TeamID: "1"},
		{Number: 3, TeamID: "0"},
		{Number: 4, TeamID: "1"},
	}
	r := NewResolver(m)

	view := r.ForTeam(m, m.Teams[0])
	require.Len(t, view.Turns, 2)
	for i, turn := range view.Turns {
		assert.Equal(t, i+1, turn.Number, "scoped turns renumber densely from 1")
		assert.Equal(t, "0", turn.TeamID)
	}
}

func TestForTeamInferredFallback(t *testing.T) {
	m := twoTeamModel()
	m.Turns = []replay.Turn{
		{Number: 1, Events: []replay.Event{{Type: replay.EventDodge, PlayerID: "1"}}},
		{Number: 2, Events: []replay.Event{{Type: replay.EventDodge, PlayerID: "11"}}},
		{Number: 3, Events: []replay.Event{{Type: replay.EventBlitz, PlayerID: "2"}}},
	}
	r := NewResolver(m)

	view := r.ForTeam(m, m.Teams[0])
	require.Len(t, view.Turns, 2)
	assert.Equal(t, "1", view.Turns[0].Events[0].PlayerID)
	assert.Equal(t, "2", view.Turns[1].Events[0].PlayerID)
}

func TestForTeamEvenOddFallback(t *testing.T) {
	m := twoTeamModel()
	for i := 1; i <= 6; i++ {
		m.Turns = append(m.Turns, replay.Turn{Number: i})
	}
	r := NewResolver(m)

	first := r.ForTeam(m, m.Teams[0])
	second := r.ForTeam(m, m.Teams[1])
	require.Len(t, first.Turns, 3)
	require.Len(t, second.Turns, 3)

	// Positions alternate: declaration index 0 takes even offsets.
	assert.Equal(t, 1, first.Turns[0].Number)
	assert.Equal(t, "0", first.Turns[0].TeamID)
	assert.Equal(t, "1", second.Turns[0].TeamID)
}

func TestForTeamCapsWindow(t *testing.T) {
	m := twoTeamModel()
	for i := 1; i <= 40; i++ {
		m.Turns = append(m.Turns, replay.Turn{Number: i, TeamID: "0"})
	}
	r := NewResolver(m)

	view := r.ForTeam(m, m.Teams[0])
	require.Len(t, view.Turns, maxScopedTurns)
	assert.Equal(t, maxScopedTurns, view.Turns[len(view.Turns)-1].Number)
}

func TestForTeamEventFiltering(t *testing.T) {
	m := twoTeamModel()
	m.Turns = []replay.Turn{{
		Number: 1,
		TeamID: "0",
		Events: []replay.Event{
			{Type: replay.EventDodge, PlayerID: "1"},   // ours by roster
			{Type: replay.EventBlock, PlayerID: "11"},  // theirs by roster
			{Type: replay.EventBlock, TeamID: "1"},     // theirs by tag
			{Type: replay.EventReroll},                 // unowned, kept
			{Type: replay.EventBallState, TeamID: "0"}, // ours by tag
		},
	}}
	r := NewResolver(m)

	view := r.ForTeam(m, m.Teams[0])
	require.Len(t, view.Turns, 1)
	turn := view.Turns[0]
	require.Len(t, turn.Events, 3)
	assert.Equal(t, replay.EventDodge, turn.Events[0].Type)
	assert.Equal(t, replay.EventReroll, turn.Events[1].Type)
	assert.Equal(t, replay.EventBallState, turn.Events[2].Type)
	assert.Equal(t, 3, turn.EventCount)
	assert.Contains(t, turn.ActionTokens, "dodge")
	assert.NotContains(t, turn.ActionTokens, "block")
}

func TestForTeamNullsForeignCarrier(t *testing.T) {
	m := twoTeamModel()
	m.Turns = []replay.Turn{
		{Number: 1, TeamID: "0", BallCarrier: "11"},
		{Number: 2, TeamID: "0", BallCarrier: "1"},
		{Number: 3, TeamID: "0", BallCarrier: "99"},
	}
	r := NewResolver(m)

	view := r.ForTeam(m, m.Teams[0])
	require.Len(t, view.Turns, 3)
	assert.Equal(t, "", view.Turns[0].BallCarrier, "opposing carrier is hidden from the scoped view")
	assert.Equal(t, "1", view.Turns[1].BallCarrier)
	assert.Equal(t, "99", view.Turns[2].BallCarrier, "unrostered carrier is left alone")
}

func TestForTeamDoesNotAliasModel(t *testing.T) {
	m := twoTeamModel()
	m.Turns = []replay.Turn{{
		Number: 1,
		TeamID: "0",
		Events: []replay.Event{
			{Type: replay.EventDodge, PlayerID: "1"},
			{Type: replay.EventBlock, PlayerID: "11"},
		},
	}}
	r := NewResolver(m)

	view := r.ForTeam(m, m.Teams[0])
	view.Turns[0].Events[0].PlayerID = "mutated"

	assert.Equal(t, "1", m.Turns[0].Events[0].PlayerID)
	assert.Len(t, m.Turns[0].Events, 2, "filtering happens on the clone only")
}

func TestForTeamPrefersLargerInferredSet(t *testing.T) {
	m := twoTeamModel()
	// One direct tag, but inference attributes three turns.
	for i := 1; i <= 3; i++ {
		turn := replay.Turn{
			Number: i,
			Events: []replay.Event{{Type: replay.EventDodge, PlayerID: fmt.Sprintf("%d", i%2+1)}},
		}
		m.Turns = append(m.Turns, turn)
	}
	m.Turns[0].TeamID = "0"
	r := NewResolver(m)

	view := r.ForTeam(m, m.Teams[0])
	assert.Len(t, view.Turns, 3)
}
