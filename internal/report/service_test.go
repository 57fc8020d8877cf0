package report

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/victoria/internal/decode"
	"github.com/fortuna/victoria/internal/replay"
	"github.com/fortuna/victoria/internal/rules"
)

func payload(xmlText string) string {
	once := base64.StdEncoding.EncodeToString([]byte(xmlText))
	return base64.StdEncoding.EncodeToString([]byte(once))
}

func compressZlibB64(t *testing.T, text string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// sampleReplay is a two-turn literal XML replay: a clean first turn, then a
// block followed by a turnover end.
func sampleReplay() string {
	return `<Replay>` +
		`<Team Id="0" Name="Reavers"><Player Id="1"/><Player Id="2"/></Team>` +
		`<Team Id="1" Name="Ravens"><Player Id="11"/><Player Id="12"/></Team>` +
		`<EventEndTurn Reason="1" TeamId="0"/>` +
		`<EventExecuteSequence><Result>` + payload(`<ResultBlockRoll PlayerId="11"/>`) + `</Result></EventExecuteSequence>` +
		`<EventEndTurn Reason="2" TeamId="1"/>` +
		`</Replay>`
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestGenerateEndToEnd(t *testing.T) {
	svc := NewService(nil, Limits{})
	rep, err := svc.Generate(context.Background(), sampleReplay())
	require.NoError(t, err)

	assert.Len(t, rep.MatchID, 64)
	assert.Equal(t, decode.FormatXML, rep.Summary.Format)
	assert.Equal(t, 2, rep.Summary.TeamCount)
	assert.Equal(t, 2, rep.Summary.TurnCount)

	require.Len(t, rep.Match.Timeline, 2)
	assert.Equal(t, 0, rep.Match.Timeline[0].Counts["block"])
	assert.Equal(t, 1, rep.Match.Timeline[1].Counts["block"])
	assert.GreaterOrEqual(t, rep.Match.Timeline[1].Counts["turnover"], 1)

	var sawTurnover bool
	for _, f := range rep.Match.Findings {
		if f.Category == "turnover-cause" {
			sawTurnover = true
			assert.Equal(t, 2, f.Turn)
			assert.Equal(t, rules.SeverityHigh, f.Severity)
		}
	}
	assert.True(t, sawTurnover, "the turn-2 turnover must produce a finding")

	require.Len(t, rep.Teams, 2)
	assert.Equal(t, "Reavers", rep.Teams[0].Team.Name)
	assert.Equal(t, "Ravens", rep.Teams[1].Team.Name)
	assert.Equal(t, 1, rep.Teams[0].TurnCount)
	assert.Equal(t, 1, rep.Teams[1].TurnCount)
}

func TestGenerateIsDeterministic(t *testing.T) {
	svc := NewService(nil, Limits{})
	svc.now = fixedClock()

	first, err := svc.Generate(context.Background(), sampleReplay())
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), sampleReplay())
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestGenerateMatchIDIsContentBound(t *testing.T) {
	svc := NewService(nil, Limits{})

	rep, err := svc.Generate(context.Background(), sampleReplay())
	require.NoError(t, err)
	assert.Equal(t, replay.ContentID(sampleReplay()), rep.MatchID)

	other, err := svc.Generate(context.Background(), sampleReplay()+" ")
	require.NoError(t, err)
	assert.NotEqual(t, rep.MatchID, other.MatchID, "the id binds to the bytes as uploaded")
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	svc := NewService(nil, Limits{})

	_, err := svc.Generate(context.Background(), "definitely not a replay")
	assert.ErrorIs(t, err, decode.ErrValidation)

	_, err = svc.Generate(context.Background(), "")
	assert.ErrorIs(t, err, decode.ErrValidation)
}

func TestGenerateEnforcesDecodedSizeCap(t *testing.T) {
	svc := NewService(nil, Limits{MaxDecodedChars: 64})
	_, err := svc.Generate(context.Background(), sampleReplay())
	assert.ErrorIs(t, err, decode.ErrValidation)
}

func TestGenerateUnsupportedSchemaYieldsEmptyReport(t *testing.T) {
	svc := NewService(nil, Limits{})
	rep, err := svc.Generate(context.Background(), `<SomethingElse><Data/></SomethingElse>`)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Summary.TurnCount)
	assert.Empty(t, rep.Match.Findings)
	assert.Empty(t, rep.Match.Timeline)
}

func TestGenerateHonorsCancelledContext(t *testing.T) {
	svc := NewService(nil, Limits{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Generate(ctx, sampleReplay())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateSurfacesUnknownCodes(t *testing.T) {
	doc := `<Replay>` +
		`<EventExecuteSequence><Result>` + payload(`<ResultSkillUsage/>`) + `</Result></EventExecuteSequence>` +
		`<EventEndTurn Reason="1"/>` +
		`</Replay>`

	svc := NewService(nil, Limits{})
	rep, err := svc.Generate(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, rep.Summary.UnknownCodes, 1)
	assert.Equal(t, "sequence_result", rep.Summary.UnknownCodes[0].Category)
	assert.Equal(t, "ResultSkillUsage", rep.Summary.UnknownCodes[0].Code)
	assert.Equal(t, 1, rep.Summary.UnknownCodes[0].Count)
}

func TestTeamModesFollowPossession(t *testing.T) {
	// The carrier is rostered on team 0, so team 0's scoped view keeps it
	// and frames as offense; team 1 frames as defense.
	doc := `<Replay>` +
		`<Team Id="0" Name="Reavers"><Player Id="1"/></Team>` +
		`<Team Id="1" Name="Ravens"><Player Id="11"/></Team>` +
		`<BallCarrier>1</BallCarrier>` +
		`<EventEndTurn Reason="1" TeamId="0"/>` +
		`<EventEndTurn Reason="1" TeamId="1"/>` +
		`</Replay>`

	svc := NewService(nil, Limits{})
	rep, err := svc.Generate(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, rep.Teams, 2)
	assert.Equal(t, rules.ModeOffense, rep.Teams[0].Analysis.Mode)
	assert.Equal(t, rules.ModeDefense, rep.Teams[1].Analysis.Mode)
	assert.Equal(t, rules.ModeMixed, rep.Match.Mode)
}

func TestGenerateBBRInput(t *testing.T) {
	svc := NewService(nil, Limits{})

	raw := strings.TrimSpace(sampleReplay())
	compressed := compressZlibB64(t, raw)
	rep, err := svc.Generate(context.Background(), compressed)
	require.NoError(t, err)
	assert.Equal(t, decode.FormatBBR, rep.Summary.Format)
	assert.Equal(t, 2, rep.Summary.TurnCount)
}
