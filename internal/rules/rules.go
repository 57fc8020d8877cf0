package rules

import (
	"fmt"
	"strings"

	"github.com/fortuna/victoria/internal/replay"
)

// turnoverCause flags every turnover turn and cites the most likely cause:
// the first dodge, else the first block, else the first ball handling event.
func turnoverCause(turns []replay.Turn, ctx Context) []Finding {
	var out []Finding
	for _, t := range turns {
		if !t.Turnover {
			continue
		}
		cause, detail := likelyCause(t)
		rec := recWord(ctx,
			"Run your safest actions first and save dice rolls for after the ball is secure.",
			"Pressure is good, but sequence tackles so a single failed roll does not end your turn.",
			"Sequence sure actions before risky rolls so one failure does not end the turn.")
		out = append(out, newFinding("turnover-cause", t.Number, SeverityHigh,
			fmt.Sprintf("Turnover on turn %d", t.Number),
			detail, rec, evidenceFor(cause)))
	}
	return out
}

func likelyCause(t replay.Turn) (replay.Event, string) {
	if ev, i := firstOfType(t, replay.EventDodge); i >= 0 {
		return ev, "A failed dodge is the most likely cause of this turnover."
	}
	if ev, i := firstOfType(t, replay.EventBlock); i >= 0 {
		return ev, "A block result likely went wrong and ended the turn."
	}
	if ev, i := firstOfType(t, replay.EventBallState); i >= 0 {
		return ev, "Ball handling appears to have failed and ended the turn."
	}
	return replay.Event{}, "The turn ended in a turnover; the trigger is not visible in the mapped events."
}

// actionOrdering flags turns where a risky action ran before the ball was
// touched: the cheap, safe plays should come first.
func actionOrdering(turns []replay.Turn, ctx Context) []Finding {
	var out []Finding
	for _, t := range turns {
		_, ballAt := firstOfType(t, replay.EventBallState)
		if ballAt < 0 {
			continue
		}
		risky, riskyAt := firstRisky(t, ballAt)
		if riskyAt < 0 {
			continue
		}
		rec := recWord(ctx,
			"Secure the ball before committing to blocks or dodges.",
			"Make your safe positioning moves before rolling contact dice.",
			"Handle the ball and make safe moves before any dice-dependent action.")
		out = append(out, newFinding("action-ordering", t.Number, SeverityMedium,
			fmt.Sprintf("Risky action before ball handling on turn %d", t.Number),
			fmt.Sprintf("A %s was rolled before the turn's first ball event.", risky.Type),
			rec, evidenceFor(risky)))
	}
	return out
}

func firstRisky(t replay.Turn, before int) (replay.Event, int) {
	for i, ev := range t.Events {
		if i >= before {
			break
		}
		switch ev.Type {
		case replay.EventDodge, replay.EventBlock, replay.EventBlitz:
			return ev, i
		}
	}
	return replay.Event{}, -1
}

// rerollTiming flags rerolls burned too early: two or more risky actions
// after the first reroll, or a reroll on a turn that still ended in a
// turnover, means the reroll was not held for the action that needed it.
func rerollTiming(turns []replay.Turn, ctx Context) []Finding {
	var out []Finding
	for _, t := range turns {
		_, rerollAt := firstOfType(t, replay.EventReroll)
		if rerollAt < 0 {
			continue
		}
		riskyAfter := 0
		for i := rerollAt + 1; i < len(t.Events); i++ {
			switch t.Events[i].Type {
			case replay.EventDodge, replay.EventBlock, replay.EventBlitz:
				riskyAfter++
			}
		}
		riskyAfter += foulsAfterIndex(t, rerollAt)
		if riskyAfter < 2 && !t.Turnover {
			continue
		}
		sev := SeverityMedium
		if t.Turnover {
			sev = SeverityHigh
		}
		rec := recWord(ctx,
			"Hold the team reroll for the roll that carries your drive, usually the pickup or the key dodge.",
			"Keep the reroll for the tackle that actually matters, not the first inconvenient roll.",
			"Spend the team reroll on the last critical roll of the turn, not the first failure.")
		out = append(out, newFinding("reroll-timing", t.Number, sev,
			fmt.Sprintf("Early reroll on turn %d", t.Number),
			fmt.Sprintf("%d risky actions were still to come after the reroll was spent.", riskyAfter),
			rec, nil))
	}
	return out
}

func foulsAfterIndex(t replay.Turn, after int) int {
	n := 0
	for i := after + 1; i < len(t.Events); i++ {
		if isFoulEvent(t.Events[i]) {
			n++
		}
	}
	return n
}

// ballSafety fires once per carrier change between two consecutive
// carrier-bearing turns; never on the first carrier-bearing turn.
func ballSafety(turns []replay.Turn, ctx Context) []Finding {
	var out []Finding
	for i := 1; i < len(turns); i++ {
		prev, cur := turns[i-1], turns[i]
		if prev.BallCarrier == "" || cur.BallCarrier == "" {
			continue
		}
		if prev.BallCarrier == cur.BallCarrier {
			continue
		}
		rec := recWord(ctx,
			"Plan handoffs a turn ahead so the new carrier ends up screened, not exposed.",
			"When the ball moves, collapse on the new carrier before they can be protected.",
			"Minimize carrier changes; every transfer is a roll that can drop the ball.")
		out = append(out, newFinding("ball-safety", cur.Number, SeverityMedium,
			fmt.Sprintf("Ball changed hands going into turn %d", cur.Number),
			fmt.Sprintf("The carrier changed from player %s to player %s between consecutive turns.", prev.BallCarrier, cur.BallCarrier),
			rec, nil))
	}
	return out
}

// cageSafety flags carrier turns with no supporting contact and a risk
// profile that suggests the carrier stood unprotected.
func cageSafety(turns []replay.Turn, ctx Context) []Finding {
	var out []Finding
	for _, t := range turns {
		if t.BallCarrier == "" {
			continue
		}
		support := countType(t, replay.EventBlock) + countType(t, replay.EventBlitz)
		if support > 0 {
			continue
		}
		risky := countType(t, replay.EventDodge) + foulHits(t)
		if risky < 2 && !t.Turnover {
			continue
		}
		sev := SeverityMedium
		if t.Turnover {
			sev = SeverityHigh
		}
		rec := recWord(ctx,
			"Cage up: put a corner of players around the carrier before doing anything else.",
			"An unsupported carrier is a gift; commit your free players to the sack.",
			"Keep bodies around the ball carrier before spending actions elsewhere.")
		out = append(out, newFinding("cage-safety", t.Number, sev,
			fmt.Sprintf("Unprotected carrier on turn %d", t.Number),
			"The carrier had no block or blitz support while risky actions were taken.",
			rec, nil))
	}
	return out
}

// screenLanes only evaluates defensive and mixed scopes: repeated dodging
// with zero contact usually means the defense is slipping through gaps
// instead of closing lanes.
func screenLanes(turns []replay.Turn, ctx Context) []Finding {
	if ctx.Mode == ModeOffense {
		return nil
	}
	var out []Finding
	for _, t := range turns {
		contact := countType(t, replay.EventBlock) + countType(t, replay.EventBlitz)
		if contact != 0 {
			continue
		}
		if countType(t, replay.EventDodge) < 2 {
			continue
		}
		rec := recWord(ctx,
			"Form a screen two squares apart instead of dodging player by player.",
			"Hold a screen and force the runner into your tackle zones; do not chase with dodges.",
			"Prefer a standing screen over multiple dodges; screens do not roll dice.")
		out = append(out, newFinding("screen-lanes", t.Number, SeverityMedium,
			fmt.Sprintf("Dodge-heavy, contact-free turn %d", t.Number),
			"Two or more dodges were rolled without a single block or blitz to anchor the position.",
			rec, nil))
	}
	return out
}

// blitzValue asks what the blitz bought: a blitz that produced neither a
// casualty nor sustained pressure, or one that ended in a turnover, was
// likely not worth the dice.
func blitzValue(turns []replay.Turn, ctx Context) []Finding {
	var out []Finding
	for _, t := range turns {
		if countType(t, replay.EventBlitz) == 0 {
			continue
		}
		casualties := countType(t, replay.EventCasualty)
		blocks := countType(t, replay.EventBlock)
		if !t.Turnover && (casualties > 0 || blocks >= 2) {
			continue
		}
		sev := SeverityMedium
		if t.Turnover {
			sev = SeverityHigh
		}
		rec := recWord(ctx,
			"Save the blitz for a shot at the carrier or a hole your runner can actually use.",
			"Blitz the carrier or the cage corner that frees a sack, not a spare lineman.",
			"Spend the blitz where it changes the play, not on a low-value target.")
		out = append(out, newFinding("blitz-value", t.Number, sev,
			fmt.Sprintf("Low-value blitz on turn %d", t.Number),
			"The turn's blitz produced neither a casualty nor sustained blocking pressure.",
			rec, nil))
	}
	return out
}

// foulTiming flags fouls thrown before the ball situation was settled, and
// any foul on a turnover turn.
func foulTiming(turns []replay.Turn, ctx Context) []Finding {
	var out []Finding
	for _, t := range turns {
		if foulHits(t) == 0 {
			continue
		}
		if !foulBeforeBall(t) && !t.Turnover {
			continue
		}
		sev := SeverityMedium
		if t.Turnover {
			sev = SeverityHigh
		}
		rec := recWord(ctx,
			"Foul last, after the ball is safe — a sent-off player mid-drive costs the drive.",
			"Only foul when the board state is already won for the turn; numbers win defense.",
			"Foul as the turn's final action, once nothing else depends on player count.")
		out = append(out, newFinding("foul-timing", t.Number, sev,
			fmt.Sprintf("Poorly timed foul on turn %d", t.Number),
			"A foul was committed before the ball situation was resolved.",
			rec, nil))
	}
	return out
}

func isFoulEvent(ev replay.Event) bool {
	return strings.Contains(strings.ToLower(ev.RawTag), "foul")
}

// recWord picks recommendation wording for the analysis mode.
func recWord(ctx Context, offense, defense, mixed string) string {
	switch ctx.Mode {
	case ModeOffense:
		return offense
	case ModeDefense:
		return defense
	default:
		return mixed
	}
}
