package replay

import (
	"strconv"
	"strings"
)

// The outer scan recognizes exactly these four structural markers at the
// top level. Nested occurrences are unsupported input and are not repaired.
const (
	tagSequence     = "EventExecuteSequence"
	tagEndTurn      = "EventEndTurn"
	tagGamerChanged = "EventActiveGamerChanged"
	tagBallCarrier  = "BallCarrier"
)

// snapshotLimit caps the per-turn raw snapshot so a hostile replay cannot
// balloon report payloads.
const snapshotLimit = 2048

// Parse reconstructs a replay model from canonical XML. It never fails:
// input with no recognized structural markers yields a model with an empty
// turn list, which signals an unsupported schema variant to the caller.
func Parse(xmlText string) *Model {
	m := &Model{
		UnknownCodes: make(map[UnknownCode]int),
		Metadata:     make(map[string]string),
	}
	m.RootTag, m.Metadata = rootInfo(xmlText)
	m.Teams, m.Roster = extractTeams(xmlText)

	p := parser{model: m}
	p.scan(xmlText)
	return m
}

type parser struct {
	model      *Model
	turns      []Turn
	cur        Turn
	rawParts   []string
	carrier    string
	gamer      string
	recognized int
}

func (p *parser) scan(text string) {
	p.cur = Turn{Number: 1}
	pos := 0
	for pos < len(text) {
		name, at := nextMarker(text, pos)
		if at < 0 {
			break
		}
		snippet, inner, next, ok := captureElement(text, at, name)
		if !ok {
			pos = at + 1
			continue
		}
		pos = next
		p.recognized++

		switch name {
		case tagSequence:
			p.handleSequence(inner)
		case tagEndTurn:
			p.handleEndTurn(snippet)
		case tagGamerChanged:
			if f, ok := parseFragment(snippet); ok && f.Gamer != "" {
				p.gamer = f.Gamer
			}
		case tagBallCarrier:
			p.handleBallCarrier(inner)
		}
	}

	if p.recognized == 0 {
		p.model.Turns = nil
		return
	}
	// Flush a trailing partial turn only if it accumulated anything.
	if len(p.cur.Events) > 0 || p.carrier != "" {
		p.finalizeTurn()
	}
	p.model.Turns = p.turns
}

// handleSequence parses one sequence-execute block: at most one step payload
// supplying default ids and a step-type code, plus any number of result
// payloads classified through the mapping table.
func (p *parser) handleSequence(inner string) {
	var step fragment
	step.StepType, step.Action, step.Reason = -1, -1, -1

	if payload, _, ok := firstChild(inner, "Step"); ok {
		if xmlText, ok := decodePayload(payload); ok {
			if f, ok := parseFragment(xmlText); ok {
				step = f
				p.rawParts = append(p.rawParts, f.Root)
			}
		} else {
			p.tally("fragment", "step_undecodable")
		}
	}

	rest := inner
	for {
		payload, next, ok := firstChild(rest, "Result")
		if !ok {
			break
		}
		rest = rest[next:]

		xmlText, ok := decodePayload(payload)
		if !ok {
			p.tally("fragment", "result_undecodable")
			continue
		}
		f, ok := parseFragment(xmlText)
		if !ok {
			p.tally("fragment", "result_unparseable")
			continue
		}
		p.rawParts = append(p.rawParts, f.Root)
		p.classifyResult(f, step)
	}
}

// classifyResult maps a result fragment's root tag to a semantic event,
// propagating the step context as defaults. Unmapped codes are tallied and
// produce no event.
func (p *parser) classifyResult(f, step fragment) {
	ev := Event{
		RawTag:   f.Root,
		PlayerID: defaultID(f.PlayerID, step.PlayerID),
		TargetID: defaultID(f.TargetID, step.TargetID),
		TeamID:   defaultID(f.TeamID, step.TeamID),
		GamerID:  defaultID(f.GamerID, step.GamerID),
	}
	stepType := f.StepType
	if stepType < 0 {
		stepType = step.StepType
	}
	if stepType >= 0 {
		ev.StepCode = stepType
	}
	if f.Action >= 0 {
		ev.ActionCode = f.Action
	}
	if f.Reason >= 0 {
		ev.ReasonCode = f.Reason
	}

	switch f.Root {
	case "ResultBlockRoll", "ResultBlockOutcome", "ResultPushBack":
		ev.Type = EventBlock
	case "ResultUseAction":
		if f.Action == 2 {
			ev.Type = EventBlitz
		} else {
			p.tally("use_action", codeString(f.Action))
			return
		}
	case "ResultRoll":
		if stepType == 1 {
			ev.Type = EventDodge
		} else {
			p.tally("result_roll", codeString(stepType))
			return
		}
	case "QuestionTeamRerollUsage", "ResultTeamRerollUsage":
		ev.Type = EventReroll
	case "ResultInjuryRoll", "ResultCasualtyRoll", "ResultPlayerRemoval":
		ev.Type = EventCasualty
	case "BallStep", "ResultTouchBack":
		ev.Type = EventBallState
	default:
		p.tally("sequence_result", f.Root)
		return
	}

	p.cur.Events = append(p.cur.Events, ev)
}

// handleEndTurn finalizes the current turn and opens the next. Any present
// reason other than 1 (the canonical manual end) is a turnover.
func (p *parser) handleEndTurn(snippet string) {
	f, ok := parseFragment(snippet)
	if !ok {
		f.Reason, f.Finishing = -1, -1
	}
	p.rawParts = append(p.rawParts, tagEndTurn)

	if f.Reason >= 0 {
		p.cur.EndReason = f.Reason
		if f.Reason != 1 {
			p.cur.Turnover = true
			p.cur.Events = append(p.cur.Events, Event{
				Type:       EventTurnover,
				RawTag:     tagEndTurn,
				TeamID:     f.TeamID,
				ReasonCode: f.Reason,
			})
		}
	}
	if f.Finishing >= 0 {
		p.cur.FinishingType = f.Finishing
	}
	if f.TeamID != "" {
		p.cur.TeamID = f.TeamID
	}

	p.finalizeTurn()
}

// handleBallCarrier applies a bare-player-id carrier marker. Empty or "-1"
// clears the carrier; anything else sets it and records a ball_state event.
// Carrier state persists across turns until explicitly changed.
func (p *parser) handleBallCarrier(inner string) {
	id := normalizeID(inner)
	p.rawParts = append(p.rawParts, tagBallCarrier)
	if id == "" {
		p.carrier = ""
		return
	}
	p.carrier = id
	p.cur.Events = append(p.cur.Events, Event{
		Type:     EventBallState,
		RawTag:   tagBallCarrier,
		PlayerID: id,
	})
}

func (p *parser) finalizeTurn() {
	t := &p.cur
	t.BallCarrier = p.carrier
	if t.GamerID == "" {
		t.GamerID = p.gamer
	}
	t.EventCount = len(t.Events)
	t.ActionTokens = actionTokens(t.Events)
	t.Snapshot = compactSnapshot(p.rawParts)

	p.turns = append(p.turns, *t)
	p.rawParts = nil
	p.cur = Turn{Number: t.Number + 1}
}

func (p *parser) tally(category, code string) {
	p.model.UnknownCodes[UnknownCode{Category: category, Code: code}]++
}

// actionTokens derives the deduplicated lowercase token set from the turn's
// event type/tag pairs, preserving first-encounter order.
func actionTokens(events []Event) []string {
	seen := make(map[string]bool)
	var tokens []string
	add := func(tok string) {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	for _, ev := range events {
		add(string(ev.Type))
		add(ev.RawTag)
	}
	return tokens
}

func compactSnapshot(parts []string) string {
	s := strings.Join(parts, " ")
	if len(s) > snapshotLimit {
		s = s[:snapshotLimit]
	}
	return s
}

func defaultID(own, fallback string) string {
	if own != "" {
		return own
	}
	return fallback
}

func codeString(code int) string {
	if code < 0 {
		return "none"
	}
	return strconv.Itoa(code)
}

// nextMarker finds the earliest occurrence of any structural marker at or
// after pos. Tag-name prefixes are boundary-checked so e.g. a
// <BallCarrierHistory> element is not mistaken for a carrier marker.
func nextMarker(text string, pos int) (string, int) {
	bestName, bestAt := "", -1
	for _, name := range []string{tagSequence, tagEndTurn, tagGamerChanged, tagBallCarrier} {
		at := indexTag(text, pos, name)
		if at >= 0 && (bestAt < 0 || at < bestAt) {
			bestName, bestAt = name, at
		}
	}
	return bestName, bestAt
}

func indexTag(text string, pos int, name string) int {
	needle := "<" + name
	for {
		at := strings.Index(text[pos:], needle)
		if at < 0 {
			return -1
		}
		at += pos
		end := at + len(needle)
		if end >= len(text) {
			return -1
		}
		switch text[end] {
		case ' ', '\t', '\r', '\n', '>', '/':
			return at
		}
		pos = at + 1
	}
}

// captureElement extracts one element starting at the marker position,
// handling both self-closed and open/close forms. It returns the full
// snippet, the inner text (empty for self-closed elements), and the scan
// position after the element.
func captureElement(text string, at int, name string) (snippet, inner string, next int, ok bool) {
	gt := strings.IndexByte(text[at:], '>')
	if gt < 0 {
		return "", "", 0, false
	}
	gt += at
	if text[gt-1] == '/' {
		return text[at : gt+1], "", gt + 1, true
	}
	closeTag := "</" + name + ">"
	closeAt := strings.Index(text[gt+1:], closeTag)
	if closeAt < 0 {
		return "", "", 0, false
	}
	closeAt += gt + 1
	return text[at : closeAt+len(closeTag)], text[gt+1 : closeAt], closeAt + len(closeTag), true
}

// firstChild finds the first <name>...</name> child in the block text and
// returns its inner text plus the offset just past it.
func firstChild(block, name string) (inner string, next int, ok bool) {
	at := indexTag(block, 0, name)
	if at < 0 {
		return "", 0, false
	}
	_, inner, next, ok = captureElement(block, at, name)
	return inner, next, ok
}
