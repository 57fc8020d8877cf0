package replay

import (
	"encoding/base64"
	"encoding/xml"
	"strconv"
	"strings"
)

// fragment is the decoded root element of an embedded step or result
// payload. Attribute names vary by fragment kind; absent numeric codes are
// reported as -1 so a legitimate 0 stays distinguishable.
type fragment struct {
	Root      string
	PlayerID  string
	TargetID  string
	TeamID    string
	GamerID   string
	Gamer     string
	StepType  int
	Action    int
	Reason    int
	Finishing int
	Payload   string
}

// decodePayload recovers embedded XML from a payload carried inside a
// sequence block. The observed container base64-encodes fragments in up to
// two chained passes; depth is fixed at two, deeper nesting is unsupported.
func decodePayload(text string) (string, bool) {
	current := strings.TrimSpace(text)
	for pass := 0; pass < 2; pass++ {
		if strings.HasPrefix(current, "<") {
			return current, true
		}
		decoded, err := base64.StdEncoding.DecodeString(stripSpace(current))
		if err != nil || len(decoded) == 0 {
			return "", false
		}
		current = strings.TrimSpace(string(decoded))
	}
	if strings.HasPrefix(current, "<") {
		return current, true
	}
	return "", false
}

// parseFragment reads the root element of an embedded XML fragment. Only the
// root's name and attributes matter; nested content is kept verbatim as the
// payload for keyword cross-checks downstream.
func parseFragment(xmlText string) (fragment, bool) {
	dec := xml.NewDecoder(strings.NewReader(xmlText))
	for {
		tok, err := dec.Token()
		if err != nil {
			return fragment{}, false
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		f := fragment{
			Root:      start.Name.Local,
			StepType:  -1,
			Action:    -1,
			Reason:    -1,
			Finishing: -1,
			Payload:   xmlText,
		}
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "PlayerId":
				f.PlayerID = normalizeID(attr.Value)
			case "TargetId":
				f.TargetID = normalizeID(attr.Value)
			case "TeamId":
				f.TeamID = normalizeID(attr.Value)
			case "GamerId":
				f.GamerID = normalizeID(attr.Value)
			case "Gamer":
				f.Gamer = normalizeID(attr.Value)
			case "FinishingType":
				f.Finishing = atoiOr(attr.Value, -1)
			case "StepType":
				f.StepType = atoiOr(attr.Value, -1)
			case "Action":
				f.Action = atoiOr(attr.Value, -1)
			case "Reason":
				f.Reason = atoiOr(attr.Value, -1)
			}
		}
		return f, true
	}
}

func normalizeID(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || v == "-1" {
		return ""
	}
	return v
}

func atoiOr(v string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
