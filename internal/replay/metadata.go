package replay

import (
	"encoding/xml"
	"sort"
	"strings"
)

// rootInfo reads the document's root element name and its attributes. The
// attributes are kept as opaque metadata; nothing downstream interprets
// them, they only surface in the report for observability.
func rootInfo(xmlText string) (string, map[string]string) {
	meta := make(map[string]string)
	dec := xml.NewDecoder(strings.NewReader(xmlText))
	for {
		tok, err := dec.Token()
		if err != nil {
			return fallbackRootTag(xmlText), meta
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		for _, attr := range start.Attr {
			meta[attr.Name.Local] = attr.Value
		}
		return start.Name.Local, meta
	}
}

// fallbackRootTag recovers the root tag name by hand when the document is
// too malformed for encoding/xml. Replays from older client builds carry
// stray control bytes in text nodes, which trips the strict decoder.
func fallbackRootTag(xmlText string) string {
	s := strings.TrimSpace(xmlText)
	for {
		at := strings.IndexByte(s, '<')
		if at < 0 || at+1 >= len(s) {
			return ""
		}
		rest := s[at+1:]
		if strings.HasPrefix(rest, "?") || strings.HasPrefix(rest, "!") {
			gt := strings.IndexByte(rest, '>')
			if gt < 0 {
				return ""
			}
			s = rest[gt+1:]
			continue
		}
		end := strings.IndexAny(rest, " \t\r\n/>")
		if end < 0 {
			return rest
		}
		return rest[:end]
	}
}

type teamElement struct {
	ID      string `xml:"Id,attr"`
	Name    string `xml:"Name,attr"`
	Coach   string `xml:"Coach,attr"`
	Players []struct {
		ID string `xml:"Id,attr"`
	} `xml:"Player"`
}

// extractTeams pulls <Team> declarations out of the document using the same
// snippet capture as the event scan, then decodes each snippet on its own.
// The roster is returned as sorted composite "teamID:playerID" keys.
func extractTeams(xmlText string) ([]Team, []string) {
	var teams []Team
	rosterSet := make(map[string]bool)

	pos := 0
	for {
		at := indexTag(xmlText, pos, "Team")
		if at < 0 {
			break
		}
		snippet, _, next, ok := captureElement(xmlText, at, "Team")
		if !ok {
			pos = at + 1
			continue
		}
		pos = next

		var te teamElement
		if err := xml.Unmarshal([]byte(snippet), &te); err != nil {
			continue
		}
		id := normalizeID(te.ID)
		if id == "" {
			continue
		}
		teams = append(teams, Team{ID: id, Name: strings.TrimSpace(te.Name), Coach: strings.TrimSpace(te.Coach)})
		for _, pl := range te.Players {
			if pid := normalizeID(pl.ID); pid != "" {
				rosterSet[id+":"+pid] = true
			}
		}
	}

	roster := make([]string, 0, len(rosterSet))
	for key := range rosterSet {
		roster = append(roster, key)
	}
	sort.Strings(roster)
	return teams, roster
}
