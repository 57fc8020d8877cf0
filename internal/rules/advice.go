package rules

import "sort"

// maxAdviceItems caps a rendered advice list.
const maxAdviceItems = 16

// Advice is a finding reformatted for player-facing presentation.
type Advice struct {
	Turn             int      `json:"turn"`
	WhatHappened     string   `json:"what_happened"`
	WhyRisky         string   `json:"why_risky"`
	SaferAlternative string   `json:"safer_alternative"`
	Confidence       string   `json:"confidence"`
	Evidence         []string `json:"evidence,omitempty"`
}

// ToAdvice converts findings to turn-ordered advice. Findings without a turn
// number carry no actionable moment and are dropped. The severity pre-sort
// matters even though the final order is strictly by turn: the re-sort is
// stable, so findings on the same turn surface highest severity first.
func ToAdvice(findings []Finding) []Advice {
	selected := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Turn > 0 {
			selected = append(selected, f)
		}
	}

	SortForReport(selected)
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Turn < selected[j].Turn
	})

	if len(selected) > maxAdviceItems {
		selected = selected[:maxAdviceItems]
	}

	advice := make([]Advice, 0, len(selected))
	for _, f := range selected {
		advice = append(advice, Advice{
			Turn:             f.Turn,
			WhatHappened:     f.Title,
			WhyRisky:         f.Detail,
			SaferAlternative: f.Recommendation,
			Confidence:       string(f.Severity),
			Evidence:         f.Evidence,
		})
	}
	return advice
}
