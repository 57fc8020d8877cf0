// Package report orchestrates the decode→parse→attribute→analyze pipeline
// and assembles the structured coaching report. The pipeline itself is
// single-threaded and pure; only the independent per-team scoped analyses
// run concurrently, which is safe because each operates on its own value
// copy of the turns.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fortuna/victoria/internal/decode"
	"github.com/fortuna/victoria/internal/replay"
	"github.com/fortuna/victoria/internal/rules"
	"github.com/fortuna/victoria/internal/scope"
	"github.com/fortuna/victoria/internal/timeline"
)

// Limits bounds resource usage during report generation.
type Limits struct {
	MaxDecodedChars int
	PerCategoryCap  int
}

// DefaultLimits matches the shipped configuration.
func DefaultLimits() Limits {
	return Limits{MaxDecodedChars: 10_000_000, PerCategoryCap: 6}
}

// Service generates coaching reports from raw replay uploads.
type Service struct {
	logger *zap.Logger
	limits Limits
	now    func() time.Time
}

// NewService creates a report service. A nil logger disables logging.
func NewService(logger *zap.Logger, limits Limits) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limits.MaxDecodedChars <= 0 {
		limits.MaxDecodedChars = DefaultLimits().MaxDecodedChars
	}
	if limits.PerCategoryCap <= 0 {
		limits.PerCategoryCap = DefaultLimits().PerCategoryCap
	}
	return &Service{logger: logger, limits: limits, now: time.Now}
}

// Generate runs the full pipeline for one upload. Validation failures wrap
// decode.ErrValidation; a replay with no recognized structural markers is
// not an error and yields a degenerate report with zero turns.
func (s *Service) Generate(ctx context.Context, raw string) (*Report, error) {
	decoded, err := decode.Decode(raw, s.limits.MaxDecodedChars)
	if err != nil {
		return nil, err
	}

	model := replay.Parse(decoded.XML)
	model.MatchID = replay.ContentID(raw)
	s.logger.Debug("replay parsed",
		zap.String("match_id", model.MatchID),
		zap.String("format", decoded.Format),
		zap.Int("turns", len(model.Turns)),
		zap.Int("teams", len(model.Teams)),
		zap.Int("unknown_codes", len(model.UnknownCodes)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolver := scope.NewResolver(model)
	playable := resolver.PlayableTeams(model.Turns)

	cfg := rules.Config{PerCategoryCap: s.limits.PerCategoryCap}
	rep := &Report{
		MatchID:     model.MatchID,
		GeneratedAt: s.now().UTC(),
		Summary:     buildSummary(decoded.Format, model),
		Match:       analyze(model.Turns, rules.Context{Mode: rules.ModeMixed}, cfg),
	}

	// Scoped views are built up front so the offense/defense framing can be
	// decided from carrier possession before the analyses fan out.
	views := make([]scope.View, len(playable))
	for i, team := range playable {
		views[i] = resolver.ForTeam(model, team)
	}
	modes := teamModes(views)

	g, gctx := errgroup.WithContext(ctx)
	teamReports := make([]TeamReport, len(views))
	for i := range views {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			view := views[i]
			ctxArg := rules.Context{Mode: modes[i], TeamName: view.Team.Name}
			teamReports[i] = TeamReport{
				Team:      view.Team,
				TurnCount: len(view.Turns),
				Analysis:  analyze(view.Turns, ctxArg, cfg),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoped analysis: %w", err)
	}
	rep.Teams = teamReports

	return rep, nil
}

func analyze(turns []replay.Turn, ctx rules.Context, cfg rules.Config) Analysis {
	findings := rules.Analyze(turns, ctx, cfg)
	rules.SortForReport(findings)
	return Analysis{
		Mode:     ctx.Mode,
		Findings: findings,
		Advice:   rules.ToAdvice(findings),
		Timeline: timeline.Build(turns),
	}
}

// teamModes frames each scoped view as offense or defense by carrier
// possession; equal possession falls back to mixed wording.
func teamModes(views []scope.View) []rules.Mode {
	modes := make([]rules.Mode, len(views))
	for i := range modes {
		modes[i] = rules.ModeMixed
	}
	if len(views) != 2 {
		return modes
	}
	held := [2]int{}
	for i, v := range views {
		for _, t := range v.Turns {
			if t.BallCarrier != "" {
				held[i]++
			}
		}
	}
	switch {
	case held[0] > held[1]:
		modes[0], modes[1] = rules.ModeOffense, rules.ModeDefense
	case held[1] > held[0]:
		modes[0], modes[1] = rules.ModeDefense, rules.ModeOffense
	}
	return modes
}

func buildSummary(format string, m *replay.Model) Summary {
	summary := Summary{
		Format:    format,
		TeamCount: len(m.Teams),
		TurnCount: len(m.Turns),
		Teams:     append([]replay.Team(nil), m.Teams...),
	}
	for code, count := range m.UnknownCodes {
		summary.UnknownCodes = append(summary.UnknownCodes, UnknownCodeCount{
			Category: code.Category,
			Code:     code.Code,
			Count:    count,
		})
	}
	sort.Slice(summary.UnknownCodes, func(i, j int) bool {
		a, b := summary.UnknownCodes[i], summary.UnknownCodes[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Code < b.Code
	})
	return summary
}
