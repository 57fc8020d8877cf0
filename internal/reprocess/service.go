// Package reprocess re-runs the analysis pipeline over archived raw
// replays. Rule heuristics evolve; reprocessing lets the archive catch up
// without anyone re-uploading anything.
package reprocess

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fortuna/victoria/internal/report"
	"github.com/fortuna/victoria/internal/store"
	"github.com/fortuna/victoria/internal/store/repository"
)

// batchSize bounds how many archived replays one run picks up.
const batchSize = 500

// workers bounds concurrent pipeline runs; each replay is independent.
const workers = 4

// Status describes the current or last reprocessing run.
type Status struct {
	Running     bool       `json:"running"`
	Total       int        `json:"total"`
	Processed   int        `json:"processed"`
	Failed      int        `json:"failed"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	LastFailure string     `json:"last_failure,omitempty"`
}

// Service coordinates reprocessing runs. At most one run is active.
type Service struct {
	repo    *repository.ReportRepository
	reports *report.Service
	logger  *zap.Logger

	mu     sync.Mutex
	status Status
}

// NewService creates a reprocessing service.
func NewService(repo *repository.ReportRepository, reports *report.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, reports: reports, logger: logger}
}

// Status returns a snapshot of the run state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start kicks off an asynchronous run. It fails if one is already active.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.status.Running {
		s.mu.Unlock()
		return fmt.Errorf("reprocessing already running")
	}
	now := time.Now().UTC()
	s.status = Status{Running: true, StartedAt: &now}
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

func (s *Service) run(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		now := time.Now().UTC()
		s.status.Running = false
		s.status.FinishedAt = &now
		s.mu.Unlock()
	}()

	replays, err := s.repo.ListReplays(ctx, batchSize)
	if err != nil {
		s.logger.Error("reprocess: listing replays failed", zap.Error(err))
		s.recordFailure(err.Error())
		return
	}

	s.mu.Lock()
	s.status.Total = len(replays)
	s.mu.Unlock()

	s.logger.Info("reprocess: starting", zap.Int("replays", len(replays)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, rec := range replays {
		rec := rec
		g.Go(func() error {
			if err := s.reprocessOne(gctx, rec); err != nil {
				s.logger.Warn("reprocess: replay failed",
					zap.String("match_id", rec.MatchID), zap.Error(err))
				s.recordFailure(fmt.Sprintf("%s: %v", rec.MatchID, err))
			}
			s.mu.Lock()
			s.status.Processed++
			s.mu.Unlock()
			return nil
		})
	}
	// Workers swallow per-replay errors, so Wait only fails on context
	// cancellation.
	if err := g.Wait(); err != nil {
		s.recordFailure(err.Error())
	}

	s.logger.Info("reprocess: finished",
		zap.Int("processed", s.Status().Processed),
		zap.Int("failed", s.Status().Failed))
}

func (s *Service) reprocessOne(ctx context.Context, rec *store.ReplayRecord) error {
	rep, err := s.reports.Generate(ctx, rec.RawReplay)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return s.repo.SaveReport(ctx, &store.ReportRecord{
		MatchID:     rep.MatchID,
		TeamCount:   rep.Summary.TeamCount,
		TurnCount:   rep.Summary.TurnCount,
		ReportJSON:  payload,
		GeneratedAt: rep.GeneratedAt,
	})
}

func (s *Service) recordFailure(msg string) {
	s.mu.Lock()
	s.status.Failed++
	s.status.LastFailure = msg
	s.mu.Unlock()
}
