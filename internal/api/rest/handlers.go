package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fortuna/victoria/internal/cache"
	"github.com/fortuna/victoria/internal/config"
	"github.com/fortuna/victoria/internal/decode"
	"github.com/fortuna/victoria/internal/publisher"
	"github.com/fortuna/victoria/internal/replay"
	"github.com/fortuna/victoria/internal/report"
	"github.com/fortuna/victoria/internal/reprocess"
	"github.com/fortuna/victoria/internal/store"
	"github.com/fortuna/victoria/internal/store/repository"
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	db           *store.Database
	reportSvc    *report.Service
	reportRepo   *repository.ReportRepository
	cache        *cache.RedisCache
	publisher    *publisher.RedisPublisher
	reprocessSvc *reprocess.Service
	limits       config.Limits
	logger       *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(db *store.Database, reportSvc *report.Service, redisCache *cache.RedisCache, pub *publisher.RedisPublisher, reprocessSvc *reprocess.Service, limits config.Limits, logger *zap.Logger) *Handler {
	return &Handler{
		db:           db,
		reportSvc:    reportSvc,
		reportRepo:   repository.NewReportRepository(db),
		cache:        redisCache,
		publisher:    pub,
		reprocessSvc: reprocessSvc,
		limits:       limits,
		logger:       logger,
	}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "victoria",
		"version": "1.0.0",
	})
}

// UploadReplay accepts a raw replay (literal XML or the base64 container),
// runs the analysis pipeline under the configured wall-clock budget, and
// returns the generated report. Identical content re-uploads are served
// from cache via the content-hash match id.
func (h *Handler) UploadReplay(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxUploadBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Replay exceeds upload size limit", nil)
			return
		}
		respondError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	raw := string(body)

	// Cache hit means this exact content was already analyzed.
	if cached, err := h.cache.GetReport(r.Context(), replay.ContentID(raw)); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(cached)
		return
	} else if err != redis.Nil {
		h.logger.Warn("cache lookup failed", zap.Error(err))
	}

	// The analysis budget is a resource protection, not a retry candidate:
	// work past the deadline is discarded.
	ctx, cancel := context.WithTimeout(r.Context(), h.limits.AnalysisBudget())
	defer cancel()

	rep, err := h.reportSvc.Generate(ctx, raw)
	if err != nil {
		switch {
		case errors.Is(err, decode.ErrValidation):
			respondError(w, http.StatusBadRequest, "Replay rejected", err)
		case errors.Is(err, context.DeadlineExceeded):
			respondError(w, http.StatusServiceUnavailable, "Analysis exceeded the processing budget", nil)
		default:
			h.logger.Error("report generation failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to analyze replay", nil)
		}
		return
	}

	h.persistReport(r.Context(), raw, rep)

	respondJSON(w, http.StatusOK, rep)
}

// persistReport archives, caches and announces a generated report. Failures
// here are logged but do not fail the upload: the report was generated and
// the client gets it either way.
func (h *Handler) persistReport(ctx context.Context, raw string, rep *report.Report) {
	payload, err := json.Marshal(rep)
	if err != nil {
		h.logger.Error("marshaling report failed", zap.String("match_id", rep.MatchID), zap.Error(err))
		return
	}

	if err := h.reportRepo.SaveReplay(ctx, &store.ReplayRecord{
		MatchID:   rep.MatchID,
		Format:    rep.Summary.Format,
		RawReplay: raw,
	}); err != nil {
		h.logger.Error("archiving replay failed", zap.String("match_id", rep.MatchID), zap.Error(err))
	}
	if err := h.reportRepo.SaveReport(ctx, &store.ReportRecord{
		MatchID:     rep.MatchID,
		TeamCount:   rep.Summary.TeamCount,
		TurnCount:   rep.Summary.TurnCount,
		ReportJSON:  payload,
		GeneratedAt: rep.GeneratedAt,
	}); err != nil {
		h.logger.Error("archiving report failed", zap.String("match_id", rep.MatchID), zap.Error(err))
	}

	if err := h.cache.SetReport(ctx, rep.MatchID, payload); err != nil {
		h.logger.Warn("caching report failed", zap.String("match_id", rep.MatchID), zap.Error(err))
	}

	if err := h.publisher.PublishReportGenerated(ctx, publisher.ReportEvent{
		MatchID:     rep.MatchID,
		TeamCount:   rep.Summary.TeamCount,
		TurnCount:   rep.Summary.TurnCount,
		GeneratedAt: rep.GeneratedAt,
	}); err != nil {
		h.logger.Warn("publishing report event failed", zap.String("match_id", rep.MatchID), zap.Error(err))
	}
}

// GetReport returns an archived report by match id.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	matchID := vars["matchID"]

	if cached, err := h.cache.GetReport(r.Context(), matchID); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(cached)
		return
	}

	rec, err := h.reportRepo.GetReport(r.Context(), matchID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Report not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(rec.ReportJSON)
}

// ListReports returns recent report metadata.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	limit := 20 // default
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	records, err := h.reportRepo.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch reports", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reports": records,
		"count":   len(records),
	})
}

// StartReprocess kicks off re-analysis of archived replays.
func (h *Handler) StartReprocess(w http.ResponseWriter, r *http.Request) {
	if err := h.reprocessSvc.Start(context.Background()); err != nil {
		respondError(w, http.StatusConflict, "Reprocessing already running", err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"message": "Reprocessing started"})
}

// ReprocessStatus reports the reprocessing run state.
func (h *Handler) ReprocessStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.reprocessSvc.Status())
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}
