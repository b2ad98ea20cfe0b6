// internal/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/export"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/service"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/store"
)

// Handler holds all dependencies needed by HTTP handlers.
// Instead of relying on package-level globals, every handler method
// receives its dependencies through this struct.
type Handler struct {
	learning *service.LearningService
	review   *service.ReviewService
	exam     *service.ExamService
	stats    *service.StatisticsService
	reporter *export.Reporter
	logger   *slog.Logger
}

// NewHandler creates a Handler with the given dependencies.
func NewHandler(
	learning *service.LearningService,
	review *service.ReviewService,
	exam *service.ExamService,
	stats *service.StatisticsService,
	reporter *export.Reporter,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		learning: learning,
		review:   review,
		exam:     exam,
		stats:    stats,
		reporter: reporter,
		logger:   logger,
	}
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes a JSON error body with the given status code.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON parses the request body into v. On failure it writes a
// 400 response and returns false; the caller should return.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// handleStoreError checks for common store errors and writes the appropriate
// HTTP response. Returns true if an error was handled (caller should return).
func (h *Handler) handleStoreError(w http.ResponseWriter, err error, entity string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, entity+" not found")
		return true
	}
	h.logger.Error("store error", "error", err, "entity", entity)
	respondError(w, http.StatusInternalServerError, "internal error")
	return true
}
