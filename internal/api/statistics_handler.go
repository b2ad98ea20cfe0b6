package api

import (
	"net/http"
	"time"
)

// GET /statistics
func (h *Handler) getStatistics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.stats.Summary(r.Context())
	if h.handleStoreError(w, err, "statistics") {
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// GET /export/report
func (h *Handler) exportReport(w http.ResponseWriter, r *http.Request) {
	filename := "study-report-" + time.Now().Format("2006-01-02") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := h.reporter.WriteReport(r.Context(), w); err != nil {
		// Headers are already out; all we can do is log and drop.
		h.logger.Error("failed to stream report", "error", err)
	}
}
