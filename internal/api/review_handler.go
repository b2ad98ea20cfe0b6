package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/review"
)

// ── Request / Response types ────────────────────────────────────────────────

type ReviewQuestionView struct {
	Question                QuestionView `json:"question"`
	Status                  string       `json:"status"`
	PriorityScore           int          `json:"priority_score"`
	IncorrectCount          int          `json:"incorrect_count"`
	ConsecutiveCorrectCount int          `json:"consecutive_correct_count"`
	LastAnsweredAt          time.Time    `json:"last_answered_at"`
}

type ReviewQuestionsResponse struct {
	Questions []ReviewQuestionView `json:"questions"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// GET /review/questions?category=journal&status=priority_review&limit=20
func (h *Handler) listReviewQuestions(w http.ResponseWriter, r *http.Request) {
	var filter review.Filter
	if v := r.URL.Query().Get("category"); v != "" {
		category := question.Category(v)
		if !category.Valid() {
			respondError(w, http.StatusBadRequest, "unknown category")
			return
		}
		filter.Category = &category
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := review.Status(v)
		if status != review.StatusNeedsReview && status != review.StatusPriorityReview {
			respondError(w, http.StatusBadRequest, "status must be needs_review or priority_review")
			return
		}
		filter.Status = &status
	}
	if v := r.URL.Query().Get("min_priority"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "min_priority must be an integer")
			return
		}
		filter.MinPriority = &p
	}
	if v := r.URL.Query().Get("max_priority"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "max_priority must be an integer")
			return
		}
		filter.MaxPriority = &p
	}
	if v := r.URL.Query().Get("answered_before"); v != "" {
		before, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "answered_before must be RFC3339")
			return
		}
		filter.AnsweredBefore = &before
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	entries, err := h.review.Queue(r.Context(), filter)
	if h.handleStoreError(w, err, "review queue") {
		return
	}

	views := make([]ReviewQuestionView, 0, len(entries))
	for _, e := range entries {
		views = append(views, ReviewQuestionView{
			Question:                toQuestionView(e.Question),
			Status:                  string(e.Item.Status),
			PriorityScore:           e.Item.PriorityScore,
			IncorrectCount:          e.Item.IncorrectCount,
			ConsecutiveCorrectCount: e.Item.ConsecutiveCorrectCount,
			LastAnsweredAt:          e.Item.LastAnsweredAt,
		})
	}
	respondJSON(w, http.StatusOK, ReviewQuestionsResponse{Questions: views})
}

// GET /review/statistics
func (h *Handler) getReviewStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.ReviewStatistics(r.Context())
	if h.handleStoreError(w, err, "review statistics") {
		return
	}

	type categoryStats struct {
		NeedsReview     int     `json:"needs_review"`
		PriorityReview  int     `json:"priority_review"`
		AveragePriority float64 `json:"average_priority"`
	}
	resp := struct {
		TotalItems      int                      `json:"total_items"`
		NeedsReview     int                      `json:"needs_review"`
		PriorityReview  int                      `json:"priority_review"`
		MasteredTotal   int                      `json:"mastered_total"`
		AveragePriority float64                  `json:"average_priority"`
		ByCategory      map[string]categoryStats `json:"by_category"`
	}{
		TotalItems:      stats.TotalItems,
		NeedsReview:     stats.NeedsReview,
		PriorityReview:  stats.PriorityReview,
		MasteredTotal:   stats.MasteredTotal,
		AveragePriority: stats.AveragePriority,
		ByCategory:      make(map[string]categoryStats, len(stats.ByCategory)),
	}
	for cat, cs := range stats.ByCategory {
		resp.ByCategory[string(cat)] = categoryStats{
			NeedsReview:     cs.NeedsReview,
			PriorityReview:  cs.PriorityReview,
			AveragePriority: cs.AveragePriority,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
