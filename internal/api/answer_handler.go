package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/service"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/store"
)

// ── Request / Response types ────────────────────────────────────────────────

type SubmitAnswerRequest struct {
	QuestionID   string                 `json:"question_id"`
	Answer       question.AnswerPayload `json:"answer"`
	AnswerTimeMs int64                  `json:"answer_time_ms"`
	SessionID    *string                `json:"session_id,omitempty"`
	SessionKind  string                 `json:"session_kind,omitempty"`
}

type AttemptView struct {
	ID           string    `json:"id"`
	QuestionID   string    `json:"question_id"`
	IsCorrect    bool      `json:"is_correct"`
	AnswerTimeMs int64     `json:"answer_time_ms"`
	SessionKind  string    `json:"session_kind"`
	AnsweredAt   time.Time `json:"answered_at"`
}

type ListAttemptsResponse struct {
	Attempts []AttemptView `json:"attempts"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /answers
func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req SubmitAnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.QuestionID == "" {
		respondError(w, http.StatusBadRequest, "question_id is required")
		return
	}
	if req.AnswerTimeMs <= 0 {
		respondError(w, http.StatusBadRequest, "answer_time_ms must be positive")
		return
	}

	kind := store.SessionKind(req.SessionKind)
	switch kind {
	case "", store.SessionLearning, store.SessionReview:
	default:
		respondError(w, http.StatusBadRequest, "session_kind must be learning or review")
		return
	}

	result, err := h.learning.SubmitAnswer(r.Context(), service.SubmitAnswerRequest{
		QuestionID:   req.QuestionID,
		Payload:      req.Answer,
		AnswerTimeMs: req.AnswerTimeMs,
		SessionID:    req.SessionID,
		SessionKind:  kind,
	})
	if h.handleStoreError(w, err, "question") {
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GET /attempts?question_id=Q_J_001&limit=50
func (h *Handler) listAttempts(w http.ResponseWriter, r *http.Request) {
	var filter store.AttemptFilter
	if v := r.URL.Query().Get("question_id"); v != "" {
		filter.QuestionID = &v
	}
	if v := r.URL.Query().Get("session_id"); v != "" {
		filter.SessionID = &v
	}
	if v := r.URL.Query().Get("category"); v != "" {
		category := question.Category(v)
		if !category.Valid() {
			respondError(w, http.StatusBadRequest, "unknown category")
			return
		}
		filter.Category = &category
	}
	if v := r.URL.Query().Get("correct"); v != "" {
		correct, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "correct must be true or false")
			return
		}
		filter.IsCorrect = &correct
	}
	if v := r.URL.Query().Get("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}
		filter.From = &from
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "to must be RFC3339")
			return
		}
		filter.To = &to
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	attempts, err := h.learning.AttemptHistory(r.Context(), filter)
	if h.handleStoreError(w, err, "attempts") {
		return
	}

	views := make([]AttemptView, 0, len(attempts))
	for _, a := range attempts {
		views = append(views, AttemptView{
			ID:           a.ID,
			QuestionID:   a.QuestionID,
			IsCorrect:    a.IsCorrect,
			AnswerTimeMs: a.AnswerTimeMs,
			SessionKind:  string(a.SessionKind),
			AnsweredAt:   a.AnsweredAt,
		})
	}
	respondJSON(w, http.StatusOK, ListAttemptsResponse{Attempts: views})
}
