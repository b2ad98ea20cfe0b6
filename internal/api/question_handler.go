package api

import (
	"net/http"
	"strconv"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/store"
)

// ── Request / Response types ────────────────────────────────────────────────

// QuestionView is a question without its canonical answer. The answer
// only travels in submission feedback and exam results.
type QuestionView struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Difficulty  int    `json:"difficulty"`
	Prompt      string `json:"prompt"`
	DisplayName string `json:"category_display_name"`
}

func toQuestionView(q *question.Question) QuestionView {
	return QuestionView{
		ID:          q.ID,
		Category:    string(q.Category),
		Difficulty:  q.Difficulty,
		Prompt:      q.Prompt,
		DisplayName: q.Category.DisplayName(),
	}
}

type ListQuestionsResponse struct {
	Questions []QuestionView `json:"questions"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// GET /questions?category=journal&difficulty=1&limit=20
func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	category := question.Category(r.URL.Query().Get("category"))
	if !category.Valid() {
		respondError(w, http.StatusBadRequest, "unknown or missing category")
		return
	}

	var filter store.QuestionFilter
	if v := r.URL.Query().Get("difficulty"); v != "" {
		difficulty, err := strconv.Atoi(v)
		if err != nil || difficulty < 1 || difficulty > 3 {
			respondError(w, http.StatusBadRequest, "difficulty must be 1..3")
			return
		}
		filter.Difficulty = &difficulty
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	questions, err := h.learning.ListQuestions(r.Context(), category, filter)
	if h.handleStoreError(w, err, "questions") {
		return
	}

	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, toQuestionView(q))
	}
	respondJSON(w, http.StatusOK, ListQuestionsResponse{Questions: views})
}

// GET /questions/{questionID}
func (h *Handler) getQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.learning.GetQuestion(r.Context(), r.PathValue("questionID"))
	if h.handleStoreError(w, err, "question") {
		return
	}
	respondJSON(w, http.StatusOK, toQuestionView(q))
}
