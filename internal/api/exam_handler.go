package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/mockexam"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/service"
)

// ── Request / Response types ────────────────────────────────────────────────

type MockExamView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	TimeLimitMin  int    `json:"time_limit_min"`
	TotalScore    int    `json:"total_score"`
	PassingScore  int    `json:"passing_score"`
	QuestionCount int    `json:"question_count"`
}

type ListMockExamsResponse struct {
	Exams []MockExamView `json:"exams"`
}

// ExamStateView hides the canonical answer of the current question.
type ExamStateView struct {
	SessionID     string        `json:"session_id"`
	ExamID        string        `json:"exam_id"`
	ExamName      string        `json:"exam_name"`
	QuestionCount int           `json:"question_count"`
	AnsweredCount int           `json:"answered_count"`
	RemainingMs   int64         `json:"remaining_ms"`
	Question      *QuestionView `json:"question,omitempty"`
	Section       int           `json:"section,omitempty"`
	Points        int           `json:"points,omitempty"`
}

type SubmitExamAnswerRequest struct {
	Answer       question.AnswerPayload `json:"answer"`
	AnswerTimeMs int64                  `json:"answer_time_ms"`
}

func toExamStateView(state *service.ExamState) ExamStateView {
	view := ExamStateView{
		SessionID:     state.SessionID,
		ExamID:        state.ExamID,
		ExamName:      state.ExamName,
		QuestionCount: state.QuestionCount,
		AnsweredCount: state.AnsweredCount,
		RemainingMs:   state.RemainingMs,
		Section:       state.Section,
		Points:        state.Points,
	}
	if state.Question != nil {
		qv := toQuestionView(state.Question)
		view.Question = &qv
	}
	return view
}

// ── Handlers ────────────────────────────────────────────────────────────────

// GET /mock-exams
func (h *Handler) listMockExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.exam.ListExams(r.Context())
	if h.handleStoreError(w, err, "mock exams") {
		return
	}

	views := make([]MockExamView, 0, len(exams))
	for _, exam := range exams {
		views = append(views, MockExamView{
			ID:            exam.ID,
			Name:          exam.Name,
			Description:   exam.Description,
			TimeLimitMin:  int(exam.TimeLimit / time.Minute),
			TotalScore:    exam.TotalScore,
			PassingScore:  exam.PassingScore,
			QuestionCount: exam.QuestionCount(),
		})
	}
	respondJSON(w, http.StatusOK, ListMockExamsResponse{Exams: views})
}

// POST /mock-exams/{examID}/start
func (h *Handler) startMockExam(w http.ResponseWriter, r *http.Request) {
	state, err := h.exam.Start(r.Context(), r.PathValue("examID"))
	if errors.Is(err, service.ErrExamInProgress) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	if h.handleStoreError(w, err, "mock exam") {
		return
	}
	respondJSON(w, http.StatusCreated, toExamStateView(state))
}

// GET /mock-exams/active
func (h *Handler) getMockExamState(w http.ResponseWriter, r *http.Request) {
	state, err := h.exam.State(r.Context())
	if errors.Is(err, service.ErrNoActiveSession) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if h.handleStoreError(w, err, "mock exam session") {
		return
	}
	respondJSON(w, http.StatusOK, toExamStateView(state))
}

// POST /mock-exams/active/answers
func (h *Handler) submitMockExamAnswer(w http.ResponseWriter, r *http.Request) {
	var req SubmitExamAnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AnswerTimeMs <= 0 {
		respondError(w, http.StatusBadRequest, "answer_time_ms must be positive")
		return
	}

	ack, err := h.exam.SubmitAnswer(r.Context(), req.Answer, req.AnswerTimeMs)
	switch {
	case errors.Is(err, service.ErrNoActiveSession):
		respondError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, service.ErrSessionExpired):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, mockexam.ErrNoMoreQuestion):
		respondError(w, http.StatusConflict, "every question has been answered")
		return
	}
	if h.handleStoreError(w, err, "mock exam session") {
		return
	}
	respondJSON(w, http.StatusOK, ack)
}

// POST /mock-exams/active/finish
func (h *Handler) finishMockExam(w http.ResponseWriter, r *http.Request) {
	result, err := h.exam.Finish(r.Context())
	if errors.Is(err, service.ErrNoActiveSession) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if h.handleStoreError(w, err, "mock exam session") {
		return
	}
	respondJSON(w, http.StatusOK, toExamResultView(result))
}

// POST /mock-exams/active/abandon
func (h *Handler) abandonMockExam(w http.ResponseWriter, r *http.Request) {
	err := h.exam.Abandon(r.Context())
	if errors.Is(err, service.ErrNoActiveSession) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if h.handleStoreError(w, err, "mock exam session") {
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
}

// ── Result views ────────────────────────────────────────────────────────────

type ExamSectionResultView struct {
	Number   int    `json:"number"`
	Category string `json:"category"`
	Score    int    `json:"score"`
	MaxScore int    `json:"max_score"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
}

type ExamQuestionResultView struct {
	QuestionID   string `json:"question_id"`
	Section      int    `json:"section"`
	MaxPoints    int    `json:"max_points"`
	EarnedPoints int    `json:"earned_points"`
	IsCorrect    bool   `json:"is_correct"`
	Answered     bool   `json:"answered"`
}

type ExamResultView struct {
	ExamID     string                   `json:"exam_id"`
	TotalScore int                      `json:"total_score"`
	MaxScore   int                      `json:"max_score"`
	IsPassed   bool                     `json:"is_passed"`
	DurationMs int64                    `json:"duration_ms"`
	TimedOut   bool                     `json:"timed_out"`
	Sections   []ExamSectionResultView  `json:"sections"`
	Questions  []ExamQuestionResultView `json:"questions"`
}

func toExamResultView(result *mockexam.Result) ExamResultView {
	view := ExamResultView{
		ExamID:     result.ExamID,
		TotalScore: result.TotalScore,
		MaxScore:   result.MaxScore,
		IsPassed:   result.IsPassed,
		DurationMs: result.Duration.Milliseconds(),
		TimedOut:   result.TimedOut,
	}
	for _, sec := range result.Sections {
		view.Sections = append(view.Sections, ExamSectionResultView{
			Number:   sec.Number,
			Category: string(sec.Category),
			Score:    sec.Score,
			MaxScore: sec.MaxScore,
			Correct:  sec.Correct,
			Total:    sec.Total,
		})
	}
	for _, qr := range result.Questions {
		view.Questions = append(view.Questions, ExamQuestionResultView{
			QuestionID:   qr.QuestionID,
			Section:      qr.Section,
			MaxPoints:    qr.MaxPoints,
			EarnedPoints: qr.EarnedPoints,
			IsCorrect:    qr.IsCorrect,
			Answered:     qr.Answered,
		})
	}
	return view
}
