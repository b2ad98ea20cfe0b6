// internal/api/routes.go
package api

import "net/http"

// RegisterRoutes attaches every endpoint to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)

	// Content
	mux.HandleFunc("GET /questions", h.listQuestions)
	mux.HandleFunc("GET /questions/{questionID}", h.getQuestion)

	// Learning
	mux.HandleFunc("POST /answers", h.submitAnswer)
	mux.HandleFunc("GET /attempts", h.listAttempts)

	// Review
	mux.HandleFunc("GET /review/questions", h.listReviewQuestions)
	mux.HandleFunc("GET /review/statistics", h.getReviewStatistics)

	// Mock exams
	mux.HandleFunc("GET /mock-exams", h.listMockExams)
	mux.HandleFunc("POST /mock-exams/{examID}/start", h.startMockExam)
	mux.HandleFunc("GET /mock-exams/active", h.getMockExamState)
	mux.HandleFunc("POST /mock-exams/active/answers", h.submitMockExamAnswer)
	mux.HandleFunc("POST /mock-exams/active/finish", h.finishMockExam)
	mux.HandleFunc("POST /mock-exams/active/abandon", h.abandonMockExam)

	// Statistics and export
	mux.HandleFunc("GET /statistics", h.getStatistics)
	mux.HandleFunc("GET /export/report", h.exportReport)
}

// GET /health
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
