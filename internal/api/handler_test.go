package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/api"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/review"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/export"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/service"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.SQLiteStore) {
	t.Helper()

	s, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	strategy := review.DefaultStrategy()
	stats := service.NewStatisticsService(s, time.Minute, logger)
	learning := service.NewLearningService(s, stats, strategy, logger)
	reviewSvc := service.NewReviewService(s, logger)
	exam := service.NewExamService(s, stats, strategy, logger)
	reporter := export.NewReporter(s, stats, logger)

	mux := http.NewServeMux()
	api.NewHandler(learning, reviewSvc, exam, stats, reporter, logger).RegisterRoutes(mux)

	server := httptest.NewServer(api.Logging(logger)(api.CORS(mux)))
	t.Cleanup(server.Close)
	return server, s
}

func seedJournal(t *testing.T, s *store.SQLiteStore, id string) {
	t.Helper()
	q := &question.Question{
		ID:          id,
		Category:    question.CategoryJournal,
		Difficulty:  1,
		Prompt:      "商品100,000円を仕入れ、代金は現金で支払った。",
		Explanation: "仕入は費用の発生、現金は資産の減少。",
		Correct: question.CorrectAnswer{
			Journal: &question.JournalAnswer{
				Debits:  []question.AmountLine{{Account: "仕入", Amount: 100000}},
				Credits: []question.AmountLine{{Account: "現金", Amount: 100000}},
			},
		},
	}
	if err := s.UpsertQuestion(context.Background(), q); err != nil {
		t.Fatalf("failed to seed question: %v", err)
	}
}

func seedExam(t *testing.T, s *store.SQLiteStore) {
	t.Helper()
	for _, id := range []string{"Q1", "Q2"} {
		seedJournal(t, s, id)
	}
	exam := &question.MockExam{
		ID:           "MOCK_001",
		Name:         "第1回模試",
		TimeLimit:    30 * time.Minute,
		TotalScore:   8,
		PassingScore: 8,
		Sections: []question.ExamSection{
			{Number: 1, Category: question.CategoryJournal, QuestionIDs: []string{"Q1", "Q2"}, PointsPerQuest: 4},
		},
	}
	if err := s.UpsertMockExam(context.Background(), exam); err != nil {
		t.Fatalf("failed to seed exam: %v", err)
	}
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

const correctAnswerJSON = `{
	"question_id": "Q_J_001",
	"answer": {
		"journal": {
			"debits": [{"account": "仕入", "amount": 100000}],
			"credits": [{"account": "現金", "amount": 100000}]
		}
	},
	"answer_time_ms": 2000
}`

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestListQuestions_HidesAnswer(t *testing.T) {
	server, s := newTestServer(t)
	seedJournal(t, s, "Q_J_001")

	resp, err := http.Get(server.URL + "/questions?category=journal")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("Q_J_001")) {
		t.Error("expected the question in the list")
	}
	if bytes.Contains(body, []byte("correct")) || bytes.Contains(body, []byte("debits")) {
		t.Error("the canonical answer must not be exposed by the listing")
	}
}

func TestListQuestions_UnknownCategory(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/questions?category=nope")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSubmitAnswer_Flow(t *testing.T) {
	server, s := newTestServer(t)
	seedJournal(t, s, "Q_J_001")

	resp := postJSON(t, server.URL+"/answers", correctAnswerJSON)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		IsCorrect   bool   `json:"is_correct"`
		Explanation string `json:"explanation"`
		Review      struct {
			Action string `json:"action"`
		} `json:"review"`
	}
	decodeBody(t, resp, &result)
	if !result.IsCorrect {
		t.Error("expected a correct verdict")
	}
	if result.Explanation == "" {
		t.Error("feedback must include the explanation")
	}
	if result.Review.Action != "none" {
		t.Errorf("expected no review change, got %s", result.Review.Action)
	}
}

func TestSubmitAnswer_UnknownQuestion(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/answers", `{"question_id": "missing", "answer": {}, "answer_time_ms": 1000}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSubmitAnswer_RejectsNonPositiveTime(t *testing.T) {
	server, s := newTestServer(t)
	seedJournal(t, s, "Q_J_001")

	for _, body := range []string{
		`{"question_id": "Q_J_001", "answer": {}}`,
		`{"question_id": "Q_J_001", "answer": {}, "answer_time_ms": -5}`,
	} {
		resp := postJSON(t, server.URL+"/answers", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400 for %s, got %d", body, resp.StatusCode)
		}
	}

	// Nothing reached the ledger.
	resp, err := http.Get(server.URL + "/attempts")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	var list struct {
		Attempts []struct{} `json:"attempts"`
	}
	decodeBody(t, resp, &list)
	if len(list.Attempts) != 0 {
		t.Errorf("rejected submissions must not be recorded, got %d attempts", len(list.Attempts))
	}
}

func TestSubmitAnswer_BadSessionKind(t *testing.T) {
	server, s := newTestServer(t)
	seedJournal(t, s, "Q_J_001")

	resp := postJSON(t, server.URL+"/answers",
		`{"question_id": "Q_J_001", "answer": {}, "answer_time_ms": 1000, "session_kind": "mock_exam"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("mock_exam attempts only come from a session, expected 400, got %d", resp.StatusCode)
	}
}

func TestReviewQueue_AfterMistake(t *testing.T) {
	server, s := newTestServer(t)
	seedJournal(t, s, "Q_J_001")

	wrong := strings.Replace(correctAnswerJSON, "100000", "90000", 2)
	resp := postJSON(t, server.URL+"/answers", wrong)
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/review/questions")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var queue struct {
		Questions []struct {
			Status        string `json:"status"`
			PriorityScore int    `json:"priority_score"`
			Question      struct {
				ID string `json:"id"`
			} `json:"question"`
		} `json:"questions"`
	}
	decodeBody(t, resp, &queue)
	if len(queue.Questions) != 1 {
		t.Fatalf("expected 1 review entry, got %d", len(queue.Questions))
	}
	entry := queue.Questions[0]
	if entry.Question.ID != "Q_J_001" || entry.Status != "needs_review" {
		t.Errorf("unexpected queue entry: %+v", entry)
	}
	if entry.PriorityScore != 35 {
		t.Errorf("expected initial priority 35, got %d", entry.PriorityScore)
	}
}

func TestMockExam_HTTPFlow(t *testing.T) {
	server, s := newTestServer(t)
	seedExam(t, s)

	resp := postJSON(t, server.URL+"/mock-exams/MOCK_001/start", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var state struct {
		QuestionCount int `json:"question_count"`
		Question      *struct {
			ID string `json:"id"`
		} `json:"question"`
	}
	decodeBody(t, resp, &state)
	if state.QuestionCount != 2 || state.Question == nil {
		t.Fatalf("unexpected start state: %+v", state)
	}

	resp = postJSON(t, server.URL+"/mock-exams/MOCK_001/start", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 on double start, got %d", resp.StatusCode)
	}

	answer := `{"answer": {"journal": {"debits": [{"account": "仕入", "amount": 100000}], "credits": [{"account": "現金", "amount": 100000}]}}, "answer_time_ms": 1000}`

	resp = postJSON(t, server.URL+"/mock-exams/active/answers",
		strings.Replace(answer, `"answer_time_ms": 1000`, `"answer_time_ms": 0`, 1))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a zero answer time, got %d", resp.StatusCode)
	}

	for i := 0; i < 2; i++ {
		resp = postJSON(t, server.URL+"/mock-exams/active/answers", answer)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("answer %d: expected 200, got %d", i+1, resp.StatusCode)
		}
		var ack struct {
			Accepted  bool `json:"accepted"`
			IsCorrect any  `json:"is_correct"`
		}
		decodeBody(t, resp, &ack)
		if !ack.Accepted {
			t.Error("expected the answer to be accepted")
		}
		if ack.IsCorrect != nil {
			t.Error("correctness must be withheld until finish")
		}
	}

	resp = postJSON(t, server.URL+"/mock-exams/active/finish", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 at finish, got %d", resp.StatusCode)
	}
	var result struct {
		TotalScore int  `json:"total_score"`
		IsPassed   bool `json:"is_passed"`
	}
	decodeBody(t, resp, &result)
	if result.TotalScore != 8 || !result.IsPassed {
		t.Errorf("expected a passing 8, got %+v", result)
	}

	resp = postJSON(t, server.URL+"/mock-exams/active/finish", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after the session ended, got %d", resp.StatusCode)
	}
}

func TestStatisticsEndpoint(t *testing.T) {
	server, s := newTestServer(t)
	seedJournal(t, s, "Q_J_001")

	resp := postJSON(t, server.URL+"/answers", correctAnswerJSON)
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/statistics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var summary struct {
		TotalAttempts int `json:"total_attempts"`
		Categories    []struct {
			Category string `json:"category"`
		} `json:"categories"`
	}
	decodeBody(t, resp, &summary)
	if summary.TotalAttempts != 1 {
		t.Errorf("expected 1 attempt, got %d", summary.TotalAttempts)
	}
	if len(summary.Categories) != 1 {
		t.Errorf("expected 1 category row, got %d", len(summary.Categories))
	}
}

func TestExportReport_ContentType(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/export/report")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestCORSPreflight(t *testing.T) {
	server, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/answers", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS headers")
	}
}
