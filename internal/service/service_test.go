package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/review"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/service"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedJournalQuestion(t *testing.T, s *store.SQLiteStore, id string) {
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

func correctJournalPayload() question.AnswerPayload {
	return question.AnswerPayload{
		Journal: &question.JournalAnswer{
			Debits:  []question.AmountLine{{Account: "仕入", Amount: 100000}},
			Credits: []question.AmountLine{{Account: "現金", Amount: 100000}},
		},
	}
}

func wrongJournalPayload() question.AnswerPayload {
	return question.AnswerPayload{
		Journal: &question.JournalAnswer{
			Debits:  []question.AmountLine{{Account: "仕入", Amount: 90000}},
			Credits: []question.AmountLine{{Account: "現金", Amount: 90000}},
		},
	}
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate() { c.calls++ }

func newLearning(t *testing.T, s *store.SQLiteStore) (*service.LearningService, *countingInvalidator) {
	t.Helper()
	inv := &countingInvalidator{}
	ls := service.NewLearningService(s, inv, review.DefaultStrategy(), discardLogger())
	return ls, inv
}

func TestSubmitAnswer_CorrectFirstTry(t *testing.T) {
	s := newTestStore(t)
	seedJournalQuestion(t, s, "Q_J_001")
	ls, inv := newLearning(t, s)

	result, err := ls.SubmitAnswer(context.Background(), service.SubmitAnswerRequest{
		QuestionID:   "Q_J_001",
		Payload:      correctJournalPayload(),
		AnswerTimeMs: 2000,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !result.IsCorrect {
		t.Error("expected a correct verdict")
	}
	if result.Review.Action != review.ActionNone {
		t.Errorf("a first correct answer must not create a review item, got %s", result.Review.Action)
	}
	if inv.calls != 1 {
		t.Errorf("expected 1 cache invalidation, got %d", inv.calls)
	}

	// The attempt must be on the ledger even though no item was created.
	attempts, err := ls.AttemptHistory(context.Background(), store.AttemptFilter{})
	if err != nil {
		t.Fatalf("failed to query attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
}

func TestSubmitAnswer_IncorrectCreatesReviewItem(t *testing.T) {
	s := newTestStore(t)
	seedJournalQuestion(t, s, "Q_J_001")
	ls, _ := newLearning(t, s)

	result, err := ls.SubmitAnswer(context.Background(), service.SubmitAnswerRequest{
		QuestionID: "Q_J_001",
		Payload:    wrongJournalPayload(),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.IsCorrect {
		t.Error("expected an incorrect verdict")
	}
	if result.Review.Action != review.ActionCreated {
		t.Errorf("expected review item creation, got %s", result.Review.Action)
	}
	if result.Review.Status != review.StatusNeedsReview {
		t.Errorf("expected needs_review, got %s", result.Review.Status)
	}
	if result.Explanation == "" {
		t.Error("feedback must carry the explanation")
	}
}

func TestSubmitAnswer_ValidationFailureIsRecorded(t *testing.T) {
	s := newTestStore(t)
	seedJournalQuestion(t, s, "Q_J_001")
	ls, _ := newLearning(t, s)

	result, err := ls.SubmitAnswer(context.Background(), service.SubmitAnswerRequest{
		QuestionID: "Q_J_001",
		Payload:    question.AnswerPayload{Journal: &question.JournalAnswer{}},
	})
	if err != nil {
		t.Fatalf("a malformed payload is a learner outcome, not an error: %v", err)
	}
	if result.IsCorrect {
		t.Error("malformed payloads are never correct")
	}
	if len(result.ValidationErrors) == 0 {
		t.Error("expected validation messages")
	}

	attempts, err := ls.AttemptHistory(context.Background(), store.AttemptFilter{})
	if err != nil {
		t.Fatalf("failed to query attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Errorf("the malformed attempt must still reach the ledger, got %d rows", len(attempts))
	}
}

func TestSubmitAnswer_UnknownQuestion(t *testing.T) {
	s := newTestStore(t)
	ls, inv := newLearning(t, s)

	_, err := ls.SubmitAnswer(context.Background(), service.SubmitAnswerRequest{
		QuestionID: "missing",
		Payload:    correctJournalPayload(),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if inv.calls != 0 {
		t.Error("a failed submission must not invalidate the cache")
	}
}

func TestSubmitAnswer_MasteryAfterTwoCorrect(t *testing.T) {
	s := newTestStore(t)
	seedJournalQuestion(t, s, "Q_J_001")
	ls, _ := newLearning(t, s)
	ctx := context.Background()

	submit := func(payload question.AnswerPayload) *service.SubmitAnswerResult {
		t.Helper()
		result, err := ls.SubmitAnswer(ctx, service.SubmitAnswerRequest{QuestionID: "Q_J_001", Payload: payload})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		return result
	}

	submit(wrongJournalPayload())
	submit(correctJournalPayload())
	result := submit(correctJournalPayload())

	if result.Review.Action != review.ActionMastered {
		t.Errorf("expected mastery on the second consecutive correct, got %s", result.Review.Action)
	}
	if result.Review.Status != review.StatusMastered {
		t.Errorf("expected mastered status in feedback, got %s", result.Review.Status)
	}
}

func seedExam(t *testing.T, s *store.SQLiteStore) {
	t.Helper()
	for _, id := range []string{"Q1", "Q2", "Q3"} {
		seedJournalQuestion(t, s, id)
	}
	exam := &question.MockExam{
		ID:           "MOCK_001",
		Name:         "第1回模試",
		TimeLimit:    30 * time.Minute,
		TotalScore:   12,
		PassingScore: 8,
		Sections: []question.ExamSection{
			{Number: 1, Category: question.CategoryJournal, QuestionIDs: []string{"Q1", "Q2", "Q3"}, PointsPerQuest: 4},
		},
	}
	if err := s.UpsertMockExam(context.Background(), exam); err != nil {
		t.Fatalf("failed to seed exam: %v", err)
	}
}

func newExamService(t *testing.T, s *store.SQLiteStore) (*service.ExamService, *countingInvalidator) {
	t.Helper()
	inv := &countingInvalidator{}
	es := service.NewExamService(s, inv, review.DefaultStrategy(), discardLogger())
	return es, inv
}

func TestExam_FullPassingRun(t *testing.T) {
	s := newTestStore(t)
	seedExam(t, s)
	es, inv := newExamService(t, s)
	ctx := context.Background()

	state, err := es.Start(ctx, "MOCK_001")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if state.QuestionCount != 3 || state.Question == nil {
		t.Fatalf("unexpected start state: %+v", state)
	}

	if _, err := es.Start(ctx, "MOCK_001"); !errors.Is(err, service.ErrExamInProgress) {
		t.Errorf("expected ErrExamInProgress on double start, got %v", err)
	}

	// Two correct, one wrong: 8 of 12, exactly the passing line.
	for _, payload := range []question.AnswerPayload{
		correctJournalPayload(), correctJournalPayload(), wrongJournalPayload(),
	} {
		ack, err := es.SubmitAnswer(ctx, payload, 1000)
		if err != nil {
			t.Fatalf("exam submit failed: %v", err)
		}
		if !ack.Accepted {
			t.Error("expected submission to be accepted")
		}
	}

	result, err := es.Finish(ctx)
	if err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if result.TotalScore != 8 {
		t.Errorf("expected score 8, got %d", result.TotalScore)
	}
	if !result.IsPassed {
		t.Error("a score on the passing line must pass")
	}
	if inv.calls != 1 {
		t.Errorf("expected 1 cache invalidation at finish, got %d", inv.calls)
	}

	// All three attempts landed in one commit, tagged with the session.
	attempts, err := s.QueryAttempts(ctx, store.AttemptFilter{})
	if err != nil {
		t.Fatalf("failed to query attempts: %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(attempts))
	}
	for _, a := range attempts {
		if a.SessionKind != store.SessionMockExam || a.SessionID == nil {
			t.Errorf("attempt %s not tagged as mock exam: %+v", a.ID, a)
		}
	}

	// The wrong answer produced a review item.
	if _, err := s.GetReviewItem(ctx, "Q3"); err != nil {
		t.Errorf("expected review item for the missed question: %v", err)
	}
}

func TestExam_AbandonWritesNothing(t *testing.T) {
	s := newTestStore(t)
	seedExam(t, s)
	es, inv := newExamService(t, s)
	ctx := context.Background()

	if _, err := es.Start(ctx, "MOCK_001"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := es.SubmitAnswer(ctx, correctJournalPayload(), 1000); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := es.Abandon(ctx); err != nil {
		t.Fatalf("abandon failed: %v", err)
	}

	attempts, err := s.QueryAttempts(ctx, store.AttemptFilter{})
	if err != nil {
		t.Fatalf("failed to query attempts: %v", err)
	}
	if len(attempts) != 0 {
		t.Errorf("abandon must discard everything, found %d attempts", len(attempts))
	}
	if inv.calls != 0 {
		t.Error("abandon must not invalidate the cache")
	}

	// A new session can start immediately.
	if _, err := es.Start(ctx, "MOCK_001"); err != nil {
		t.Errorf("expected a fresh start after abandon: %v", err)
	}
}

func TestExam_FinishWithUnanswered(t *testing.T) {
	s := newTestStore(t)
	seedExam(t, s)
	es, _ := newExamService(t, s)
	ctx := context.Background()

	if _, err := es.Start(ctx, "MOCK_001"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := es.SubmitAnswer(ctx, correctJournalPayload(), 1000); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	result, err := es.Finish(ctx)
	if err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if result.TotalScore != 4 {
		t.Errorf("expected only the answered question to score, got %d", result.TotalScore)
	}
	if result.IsPassed {
		t.Error("4 of 12 must not pass")
	}

	answered := 0
	for _, qr := range result.Questions {
		if qr.Answered {
			answered++
		} else if qr.IsCorrect {
			t.Errorf("unanswered %s must grade incorrect", qr.QuestionID)
		}
	}
	if answered != 1 {
		t.Errorf("expected 1 answered question, got %d", answered)
	}

	// Unanswered questions still reach the ledger as incorrect attempts.
	attempts, err := s.QueryAttempts(ctx, store.AttemptFilter{})
	if err != nil {
		t.Fatalf("failed to query attempts: %v", err)
	}
	if len(attempts) != 3 {
		t.Errorf("expected 3 ledger rows, got %d", len(attempts))
	}
}

func TestExam_FinishCommitFailureLeavesSessionOpen(t *testing.T) {
	s := newTestStore(t)
	seedJournalQuestion(t, s, "Q1")
	// An exam listing the same question twice makes the finish commit
	// collide on the review item row, so the transaction rolls back.
	exam := &question.MockExam{
		ID:           "MOCK_DUP",
		Name:         "重複模試",
		TimeLimit:    30 * time.Minute,
		TotalScore:   8,
		PassingScore: 8,
		Sections: []question.ExamSection{
			{Number: 1, Category: question.CategoryJournal, QuestionIDs: []string{"Q1", "Q1"}, PointsPerQuest: 4},
		},
	}
	if err := s.UpsertMockExam(context.Background(), exam); err != nil {
		t.Fatalf("failed to seed exam: %v", err)
	}
	es, inv := newExamService(t, s)
	ctx := context.Background()

	if _, err := es.Start(ctx, "MOCK_DUP"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := es.SubmitAnswer(ctx, wrongJournalPayload(), 1000); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	if _, err := es.Finish(ctx); err == nil {
		t.Fatal("expected finish to fail on the conflicting commit")
	}

	// Nothing reached the ledger and the cache was left alone.
	attempts, err := s.QueryAttempts(ctx, store.AttemptFilter{})
	if err != nil {
		t.Fatalf("failed to query attempts: %v", err)
	}
	if len(attempts) != 0 {
		t.Errorf("a failed finish must write nothing, found %d attempts", len(attempts))
	}
	if _, err := s.GetReviewItem(ctx, "Q1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("a failed finish must not create review items: %v", err)
	}
	if inv.calls != 0 {
		t.Error("a failed finish must not invalidate the cache")
	}

	// The session is still live: it can be inspected and abandoned,
	// and a new exam can start afterwards.
	if _, err := es.State(ctx); err != nil {
		t.Errorf("expected the session to survive the failed finish: %v", err)
	}
	if err := es.Abandon(ctx); err != nil {
		t.Errorf("expected abandon after failed finish to succeed: %v", err)
	}
	if _, err := es.Start(ctx, "MOCK_DUP"); err != nil {
		t.Errorf("expected a fresh start after abandon: %v", err)
	}
}

func TestExam_NoActiveSession(t *testing.T) {
	s := newTestStore(t)
	seedExam(t, s)
	es, _ := newExamService(t, s)
	ctx := context.Background()

	if _, err := es.SubmitAnswer(ctx, correctJournalPayload(), 0); !errors.Is(err, service.ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession, got %v", err)
	}
	if _, err := es.Finish(ctx); !errors.Is(err, service.ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession, got %v", err)
	}
	if err := es.Abandon(ctx); !errors.Is(err, service.ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestStatistics_CacheAndInvalidate(t *testing.T) {
	s := newTestStore(t)
	seedJournalQuestion(t, s, "Q_J_001")
	stats := service.NewStatisticsService(s, time.Minute, discardLogger())
	ls := service.NewLearningService(s, stats, review.DefaultStrategy(), discardLogger())
	ctx := context.Background()

	before, err := stats.Summary(ctx)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if before.TotalAttempts != 0 {
		t.Fatalf("expected empty summary, got %+v", before)
	}

	if _, err := ls.SubmitAnswer(ctx, service.SubmitAnswerRequest{
		QuestionID: "Q_J_001",
		Payload:    correctJournalPayload(),
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// The write invalidated the cache, so the next read sees it even
	// though the TTL has not elapsed.
	after, err := stats.Summary(ctx)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if after.TotalAttempts != 1 || after.CorrectAttempts != 1 {
		t.Errorf("expected the write to be visible, got %+v", after)
	}
	if after.StudyDays != 1 || after.StreakDays != 1 {
		t.Errorf("expected one study day and a streak of 1, got %+v", after)
	}
	if len(after.Categories) != 1 || after.Categories[0].CompletionRate != 1 {
		t.Errorf("unexpected category summary: %+v", after.Categories)
	}
}
