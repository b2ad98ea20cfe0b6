package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/evaluator"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/review"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/store"
)

// Invalidator is the hook a writing service uses to drop cached
// aggregates before acknowledging the write.
type Invalidator interface {
	Invalidate()
}

// SubmitAnswerRequest is one answer submission outside a mock exam.
type SubmitAnswerRequest struct {
	QuestionID   string
	Payload      question.AnswerPayload
	AnswerTimeMs int64
	SessionID    *string
	SessionKind  store.SessionKind
}

// ReviewChange describes what the submission did to the review state.
type ReviewChange struct {
	Action review.Action `json:"action"`
	Status review.Status `json:"status,omitempty"`
	// PriorityScore is meaningful only when an item exists afterwards.
	PriorityScore  int `json:"priority_score,omitempty"`
	IncorrectCount int `json:"incorrect_count,omitempty"`
}

// SubmitAnswerResult is the full feedback for one submission.
type SubmitAnswerResult struct {
	AttemptID        string                 `json:"attempt_id"`
	IsCorrect        bool                   `json:"is_correct"`
	ValidationErrors []string               `json:"validation_errors,omitempty"`
	Explanation      string                 `json:"explanation"`
	CorrectAnswer    question.CorrectAnswer `json:"correct_answer"`
	Review           ReviewChange           `json:"review"`
}

// LearningService handles answer submission for learning and review
// practice: evaluation, the ledger write, and the paired review
// transition. A mutex serializes submissions so the read-modify-write
// on the review item is race free.
type LearningService struct {
	store    *store.SQLiteStore
	stats    Invalidator
	strategy review.PriorityStrategy
	logger   *slog.Logger

	mu sync.Mutex
}

// NewLearningService creates a LearningService.
func NewLearningService(s *store.SQLiteStore, stats Invalidator, strategy review.PriorityStrategy, logger *slog.Logger) *LearningService {
	return &LearningService{store: s, stats: stats, strategy: strategy, logger: logger}
}

// SubmitAnswer evaluates the payload, appends the attempt, and applies
// the review transition in one transaction. Malformed payloads are
// recorded as incorrect attempts with validation messages; they are a
// learner outcome, not an error.
func (ls *LearningService) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAnswerResult, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	q, err := ls.store.GetQuestion(ctx, req.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("question %s: %w", req.QuestionID, err)
	}

	verdict := evaluator.Evaluate(q, req.Payload)
	now := time.Now()

	var existing *review.Item
	item, err := ls.store.GetReviewItem(ctx, req.QuestionID)
	if err == nil {
		existing = item
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load review item: %w", err)
	}

	outcome := review.Apply(existing, req.QuestionID, verdict.IsCorrect, now, ls.strategy)

	kind := req.SessionKind
	if kind == "" {
		kind = store.SessionLearning
	}
	attempt := store.AttemptRecord{
		ID:           uuid.NewString(),
		QuestionID:   req.QuestionID,
		Payload:      req.Payload,
		IsCorrect:    verdict.IsCorrect,
		AnswerTimeMs: req.AnswerTimeMs,
		SessionID:    req.SessionID,
		SessionKind:  kind,
		AnsweredAt:   now,
	}

	if err := ls.store.CommitAttempts(ctx, []store.AttemptCommit{{Attempt: attempt, Review: outcome}}); err != nil {
		return nil, fmt.Errorf("failed to commit attempt: %w", err)
	}
	ls.stats.Invalidate()

	ls.logger.Info("answer submitted",
		"question_id", req.QuestionID,
		"correct", verdict.IsCorrect,
		"review_action", outcome.Action,
	)

	result := &SubmitAnswerResult{
		AttemptID:        attempt.ID,
		IsCorrect:        verdict.IsCorrect,
		ValidationErrors: verdict.ValidationErrors,
		Explanation:      q.Explanation,
		CorrectAnswer:    q.Correct,
		Review:           ReviewChange{Action: outcome.Action},
	}
	if outcome.Item != nil {
		result.Review.Status = outcome.Item.Status
		result.Review.PriorityScore = outcome.Item.PriorityScore
		result.Review.IncorrectCount = outcome.Item.IncorrectCount
	}
	if outcome.Action == review.ActionMastered {
		result.Review.Status = review.StatusMastered
	}
	return result, nil
}

// GetQuestion returns one content record.
func (ls *LearningService) GetQuestion(ctx context.Context, id string) (*question.Question, error) {
	return ls.store.GetQuestion(ctx, id)
}

// ListQuestions returns content for one category.
func (ls *LearningService) ListQuestions(ctx context.Context, category question.Category, filter store.QuestionFilter) ([]*question.Question, error) {
	if !category.Valid() {
		return nil, question.ErrUnknownCategory
	}
	return ls.store.ListQuestionsByCategory(ctx, category, filter)
}

// AttemptHistory returns ledger rows matching the filter, newest first.
func (ls *LearningService) AttemptHistory(ctx context.Context, filter store.AttemptFilter) ([]store.AttemptRecord, error) {
	return ls.store.QueryAttempts(ctx, filter)
}
