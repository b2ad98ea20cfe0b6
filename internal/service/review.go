package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/review"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/store"
)

// QueueEntry is one review-queue row: the item joined with its
// question, ready to practice.
type QueueEntry struct {
	Item     *review.Item       `json:"item"`
	Question *question.Question `json:"question"`
}

// ReviewService serves the prioritized review queue.
type ReviewService struct {
	store  *store.SQLiteStore
	logger *slog.Logger
}

// NewReviewService creates a ReviewService.
func NewReviewService(s *store.SQLiteStore, logger *slog.Logger) *ReviewService {
	return &ReviewService{store: s, logger: logger}
}

// Queue returns active review items with their questions, highest
// priority first. Items whose question has been removed from the
// content set are skipped rather than failing the whole queue.
func (rs *ReviewService) Queue(ctx context.Context, filter review.Filter) ([]QueueEntry, error) {
	items, err := rs.store.ListReviewItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list review items: %w", err)
	}

	entries := make([]QueueEntry, 0, len(items))
	for _, item := range items {
		q, err := rs.store.GetQuestion(ctx, item.QuestionID)
		if err == store.ErrNotFound {
			rs.logger.Warn("review item references missing question", "question_id", item.QuestionID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", item.QuestionID, err)
		}
		entries = append(entries, QueueEntry{Item: item, Question: q})
	}
	return entries, nil
}

// Item returns the review state for one question, or store.ErrNotFound
// when the question is untracked.
func (rs *ReviewService) Item(ctx context.Context, questionID string) (*review.Item, error) {
	return rs.store.GetReviewItem(ctx, questionID)
}
