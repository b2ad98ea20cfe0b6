// Package review implements the per-question review life-cycle:
// an item is created on the first incorrect answer, escalates after
// repeated mistakes, and is retired after two consecutive correct
// answers.
package review

import (
	"errors"
	"time"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
)

// Status is the persisted life-cycle state of a review item. Mastered
// is terminal and never stored: reaching it deletes the item, so a
// later mistake on the same question starts a fresh one.
type Status string

const (
	StatusNeedsReview    Status = "needs_review"
	StatusPriorityReview Status = "priority_review"
	StatusMastered       Status = "mastered"
)

const (
	// masteryThreshold is the consecutive-correct count that retires an item.
	masteryThreshold = 2
	// escalationThreshold is the incorrect count that promotes an item to
	// priority review. Escalation is one-way until mastery.
	escalationThreshold = 2
)

// ErrNotTracked is returned when a transition is applied against a
// question that has no review item where one is required to exist.
var ErrNotTracked = errors.New("review: question is not tracked")

// Item tracks one question the learner has answered incorrectly at
// least once.
type Item struct {
	QuestionID              string
	IncorrectCount          int
	ConsecutiveCorrectCount int
	Status                  Status
	PriorityScore           int
	LastAnsweredAt          time.Time
	LastReviewedAt          *time.Time
}

// Action describes what a transition did to the item.
type Action string

const (
	ActionCreated  Action = "created"  // first incorrect answer, item created
	ActionUpdated  Action = "updated"  // counts/priority recomputed
	ActionMastered Action = "mastered" // item retired
	ActionNone     Action = "none"     // correct answer on an untracked question
)

// Outcome is the result of applying one attempt to the review state.
// Item is the state to persist; nil when the action is ActionNone or
// ActionMastered (the item must then be deleted, not written).
type Outcome struct {
	QuestionID string
	Action     Action
	Item       *Item
}

// Apply advances the life-cycle for one attempt. existing is nil when
// the question is not tracked. The returned outcome is pure data; the
// caller persists it in the same transaction as the attempt record.
func Apply(existing *Item, questionID string, correct bool, now time.Time, strategy PriorityStrategy) Outcome {
	if correct {
		if existing == nil {
			// Never weak, nothing to track.
			return Outcome{QuestionID: questionID, Action: ActionNone}
		}

		consecutive := existing.ConsecutiveCorrectCount + 1
		if consecutive >= masteryThreshold {
			return Outcome{QuestionID: questionID, Action: ActionMastered}
		}

		item := *existing
		item.ConsecutiveCorrectCount = consecutive
		item.LastAnsweredAt = now
		reviewed := now
		item.LastReviewedAt = &reviewed
		item.PriorityScore = strategy.Score(item.IncorrectCount, item.ConsecutiveCorrectCount, item.LastReviewedAt, now)
		return Outcome{QuestionID: questionID, Action: ActionUpdated, Item: &item}
	}

	if existing == nil {
		item := Item{
			QuestionID:     questionID,
			IncorrectCount: 1,
			Status:         StatusNeedsReview,
			LastAnsweredAt: now,
		}
		item.PriorityScore = strategy.Score(item.IncorrectCount, 0, nil, now)
		return Outcome{QuestionID: questionID, Action: ActionCreated, Item: &item}
	}

	item := *existing
	item.IncorrectCount++
	item.ConsecutiveCorrectCount = 0
	if item.IncorrectCount >= escalationThreshold {
		item.Status = StatusPriorityReview
	}
	item.LastAnsweredAt = now
	item.PriorityScore = strategy.Score(item.IncorrectCount, 0, item.LastReviewedAt, now)
	return Outcome{QuestionID: questionID, Action: ActionUpdated, Item: &item}
}

// Filter narrows review queue queries. Zero values mean "no
// constraint"; mastered items are excluded unconditionally because
// they no longer exist.
type Filter struct {
	Category       *question.Category
	Status         *Status
	MinPriority    *int
	MaxPriority    *int
	AnsweredBefore *time.Time
	Limit          int
}

// Statistics summarises the active review set plus the running
// mastered total.
type Statistics struct {
	TotalItems      int
	NeedsReview     int
	PriorityReview  int
	MasteredTotal   int
	AveragePriority float64
	ByCategory      map[question.Category]CategoryStats
}

// CategoryStats is the per-category slice of Statistics.
type CategoryStats struct {
	NeedsReview     int
	PriorityReview  int
	AveragePriority float64
}
