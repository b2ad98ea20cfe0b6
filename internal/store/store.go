package store

import (
	"errors"
	"time"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/review"
)

var (
	ErrNotFound = errors.New("not found")
)

// SessionKind classifies what the learner was doing when an attempt was
// recorded.
type SessionKind string

const (
	SessionLearning SessionKind = "learning"
	SessionReview   SessionKind = "review"
	SessionMockExam SessionKind = "mock_exam"
)

// AttemptRecord is one ledger row. Rows are append-only; once written
// they are never mutated.
type AttemptRecord struct {
	ID           string
	QuestionID   string
	Payload      question.AnswerPayload
	IsCorrect    bool
	AnswerTimeMs int64
	SessionID    *string
	SessionKind  SessionKind
	AnsweredAt   time.Time
}

// AttemptFilter narrows ledger queries. Nil fields mean no constraint.
type AttemptFilter struct {
	QuestionID *string
	SessionID  *string
	Category   *question.Category
	IsCorrect  *bool
	From       *time.Time
	To         *time.Time
	Limit      int
}

// AttemptCommit pairs a ledger row with the review transition it
// caused. The store writes both inside one transaction so the ledger
// and the review set can never diverge.
type AttemptCommit struct {
	Attempt AttemptRecord
	Review  review.Outcome
}

// OverallCounts is the raw material for overall statistics.
type OverallCounts struct {
	TotalAttempts     int   `db:"total_attempts"`
	CorrectAttempts   int   `db:"correct_attempts"`
	DistinctQuestions int   `db:"distinct_questions"`
	TotalTimeMs       int64 `db:"total_time_ms"`
}

// CategoryCounts is the per-category aggregation row.
type CategoryCounts struct {
	Category          question.Category `db:"category"`
	TotalQuestions    int               `db:"total_questions"`
	AnsweredQuestions int               `db:"answered_questions"`
	TotalAttempts     int               `db:"total_attempts"`
	CorrectAttempts   int               `db:"correct_attempts"`
	TotalTimeMs       int64             `db:"total_time_ms"`
}
