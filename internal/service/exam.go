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
	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/mockexam"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/review"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/store"
)

var (
	// ErrExamInProgress is returned by Start while a session is active.
	ErrExamInProgress = errors.New("a mock exam session is already in progress")
	// ErrNoActiveSession is returned when no session is running.
	ErrNoActiveSession = errors.New("no mock exam session is in progress")
	// ErrSessionExpired is returned for submissions after the time
	// limit. The session must then be finished, which grades the
	// remaining questions as incorrect.
	ErrSessionExpired = errors.New("the mock exam time limit has elapsed")
)

// ExamState is a snapshot of the running session for the client.
type ExamState struct {
	SessionID     string             `json:"session_id"`
	ExamID        string             `json:"exam_id"`
	ExamName      string             `json:"exam_name"`
	QuestionCount int                `json:"question_count"`
	AnsweredCount int                `json:"answered_count"`
	RemainingMs   int64              `json:"remaining_ms"`
	Question      *question.Question `json:"question,omitempty"`
	Section       int                `json:"section,omitempty"`
	Points        int                `json:"points,omitempty"`
}

// SubmitExamAnswerResult acknowledges one exam submission. Correctness
// is withheld until the session finishes.
type SubmitExamAnswerResult struct {
	Accepted         bool     `json:"accepted"`
	ValidationErrors []string `json:"validation_errors,omitempty"`
	AnsweredCount    int      `json:"answered_count"`
	QuestionCount    int      `json:"question_count"`
	RemainingMs      int64    `json:"remaining_ms"`
}

// ExamService runs at most one mock exam session at a time. Verdicts
// stay in memory until finish commits the whole session in a single
// transaction; abandoning writes nothing.
type ExamService struct {
	store    *store.SQLiteStore
	stats    Invalidator
	strategy review.PriorityStrategy
	logger   *slog.Logger

	mu      sync.Mutex
	session *mockexam.Session
}

// NewExamService creates an ExamService.
func NewExamService(s *store.SQLiteStore, stats Invalidator, strategy review.PriorityStrategy, logger *slog.Logger) *ExamService {
	return &ExamService{store: s, stats: stats, strategy: strategy, logger: logger}
}

// ListExams returns the available mock exams.
func (es *ExamService) ListExams(ctx context.Context) ([]*question.MockExam, error) {
	return es.store.ListMockExams(ctx)
}

// Start begins a session over the exam's fixed question order.
func (es *ExamService) Start(ctx context.Context, examID string) (*ExamState, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.session != nil {
		return nil, ErrExamInProgress
	}

	exam, err := es.store.GetMockExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("mock exam %s: %w", examID, err)
	}

	var questions []mockexam.SessionQuestion
	for _, sec := range exam.Sections {
		for _, qid := range sec.QuestionIDs {
			q, err := es.store.GetQuestion(ctx, qid)
			if err != nil {
				return nil, fmt.Errorf("exam question %s: %w", qid, err)
			}
			questions = append(questions, mockexam.SessionQuestion{
				Question: q,
				Section:  sec.Number,
				Points:   sec.PointsPerQuest,
			})
		}
	}

	session, err := mockexam.New(uuid.NewString(), exam, questions, time.Now())
	if err != nil {
		return nil, err
	}
	es.session = session

	es.logger.Info("mock exam started",
		"session_id", session.ID,
		"exam_id", exam.ID,
		"questions", len(questions),
	)
	return es.state(time.Now()), nil
}

// State returns the current session snapshot.
func (es *ExamService) State(ctx context.Context) (*ExamState, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.session == nil {
		return nil, ErrNoActiveSession
	}
	return es.state(time.Now()), nil
}

// SubmitAnswer validates and records a provisional verdict for the
// current question. After the time limit it refuses the submission;
// the client must call Finish, which grades what remains as incorrect.
func (es *ExamService) SubmitAnswer(ctx context.Context, payload question.AnswerPayload, answerTimeMs int64) (*SubmitExamAnswerResult, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.session == nil {
		return nil, ErrNoActiveSession
	}
	now := time.Now()
	if es.session.Expired(now) {
		return nil, ErrSessionExpired
	}

	current, ok := es.session.Current()
	if !ok {
		return nil, mockexam.ErrNoMoreQuestion
	}

	verdict := evaluator.Evaluate(current.Question, payload)
	err := es.session.Record(mockexam.Verdict{
		Payload:          payload,
		IsCorrect:        verdict.IsCorrect,
		ValidationErrors: verdict.ValidationErrors,
		AnswerTimeMs:     answerTimeMs,
	})
	if err != nil {
		return nil, err
	}

	return &SubmitExamAnswerResult{
		Accepted:         true,
		ValidationErrors: verdict.ValidationErrors,
		AnsweredCount:    es.session.AnsweredCount(),
		QuestionCount:    len(es.session.Questions()),
		RemainingMs:      es.session.Remaining(now).Milliseconds(),
	}, nil
}

// Finish grades the session and commits every attempt plus its review
// transition in one transaction. The session stays in progress until
// the commit lands, so a failed commit leaves finish retryable and
// abandon still possible; a failed finish writes nothing.
func (es *ExamService) Finish(ctx context.Context) (*mockexam.Result, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.session == nil {
		return nil, ErrNoActiveSession
	}

	session := es.session
	now := time.Now()
	result, err := session.Grade(now)
	if err != nil {
		return nil, err
	}

	commits, err := es.buildCommits(ctx, session, result)
	if err != nil {
		return nil, err
	}
	if err := es.store.CommitAttempts(ctx, commits); err != nil {
		return nil, fmt.Errorf("failed to commit exam session %s: %w", session.ID, err)
	}
	if _, err := session.Finish(now); err != nil {
		return nil, err
	}
	es.stats.Invalidate()
	es.session = nil

	es.logger.Info("mock exam finished",
		"session_id", session.ID,
		"exam_id", result.ExamID,
		"score", result.TotalScore,
		"passed", result.IsPassed,
		"timed_out", result.TimedOut,
	)
	return result, nil
}

// Abandon discards the session without writing anything.
func (es *ExamService) Abandon(ctx context.Context) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.session == nil {
		return ErrNoActiveSession
	}
	if err := es.session.Abandon(); err != nil {
		return err
	}
	es.logger.Info("mock exam abandoned", "session_id", es.session.ID)
	es.session = nil
	return nil
}

func (es *ExamService) buildCommits(ctx context.Context, session *mockexam.Session, result *mockexam.Result) ([]store.AttemptCommit, error) {
	sessionID := session.ID
	answeredAt := session.StartedAt.Add(result.Duration)

	commits := make([]store.AttemptCommit, 0, len(result.Questions))
	for _, qr := range result.Questions {
		var existing *review.Item
		item, err := es.store.GetReviewItem(ctx, qr.QuestionID)
		if err == nil {
			existing = item
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to load review item for %s: %w", qr.QuestionID, err)
		}

		outcome := review.Apply(existing, qr.QuestionID, qr.IsCorrect, answeredAt, es.strategy)
		commits = append(commits, store.AttemptCommit{
			Attempt: store.AttemptRecord{
				ID:           uuid.NewString(),
				QuestionID:   qr.QuestionID,
				Payload:      qr.Payload,
				IsCorrect:    qr.IsCorrect,
				AnswerTimeMs: qr.AnswerTimeMs,
				SessionID:    &sessionID,
				SessionKind:  store.SessionMockExam,
				AnsweredAt:   answeredAt,
			},
			Review: outcome,
		})
	}
	return commits, nil
}

func (es *ExamService) state(now time.Time) *ExamState {
	s := es.session
	state := &ExamState{
		SessionID:     s.ID,
		ExamID:        s.Exam.ID,
		ExamName:      s.Exam.Name,
		QuestionCount: len(s.Questions()),
		AnsweredCount: s.AnsweredCount(),
		RemainingMs:   s.Remaining(now).Milliseconds(),
	}
	if current, ok := s.Current(); ok {
		state.Question = current.Question
		state.Section = current.Section
		state.Points = current.Points
	}
	return state
}
