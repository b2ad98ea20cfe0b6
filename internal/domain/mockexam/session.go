// Package mockexam holds the in-memory state machine for a timed,
// multi-section mock exam. A session lives only between start and
// finish/abandon; nothing is persisted until finish commits the whole
// session at once.
package mockexam

import (
	"errors"
	"fmt"
	"time"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
)

// State of a session. There is no stored NOT_STARTED state: a session
// object only exists after start.
type State string

const (
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateAbandoned  State = "abandoned"
)

var (
	ErrNotInProgress  = errors.New("mockexam: session is not in progress")
	ErrNoMoreQuestion = errors.New("mockexam: no current question")
)

// SessionQuestion is one exam slot: a question with its section and
// point value, in fixed exam order.
type SessionQuestion struct {
	Question *question.Question
	Section  int
	Points   int
}

// Verdict is the provisional result for one answered question. It
// becomes a ledger write only when the session finishes.
type Verdict struct {
	Payload          question.AnswerPayload
	IsCorrect        bool
	ValidationErrors []string
	AnswerTimeMs     int64
}

// Session is a running mock exam. Not safe for concurrent use; the
// owning service serializes access.
type Session struct {
	ID        string
	Exam      *question.MockExam
	StartedAt time.Time

	state     State
	current   int
	questions []SessionQuestion
	verdicts  map[string]Verdict
	timedOut  bool
}

// New starts a session over the exam's fixed question order.
func New(id string, exam *question.MockExam, questions []SessionQuestion, startedAt time.Time) (*Session, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("mockexam: exam %s has no questions", exam.ID)
	}
	return &Session{
		ID:        id,
		Exam:      exam,
		StartedAt: startedAt,
		state:     StateInProgress,
		questions: questions,
		verdicts:  make(map[string]Verdict, len(questions)),
	}, nil
}

func (s *Session) State() State { return s.state }

// Questions returns the full exam order.
func (s *Session) Questions() []SessionQuestion { return s.questions }

// Current returns the question the learner is on, or false when every
// slot has been visited.
func (s *Session) Current() (SessionQuestion, bool) {
	if s.state != StateInProgress || s.current >= len(s.questions) {
		return SessionQuestion{}, false
	}
	return s.questions[s.current], true
}

// Expired reports whether the wall-clock limit has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return now.Sub(s.StartedAt) >= s.Exam.TimeLimit
}

// Remaining returns the time left, floored at zero.
func (s *Session) Remaining(now time.Time) time.Duration {
	left := s.Exam.TimeLimit - now.Sub(s.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Record stores the verdict for the current question and advances.
// Verdicts with validation errors are stored like any other so a
// malformed answer never blocks navigation inside a timed exam.
func (s *Session) Record(v Verdict) error {
	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	current, ok := s.Current()
	if !ok {
		return ErrNoMoreQuestion
	}
	s.verdicts[current.Question.ID] = v
	s.current++
	return nil
}

// Verdict returns the stored provisional verdict for a question id.
func (s *Session) Verdict(questionID string) (Verdict, bool) {
	v, ok := s.verdicts[questionID]
	return v, ok
}

// AnsweredCount is the number of questions with a stored verdict.
func (s *Session) AnsweredCount() int { return len(s.verdicts) }

// Abandon discards the session. Nothing was written, so nothing is
// rolled back.
func (s *Session) Abandon() error {
	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	s.state = StateAbandoned
	return nil
}

// QuestionResult is the graded outcome for one exam slot.
type QuestionResult struct {
	QuestionID   string
	Section      int
	MaxPoints    int
	EarnedPoints int
	IsCorrect    bool
	Answered     bool
	Payload      question.AnswerPayload
	AnswerTimeMs int64
}

// SectionResult aggregates one section.
type SectionResult struct {
	Number   int
	Category question.Category
	Score    int
	MaxScore int
	Correct  int
	Total    int
}

// Result is the final verdict for a finished session.
type Result struct {
	ExamID     string
	TotalScore int
	MaxScore   int
	IsPassed   bool
	Duration   time.Duration
	TimedOut   bool
	Sections   []SectionResult
	Questions  []QuestionResult
}

// Grade computes the verdict for the session as it stands, without
// changing its state. Unanswered questions are graded incorrect, which
// also covers the forced completion on timeout. The duration is
// clamped to the time limit. The caller persists the outcome and then
// completes the session with Finish; keeping grading side-effect free
// means a failed persist leaves the session open for retry or abandon.
func (s *Session) Grade(now time.Time) (*Result, error) {
	if s.state != StateInProgress {
		return nil, ErrNotInProgress
	}
	timedOut := s.Expired(now)

	duration := now.Sub(s.StartedAt)
	if duration > s.Exam.TimeLimit {
		duration = s.Exam.TimeLimit
	}

	sections := make(map[int]*SectionResult, len(s.Exam.Sections))
	order := make([]int, 0, len(s.Exam.Sections))
	for _, sec := range s.Exam.Sections {
		sections[sec.Number] = &SectionResult{Number: sec.Number, Category: sec.Category}
		order = append(order, sec.Number)
	}

	results := make([]QuestionResult, 0, len(s.questions))
	for _, sq := range s.questions {
		qr := QuestionResult{
			QuestionID: sq.Question.ID,
			Section:    sq.Section,
			MaxPoints:  sq.Points,
		}
		if v, ok := s.verdicts[sq.Question.ID]; ok {
			qr.Answered = true
			qr.IsCorrect = v.IsCorrect
			qr.Payload = v.Payload
			qr.AnswerTimeMs = v.AnswerTimeMs
			if v.IsCorrect {
				qr.EarnedPoints = sq.Points
			}
		}
		results = append(results, qr)

		sec := sections[sq.Section]
		sec.MaxScore += sq.Points
		sec.Score += qr.EarnedPoints
		sec.Total++
		if qr.IsCorrect {
			sec.Correct++
		}
	}

	result := &Result{
		ExamID:    s.Exam.ID,
		MaxScore:  s.Exam.MaxScore(),
		Duration:  duration,
		TimedOut:  timedOut,
		Questions: results,
	}
	for _, n := range order {
		result.Sections = append(result.Sections, *sections[n])
		result.TotalScore += sections[n].Score
	}
	result.IsPassed = result.TotalScore >= s.Exam.PassingScore

	return result, nil
}

// Finish grades the session and marks it completed.
func (s *Session) Finish(now time.Time) (*Result, error) {
	result, err := s.Grade(now)
	if err != nil {
		return nil, err
	}
	s.state = StateCompleted
	s.timedOut = result.TimedOut
	return result, nil
}
