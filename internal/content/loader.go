// Package content seeds the read-only question and mock-exam tables
// from JSON files at startup. Content is authored by hand, so every
// record is validated before anything is written.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/store"
)

const (
	questionsFile = "questions.json"
	examsFile     = "mock_exams.json"
)

type questionDoc struct {
	ID            string                 `json:"id" validate:"required"`
	Category      string                 `json:"category" validate:"required,oneof=journal ledger trial_balance"`
	Difficulty    int                    `json:"difficulty" validate:"required,min=1,max=3"`
	Prompt        string                 `json:"prompt" validate:"required"`
	Explanation   string                 `json:"explanation"`
	CorrectAnswer question.CorrectAnswer `json:"correct_answer" validate:"required"`
}

type examDoc struct {
	ID           string       `json:"id" validate:"required"`
	Name         string       `json:"name" validate:"required"`
	Description  string       `json:"description"`
	TimeLimitMin int          `json:"time_limit_min" validate:"required,min=1"`
	TotalScore   int          `json:"total_score" validate:"required,min=1"`
	PassingScore int          `json:"passing_score" validate:"required,min=1"`
	Sections     []sectionDoc `json:"sections" validate:"required,min=1,dive"`
}

type sectionDoc struct {
	Number         int      `json:"number" validate:"required,min=1"`
	Category       string   `json:"category" validate:"required,oneof=journal ledger trial_balance"`
	QuestionIDs    []string `json:"question_ids" validate:"required,min=1"`
	PointsPerQuest int      `json:"points_per_question" validate:"required,min=1"`
}

// Loader seeds the content tables.
type Loader struct {
	store    *store.SQLiteStore
	validate *validator.Validate
	logger   *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(s *store.SQLiteStore, logger *slog.Logger) *Loader {
	return &Loader{
		store:    s,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Load reads questions.json and mock_exams.json from dir and upserts
// every record. A missing exams file is allowed; a missing questions
// file is not, since nothing works without content.
func (l *Loader) Load(ctx context.Context, dir string) error {
	if err := l.loadQuestions(ctx, filepath.Join(dir, questionsFile)); err != nil {
		return err
	}
	if err := l.loadExams(ctx, filepath.Join(dir, examsFile)); err != nil {
		return err
	}
	return nil
}

func (l *Loader) loadQuestions(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var docs []questionDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for _, doc := range docs {
		if err := l.validate.Struct(doc); err != nil {
			return fmt.Errorf("question %s: %w", doc.ID, err)
		}
		q := &question.Question{
			ID:          doc.ID,
			Category:    question.Category(doc.Category),
			Difficulty:  doc.Difficulty,
			Prompt:      doc.Prompt,
			Explanation: doc.Explanation,
			Correct:     doc.CorrectAnswer,
		}
		if err := checkAnswerShape(q); err != nil {
			return err
		}
		if err := l.store.UpsertQuestion(ctx, q); err != nil {
			return err
		}
	}

	l.logger.Info("questions loaded", "count", len(docs), "file", path)
	return nil
}

func (l *Loader) loadExams(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		l.logger.Info("no mock exam file, skipping", "file", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var docs []examDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for _, doc := range docs {
		if err := l.validate.Struct(doc); err != nil {
			return fmt.Errorf("mock exam %s: %w", doc.ID, err)
		}
		if doc.PassingScore > doc.TotalScore {
			return fmt.Errorf("mock exam %s: passing score %d exceeds total %d",
				doc.ID, doc.PassingScore, doc.TotalScore)
		}

		exam := &question.MockExam{
			ID:           doc.ID,
			Name:         doc.Name,
			Description:  doc.Description,
			TimeLimit:    time.Duration(doc.TimeLimitMin) * time.Minute,
			TotalScore:   doc.TotalScore,
			PassingScore: doc.PassingScore,
		}
		seen := make(map[string]bool)
		for _, sec := range doc.Sections {
			// Every exam question must exist, match its section's
			// category, and appear at most once across the exam. A
			// repeated question would make the finish commit touch the
			// same review item twice in one transaction.
			for _, qid := range sec.QuestionIDs {
				if seen[qid] {
					return fmt.Errorf("mock exam %s: question %s listed more than once", doc.ID, qid)
				}
				seen[qid] = true
				q, err := l.store.GetQuestion(ctx, qid)
				if err != nil {
					return fmt.Errorf("mock exam %s: question %s: %w", doc.ID, qid, err)
				}
				if q.Category != question.Category(sec.Category) {
					return fmt.Errorf("mock exam %s: section %d is %s but question %s is %s",
						doc.ID, sec.Number, sec.Category, qid, q.Category)
				}
			}
			exam.Sections = append(exam.Sections, question.ExamSection{
				Number:         sec.Number,
				Category:       question.Category(sec.Category),
				QuestionIDs:    sec.QuestionIDs,
				PointsPerQuest: sec.PointsPerQuest,
			})
		}
		if err := l.store.UpsertMockExam(ctx, exam); err != nil {
			return err
		}
	}

	l.logger.Info("mock exams loaded", "count", len(docs), "file", path)
	return nil
}

// checkAnswerShape enforces that exactly the variant named by the
// category is present. The struct validator cannot see across fields.
func checkAnswerShape(q *question.Question) error {
	var want string
	switch q.Category {
	case question.CategoryJournal:
		if q.Correct.Journal == nil {
			want = "journal"
		}
	case question.CategoryLedger:
		if q.Correct.Ledger == nil {
			want = "ledger"
		}
	case question.CategoryTrialBalance:
		if q.Correct.TrialBalance == nil {
			want = "trial_balance"
		}
	}
	if want != "" {
		return fmt.Errorf("question %s: category %s requires a %s correct answer", q.ID, q.Category, want)
	}
	return nil
}
