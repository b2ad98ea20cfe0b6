package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/review"
)

const schema = `
CREATE TABLE IF NOT EXISTS questions (
    id TEXT PRIMARY KEY,
    category TEXT NOT NULL,
    difficulty INTEGER NOT NULL DEFAULT 1,
    prompt TEXT NOT NULL,
    explanation TEXT NOT NULL DEFAULT '',
    correct_answer_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mock_exams (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    time_limit_min INTEGER NOT NULL,
    total_score INTEGER NOT NULL,
    passing_score INTEGER NOT NULL,
    structure_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attempts (
    id TEXT PRIMARY KEY,
    question_id TEXT NOT NULL,
    payload_json TEXT NOT NULL,
    is_correct INTEGER NOT NULL,
    answer_time_ms INTEGER NOT NULL,
    session_id TEXT,
    session_kind TEXT NOT NULL,
    answered_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempts_question ON attempts(question_id);
CREATE INDEX IF NOT EXISTS idx_attempts_session ON attempts(session_id);
CREATE INDEX IF NOT EXISTS idx_attempts_answered_at ON attempts(answered_at);

CREATE TABLE IF NOT EXISTS review_items (
    question_id TEXT PRIMARY KEY,
    incorrect_count INTEGER NOT NULL,
    consecutive_correct_count INTEGER NOT NULL,
    status TEXT NOT NULL,
    priority_score INTEGER NOT NULL,
    last_answered_at DATETIME NOT NULL,
    last_reviewed_at DATETIME
);

CREATE TABLE IF NOT EXISTS mastery_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    question_id TEXT NOT NULL,
    mastered_at DATETIME NOT NULL
);
`

// SQLiteStore is the persistence collaborator for every component:
// the read-only content tables, the append-only attempt ledger, and the
// review item set.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLite opens (or creates) the database and applies the schema.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer: sqlite serializes writes anyway, and a single
	// connection keeps transactions from fighting over the file lock.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Questions (read-only content)
// ============================================================================

type questionRow struct {
	ID                string `db:"id"`
	Category          string `db:"category"`
	Difficulty        int    `db:"difficulty"`
	Prompt            string `db:"prompt"`
	Explanation       string `db:"explanation"`
	CorrectAnswerJSON string `db:"correct_answer_json"`
}

func (r questionRow) toDomain() (*question.Question, error) {
	q := &question.Question{
		ID:          r.ID,
		Category:    question.Category(r.Category),
		Difficulty:  r.Difficulty,
		Prompt:      r.Prompt,
		Explanation: r.Explanation,
	}
	if err := json.Unmarshal([]byte(r.CorrectAnswerJSON), &q.Correct); err != nil {
		return nil, fmt.Errorf("question %s: bad correct answer: %w", r.ID, err)
	}
	return q, nil
}

// UpsertQuestion writes a content record. Content is seeded at startup
// and treated as read-only afterwards.
func (s *SQLiteStore) UpsertQuestion(ctx context.Context, q *question.Question) error {
	correctJSON, err := json.Marshal(q.Correct)
	if err != nil {
		return fmt.Errorf("failed to encode correct answer for %s: %w", q.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO questions (id, category, difficulty, prompt, explanation, correct_answer_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			difficulty = excluded.difficulty,
			prompt = excluded.prompt,
			explanation = excluded.explanation,
			correct_answer_json = excluded.correct_answer_json
	`, q.ID, string(q.Category), q.Difficulty, q.Prompt, q.Explanation, string(correctJSON))
	if err != nil {
		return fmt.Errorf("failed to upsert question %s: %w", q.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetQuestion(ctx context.Context, id string) (*question.Question, error) {
	var row questionRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM questions WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question %s: %w", id, err)
	}
	return row.toDomain()
}

// QuestionFilter narrows content queries.
type QuestionFilter struct {
	Difficulty *int
	Limit      int
}

func (s *SQLiteStore) ListQuestionsByCategory(ctx context.Context, category question.Category, filter QuestionFilter) ([]*question.Question, error) {
	query := "SELECT * FROM questions WHERE category = ?"
	args := []any{string(category)}

	if filter.Difficulty != nil {
		query += " AND difficulty = ?"
		args = append(args, *filter.Difficulty)
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []questionRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	questions := make([]*question.Question, 0, len(rows))
	for _, row := range rows {
		q, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// CountQuestionsByCategory returns total content counts per category,
// used for completion rates.
func (s *SQLiteStore) CountQuestionsByCategory(ctx context.Context) (map[question.Category]int, error) {
	var rows []struct {
		Category string `db:"category"`
		Count    int    `db:"count"`
	}
	err := s.db.SelectContext(ctx, &rows, "SELECT category, COUNT(*) AS count FROM questions GROUP BY category")
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}

	counts := make(map[question.Category]int, len(rows))
	for _, r := range rows {
		counts[question.Category(r.Category)] = r.Count
	}
	return counts, nil
}

// ============================================================================
// Mock exams (read-only content)
// ============================================================================

type examRow struct {
	ID            string `db:"id"`
	Name          string `db:"name"`
	Description   string `db:"description"`
	TimeLimitMin  int    `db:"time_limit_min"`
	TotalScore    int    `db:"total_score"`
	PassingScore  int    `db:"passing_score"`
	StructureJSON string `db:"structure_json"`
}

type sectionDoc struct {
	Number         int      `json:"number"`
	Category       string   `json:"category"`
	QuestionIDs    []string `json:"question_ids"`
	PointsPerQuest int      `json:"points_per_question"`
}

func (r examRow) toDomain() (*question.MockExam, error) {
	var docs []sectionDoc
	if err := json.Unmarshal([]byte(r.StructureJSON), &docs); err != nil {
		return nil, fmt.Errorf("mock exam %s: bad structure: %w", r.ID, err)
	}

	exam := &question.MockExam{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		TimeLimit:    time.Duration(r.TimeLimitMin) * time.Minute,
		TotalScore:   r.TotalScore,
		PassingScore: r.PassingScore,
	}
	for _, d := range docs {
		exam.Sections = append(exam.Sections, question.ExamSection{
			Number:         d.Number,
			Category:       question.Category(d.Category),
			QuestionIDs:    d.QuestionIDs,
			PointsPerQuest: d.PointsPerQuest,
		})
	}
	return exam, nil
}

func (s *SQLiteStore) UpsertMockExam(ctx context.Context, exam *question.MockExam) error {
	docs := make([]sectionDoc, 0, len(exam.Sections))
	for _, sec := range exam.Sections {
		docs = append(docs, sectionDoc{
			Number:         sec.Number,
			Category:       string(sec.Category),
			QuestionIDs:    sec.QuestionIDs,
			PointsPerQuest: sec.PointsPerQuest,
		})
	}
	structureJSON, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to encode structure for %s: %w", exam.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mock_exams (id, name, description, time_limit_min, total_score, passing_score, structure_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			time_limit_min = excluded.time_limit_min,
			total_score = excluded.total_score,
			passing_score = excluded.passing_score,
			structure_json = excluded.structure_json
	`, exam.ID, exam.Name, exam.Description, int(exam.TimeLimit.Minutes()), exam.TotalScore, exam.PassingScore, string(structureJSON))
	if err != nil {
		return fmt.Errorf("failed to upsert mock exam %s: %w", exam.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetMockExam(ctx context.Context, id string) (*question.MockExam, error) {
	var row examRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM mock_exams WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mock exam %s: %w", id, err)
	}
	return row.toDomain()
}

func (s *SQLiteStore) ListMockExams(ctx context.Context) ([]*question.MockExam, error) {
	var rows []examRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM mock_exams ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list mock exams: %w", err)
	}

	exams := make([]*question.MockExam, 0, len(rows))
	for _, row := range rows {
		exam, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		exams = append(exams, exam)
	}
	return exams, nil
}

// ============================================================================
// Attempt ledger + review transitions
// ============================================================================

type attemptRow struct {
	ID           string    `db:"id"`
	QuestionID   string    `db:"question_id"`
	PayloadJSON  string    `db:"payload_json"`
	IsCorrect    bool      `db:"is_correct"`
	AnswerTimeMs int64     `db:"answer_time_ms"`
	SessionID    *string   `db:"session_id"`
	SessionKind  string    `db:"session_kind"`
	AnsweredAt   time.Time `db:"answered_at"`
}

func (r attemptRow) toRecord() (AttemptRecord, error) {
	record := AttemptRecord{
		ID:           r.ID,
		QuestionID:   r.QuestionID,
		IsCorrect:    r.IsCorrect,
		AnswerTimeMs: r.AnswerTimeMs,
		SessionID:    r.SessionID,
		SessionKind:  SessionKind(r.SessionKind),
		AnsweredAt:   r.AnsweredAt,
	}
	if err := json.Unmarshal([]byte(r.PayloadJSON), &record.Payload); err != nil {
		return AttemptRecord{}, fmt.Errorf("attempt %s: bad payload: %w", r.ID, err)
	}
	return record, nil
}

// CommitAttempts appends ledger rows and applies the paired review
// transitions in a single transaction. A mock-exam finish passes the
// whole session here, so the commit is all-or-nothing for every
// question in it.
func (s *SQLiteStore) CommitAttempts(ctx context.Context, commits []AttemptCommit) error {
	if len(commits) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range commits {
		if err := insertAttempt(ctx, tx, c.Attempt); err != nil {
			return err
		}
		if err := applyReviewOutcome(ctx, tx, c.Review); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit attempts: %w", err)
	}
	return nil
}

func insertAttempt(ctx context.Context, tx *sqlx.Tx, a AttemptRecord) error {
	payloadJSON, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload for %s: %w", a.QuestionID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attempts (id, question_id, payload_json, is_correct, answer_time_ms, session_id, session_kind, answered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.QuestionID, string(payloadJSON), a.IsCorrect, a.AnswerTimeMs, a.SessionID, string(a.SessionKind), a.AnsweredAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record attempt for %s: %w", a.QuestionID, err)
	}
	return nil
}

func applyReviewOutcome(ctx context.Context, tx *sqlx.Tx, outcome review.Outcome) error {
	switch outcome.Action {
	case review.ActionNone:
		return nil

	case review.ActionCreated:
		item := outcome.Item
		_, err := tx.ExecContext(ctx, `
			INSERT INTO review_items (question_id, incorrect_count, consecutive_correct_count, status, priority_score, last_answered_at, last_reviewed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, item.QuestionID, item.IncorrectCount, item.ConsecutiveCorrectCount, string(item.Status), item.PriorityScore, item.LastAnsweredAt.UTC(), nullableTime(item.LastReviewedAt))
		if err != nil {
			return fmt.Errorf("failed to create review item for %s: %w", item.QuestionID, err)
		}
		return nil

	case review.ActionUpdated:
		item := outcome.Item
		result, err := tx.ExecContext(ctx, `
			UPDATE review_items SET
				incorrect_count = ?,
				consecutive_correct_count = ?,
				status = ?,
				priority_score = ?,
				last_answered_at = ?,
				last_reviewed_at = ?
			WHERE question_id = ?
		`, item.IncorrectCount, item.ConsecutiveCorrectCount, string(item.Status), item.PriorityScore, item.LastAnsweredAt.UTC(), nullableTime(item.LastReviewedAt), item.QuestionID)
		if err != nil {
			return fmt.Errorf("failed to update review item for %s: %w", item.QuestionID, err)
		}
		// Updating an untracked question is a caller bug; silently
		// creating a row here would mask it.
		if n, err := result.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return fmt.Errorf("review item for %s: %w", item.QuestionID, review.ErrNotTracked)
		}
		return nil

	case review.ActionMastered:
		result, err := tx.ExecContext(ctx, "DELETE FROM review_items WHERE question_id = ?", outcome.QuestionID)
		if err != nil {
			return fmt.Errorf("failed to retire review item for %s: %w", outcome.QuestionID, err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return fmt.Errorf("review item for %s: %w", outcome.QuestionID, review.ErrNotTracked)
		}
		// The row is gone, so mastered totals live in their own table.
		_, err = tx.ExecContext(ctx, "INSERT INTO mastery_events (question_id, mastered_at) VALUES (?, ?)",
			outcome.QuestionID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to record mastery for %s: %w", outcome.QuestionID, err)
		}
		return nil
	}

	return fmt.Errorf("unknown review action %q", outcome.Action)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func (s *SQLiteStore) QueryAttempts(ctx context.Context, filter AttemptFilter) ([]AttemptRecord, error) {
	query := "SELECT a.* FROM attempts a"
	var where []string
	var args []any

	if filter.Category != nil {
		query += " JOIN questions q ON q.id = a.question_id"
		where = append(where, "q.category = ?")
		args = append(args, string(*filter.Category))
	}
	if filter.QuestionID != nil {
		where = append(where, "a.question_id = ?")
		args = append(args, *filter.QuestionID)
	}
	if filter.SessionID != nil {
		where = append(where, "a.session_id = ?")
		args = append(args, *filter.SessionID)
	}
	if filter.IsCorrect != nil {
		where = append(where, "a.is_correct = ?")
		args = append(args, *filter.IsCorrect)
	}
	if filter.From != nil {
		where = append(where, "a.answered_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		where = append(where, "a.answered_at < ?")
		args = append(args, filter.To.UTC())
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.answered_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []attemptRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}

	records := make([]AttemptRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// PruneAttempts deletes ledger rows older than the horizon. Review
// items carry their own last_answered_at column, so pruning the ledger
// never invalidates the review set.
func (s *SQLiteStore) PruneAttempts(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM attempts WHERE answered_at < ?", olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune attempts: %w", err)
	}
	return result.RowsAffected()
}

// ============================================================================
// Review items
// ============================================================================

type reviewItemRow struct {
	QuestionID              string       `db:"question_id"`
	IncorrectCount          int          `db:"incorrect_count"`
	ConsecutiveCorrectCount int          `db:"consecutive_correct_count"`
	Status                  string       `db:"status"`
	PriorityScore           int          `db:"priority_score"`
	LastAnsweredAt          time.Time    `db:"last_answered_at"`
	LastReviewedAt          sql.NullTime `db:"last_reviewed_at"`
}

func (r reviewItemRow) toDomain() *review.Item {
	item := &review.Item{
		QuestionID:              r.QuestionID,
		IncorrectCount:          r.IncorrectCount,
		ConsecutiveCorrectCount: r.ConsecutiveCorrectCount,
		Status:                  review.Status(r.Status),
		PriorityScore:           r.PriorityScore,
		LastAnsweredAt:          r.LastAnsweredAt,
	}
	if r.LastReviewedAt.Valid {
		t := r.LastReviewedAt.Time
		item.LastReviewedAt = &t
	}
	return item
}

func (s *SQLiteStore) GetReviewItem(ctx context.Context, questionID string) (*review.Item, error) {
	var row reviewItemRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM review_items WHERE question_id = ?", questionID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review item for %s: %w", questionID, err)
	}
	return row.toDomain(), nil
}

// ListReviewItems returns active items matching the filter, highest
// priority first, stalest first among equals. Mastered items cannot
// appear: mastery deletes the row.
func (s *SQLiteStore) ListReviewItems(ctx context.Context, filter review.Filter) ([]*review.Item, error) {
	query := "SELECT r.* FROM review_items r"
	var where []string
	var args []any

	if filter.Category != nil {
		query += " JOIN questions q ON q.id = r.question_id"
		where = append(where, "q.category = ?")
		args = append(args, string(*filter.Category))
	}
	if filter.Status != nil {
		where = append(where, "r.status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.MinPriority != nil {
		where = append(where, "r.priority_score >= ?")
		args = append(args, *filter.MinPriority)
	}
	if filter.MaxPriority != nil {
		where = append(where, "r.priority_score <= ?")
		args = append(args, *filter.MaxPriority)
	}
	if filter.AnsweredBefore != nil {
		where = append(where, "r.last_answered_at < ?")
		args = append(args, filter.AnsweredBefore.UTC())
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.priority_score DESC, r.last_answered_at ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []reviewItemRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list review items: %w", err)
	}

	items := make([]*review.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, nil
}

// ReviewStatistics aggregates the active review set and the running
// mastered total.
func (s *SQLiteStore) ReviewStatistics(ctx context.Context) (*review.Statistics, error) {
	stats := &review.Statistics{
		ByCategory: make(map[question.Category]review.CategoryStats),
	}

	var rows []struct {
		Category    string  `db:"category"`
		Status      string  `db:"status"`
		Count       int     `db:"count"`
		AvgPriority float64 `db:"avg_priority"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT q.category AS category, r.status AS status,
		       COUNT(*) AS count, AVG(r.priority_score) AS avg_priority
		FROM review_items r
		JOIN questions q ON q.id = r.question_id
		GROUP BY q.category, r.status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate review items: %w", err)
	}

	var prioritySum float64
	for _, r := range rows {
		cat := question.Category(r.Category)
		cs := stats.ByCategory[cat]
		previous := cs.NeedsReview + cs.PriorityReview

		switch review.Status(r.Status) {
		case review.StatusNeedsReview:
			stats.NeedsReview += r.Count
			cs.NeedsReview += r.Count
		case review.StatusPriorityReview:
			stats.PriorityReview += r.Count
			cs.PriorityReview += r.Count
		}
		stats.TotalItems += r.Count
		prioritySum += r.AvgPriority * float64(r.Count)

		total := previous + r.Count
		if total > 0 {
			cs.AveragePriority = (cs.AveragePriority*float64(previous) + r.AvgPriority*float64(r.Count)) / float64(total)
		}
		stats.ByCategory[cat] = cs
	}
	if stats.TotalItems > 0 {
		stats.AveragePriority = prioritySum / float64(stats.TotalItems)
	}

	if err := s.db.GetContext(ctx, &stats.MasteredTotal, "SELECT COUNT(*) FROM mastery_events"); err != nil {
		return nil, fmt.Errorf("failed to count mastery events: %w", err)
	}
	return stats, nil
}

// ============================================================================
// Statistics aggregation queries
// ============================================================================

func (s *SQLiteStore) OverallCounts(ctx context.Context) (OverallCounts, error) {
	var counts OverallCounts
	err := s.db.GetContext(ctx, &counts, `
		SELECT COUNT(*) AS total_attempts,
		       COALESCE(SUM(is_correct), 0) AS correct_attempts,
		       COUNT(DISTINCT question_id) AS distinct_questions,
		       COALESCE(SUM(answer_time_ms), 0) AS total_time_ms
		FROM attempts
	`)
	if err != nil {
		return OverallCounts{}, fmt.Errorf("failed to aggregate attempts: %w", err)
	}
	return counts, nil
}

func (s *SQLiteStore) CategoryCounts(ctx context.Context) ([]CategoryCounts, error) {
	var rows []CategoryCounts
	err := s.db.SelectContext(ctx, &rows, `
		SELECT q.category AS category,
		       COUNT(DISTINCT q.id) AS total_questions,
		       COUNT(DISTINCT a.question_id) AS answered_questions,
		       COUNT(a.id) AS total_attempts,
		       COALESCE(SUM(a.is_correct), 0) AS correct_attempts,
		       COALESCE(SUM(a.answer_time_ms), 0) AS total_time_ms
		FROM questions q
		LEFT JOIN attempts a ON a.question_id = q.id
		GROUP BY q.category
		ORDER BY q.category
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by category: %w", err)
	}
	return rows, nil
}

// StudyDays returns the distinct calendar days with at least one
// attempt, most recent first, as YYYY-MM-DD.
func (s *SQLiteStore) StudyDays(ctx context.Context) ([]string, error) {
	var days []string
	err := s.db.SelectContext(ctx, &days, `
		SELECT DISTINCT date(answered_at) FROM attempts ORDER BY 1 DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list study days: %w", err)
	}
	return days, nil
}
