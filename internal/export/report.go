// Package export renders the learner's progress as an Excel workbook
// for offline study planning.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/review"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/service"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/store"
)

const (
	summarySheet  = "概要"
	categorySheet = "分野別"
	reviewSheet   = "復習リスト"
	historySheet  = "学習履歴"

	historyLimit = 500
)

// Reporter builds the study report workbook.
type Reporter struct {
	store  *store.SQLiteStore
	stats  *service.StatisticsService
	logger *slog.Logger
}

// NewReporter creates a Reporter.
func NewReporter(s *store.SQLiteStore, stats *service.StatisticsService, logger *slog.Logger) *Reporter {
	return &Reporter{store: s, stats: stats, logger: logger}
}

// WriteReport renders the workbook to w.
func (r *Reporter) WriteReport(ctx context.Context, w io.Writer) error {
	summary, err := r.stats.Summary(ctx)
	if err != nil {
		return fmt.Errorf("failed to load summary: %w", err)
	}
	reviewStats, err := r.stats.ReviewStatistics(ctx)
	if err != nil {
		return fmt.Errorf("failed to load review statistics: %w", err)
	}
	items, err := r.store.ListReviewItems(ctx, review.Filter{})
	if err != nil {
		return fmt.Errorf("failed to list review items: %w", err)
	}
	attempts, err := r.store.QueryAttempts(ctx, store.AttemptFilter{Limit: historyLimit})
	if err != nil {
		return fmt.Errorf("failed to query attempts: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := r.writeSummary(f, summary, reviewStats); err != nil {
		return err
	}
	if err := r.writeCategories(f, summary); err != nil {
		return err
	}
	if err := r.writeReviewItems(f, items); err != nil {
		return err
	}
	if err := r.writeHistory(f, attempts); err != nil {
		return err
	}

	// The default sheet is replaced by the summary.
	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(summarySheet); err == nil {
		f.SetActiveSheet(idx)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	r.logger.Info("study report exported",
		"attempts", len(attempts),
		"review_items", len(items),
	)
	return nil
}

func (r *Reporter) writeSummary(f *excelize.File, s *service.Summary, rs *review.Statistics) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	rows := [][]any{
		{"項目", "値"},
		{"総解答数", s.TotalAttempts},
		{"正解数", s.CorrectAttempts},
		{"正答率", fmt.Sprintf("%.1f%%", s.AccuracyRate*100)},
		{"解答済み問題数", s.DistinctQuestions},
		{"平均解答時間(秒)", float64(s.AverageTimeMs) / 1000},
		{"学習日数", s.StudyDays},
		{"連続学習日数", s.StreakDays},
		{"復習対象", rs.TotalItems},
		{"要復習", rs.NeedsReview},
		{"重点復習", rs.PriorityReview},
		{"習得済み", rs.MasteredTotal},
	}
	return writeRows(f, summarySheet, rows)
}

func (r *Reporter) writeCategories(f *excelize.File, s *service.Summary) error {
	if _, err := f.NewSheet(categorySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	rows := [][]any{
		{"分野", "問題数", "解答済み", "進捗率", "解答数", "正解数", "正答率"},
	}
	for _, c := range s.Categories {
		rows = append(rows, []any{
			c.DisplayName,
			c.TotalQuestions,
			c.AnsweredQuestions,
			fmt.Sprintf("%.1f%%", c.CompletionRate*100),
			c.TotalAttempts,
			c.CorrectAttempts,
			fmt.Sprintf("%.1f%%", c.AccuracyRate*100),
		})
	}
	return writeRows(f, categorySheet, rows)
}

func (r *Reporter) writeReviewItems(f *excelize.File, items []*review.Item) error {
	if _, err := f.NewSheet(reviewSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	rows := [][]any{
		{"問題ID", "状態", "優先度", "誤答回数", "連続正解", "最終解答日時"},
	}
	for _, item := range items {
		status := "要復習"
		if item.Status == review.StatusPriorityReview {
			status = "重点復習"
		}
		rows = append(rows, []any{
			item.QuestionID,
			status,
			item.PriorityScore,
			item.IncorrectCount,
			item.ConsecutiveCorrectCount,
			item.LastAnsweredAt.Format(time.DateTime),
		})
	}
	return writeRows(f, reviewSheet, rows)
}

func (r *Reporter) writeHistory(f *excelize.File, attempts []store.AttemptRecord) error {
	if _, err := f.NewSheet(historySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	rows := [][]any{
		{"解答日時", "問題ID", "結果", "解答時間(秒)", "セッション種別"},
	}
	for _, a := range attempts {
		verdict := "不正解"
		if a.IsCorrect {
			verdict = "正解"
		}
		rows = append(rows, []any{
			a.AnsweredAt.Format(time.DateTime),
			a.QuestionID,
			verdict,
			float64(a.AnswerTimeMs) / 1000,
			string(a.SessionKind),
		})
	}
	return writeRows(f, historySheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d on %s: %w", i+1, sheet, err)
		}
	}
	return nil
}
