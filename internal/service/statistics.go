package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/review"
	"github.com/yoshi22/bookkeeping3rd/backend/internal/store"
)

// CategorySummary is one category row of the overall summary.
type CategorySummary struct {
	Category          question.Category `json:"category"`
	DisplayName       string            `json:"display_name"`
	TotalQuestions    int               `json:"total_questions"`
	AnsweredQuestions int               `json:"answered_questions"`
	CompletionRate    float64           `json:"completion_rate"`
	TotalAttempts     int               `json:"total_attempts"`
	CorrectAttempts   int               `json:"correct_attempts"`
	AccuracyRate      float64           `json:"accuracy_rate"`
	AverageTimeMs     int64             `json:"average_time_ms"`
}

// Summary is the learner's overall progress.
type Summary struct {
	TotalAttempts     int               `json:"total_attempts"`
	CorrectAttempts   int               `json:"correct_attempts"`
	AccuracyRate      float64           `json:"accuracy_rate"`
	DistinctQuestions int               `json:"distinct_questions"`
	AverageTimeMs     int64             `json:"average_time_ms"`
	StudyDays         int               `json:"study_days"`
	StreakDays        int               `json:"streak_days"`
	Categories        []CategorySummary `json:"categories"`
}

// StatisticsService serves aggregated progress with a short TTL cache
// in front of the store. Writers call Invalidate before acknowledging
// their write, so a read that follows a write never sees stale data.
type StatisticsService struct {
	store  *store.SQLiteStore
	logger *slog.Logger
	ttl    time.Duration

	mu          sync.Mutex
	summary     *cached[*Summary]
	reviewStats *cached[*review.Statistics]
}

type cached[T any] struct {
	value     T
	expiresAt time.Time
}

// NewStatisticsService creates the service. ttl bounds how stale a
// cached aggregate may get when no invalidation arrives.
func NewStatisticsService(s *store.SQLiteStore, ttl time.Duration, logger *slog.Logger) *StatisticsService {
	return &StatisticsService{store: s, logger: logger, ttl: ttl}
}

// Invalidate drops every cached aggregate. Cheap enough to call on
// every write.
func (ss *StatisticsService) Invalidate() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.summary = nil
	ss.reviewStats = nil
}

// Summary returns the overall progress, recomputing when the cache is
// cold or expired.
func (ss *StatisticsService) Summary(ctx context.Context) (*Summary, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := time.Now()
	if ss.summary != nil && now.Before(ss.summary.expiresAt) {
		return ss.summary.value, nil
	}

	summary, err := ss.computeSummary(ctx)
	if err != nil {
		return nil, err
	}
	ss.summary = &cached[*Summary]{value: summary, expiresAt: now.Add(ss.ttl)}
	return summary, nil
}

// ReviewStatistics returns the review-set aggregates through the same
// cache discipline.
func (ss *StatisticsService) ReviewStatistics(ctx context.Context) (*review.Statistics, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := time.Now()
	if ss.reviewStats != nil && now.Before(ss.reviewStats.expiresAt) {
		return ss.reviewStats.value, nil
	}

	stats, err := ss.store.ReviewStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load review statistics: %w", err)
	}
	ss.reviewStats = &cached[*review.Statistics]{value: stats, expiresAt: now.Add(ss.ttl)}
	return stats, nil
}

func (ss *StatisticsService) computeSummary(ctx context.Context) (*Summary, error) {
	overall, err := ss.store.OverallCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load overall counts: %w", err)
	}
	byCategory, err := ss.store.CategoryCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load category counts: %w", err)
	}
	days, err := ss.store.StudyDays(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load study days: %w", err)
	}

	summary := &Summary{
		TotalAttempts:     overall.TotalAttempts,
		CorrectAttempts:   overall.CorrectAttempts,
		DistinctQuestions: overall.DistinctQuestions,
		StudyDays:         len(days),
		// Attempt timestamps are stored UTC, so the streak is counted
		// against UTC days too.
		StreakDays: streak(days, time.Now().UTC()),
	}
	if overall.TotalAttempts > 0 {
		summary.AccuracyRate = float64(overall.CorrectAttempts) / float64(overall.TotalAttempts)
		summary.AverageTimeMs = overall.TotalTimeMs / int64(overall.TotalAttempts)
	}

	for _, row := range byCategory {
		cs := CategorySummary{
			Category:          row.Category,
			DisplayName:       row.Category.DisplayName(),
			TotalQuestions:    row.TotalQuestions,
			AnsweredQuestions: row.AnsweredQuestions,
			TotalAttempts:     row.TotalAttempts,
			CorrectAttempts:   row.CorrectAttempts,
		}
		if row.TotalQuestions > 0 {
			cs.CompletionRate = float64(row.AnsweredQuestions) / float64(row.TotalQuestions)
		}
		if row.TotalAttempts > 0 {
			cs.AccuracyRate = float64(row.CorrectAttempts) / float64(row.TotalAttempts)
			cs.AverageTimeMs = row.TotalTimeMs / int64(row.TotalAttempts)
		}
		summary.Categories = append(summary.Categories, cs)
	}
	return summary, nil
}

// streak counts consecutive study days ending today or yesterday.
// days is sorted most recent first as YYYY-MM-DD.
func streak(days []string, now time.Time) int {
	if len(days) == 0 {
		return 0
	}

	cursor := now
	if days[0] != cursor.Format("2006-01-02") {
		// A streak that ended yesterday still counts until midnight.
		cursor = cursor.AddDate(0, 0, -1)
		if days[0] != cursor.Format("2006-01-02") {
			return 0
		}
	}

	count := 0
	for _, day := range days {
		if day != cursor.Format("2006-01-02") {
			break
		}
		count++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return count
}
