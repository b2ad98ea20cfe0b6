package review

import "time"

// PriorityStrategy computes a 0-100 queue position for a review item.
// It is a single swappable policy: the scheduler never reasons about
// priority beyond "higher first".
type PriorityStrategy interface {
	Score(incorrectCount, consecutiveCorrect int, lastReviewedAt *time.Time, now time.Time) int
}

// WeightedRecency is the default strategy:
//
//	score = min(Max, incorrectCount*IncorrectWeight + recencyBonus)
//
// where recencyBonus grows with days since the last review, capped at
// RecencyCap, and an item never reviewed gets the full cap. Partial
// recovery (consecutive correct answers) subtracts CorrectPenalty per
// correct answer so a half-mastered item sinks in the queue.
type WeightedRecency struct {
	IncorrectWeight int
	RecencyPerDay   int
	RecencyCap      int
	CorrectPenalty  int
	Max             int
}

// DefaultStrategy returns the tuning used in production.
func DefaultStrategy() WeightedRecency {
	return WeightedRecency{
		IncorrectWeight: 15,
		RecencyPerDay:   2,
		RecencyCap:      20,
		CorrectPenalty:  15,
		Max:             100,
	}
}

func (w WeightedRecency) Score(incorrectCount, consecutiveCorrect int, lastReviewedAt *time.Time, now time.Time) int {
	score := incorrectCount*w.IncorrectWeight + w.recencyBonus(lastReviewedAt, now)
	score -= consecutiveCorrect * w.CorrectPenalty
	if score < 0 {
		score = 0
	}
	if score > w.Max {
		score = w.Max
	}
	return score
}

func (w WeightedRecency) recencyBonus(lastReviewedAt *time.Time, now time.Time) int {
	if lastReviewedAt == nil {
		return w.RecencyCap
	}
	days := int(now.Sub(*lastReviewedAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	bonus := days * w.RecencyPerDay
	if bonus > w.RecencyCap {
		bonus = w.RecencyCap
	}
	return bonus
}
