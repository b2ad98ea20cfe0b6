package question

import "time"

// MockExam is a fixed exam definition: three scored sections, a time
// limit, and a passing score. Definitions are content, loaded read-only
// alongside the questions they reference.
type MockExam struct {
	ID           string
	Name         string
	Description  string
	TimeLimit    time.Duration
	TotalScore   int
	PassingScore int
	Sections     []ExamSection
}

// ExamSection is one scored subdivision of a mock exam. Every question
// in a section is worth the same number of points.
type ExamSection struct {
	Number         int
	Category       Category
	QuestionIDs    []string
	PointsPerQuest int
}

// MaxScore is the sum of points over all sections.
func (e *MockExam) MaxScore() int {
	total := 0
	for _, s := range e.Sections {
		total += len(s.QuestionIDs) * s.PointsPerQuest
	}
	return total
}

// QuestionCount is the number of questions across all sections.
func (e *MockExam) QuestionCount() int {
	n := 0
	for _, s := range e.Sections {
		n += len(s.QuestionIDs)
	}
	return n
}
