// Package scoring implements the grading rule for multiple-choice
// attempts. It is pure so grading can run identically in the request
// path, the batch worker, and tests.
package scoring

import (
	"github.com/examarena/examarena-backend/internal/model"
	"github.com/google/uuid"
)

// Score grades a set of selected answers against an exam's questions.
// A correct selection earns the question's marks, a wrong selection
// costs its negative marks, an unanswered question contributes zero.
// Selections for unknown question IDs are ignored.
func Score(questions []model.Question, selected map[uuid.UUID]string) int {
	total := 0
	for _, q := range questions {
		answer, ok := selected[q.ID]
		if !ok || answer == "" {
			continue
		}
		if answer == q.CorrectAnswer {
			total += q.Marks
		} else {
			total -= q.NegativeMarks
		}
	}
	return total
}

// MaxScore returns the sum of marks across all questions, the score of
// a perfect attempt.
func MaxScore(questions []model.Question) int {
	total := 0
	for _, q := range questions {
		total += q.Marks
	}
	return total
}

// SelectedFromAnswers flattens answer rows into a question→choice map,
// skipping unanswered rows.
func SelectedFromAnswers(answers []model.Answer) map[uuid.UUID]string {
	selected := make(map[uuid.UUID]string, len(answers))
	for _, a := range answers {
		if a.SelectedAnswer != nil && *a.SelectedAnswer != "" {
			selected[a.QuestionID] = *a.SelectedAnswer
		}
	}
	return selected
}
