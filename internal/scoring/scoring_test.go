package scoring_test

import (
	"testing"

	"github.com/examarena/examarena-backend/internal/model"
	"github.com/examarena/examarena-backend/internal/scoring"
	"github.com/google/uuid"
)

func newQuestion(correct string, marks, negative int) model.Question {
	return model.Question{
		ID:            uuid.New(),
		CorrectAnswer: correct,
		Marks:         marks,
		NegativeMarks: negative,
	}
}

func TestScoreCorrectWrongAndUnanswered(t *testing.T) {
	q1 := newQuestion("A", 4, 1)
	q2 := newQuestion("B", 4, 1)
	q3 := newQuestion("C", 4, 1)
	questions := []model.Question{q1, q2, q3}

	selected := map[uuid.UUID]string{
		q1.ID: "A", // correct: +4
		q2.ID: "D", // wrong:   -1
		// q3 unanswered: 0
	}

	if got := scoring.Score(questions, selected); got != 3 {
		t.Fatalf("expected score 3, got %d", got)
	}
}

func TestScoreAllCorrectEqualsMaxScore(t *testing.T) {
	q1 := newQuestion("B", 2, 0)
	q2 := newQuestion("C", 5, 2)
	questions := []model.Question{q1, q2}

	selected := map[uuid.UUID]string{q1.ID: "B", q2.ID: "C"}

	got := scoring.Score(questions, selected)
	if got != scoring.MaxScore(questions) {
		t.Fatalf("expected perfect score %d, got %d", scoring.MaxScore(questions), got)
	}
	if got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}

func TestScoreCanGoNegative(t *testing.T) {
	q1 := newQuestion("A", 1, 3)
	questions := []model.Question{q1}

	selected := map[uuid.UUID]string{q1.ID: "B"}

	if got := scoring.Score(questions, selected); got != -3 {
		t.Fatalf("expected -3, got %d", got)
	}
}

func TestScoreIgnoresUnknownQuestionIDs(t *testing.T) {
	q1 := newQuestion("A", 4, 1)
	questions := []model.Question{q1}

	selected := map[uuid.UUID]string{
		q1.ID:      "A",
		uuid.New(): "B", // not part of the exam
	}

	if got := scoring.Score(questions, selected); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
}

func TestScoreEmptySelection(t *testing.T) {
	questions := []model.Question{newQuestion("A", 4, 1), newQuestion("B", 4, 1)}

	if got := scoring.Score(questions, nil); got != 0 {
		t.Fatalf("expected 0 for no answers, got %d", got)
	}
}

func TestSelectedFromAnswersSkipsUnanswered(t *testing.T) {
	qID := uuid.New()
	choice := "C"
	answers := []model.Answer{
		{QuestionID: qID, SelectedAnswer: &choice},
		{QuestionID: uuid.New(), SelectedAnswer: nil},
	}

	selected := scoring.SelectedFromAnswers(answers)
	if len(selected) != 1 {
		t.Fatalf("expected 1 selection, got %d", len(selected))
	}
	if selected[qID] != "C" {
		t.Fatalf("expected C for %s, got %q", qID, selected[qID])
	}
}
