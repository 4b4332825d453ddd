package service

import (
	"testing"
	"time"

	"github.com/examarena/examarena-backend/internal/model"
	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestAnsweredTimesKeepsUnchangedSelections(t *testing.T) {
	keptQ := uuid.New()
	changedQ := uuid.New()
	autosavedAt := time.Now().Add(-2 * time.Minute)

	persisted := []model.Answer{
		{QuestionID: keptQ, SelectedAnswer: strPtr("A"), AnsweredAt: &autosavedAt},
		{QuestionID: changedQ, SelectedAnswer: strPtr("B"), AnsweredAt: &autosavedAt},
	}
	selected := map[uuid.UUID]string{
		keptQ:    "A", // unchanged since autosave
		changedQ: "D", // overridden at submit
	}

	times := answeredTimes(persisted, selected)

	if got, ok := times[keptQ]; !ok || !got.Equal(autosavedAt) {
		t.Fatalf("expected autosaved timestamp for unchanged answer, got %v (present=%v)", got, ok)
	}
	if _, ok := times[changedQ]; ok {
		t.Fatal("changed selection must not reuse the autosaved timestamp")
	}
}

func TestAnsweredTimesSkipsIncompleteRows(t *testing.T) {
	qID := uuid.New()
	now := time.Now()

	persisted := []model.Answer{
		{QuestionID: qID, SelectedAnswer: nil, AnsweredAt: &now},
		{QuestionID: uuid.New(), SelectedAnswer: strPtr("C"), AnsweredAt: nil},
	}
	selected := map[uuid.UUID]string{qID: "C"}

	if times := answeredTimes(persisted, selected); len(times) != 0 {
		t.Fatalf("expected no timestamps from incomplete rows, got %d", len(times))
	}
}

func TestBuildAnswerRowsCarriesAutosavedTimestamps(t *testing.T) {
	q1 := model.Question{ID: uuid.New()}
	q2 := model.Question{ID: uuid.New()}
	q3 := model.Question{ID: uuid.New()}

	autosavedAt := time.Now().Add(-90 * time.Second)
	now := time.Now()

	selected := map[uuid.UUID]string{
		q1.ID: "A", // autosaved earlier
		q2.ID: "B", // picked at submit
	}
	answeredAt := map[uuid.UUID]time.Time{q1.ID: autosavedAt}

	rows := buildAnswerRows(
		[]model.Question{q1, q2, q3},
		selected,
		map[uuid.UUID]bool{q2.ID: true},
		answeredAt,
		now,
	)

	if len(rows) != 3 {
		t.Fatalf("expected one row per question, got %d", len(rows))
	}

	byQuestion := make(map[uuid.UUID]model.Answer, len(rows))
	for _, r := range rows {
		byQuestion[r.QuestionID] = r
	}

	if got := byQuestion[q1.ID].AnsweredAt; got == nil || !got.Equal(autosavedAt) {
		t.Fatalf("expected autosaved timestamp %v, got %v", autosavedAt, got)
	}
	if got := byQuestion[q2.ID].AnsweredAt; got == nil || !got.Equal(now) {
		t.Fatalf("expected submit timestamp %v, got %v", now, got)
	}
	if !byQuestion[q2.ID].IsMarkedForReview {
		t.Fatal("expected q2 to stay marked for review")
	}
	if byQuestion[q3.ID].SelectedAnswer != nil || byQuestion[q3.ID].AnsweredAt != nil {
		t.Fatal("unanswered question must have nil selection and timestamp")
	}
}
