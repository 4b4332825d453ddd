package model

import (
	"time"

	"github.com/google/uuid"
)

// Answer is one row per question per attempt. SelectedAnswer is nil
// when the question was left unanswered.
type Answer struct {
	ID                uuid.UUID  `json:"id"`
	AttemptID         uuid.UUID  `json:"attempt_id"`
	QuestionID        uuid.UUID  `json:"question_id"`
	SelectedAnswer    *string    `json:"selected_answer"`
	IsMarkedForReview bool       `json:"is_marked_for_review"`
	AnsweredAt        *time.Time `json:"answered_at,omitempty"`
}
