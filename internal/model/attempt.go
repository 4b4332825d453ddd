package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates exam attempt states.
type AttemptStatus string

const (
	AttemptStatusInProgress  AttemptStatus = "in_progress"
	AttemptStatusSubmitted   AttemptStatus = "submitted"
	AttemptStatusUnderReview AttemptStatus = "under_review"
	AttemptStatusCompleted   AttemptStatus = "completed"
)

// CanTransition reports whether an attempt may move from its current
// status to the target. The lifecycle is strictly forward:
// in_progress → submitted → under_review → completed.
func (s AttemptStatus) CanTransition(to AttemptStatus) bool {
	switch s {
	case AttemptStatusInProgress:
		return to == AttemptStatusSubmitted
	case AttemptStatusSubmitted:
		return to == AttemptStatusUnderReview || to == AttemptStatusCompleted
	case AttemptStatusUnderReview:
		return to == AttemptStatusCompleted
	default:
		return false
	}
}

// Attempt represents one user's single pass through an exam.
// Rank is only meaningful when Status is completed.
type Attempt struct {
	ID             uuid.UUID     `json:"id"`
	ExamID         uuid.UUID     `json:"exam_id"`
	UserID         uuid.UUID     `json:"user_id"`
	StartTime      time.Time     `json:"start_time"`
	Deadline       time.Time     `json:"deadline"`
	EndTime        *time.Time    `json:"end_time,omitempty"`
	Status         AttemptStatus `json:"status"`
	TotalScore     *int          `json:"total_score,omitempty"`
	Rank           *int          `json:"rank,omitempty"`
	ViolationCount int           `json:"violation_count"`
	CreatedAt      time.Time     `json:"created_at"`
}

// RemainingSeconds returns the whole seconds left until the deadline
// as observed at now. Never negative.
func (a *Attempt) RemainingSeconds(now time.Time) int64 {
	remaining := a.Deadline.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int64(remaining.Seconds())
}

// AttemptState is returned to a reconnecting client so it can restore
// the question navigator and countdown after a reload.
type AttemptState struct {
	ExamID           uuid.UUID         `json:"exam_id"`
	AttemptID        uuid.UUID         `json:"attempt_id"`
	Status           AttemptStatus     `json:"status"`
	AutosavedAnswers map[string]string `json:"autosaved_answers"`
	RemainingSeconds int64             `json:"remaining_seconds"`
}

// AnswerInput is one entry of a submitted answer set. SelectedAnswer
// is nil for an unanswered question.
type AnswerInput struct {
	QuestionID        uuid.UUID `json:"question_id" binding:"required"`
	SelectedAnswer    *string   `json:"selected_answer" binding:"omitempty,oneof=A B C D"`
	IsMarkedForReview bool      `json:"is_marked_for_review"`
}

// SubmitAttemptRequest is the payload for finalizing an attempt.
// Answers may be empty; autosaved answers already in the store win
// only where the request does not provide an entry.
type SubmitAttemptRequest struct {
	Answers []AnswerInput `json:"answers" binding:"dive"`
}

// AttemptSummary is an attempt joined with exam display fields,
// shown on the user dashboard.
type AttemptSummary struct {
	Attempt
	ExamTitle      string `json:"exam_title"`
	ExamTotalMarks int    `json:"exam_total_marks"`
}
