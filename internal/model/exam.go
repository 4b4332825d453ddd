package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the lifecycle states of an exam.
type ExamStatus string

const (
	ExamStatusDraft            ExamStatus = "draft"
	ExamStatusUpcoming         ExamStatus = "upcoming"
	ExamStatusActive           ExamStatus = "active"
	ExamStatusCompleted        ExamStatus = "completed"
	ExamStatusResultsAnnounced ExamStatus = "results_announced"
)

// VisibleStatuses are the statuses shown in the public catalog.
// Drafts are never listed.
var VisibleStatuses = []ExamStatus{
	ExamStatusUpcoming,
	ExamStatusActive,
	ExamStatusCompleted,
	ExamStatusResultsAnnounced,
}

// Exam represents an exam entity.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	CreatedBy       *uuid.UUID `json:"created_by,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	DurationMinutes int        `json:"duration_minutes"`
	TotalMarks      int        `json:"total_marks"`
	ExamType        string     `json:"exam_type,omitempty"`
	Status          ExamStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title           string    `json:"title" binding:"required,min=3,max=255"`
	Description     string    `json:"description" binding:"omitempty,max=2000"`
	StartTime       time.Time `json:"start_time" binding:"required"`
	EndTime         time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=1,max=480"`
	TotalMarks      int       `json:"total_marks" binding:"required,min=1"`
	ExamType        string    `json:"exam_type" binding:"omitempty,max=50"`
}

// UpdateExamRequest is the payload for updating a draft exam.
type UpdateExamRequest struct {
	Title           string     `json:"title" binding:"omitempty,min=3,max=255"`
	Description     *string    `json:"description" binding:"omitempty,max=2000"`
	StartTime       *time.Time `json:"start_time" binding:"omitempty"`
	EndTime         *time.Time `json:"end_time" binding:"omitempty"`
	DurationMinutes int        `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	TotalMarks      int        `json:"total_marks" binding:"omitempty,min=1"`
	ExamType        string     `json:"exam_type" binding:"omitempty,max=50"`
}

// ExamPayload is the Redis-cached paper sent to exam takers (no correct answers).
type ExamPayload struct {
	ExamID    uuid.UUID            `json:"exam_id"`
	Title     string               `json:"title"`
	Duration  int                  `json:"duration_minutes"`
	Questions []QuestionForStudent `json:"questions"`
}
