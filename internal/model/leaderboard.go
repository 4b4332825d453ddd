package model

import (
	"github.com/google/uuid"
)

// LeaderboardEntry is a completed, ranked attempt joined with exam
// title and profile display fields.
type LeaderboardEntry struct {
	Rank              int       `json:"rank"`
	UserID            uuid.UUID `json:"user_id"`
	TotalScore        int       `json:"total_score"`
	ExamID            uuid.UUID `json:"exam_id"`
	ExamTitle         string    `json:"exam_title"`
	FullName          string    `json:"full_name"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
}
