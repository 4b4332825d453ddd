package service

import (
	"context"

	"github.com/examarena/examarena-backend/internal/model"
	"github.com/examarena/examarena-backend/internal/repository"
)

// DashboardData consolidates all metrics for the admin dashboard.
type DashboardData struct {
	TotalStudents    int64                              `json:"total_students"`
	TotalExams       int64                              `json:"total_exams"`
	TotalQuestions   int64                              `json:"total_questions"`
	TotalAttempts    int64                              `json:"total_attempts"`
	ExamStatusCounts map[model.ExamStatus]int64         `json:"exam_status_counts"`
	UpcomingExams    []repository.DashboardUpcomingExam `json:"upcoming_exams"`
	RecentResults    []repository.DashboardRecentResult `json:"recent_results"`
}

// DashboardService handles admin dashboard aggregation.
type DashboardService struct {
	repo *repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo *repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// GetDashboardData fetches all dashboard metrics.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	students, exams, questions, attempts, err := s.repo.GetSummaryCounts(ctx)
	if err != nil {
		return nil, err
	}

	statusCounts, err := s.repo.GetExamStatusCounts(ctx)
	if err != nil {
		return nil, err
	}

	upcoming, err := s.repo.GetUpcomingExams(ctx, 5)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.GetRecentResults(ctx, 5)
	if err != nil {
		return nil, err
	}

	return &DashboardData{
		TotalStudents:    students,
		TotalExams:       exams,
		TotalQuestions:   questions,
		TotalAttempts:    attempts,
		ExamStatusCounts: statusCounts,
		UpcomingExams:    upcoming,
		RecentResults:    recent,
	}, nil
}
