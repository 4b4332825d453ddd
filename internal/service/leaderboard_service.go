package service

import (
	"context"

	"github.com/examarena/examarena-backend/internal/model"
	"github.com/examarena/examarena-backend/internal/repository"
	"github.com/google/uuid"
)

// LeaderboardLimit caps the public leaderboard size.
const LeaderboardLimit = 50

// LeaderboardService reads ranked results for public display.
type LeaderboardService struct {
	leaderboardRepo *repository.LeaderboardRepository
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(leaderboardRepo *repository.LeaderboardRepository) *LeaderboardService {
	return &LeaderboardService{leaderboardRepo: leaderboardRepo}
}

// Top returns up to LeaderboardLimit entries, optionally for one exam.
// Only exams with announced results contribute entries.
func (s *LeaderboardService) Top(ctx context.Context, examID *uuid.UUID) ([]model.LeaderboardEntry, error) {
	entries, err := s.leaderboardRepo.Top(ctx, examID, LeaderboardLimit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	return entries, nil
}
