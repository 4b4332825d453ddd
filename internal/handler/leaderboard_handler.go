package handler

import (
	"net/http"

	"github.com/examarena/examarena-backend/internal/response"
	"github.com/examarena/examarena-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LeaderboardHandler serves public ranked results.
type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(leaderboardService *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

// Top godoc
// GET /api/v1/leaderboard?exam_id=
// Returns the top 50 entries across announced exams, or for one exam.
func (h *LeaderboardHandler) Top(c *gin.Context) {
	var examID *uuid.UUID
	if raw := c.Query("exam_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		examID = &id
	}

	entries, err := h.leaderboardService.Top(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"leaderboard": entries})
}
