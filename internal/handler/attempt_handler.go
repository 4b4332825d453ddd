package handler

import (
	"errors"
	"net/http"

	"github.com/examarena/examarena-backend/internal/middleware"
	"github.com/examarena/examarena-backend/internal/model"
	"github.com/examarena/examarena-backend/internal/repository"
	"github.com/examarena/examarena-backend/internal/response"
	"github.com/examarena/examarena-backend/internal/service"
	"github.com/examarena/examarena-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AttemptHandler handles the exam-taking endpoints.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// Start godoc
// POST /api/v1/exams/:exam_id/attempts
// Starts (or resumes) the caller's attempt. The deadline is persisted
// at start, so a reload never resets the clock.
func (h *AttemptHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotActive):
			response.Fail(c, http.StatusConflict, response.ErrExamNotActive)
		case errors.Is(err, repository.ErrAttemptExists):
			response.Fail(c, http.StatusConflict, response.ErrAttemptExists)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": attempt})
}

// GetPaper godoc
// GET /api/v1/exams/:exam_id/attempts/me/paper
// Returns the cached question paper without correct answers.
func (h *AttemptHandler) GetPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	payload, err := h.attemptService.GetPaper(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, payload)
}

// GetState godoc
// GET /api/v1/exams/:exam_id/attempts/me/state
// Returns autosaved answers and remaining time for reload recovery.
func (h *AttemptHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	state, err := h.attemptService.GetState(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// Autosave godoc
// PUT /api/v1/exams/:exam_id/attempts/me/answers
// HTTP fallback for clients without a WebSocket connection.
func (h *AttemptHandler) Autosave(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	var req model.AnswerInput
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	answer := ""
	if req.SelectedAnswer != nil {
		answer = *req.SelectedAnswer
	}

	err := h.attemptService.Autosave(c.Request.Context(), examID, claims.UserID, req.QuestionID, answer, req.IsMarkedForReview)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// Submit godoc
// POST /api/v1/exams/:exam_id/attempts/me/submit
// Finalizes the attempt. The score stays hidden until results are
// announced.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.Submit(c.Request.Context(), examID, claims.UserID, &req)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// Result godoc
// GET /api/v1/exams/:exam_id/attempts/me/result
// Returns the graded review once results are announced.
func (h *AttemptHandler) Result(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	result, err := h.attemptService.Result(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ListMine godoc
// GET /api/v1/me/attempts
// Returns the caller's attempt history for the dashboard.
func (h *AttemptHandler) ListMine(c *gin.Context) {
	claims := middleware.GetClaims(c)

	summaries, err := h.attemptService.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": summaries})
}

// ────────────────────────────────────────────────────────────────────────────
// Shared helpers
// ────────────────────────────────────────────────────────────────────────────

func parseExamID(c *gin.Context) (uuid.UUID, bool) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return examID, true
}

// failAttemptError maps attempt domain errors to response codes.
func failAttemptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
	case errors.Is(err, repository.ErrAttemptFinished):
		response.Fail(c, http.StatusConflict, response.ErrAttemptFinished)
	case errors.Is(err, service.ErrDeadlineExceeded):
		response.Fail(c, http.StatusConflict, response.ErrDeadlineExceeded)
	case errors.Is(err, service.ErrResultsNotVisible):
		response.Fail(c, http.StatusForbidden, response.ErrResultsNotVisible)
	case errors.Is(err, service.ErrExamNotActive):
		response.Fail(c, http.StatusConflict, response.ErrExamNotActive)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
