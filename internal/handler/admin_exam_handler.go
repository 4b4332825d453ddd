package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examarena/examarena-backend/internal/middleware"
	"github.com/examarena/examarena-backend/internal/model"
	"github.com/examarena/examarena-backend/internal/response"
	"github.com/examarena/examarena-backend/internal/service"
	"github.com/examarena/examarena-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminExamHandler handles the admin exam management endpoints.
type AdminExamHandler struct {
	examService    *service.ExamService
	attemptService *service.AttemptService
}

// NewAdminExamHandler creates a new AdminExamHandler.
func NewAdminExamHandler(examService *service.ExamService, attemptService *service.AttemptService) *AdminExamHandler {
	return &AdminExamHandler{
		examService:    examService,
		attemptService: attemptService,
	}
}

// List godoc
// GET /api/v1/admin/exams
// Returns every exam including drafts.
func (h *AdminExamHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	exams, pagination, err := h.examService.ListAll(c.Request.Context(), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, pagination)
}

// Get godoc
// GET /api/v1/admin/exams/:exam_id
func (h *AdminExamHandler) Get(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// Create godoc
// POST /api/v1/admin/exams
// Creates a draft exam owned by the caller.
func (h *AdminExamHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// Update godoc
// PUT /api/v1/admin/exams/:exam_id
// Edits a draft exam. Published exams are frozen.
func (h *AdminExamHandler) Update(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), examID, &req)
	if err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// Delete godoc
// DELETE /api/v1/admin/exams/:exam_id
func (h *AdminExamHandler) Delete(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), examID); err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// AddQuestion godoc
// POST /api/v1/admin/exams/:exam_id/questions
func (h *AdminExamHandler) AddQuestion(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.examService.AddQuestion(c.Request.Context(), examID, &req)
	if err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// ListQuestions godoc
// GET /api/v1/admin/exams/:exam_id/questions
// Includes grading fields; never exposed to students.
func (h *AdminExamHandler) ListQuestions(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	questions, err := h.examService.ListQuestions(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	// Admin view includes correct answers, which the model hides by
	// default from JSON.
	type adminQuestion struct {
		model.Question
		CorrectAnswer string `json:"correct_answer"`
	}
	out := make([]adminQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, adminQuestion{Question: q, CorrectAnswer: q.CorrectAnswer})
	}

	response.Success(c, http.StatusOK, gin.H{"questions": out})
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/exams/:exam_id/questions/:question_id
func (h *AdminExamHandler) DeleteQuestion(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.DeleteQuestion(c.Request.Context(), examID, questionID); err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Publish godoc
// POST /api/v1/admin/exams/:exam_id/publish
// Moves a draft into the schedule and warms the Redis cache.
func (h *AdminExamHandler) Publish(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	exam, err := h.examService.Publish(c.Request.Context(), examID)
	if err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// AnnounceResults godoc
// POST /api/v1/admin/exams/:exam_id/announce
// Ranks scored attempts and makes results public.
func (h *AdminExamHandler) AnnounceResults(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	exam, err := h.examService.AnnounceResults(c.Request.Context(), examID)
	if err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// ListAttempts godoc
// GET /api/v1/admin/exams/:exam_id/attempts
// Returns the results table for an exam.
func (h *AdminExamHandler) ListAttempts(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	attempts, pagination, err := h.attemptService.ListByExam(c.Request.Context(), examID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attempts": attempts}, pagination)
}

// failExamError maps exam domain errors to response codes.
func failExamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrExamNotDraft)
	case errors.Is(err, service.ErrExamNotCompleted):
		response.Fail(c, http.StatusConflict, response.ErrActionForbidden)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
