package handler

import (
	"net/http"
	"strconv"

	"github.com/examarena/examarena-backend/internal/model"
	"github.com/examarena/examarena-backend/internal/response"
	"github.com/examarena/examarena-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CatalogHandler serves the exam catalog browsed by students.
type CatalogHandler struct {
	examService *service.ExamService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(examService *service.ExamService) *CatalogHandler {
	return &CatalogHandler{examService: examService}
}

// ListExams godoc
// GET /api/v1/exams?status=&page=&per_page=
// Returns non-draft exams, optionally filtered by lifecycle status.
func (h *CatalogHandler) ListExams(c *gin.Context) {
	var status *model.ExamStatus
	if raw := c.Query("status"); raw != "" {
		st := model.ExamStatus(raw)
		valid := false
		for _, v := range model.VisibleStatuses {
			if st == v {
				valid = true
				break
			}
		}
		if !valid {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		status = &st
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	exams, pagination, err := h.examService.ListCatalog(c.Request.Context(), status, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, pagination)
}

// GetExam godoc
// GET /api/v1/exams/:exam_id
// Returns one catalog exam. Drafts are invisible here.
func (h *CatalogHandler) GetExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil || exam.Status == model.ExamStatusDraft {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}
