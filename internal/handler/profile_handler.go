package handler

import (
	"errors"
	"net/http"

	"github.com/examarena/examarena-backend/internal/middleware"
	"github.com/examarena/examarena-backend/internal/model"
	"github.com/examarena/examarena-backend/internal/response"
	"github.com/examarena/examarena-backend/internal/service"
	"github.com/examarena/examarena-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// ProfileHandler handles profile self-service endpoints.
type ProfileHandler struct {
	profileService *service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// Update godoc
// PUT /api/v1/me/profile
// Changes the caller's display name. Email and role are immutable here.
func (h *ProfileHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.UpdateProfileRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	profile, err := h.profileService.UpdateName(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"profile": profile})
}

// UpdatePassword godoc
// PUT /api/v1/me/password
// Changes the caller's password after re-verifying the current one.
// The active session is invalidated, so the client must log in again.
func (h *ProfileHandler) UpdatePassword(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.UpdatePasswordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.profileService.ChangePassword(c.Request.Context(), claims.UserID, &req); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "password updated"})
}

// UploadPicture godoc
// POST /api/v1/me/profile/picture
// Accepts a multipart image upload and stores it as the profile picture.
func (h *ProfileHandler) UploadPicture(c *gin.Context) {
	claims := middleware.GetClaims(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	defer file.Close()

	profile, err := h.profileService.SetProfilePicture(c.Request.Context(), claims.UserID, file, fileHeader)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFileType):
			response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		case errors.Is(err, service.ErrFileTooLarge):
			response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"profile": profile})
}
