package handler

import (
	"net/http"

	profileDto "devsocial.app/backend/internal/modules/profile/dto"
	profileService "devsocial.app/backend/internal/modules/profile/service"
	"devsocial.app/backend/pkg/apperror"
	"devsocial.app/backend/pkg/response"
	"devsocial.app/backend/pkg/validator"
	"github.com/gin-gonic/gin"
)

const maxAvatarBytes = 5 << 20 // 5 MiB

type ProfileHandler struct {
	service profileService.ProfileService
}

func NewProfileHandler(service profileService.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	profile, err := h.service.GetProfileByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var input profileDto.UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, validator.FormatValidationError(err), apperror.ErrInvalidInput))
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), userID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, "avatar file is required", apperror.ErrInvalidInput))
		return
	}
	if fileHeader.Size > maxAvatarBytes {
		response.Error(c, apperror.New(http.StatusBadRequest, "avatar file is too large", apperror.ErrInvalidInput))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	url, err := h.service.UpdateAvatar(c.Request.Context(), userID, file, fileHeader.Filename)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profileDto.AvatarResponse{AvatarURL: url})
}
