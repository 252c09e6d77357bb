package handler

import (
	"net/http"

	"devsocial.app/backend/internal/entity"
	postDto "devsocial.app/backend/internal/modules/post/dto"
	postService "devsocial.app/backend/internal/modules/post/service"
	"devsocial.app/backend/pkg/apperror"
	pkgDto "devsocial.app/backend/pkg/dto"
	"devsocial.app/backend/pkg/response"
	"devsocial.app/backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PostHandler struct {
	service postService.PostService
}

func NewPostHandler(service postService.PostService) *PostHandler {
	return &PostHandler{service: service}
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var input postDto.CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, validator.FormatValidationError(err), apperror.ErrInvalidInput))
		return
	}

	post, err := h.service.CreatePost(c.Request.Context(), userID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, post)
}

func (h *PostHandler) GetFeed(c *gin.Context) {
	var query pkgDto.PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, apperror.ErrInvalidInput)
		return
	}

	feed, err := h.service.GetFeed(c.Request.Context(), query.Page, query.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, feed)
}

func (h *PostHandler) GetPost(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrInvalidInput)
		return
	}

	post, err := h.service.GetPost(c.Request.Context(), postID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, post)
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrInvalidInput)
		return
	}

	// Admin override comes from the RequireAdmin middleware chain having
	// stashed the full user; plain users only get their own posts.
	isAdmin := false
	if raw, exists := c.Get("user"); exists {
		if user, ok := raw.(*entity.User); ok {
			isAdmin = user.Role.Name == entity.RoleAdmin
		}
	}

	if err := h.service.DeletePost(c.Request.Context(), postID, userID, isAdmin); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *PostHandler) CreateComment(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrInvalidInput)
		return
	}

	var input postDto.CreateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, validator.FormatValidationError(err), apperror.ErrInvalidInput))
		return
	}

	comment, err := h.service.CreateComment(c.Request.Context(), userID, postID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, comment)
}

func (h *PostHandler) GetComments(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrInvalidInput)
		return
	}

	var query pkgDto.PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, apperror.ErrInvalidInput)
		return
	}

	comments, err := h.service.GetComments(c.Request.Context(), postID, query.Page, query.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, comments)
}
