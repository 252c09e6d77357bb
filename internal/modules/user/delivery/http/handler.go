package handler

import (
	"net/http"
	"strconv"
	"time"

	search "devsocial.app/backend/internal/modules/search/service"
	userDto "devsocial.app/backend/internal/modules/user/dto"
	userService "devsocial.app/backend/internal/modules/user/service"
	"devsocial.app/backend/pkg/apperror"
	"devsocial.app/backend/pkg/ratelimit"
	"devsocial.app/backend/pkg/response"
	"devsocial.app/backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type UserHandler struct {
	authService   userService.AuthService
	searchService search.SearchService
	rdb           *redis.Client
	signupWindow  time.Duration
}

func NewUserHandler(
	authService userService.AuthService,
	searchService search.SearchService,
	rdb *redis.Client,
	signupWindow time.Duration,
) *UserHandler {
	return &UserHandler{
		authService:   authService,
		searchService: searchService,
		rdb:           rdb,
		signupWindow:  signupWindow,
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var input userDto.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, validator.FormatValidationError(err), apperror.ErrInvalidInput))
		return
	}

	allowed, err := ratelimit.CheckAndSet(c.Request.Context(), h.rdb, c.ClientIP(), "signup", h.signupWindow)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !allowed {
		response.Error(c, apperror.ErrRateLimitExceeded)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

func (h *UserHandler) Login(c *gin.Context) {
	var input userDto.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, validator.FormatValidationError(err), apperror.ErrInvalidInput))
		return
	}

	result, err := h.authService.Login(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.authService.GetMe(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// SearchUsers queries the member directory index. Degrades to an empty list
// when search is not configured.
func (h *UserHandler) SearchUsers(c *gin.Context) {
	if h.searchService == nil {
		response.Success(c, http.StatusOK, []search.UserDocument{})
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)

	results, err := h.searchService.SearchUsers(c.Query("q"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, results)
}
