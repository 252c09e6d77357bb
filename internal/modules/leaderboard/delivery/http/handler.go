package handler

import (
	"net/http"
	"strconv"

	leaderboard "devsocial.app/backend/internal/modules/leaderboard/service"
	"devsocial.app/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type LeaderboardHandler struct {
	service leaderboard.LeaderboardService
}

func NewLeaderboardHandler(service leaderboard.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))

	entries, err := h.service.GetLeaderboard(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, entries)
}
