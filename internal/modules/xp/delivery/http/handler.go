package handler

import (
	"net/http"
	"strconv"

	xp "devsocial.app/backend/internal/modules/xp/service"
	"devsocial.app/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type XPHandler struct {
	service xp.XPService
}

func NewXPHandler(service xp.XPService) *XPHandler {
	return &XPHandler{service: service}
}

// GetLedger returns the caller's XP history, newest first.
func (h *XPHandler) GetLedger(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.service.GetLedger(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, entries)
}
