package handler

import (
	"net/http"

	referralDto "devsocial.app/backend/internal/modules/referral/dto"
	referral "devsocial.app/backend/internal/modules/referral/service"
	"devsocial.app/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type ReferralHandler struct {
	service referral.ReferralService
}

func NewReferralHandler(service referral.ReferralService) *ReferralHandler {
	return &ReferralHandler{service: service}
}

// GetMyCode returns the caller's referral code, generating it on first access.
func (h *ReferralHandler) GetMyCode(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	code, err := h.service.GetOrCreateReferralCode(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, referralDto.ReferralCodeResponse{Code: code})
}

// ValidateCode is public: the signup form checks codes before registering.
func (h *ReferralHandler) ValidateCode(c *gin.Context) {
	result, err := h.service.ValidateReferralCode(c.Request.Context(), c.Query("code"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

func (h *ReferralHandler) GetStats(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	stats, err := h.service.GetReferralStats(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// ExpireReferrals is the cron-triggered sweep endpoint, guarded by the
// cron secret middleware.
func (h *ReferralHandler) ExpireReferrals(c *gin.Context) {
	count, err := h.service.ExpireOldReferrals(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"expired": count})
}
