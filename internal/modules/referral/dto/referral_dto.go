package dto

import (
	"time"

	"devsocial.app/backend/pkg/dto"
	"github.com/google/uuid"
)

type ReferrerInfo struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// ValidateReferralResponse reports whether a code maps to a referrer.
// An unknown code is not an error, just valid=false.
type ValidateReferralResponse struct {
	Valid    bool          `json:"valid"`
	Referrer *ReferrerInfo `json:"referrer,omitempty"`
}

type StatusStats struct {
	Count   int64 `json:"count"`
	Rewards int   `json:"rewards"`
}

type ReferralItem struct {
	ID          uuid.UUID          `json:"id"`
	Status      string             `json:"status"`
	Reward      int                `json:"reward"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	ExpiresAt   time.Time          `json:"expires_at"`
	Referred    dto.AuthorResponse `json:"referred"`
}

// ReferralStatsResponse groups the referrer's referrals by status; statuses
// with no referrals are absent from the map.
type ReferralStatsResponse struct {
	Stats           map[string]StatusStats `json:"stats"`
	RecentReferrals []ReferralItem         `json:"recent_referrals"`
}

type ReferralCodeResponse struct {
	Code string `json:"code"`
}
