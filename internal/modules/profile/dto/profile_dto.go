package dto

import (
	"time"

	leaderboard "devsocial.app/backend/internal/modules/leaderboard/service"
)

type UpdateProfileInput struct {
	DisplayName *string `json:"display_name" binding:"omitempty,min=1,max=100"`
	Bio         *string `json:"bio" binding:"omitempty,max=500"`
	Location    *string `json:"location" binding:"omitempty,max=100"`
}

type ActivityStats struct {
	TotalReferrals int `json:"total_referrals"`
	TotalPosts     int `json:"total_posts"`
	TotalComments  int `json:"total_comments"`
}

type ProfileResponse struct {
	Username    string                 `json:"username"`
	DisplayName string                 `json:"display_name"`
	Bio         *string                `json:"bio,omitempty"`
	Location    *string                `json:"location,omitempty"`
	AvatarURL   *string                `json:"avatar_url"`
	Points      int                    `json:"points"`
	Level       int                    `json:"level"`
	Rank        leaderboard.RankStatus `json:"rank"`
	Stats       ActivityStats          `json:"stats"`
	JoinedAt    time.Time              `json:"joined_at"`
}

type AvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}
