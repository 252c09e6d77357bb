package dto

import (
	"time"

	"devsocial.app/backend/internal/entity"
	"github.com/google/uuid"
)

type RegisterInput struct {
	Username     string `json:"username" binding:"required,alphanum,min=3,max=30"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8,max=72"`
	DisplayName  string `json:"display_name" binding:"required,max=100"`
	ReferralCode string `json:"referral_code" binding:"omitempty,max=30"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	AvatarURL    *string   `json:"avatar_url"`
	Role         string    `json:"role"`
	Points       int       `json:"points"`
	Level        int       `json:"level"`
	ReferralCode *string   `json:"referral_code,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// ToUserResponse flattens a user entity with its profile and role preloaded.
func ToUserResponse(user *entity.User) UserResponse {
	resp := UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		AvatarURL:    user.AvatarURL,
		Points:       user.Points,
		Level:        user.Level,
		ReferralCode: user.ReferralCode,
		CreatedAt:    user.CreatedAt,
	}
	resp.Role = user.Role.Name
	if user.Profile != nil {
		resp.DisplayName = user.Profile.DisplayName
	}
	return resp
}
