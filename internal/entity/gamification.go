package entity

import (
	"time"

	"github.com/google/uuid"
)

// UserStats holds per-user aggregate counters, maintained with upsert-style
// increments so the row is created lazily on first use.
type UserStats struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	User           User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	TotalReferrals int       `gorm:"default:0" json:"total_referrals"`
	TotalPosts     int       `gorm:"default:0" json:"total_posts"`
	TotalComments  int       `gorm:"default:0" json:"total_comments"`
	LastUpdatedAt  time.Time `gorm:"autoUpdateTime" json:"last_updated_at"`
}
