package entity

import (
	"time"

	"github.com/google/uuid"
)

// XPTransaction is an append-only ledger row. It is never updated or deleted;
// the user's point total is the running sum of their rows.
type XPTransaction struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;index:idx_xp_user_type,priority:1;not null" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID" json:"-"`
	Type       string    `gorm:"size:50;index:idx_xp_user_type,priority:2;not null" json:"type"`
	Amount     int       `gorm:"not null" json:"amount"`
	RelatedID  string    `gorm:"size:36" json:"related_id"` // UUID of the post/comment/referral
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
