package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusCompleted ReferralStatus = "completed"
	ReferralStatusExpired   ReferralStatus = "expired"
)

// Referral links a referrer to a referred new user. Status moves forward
// only: pending -> completed or pending -> expired, never back.
//
// The unique index on ReferredID enforces "one referral per lifetime per
// referred user" at the store level, so concurrent signups with the same
// code collapse into a single surviving record.
type Referral struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReferrerID uuid.UUID `gorm:"type:uuid;index;not null" json:"referrer_id"`
	Referrer   User      `gorm:"foreignKey:ReferrerID" json:"-"`
	ReferredID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"referred_id"`
	Referred   User      `gorm:"foreignKey:ReferredID" json:"referred,omitempty"`
	// ReferralCode is the code captured at creation time, immutable afterwards.
	ReferralCode   string         `gorm:"size:30;not null" json:"referral_code"`
	Status         ReferralStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	ExpiresAt      time.Time      `gorm:"not null;index" json:"expires_at"`
	RewardsClaimed bool           `gorm:"not null;default:false" json:"rewards_claimed"`
	ReferrerReward int            `gorm:"not null" json:"referrer_reward"`
	ReferredReward int            `gorm:"not null" json:"referred_reward"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (r *Referral) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
