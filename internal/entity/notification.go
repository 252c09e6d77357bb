package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Notification struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`  // who receives it
	ActorID    uuid.UUID `gorm:"type:uuid;not null" json:"actor_id"`       // who triggered it
	EntityID   uuid.UUID `gorm:"type:uuid" json:"entity_id"`               // referral/post/user id
	EntityType string    `gorm:"size:50;not null" json:"entity_type"`      // 'referral', 'post', 'gamification'
	Type       string    `gorm:"size:50;not null" json:"type"`             // 'referral_completed', 'level_up', 'comment'
	Message    string    `gorm:"type:text" json:"message"`
	IsRead     bool      `gorm:"default:false" json:"is_read"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Pointers avoid recursion when User carries notifications.
	User  *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
