package model

import (
	"time"

	"github.com/google/uuid"
)

// Vote is one user's up- or downvote on a message. Net score is always an
// aggregate over votes, never a stored column on the message.
type Vote struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	MessageID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"message_id"`
	Message   Message   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Value     int       `gorm:"not null" json:"value"` // 1 or -1
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
