package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeNewPost  NotificationType = "new_post"
	NotificationTypeNewReply NotificationType = "new_reply"
)

type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	ActorID   uuid.UUID        `gorm:"type:uuid;not null" json:"actor_id"`
	RoomID    uuid.UUID        `gorm:"type:uuid;not null" json:"room_id"`
	MessageID uuid.UUID        `gorm:"type:uuid;not null" json:"message_id"`
	RoomSlug  string           `gorm:"size:120" json:"room_slug"`
	Type      NotificationType `gorm:"size:50;not null" json:"type"`
	Message   string           `gorm:"type:text" json:"message"`
	IsRead    bool             `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`

	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}
