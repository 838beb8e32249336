package dto

import (
	"time"

	"github.com/google/uuid"
)

type NotificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Message   string     `json:"message"`
	RoomID    uuid.UUID  `json:"room_id"`
	RoomSlug  string     `json:"room_slug"`
	MessageID uuid.UUID  `json:"message_id"`
	Actor     SenderInfo `json:"actor"`
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
}
