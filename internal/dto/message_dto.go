package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateMessageRequest struct {
	Content         string `json:"content" binding:"required"`
	Type            string `json:"type" binding:"omitempty,oneof=text image video"`
	MediaURL        string `json:"media_url"`
	ParentMessageID string `json:"parent_message_id"` // Optional, for nested replies
}

type SenderInfo struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
}

// MessageResponse is one node of the hydrated comment tree. ReplyCount
// carries the stored children count so clients can show a "view more"
// affordance below the depth cutoff even when Replies is empty.
type MessageResponse struct {
	ID           uuid.UUID          `json:"id"`
	RoomID       uuid.UUID          `json:"room_id"`
	ParentID     *uuid.UUID         `json:"parent_id,omitempty"`
	ThreadRootID uuid.UUID          `json:"thread_root_id"`
	Level        int                `json:"level"`
	Type         string             `json:"type"`
	Content      string             `json:"content"`
	MediaURL     *string            `json:"media_url,omitempty"`
	Sender       SenderInfo         `json:"sender"`
	NetScore     int                `json:"net_score"`
	ReplyCount   int                `json:"reply_count"`
	Replies      []*MessageResponse `json:"replies,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

type MessageFilter struct {
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=latest hot top"`
	MaxLevel int    `form:"max_level"`
}

type PaginatedMessageResponse struct {
	Data []*MessageResponse `json:"data"`
	Meta PaginationMeta     `json:"meta"`
}

type VoteRequest struct {
	Value int `json:"value" binding:"oneof=-1 0 1"`
}
