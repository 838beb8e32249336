package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxNestingLevel bounds reply depth. A reply landing deeper than this is
// rejected at ingestion.
const MaxNestingLevel = 10

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeVideo  MessageType = "video"
	MessageTypeSystem MessageType = "system"
)

// Message is a single polymorphic record: a root post when ParentID is nil,
// otherwise a nested reply. ThreadRootID always points at the root post of
// the whole discussion; for root posts it equals the message's own ID.
type Message struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID        uuid.UUID   `gorm:"type:uuid;not null;index" json:"room_id"`
	Room          Room        `gorm:"constraint:OnDelete:CASCADE" json:"room,omitempty"`
	SenderID      uuid.UUID   `gorm:"type:uuid;not null" json:"sender_id"`
	Sender        User        `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sender,omitempty"`
	ParentID      *uuid.UUID  `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Parent        *Message    `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"parent,omitempty"`
	ThreadRootID  uuid.UUID   `gorm:"type:uuid;not null;index" json:"thread_root_id"`
	Level         int         `gorm:"not null;default:0" json:"level"`
	ChildrenCount int         `gorm:"not null;default:0" json:"children_count"`
	Type          MessageType `gorm:"size:20;not null;default:text" json:"type"`
	Content       string      `gorm:"type:text;not null" json:"content"`
	MediaURL      *string     `gorm:"type:text" json:"media_url,omitempty"`
	IsDeleted     bool        `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID, err = uuid.NewV7()
	}
	return
}

// IsPost reports whether the message is a thread root.
func (m *Message) IsPost() bool {
	return m.ParentID == nil
}
