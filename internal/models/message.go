package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinContentLength = 1
	MaxContentLength = 4000
)

// Message is one row of a room's append-only history. The message tables are
// created by the schema provisioner, not by AutoMigrate, so the struct carries
// no table name of its own.
type Message struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RoomID    uuid.UUID  `gorm:"column:room_id;type:uuid;not null" json:"room_id"`
	SenderID  uuid.UUID  `gorm:"column:sender_id;type:uuid;not null" json:"sender_id"`
	Content   string     `gorm:"column:content;type:text;not null" json:"content"`
	CreatedAt time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	EditedAt  *time.Time `gorm:"column:edited_at" json:"edited_at"`

	// Resolved from users at read time, never written.
	SenderName      string `gorm:"column:sender_name;->;-:migration" json:"sender_name"`
	SenderAvatarURL string `gorm:"column:sender_avatar_url;->;-:migration" json:"sender_avatar_url"`
}
