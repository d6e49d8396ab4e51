package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusScheduled ContentStatus = "scheduled"
	StatusPublished ContentStatus = "published"
)

// Event is chapter content that can be scheduled for later publication.
type Event struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ChapterID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"chapter_id"`
	Title       string        `gorm:"type:varchar(200);not null" json:"title"`
	Body        string        `gorm:"type:text" json:"body"`
	StartsAt    time.Time     `json:"starts_at"`
	Status      ContentStatus `gorm:"type:varchar(20);not null;default:'draft';index:idx_events_status_scheduled,priority:1" json:"status"`
	ScheduledAt *time.Time    `gorm:"index:idx_events_status_scheduled,priority:2" json:"scheduled_at,omitempty"`
	PublishedAt *time.Time    `json:"published_at,omitempty"`
	CreatedBy   uuid.UUID     `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Chapter Chapter `gorm:"foreignKey:ChapterID;constraint:OnDelete:CASCADE" json:"-"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
