package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomKind names one of the two chat surfaces.
type RoomKind string

const (
	RoomKindChapter RoomKind = "chapter"
	RoomKindGroup   RoomKind = "group"
)

type MemberRole string

const (
	MemberRoleMember MemberRole = "member"
	MemberRoleLead   MemberRole = "lead"
)

// Chapter is a public, city-style community.
type Chapter struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"name"`
	City        string    `gorm:"type:varchar(120)" json:"city"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Chapter) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// SecretGroup is an invite-gated group.
type SecretGroup struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(120);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	InviteCode  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (SecretGroup) TableName() string {
	return "secret_groups"
}

func (g *SecretGroup) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.InviteCode == "" {
		g.InviteCode = uuid.NewString()
	}
	return nil
}

// ChapterMember and GroupMember share a shape so one membership repository
// can serve both room kinds.
type ChapterMember struct {
	RoomID   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"chapter_id"`
	UserID   uuid.UUID  `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	Role     MemberRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	JoinedAt time.Time  `gorm:"autoCreateTime" json:"joined_at"`

	Chapter Chapter `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"-"`
	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ChapterMember) TableName() string {
	return "chapter_members"
}

type GroupMember struct {
	RoomID   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"group_id"`
	UserID   uuid.UUID  `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	Role     MemberRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	JoinedAt time.Time  `gorm:"autoCreateTime" json:"joined_at"`

	Group SecretGroup `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"-"`
	User  User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (GroupMember) TableName() string {
	return "group_members"
}
