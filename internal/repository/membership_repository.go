package repository

import (
	"context"
	"time"

	"github.com/Baaaki/chapterhub/internal/apperr"
	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// membershipRow mirrors models.ChapterMember and models.GroupMember, which
// share their column layout.
type membershipRow struct {
	RoomID   uuid.UUID
	UserID   uuid.UUID
	Role     models.MemberRole
	JoinedAt time.Time
}

// MembershipRepository answers and edits "is user U in room R" for one join
// table.
type MembershipRepository struct {
	db    *gorm.DB
	table string
}

func NewChapterMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db, table: models.ChapterMember{}.TableName()}
}

func NewGroupMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db, table: models.GroupMember{}.TableName()}
}

// IsMember hits the database on every call; membership is never cached.
func (r *MembershipRepository) IsMember(ctx context.Context, userID, roomID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table(r.table).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, apperr.Classify(err, "check membership")
	}
	return count > 0, nil
}

// AddMember is idempotent: adding an existing member keeps their row.
func (r *MembershipRepository) AddMember(ctx context.Context, roomID, userID uuid.UUID, role models.MemberRole) error {
	row := membershipRow{
		RoomID:   roomID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).
		Table(r.table).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	return apperr.Classify(err, "add member")
}

func (r *MembershipRepository) RemoveMember(ctx context.Context, roomID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Table(r.table).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&membershipRow{})
	if result.Error != nil {
		return apperr.Classify(result.Error, "remove member")
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("membership not found")
	}
	return nil
}

// ListRoomIDs returns the rooms userID belongs to.
func (r *MembershipRepository) ListRoomIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Table(r.table).
		Where("user_id = ?", userID).
		Order("joined_at").
		Pluck("room_id", &ids).Error
	return ids, apperr.Classify(err, "list memberships")
}
