package repository

import (
	"context"
	"errors"

	"github.com/Baaaki/chapterhub/internal/apperr"
	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomRepository owns the lifecycle of chapters and secret groups. Deleting a
// room cascades to its memberships and its message history.
type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) CreateChapter(ctx context.Context, chapter *models.Chapter) error {
	return apperr.Classify(r.db.WithContext(ctx).Create(chapter).Error, "create chapter")
}

func (r *RoomRepository) CreateGroup(ctx context.Context, group *models.SecretGroup) error {
	return apperr.Classify(r.db.WithContext(ctx).Create(group).Error, "create group")
}

func (r *RoomRepository) GetChapter(ctx context.Context, id uuid.UUID) (*models.Chapter, error) {
	var chapter models.Chapter
	if err := r.db.WithContext(ctx).First(&chapter, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("chapter not found")
		}
		return nil, apperr.Classify(err, "get chapter")
	}
	return &chapter, nil
}

func (r *RoomRepository) GetGroupByInviteCode(ctx context.Context, code string) (*models.SecretGroup, error) {
	var group models.SecretGroup
	if err := r.db.WithContext(ctx).First(&group, "invite_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("invite code not recognised")
		}
		return nil, apperr.Classify(err, "get group")
	}
	return &group, nil
}

func (r *RoomRepository) DeleteChapter(ctx context.Context, id uuid.UUID) error {
	return r.deleteRoom(ctx, &models.Chapter{}, id, "chapter not found")
}

func (r *RoomRepository) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	return r.deleteRoom(ctx, &models.SecretGroup{}, id, "group not found")
}

func (r *RoomRepository) deleteRoom(ctx context.Context, model interface{}, id uuid.UUID, notFound string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if result.Error != nil {
		return apperr.Classify(result.Error, "delete room")
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound(notFound)
	}
	return nil
}
