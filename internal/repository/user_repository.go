package repository

import (
	"context"
	"errors"

	"github.com/Baaaki/chapterhub/internal/apperr"
	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUserByEmail returns nil, nil when no user matches.
// Soft-deleted users are excluded automatically.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// GetDisplayMeta resolves the current public name and avatar of a user.
func (r *UserRepository) GetDisplayMeta(ctx context.Context, id uuid.UUID) (*models.DisplayMeta, error) {
	var meta models.DisplayMeta
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("display_name AS name, avatar_url").
		Where("id = ?", id).
		Take(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Classify(err, "resolve user")
	}
	return &meta, nil
}

// UpdateProfile changes the fields shown next to a user's messages.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, displayName, avatarURL string) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"display_name": displayName,
			"avatar_url":   avatarURL,
		})
	if result.Error != nil {
		return apperr.Classify(result.Error, "update profile")
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// GetAllUsers returns all users including soft-deleted ones.
func (r *UserRepository) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).Unscoped().Order("created_at DESC").Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
