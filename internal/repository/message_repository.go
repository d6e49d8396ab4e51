package repository

import (
	"context"
	"time"

	"github.com/Baaaki/chapterhub/internal/apperr"
	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/google/uuid"
	"github.com/samber/lo/mutable"
	"gorm.io/gorm"
)

const (
	minContent = models.MinContentLength
	maxContent = models.MaxContentLength
)

// Cursor is the exclusive upper bound of a history scan. A zero ID means the
// bound is the timestamp alone.
type Cursor struct {
	CreatedAt time.Time
	ID        int64
}

// MessageRepository is the append-only message log shared by every room kind.
// The table to operate on is passed per call.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append inserts msg and fills in its storage-assigned ID.
func (r *MessageRepository) Append(ctx context.Context, table MessageTable, msg *models.Message) error {
	err := r.db.WithContext(ctx).Table(table.Name).Create(msg).Error
	return apperr.Classify(err, "append message")
}

// Range returns up to limit messages of roomID strictly older than before,
// oldest first. Sender name and avatar are joined from users on every read.
func (r *MessageRepository) Range(ctx context.Context, table MessageTable, roomID uuid.UUID, before *Cursor, limit int) ([]models.Message, error) {
	query := r.selectWithSender(ctx, table).Where("m.room_id = ?", roomID)

	if before != nil {
		createdAt := before.CreatedAt.UTC()
		if before.ID > 0 {
			query = query.Where("(m.created_at < ? OR (m.created_at = ? AND m.id < ?))", createdAt, createdAt, before.ID)
		} else {
			query = query.Where("m.created_at < ?", createdAt)
		}
	}

	// Newest first to ride the (room_id, created_at DESC, id DESC) index.
	var messages []models.Message
	err := query.
		Order("m.created_at DESC").
		Order("m.id DESC").
		Limit(limit).
		Scan(&messages).Error
	if err != nil {
		return nil, apperr.Classify(err, "read messages")
	}

	mutable.Reverse(messages)
	return messages, nil
}

// Get loads a single message of roomID with its sender metadata.
func (r *MessageRepository) Get(ctx context.Context, table MessageTable, roomID uuid.UUID, messageID int64) (*models.Message, error) {
	var messages []models.Message
	err := r.selectWithSender(ctx, table).
		Where("m.room_id = ? AND m.id = ?", roomID, messageID).
		Limit(1).
		Scan(&messages).Error
	if err != nil {
		return nil, apperr.Classify(err, "read message")
	}
	if len(messages) == 0 {
		return nil, apperr.NotFound("message not found")
	}
	return &messages[0], nil
}

// Delete removes a single message of roomID.
func (r *MessageRepository) Delete(ctx context.Context, table MessageTable, roomID uuid.UUID, messageID int64) error {
	result := r.db.WithContext(ctx).
		Table(table.Name).
		Where("room_id = ? AND id = ?", roomID, messageID).
		Delete(&models.Message{})
	if result.Error != nil {
		return apperr.Classify(result.Error, "delete message")
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("message not found")
	}
	return nil
}

// CountBySender is used by moderation tooling and rides the sender index.
func (r *MessageRepository) CountBySender(ctx context.Context, table MessageTable, senderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table(table.Name).Where("sender_id = ?", senderID).Count(&count).Error
	return count, apperr.Classify(err, "count messages")
}

func (r *MessageRepository) selectWithSender(ctx context.Context, table MessageTable) *gorm.DB {
	return r.db.WithContext(ctx).
		Table(table.Name+" AS m").
		Select("m.id, m.room_id, m.sender_id, m.content, m.created_at, m.edited_at, " +
			"u.display_name AS sender_name, u.avatar_url AS sender_avatar_url").
		Joins("JOIN users u ON u.id = m.sender_id")
}
