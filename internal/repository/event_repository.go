package repository

import (
	"context"
	"time"

	"github.com/Baaaki/chapterhub/internal/apperr"
	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	return apperr.Classify(r.db.WithContext(ctx).Create(event).Error, "create event")
}

func (r *EventRepository) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, apperr.Classify(err, "event")
	}
	return &event, nil
}

// PublishDue flips every scheduled event whose time has come to published.
// The status guard makes the update safe to run repeatedly and from several
// replicas at once; published_at is only set when still empty.
func (r *EventRepository) PublishDue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", models.StatusScheduled, now).
		Updates(map[string]interface{}{
			"status":       models.StatusPublished,
			"published_at": gorm.Expr("COALESCE(published_at, ?)", now),
			"updated_at":   now,
		})
	if result.Error != nil {
		return 0, apperr.Classify(result.Error, "publish due events")
	}
	return result.RowsAffected, nil
}
