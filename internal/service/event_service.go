package service

import (
	"context"
	"strings"
	"time"

	"github.com/Baaaki/chapterhub/internal/apperr"
	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/Baaaki/chapterhub/internal/repository"
	"github.com/Baaaki/chapterhub/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventService struct {
	events *repository.EventRepository
	now    func() time.Time
}

func NewEventService(events *repository.EventRepository) *EventService {
	return &EventService{events: events, now: time.Now}
}

type CreateEventInput struct {
	ChapterID uuid.UUID
	CreatedBy uuid.UUID
	Title     string
	Body      string
	StartsAt  time.Time
	// PublishAt nil publishes immediately; otherwise the event stays scheduled
	// until the publisher picks it up.
	PublishAt *time.Time
}

func (s *EventService) CreateEvent(ctx context.Context, in CreateEventInput) (*models.Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || len(title) > 200 {
		return nil, apperr.Validation("title must be between 1 and 200 characters")
	}

	now := s.now().UTC()
	event := &models.Event{
		ChapterID: in.ChapterID,
		CreatedBy: in.CreatedBy,
		Title:     title,
		Body:      in.Body,
		StartsAt:  in.StartsAt.UTC(),
	}
	if in.PublishAt == nil {
		event.Status = models.StatusPublished
		event.PublishedAt = &now
	} else {
		at := in.PublishAt.UTC()
		event.Status = models.StatusScheduled
		event.ScheduledAt = &at
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	logger.Log.Info("Event created",
		zap.String("event_id", event.ID.String()),
		zap.String("chapter_id", in.ChapterID.String()),
		zap.String("status", string(event.Status)),
	)
	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return s.events.Get(ctx, id)
}
