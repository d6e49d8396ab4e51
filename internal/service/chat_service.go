package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Baaaki/chapterhub/internal/apperr"
	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/Baaaki/chapterhub/internal/repository"
	"github.com/Baaaki/chapterhub/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatService is the message engine for one room kind. Chapter chat and group
// chat are two instances that differ only in their Room.
type ChatService struct {
	room     Room
	store    *repository.MessageRepository
	schema   *repository.SchemaProvisioner
	identity IdentityResolver
	now      func() time.Time
}

func NewChatService(
	room Room,
	store *repository.MessageRepository,
	schema *repository.SchemaProvisioner,
	identity IdentityResolver,
) *ChatService {
	return &ChatService{
		room:     room,
		store:    store,
		schema:   schema,
		identity: identity,
		now:      time.Now,
	}
}

func (s *ChatService) Kind() models.RoomKind {
	return s.room.Kind
}

// ValidateContent enforces the message body bounds before anything touches
// storage. The message tables carry the same bound as a CHECK constraint.
func ValidateContent(content string) error {
	if !utf8.ValidString(content) {
		return apperr.Validation("content must be valid UTF-8 text")
	}
	if strings.TrimSpace(content) == "" {
		return apperr.Validation("content must not be empty")
	}
	if n := utf8.RuneCountInString(content); n > models.MaxContentLength {
		return apperr.Validation(fmt.Sprintf("content must be at most %d characters, got %d", models.MaxContentLength, n))
	}
	return nil
}

// PostMessage appends content to roomID on behalf of senderID.
//
// created_at comes from this process's clock. Cursors stay stable only while
// replicas keep their clocks in sync and monotonic. A replica whose clock lags
// or steps back inserts a row that sorts behind cursors already handed out, so
// a client that paged past that point never sees it on the newest page.
func (s *ChatService) PostMessage(ctx context.Context, roomID, senderID uuid.UUID, content string) (*models.Message, error) {
	if err := ValidateContent(content); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, senderID, roomID); err != nil {
		return nil, err
	}
	if err := s.schema.EnsureSchema(ctx, s.room.Table); err != nil {
		return nil, err
	}

	meta, err := s.identity.GetDisplayMeta(ctx, senderID)
	if err != nil {
		return nil, apperr.Classify(err, "resolve sender")
	}

	msg := &models.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
		// Postgres keeps microseconds; truncating here keeps the returned
		// value and any cursor built from it identical to the stored row.
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.store.Append(ctx, s.room.Table, msg); err != nil {
		return nil, err
	}
	msg.SenderName = meta.Name
	msg.SenderAvatarURL = meta.AvatarURL

	logger.Log.Debug("Message appended",
		zap.String("room_kind", string(s.room.Kind)),
		zap.String("room_id", roomID.String()),
		zap.Int64("message_id", msg.ID),
	)
	return msg, nil
}

// ListMessages returns a page of history older than cursor, or the newest page
// when cursor is empty or unreadable.
func (s *ChatService) ListMessages(ctx context.Context, roomID, requesterID uuid.UUID, limit int, cursor string) (*Page, error) {
	if err := s.authorize(ctx, requesterID, roomID); err != nil {
		return nil, err
	}
	if err := s.schema.EnsureSchema(ctx, s.room.Table); err != nil {
		return nil, err
	}

	limit = ClampLimit(limit)
	before := DecodeCursor(cursor)
	if before == nil && cursor != "" {
		logger.Log.Debug("Ignoring malformed cursor",
			zap.String("room_id", roomID.String()),
			zap.String("cursor", cursor),
		)
	}

	rows, err := s.store.Range(ctx, s.room.Table, roomID, before, limit+1)
	if err != nil {
		return nil, err
	}
	return buildPage(rows, limit), nil
}

// DeleteMessage removes one message. Senders may delete their own messages
// while they are members; administrators may delete any message.
func (s *ChatService) DeleteMessage(ctx context.Context, roomID uuid.UUID, messageID int64, requesterID uuid.UUID, isAdmin bool) error {
	if !isAdmin {
		if err := s.authorize(ctx, requesterID, roomID); err != nil {
			return err
		}
	}
	if err := s.schema.EnsureSchema(ctx, s.room.Table); err != nil {
		return err
	}

	msg, err := s.store.Get(ctx, s.room.Table, roomID, messageID)
	if err != nil {
		return err
	}
	if !isAdmin && msg.SenderID != requesterID {
		return apperr.Forbidden("only the sender or an administrator can delete this message")
	}

	if err := s.store.Delete(ctx, s.room.Table, roomID, messageID); err != nil {
		return err
	}

	logger.Log.Info("Message deleted",
		zap.String("room_kind", string(s.room.Kind)),
		zap.String("room_id", roomID.String()),
		zap.Int64("message_id", messageID),
		zap.String("deleted_by", requesterID.String()),
		zap.Bool("by_admin", isAdmin && msg.SenderID != requesterID),
	)
	return nil
}

// CountBySender reports how many messages of this room kind userID has sent.
func (s *ChatService) CountBySender(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := s.schema.EnsureSchema(ctx, s.room.Table); err != nil {
		return 0, err
	}
	return s.store.CountBySender(ctx, s.room.Table, userID)
}

func (s *ChatService) authorize(ctx context.Context, userID, roomID uuid.UUID) error {
	ok, err := s.room.Gate.IsMember(ctx, userID, roomID)
	if err != nil {
		return apperr.Classify(err, "check membership")
	}
	if !ok {
		return apperr.Forbidden(fmt.Sprintf("you are not a member of this %s", s.room.Kind))
	}
	return nil
}
