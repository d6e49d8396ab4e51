package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Baaaki/chapterhub/internal/apperr"
	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/Baaaki/chapterhub/internal/repository"
	"github.com/Baaaki/chapterhub/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoomService manages rooms and who belongs to them. The chat engine only
// reads the membership this service writes.
type RoomService struct {
	rooms          *repository.RoomRepository
	chapterMembers *repository.MembershipRepository
	groupMembers   *repository.MembershipRepository
}

func NewRoomService(
	rooms *repository.RoomRepository,
	chapterMembers *repository.MembershipRepository,
	groupMembers *repository.MembershipRepository,
) *RoomService {
	return &RoomService{
		rooms:          rooms,
		chapterMembers: chapterMembers,
		groupMembers:   groupMembers,
	}
}

// MyRooms lists the rooms a user can chat in.
type MyRooms struct {
	Chapters []uuid.UUID `json:"chapters"`
	Groups   []uuid.UUID `json:"groups"`
}

func (s *RoomService) CreateChapter(ctx context.Context, name, city, description string, createdBy uuid.UUID) (*models.Chapter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("chapter name is required")
	}

	chapter := &models.Chapter{Name: name, City: city, Description: description, CreatedBy: createdBy}
	if err := s.rooms.CreateChapter(ctx, chapter); err != nil {
		return nil, err
	}
	if err := s.chapterMembers.AddMember(ctx, chapter.ID, createdBy, models.MemberRoleLead); err != nil {
		return nil, err
	}

	logger.Log.Info("Chapter created",
		zap.String("chapter_id", chapter.ID.String()),
		zap.String("created_by", createdBy.String()),
	)
	return chapter, nil
}

func (s *RoomService) CreateGroup(ctx context.Context, name, description string, createdBy uuid.UUID) (*models.SecretGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("group name is required")
	}

	group := &models.SecretGroup{Name: name, Description: description, CreatedBy: createdBy}
	if err := s.rooms.CreateGroup(ctx, group); err != nil {
		return nil, err
	}
	if err := s.groupMembers.AddMember(ctx, group.ID, createdBy, models.MemberRoleLead); err != nil {
		return nil, err
	}

	logger.Log.Info("Secret group created",
		zap.String("group_id", group.ID.String()),
		zap.String("created_by", createdBy.String()),
	)
	return group, nil
}

// DeleteRoom removes a room together with its members and message history.
func (s *RoomService) DeleteRoom(ctx context.Context, kind models.RoomKind, roomID uuid.UUID) error {
	var err error
	switch kind {
	case models.RoomKindChapter:
		err = s.rooms.DeleteChapter(ctx, roomID)
	case models.RoomKindGroup:
		err = s.rooms.DeleteGroup(ctx, roomID)
	default:
		return unknownKind(kind)
	}
	if err != nil {
		return err
	}

	logger.Log.Info("Room deleted",
		zap.String("room_kind", string(kind)),
		zap.String("room_id", roomID.String()),
	)
	return nil
}

func (s *RoomService) AddMember(ctx context.Context, kind models.RoomKind, roomID, userID uuid.UUID) error {
	members, err := s.members(kind)
	if err != nil {
		return err
	}
	return members.AddMember(ctx, roomID, userID, models.MemberRoleMember)
}

func (s *RoomService) RemoveMember(ctx context.Context, kind models.RoomKind, roomID, userID uuid.UUID) error {
	members, err := s.members(kind)
	if err != nil {
		return err
	}
	return members.RemoveMember(ctx, roomID, userID)
}

// JoinChapter lets any user join a chapter; chapters are open.
func (s *RoomService) JoinChapter(ctx context.Context, chapterID, userID uuid.UUID) error {
	if _, err := s.rooms.GetChapter(ctx, chapterID); err != nil {
		return err
	}
	return s.chapterMembers.AddMember(ctx, chapterID, userID, models.MemberRoleMember)
}

// JoinGroupByInvite admits userID to the secret group behind code.
func (s *RoomService) JoinGroupByInvite(ctx context.Context, code string, userID uuid.UUID) (*models.SecretGroup, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.Validation("invite code is required")
	}
	group, err := s.rooms.GetGroupByInviteCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.groupMembers.AddMember(ctx, group.ID, userID, models.MemberRoleMember); err != nil {
		return nil, err
	}

	logger.Log.Info("User joined secret group",
		zap.String("group_id", group.ID.String()),
		zap.String("user_id", userID.String()),
	)
	return group, nil
}

func (s *RoomService) Leave(ctx context.Context, kind models.RoomKind, roomID, userID uuid.UUID) error {
	return s.RemoveMember(ctx, kind, roomID, userID)
}

func (s *RoomService) ListMyRooms(ctx context.Context, userID uuid.UUID) (*MyRooms, error) {
	chapters, err := s.chapterMembers.ListRoomIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	groups, err := s.groupMembers.ListRoomIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	rooms := &MyRooms{Chapters: []uuid.UUID{}, Groups: []uuid.UUID{}}
	rooms.Chapters = append(rooms.Chapters, chapters...)
	rooms.Groups = append(rooms.Groups, groups...)
	return rooms, nil
}

func (s *RoomService) members(kind models.RoomKind) (*repository.MembershipRepository, error) {
	switch kind {
	case models.RoomKindChapter:
		return s.chapterMembers, nil
	case models.RoomKindGroup:
		return s.groupMembers, nil
	}
	return nil, unknownKind(kind)
}

func unknownKind(kind models.RoomKind) error {
	return apperr.Validation(fmt.Sprintf("unknown room kind %q", kind))
}
