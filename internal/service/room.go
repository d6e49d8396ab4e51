package service

import (
	"context"

	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/Baaaki/chapterhub/internal/repository"
	"github.com/google/uuid"
)

//go:generate mockgen -source=room.go -destination=mocks/mock_room.go -package=mocks

// MembershipGate answers whether a user may see and write a room's history.
// It is consulted on every call and must not be cached by implementations.
type MembershipGate interface {
	IsMember(ctx context.Context, userID, roomID uuid.UUID) (bool, error)
}

// IdentityResolver returns a user's current public name and avatar.
type IdentityResolver interface {
	GetDisplayMeta(ctx context.Context, userID uuid.UUID) (*models.DisplayMeta, error)
}

// Room binds the shared chat engine to one room kind: where its messages live
// and who may access them.
type Room struct {
	Kind  models.RoomKind
	Table repository.MessageTable
	Gate  MembershipGate
}

func ChapterRoom(gate MembershipGate) Room {
	return Room{Kind: models.RoomKindChapter, Table: repository.ChapterMessages, Gate: gate}
}

func GroupRoom(gate MembershipGate) Room {
	return Room{Kind: models.RoomKindGroup, Table: repository.GroupMessages, Gate: gate}
}
