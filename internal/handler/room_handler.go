package handler

import (
	"net/http"

	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/Baaaki/chapterhub/internal/service"
	"github.com/gin-gonic/gin"
)

// RoomHandler lets users join and leave rooms.
type RoomHandler struct {
	rooms *service.RoomService
}

func NewRoomHandler(rooms *service.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

type JoinGroupRequest struct {
	InviteCode string `json:"invite_code" binding:"required,notblank"`
}

// JoinChapter adds the caller to an open chapter.
// POST /api/chapters/:roomId/join
func (h *RoomHandler) JoinChapter(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	roomID, err := uuidParam(c, "roomId")
	if err != nil {
		respondError(c, err, "join chapter")
		return
	}

	if err := h.rooms.JoinChapter(c.Request.Context(), roomID, claims.UserID); err != nil {
		respondError(c, err, "join chapter")
		return
	}
	c.Status(http.StatusNoContent)
}

// JoinGroup redeems an invite code.
// POST /api/groups/join
func (h *RoomHandler) JoinGroup(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req JoinGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err), "join group")
		return
	}

	group, err := h.rooms.JoinGroupByInvite(c.Request.Context(), req.InviteCode, claims.UserID)
	if err != nil {
		respondError(c, err, "join group")
		return
	}
	c.JSON(http.StatusOK, group)
}

// Leave returns a handler removing the caller from a room of kind.
// DELETE /api/{chapters|groups}/:roomId/membership
func (h *RoomHandler) Leave(kind models.RoomKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := requireClaims(c)
		if !ok {
			return
		}
		roomID, err := uuidParam(c, "roomId")
		if err != nil {
			respondError(c, err, "leave room")
			return
		}

		if err := h.rooms.Leave(c.Request.Context(), kind, roomID, claims.UserID); err != nil {
			respondError(c, err, "leave room")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// MyRooms lists the rooms the caller belongs to.
// GET /api/me/rooms
func (h *RoomHandler) MyRooms(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	rooms, err := h.rooms.ListMyRooms(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err, "list rooms")
		return
	}
	c.JSON(http.StatusOK, rooms)
}
