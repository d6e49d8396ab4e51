package handler

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/Baaaki/chapterhub/internal/apperr"
	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/Baaaki/chapterhub/internal/service"
	"github.com/Baaaki/chapterhub/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// IPBanner is the ban list kept by the rate limiter.
type IPBanner interface {
	BanIP(ctx context.Context, ip string) error
	UnbanIP(ctx context.Context, ip string) error
}

type AdminHandler struct {
	authService *service.AuthService
	rooms       *service.RoomService
	events      *service.EventService
	chapterChat *service.ChatService
	groupChat   *service.ChatService
	bans        IPBanner
}

func NewAdminHandler(
	authService *service.AuthService,
	rooms *service.RoomService,
	events *service.EventService,
	chapterChat *service.ChatService,
	groupChat *service.ChatService,
	bans IPBanner,
) *AdminHandler {
	return &AdminHandler{
		authService: authService,
		rooms:       rooms,
		events:      events,
		chapterChat: chapterChat,
		groupChat:   groupChat,
		bans:        bans,
	}
}

type CreateChapterRequest struct {
	Name        string `json:"name" binding:"required,notblank,max=120"`
	City        string `json:"city" binding:"max=120"`
	Description string `json:"description"`
}

type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,notblank,max=120"`
	Description string `json:"description"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

type BanIPRequest struct {
	IP string `json:"ip" binding:"required,ip"`
}

type CreateEventRequest struct {
	Title     string     `json:"title" binding:"required,notblank,max=200"`
	Body      string     `json:"body"`
	StartsAt  time.Time  `json:"starts_at" binding:"required"`
	PublishAt *time.Time `json:"publish_at"`
}

// GetAllUsers returns all users (including soft-deleted ones)
// GET /api/admin/users
func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	users, err := h.authService.GetAllUsers(c.Request.Context())
	if err != nil {
		respondError(c, err, "list users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": lo.Map(users, func(u *models.User, _ int) userResponse {
			return toUserResponse(u)
		}),
	})
}

// UserActivity reports how many messages a user has posted per room kind.
// GET /api/admin/users/:userId/activity
func (h *AdminHandler) UserActivity(c *gin.Context) {
	userID, err := uuidParam(c, "userId")
	if err != nil {
		respondError(c, err, "user activity")
		return
	}

	ctx := c.Request.Context()
	chapterCount, err := h.chapterChat.CountBySender(ctx, userID)
	if err != nil {
		respondError(c, err, "user activity")
		return
	}
	groupCount, err := h.groupChat.CountBySender(ctx, userID)
	if err != nil {
		respondError(c, err, "user activity")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":          userID,
		"chapter_messages": chapterCount,
		"group_messages":   groupCount,
	})
}

// POST /api/admin/chapters
func (h *AdminHandler) CreateChapter(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req CreateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err), "create chapter")
		return
	}

	chapter, err := h.rooms.CreateChapter(c.Request.Context(), req.Name, req.City, req.Description, claims.UserID)
	if err != nil {
		respondError(c, err, "create chapter")
		return
	}
	c.JSON(http.StatusCreated, chapter)
}

// CreateGroup responds with the invite code, which is never serialized
// anywhere else.
// POST /api/admin/groups
func (h *AdminHandler) CreateGroup(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err), "create group")
		return
	}

	group, err := h.rooms.CreateGroup(c.Request.Context(), req.Name, req.Description, claims.UserID)
	if err != nil {
		respondError(c, err, "create group")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"group":       group,
		"invite_code": group.InviteCode,
	})
}

// DeleteRoom deletes a room and, through the cascade, its whole history.
// DELETE /api/admin/{chapters|groups}/:roomId
func (h *AdminHandler) DeleteRoom(kind models.RoomKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, err := uuidParam(c, "roomId")
		if err != nil {
			respondError(c, err, "delete room")
			return
		}

		if err := h.rooms.DeleteRoom(c.Request.Context(), kind, roomID); err != nil {
			respondError(c, err, "delete room")
			return
		}

		logger.Log.Info("Admin deleted room",
			zap.String("admin_id", adminID(c)),
			zap.String("room_kind", string(kind)),
			zap.String("room_id", roomID.String()),
		)
		c.Status(http.StatusNoContent)
	}
}

// POST /api/admin/{chapters|groups}/:roomId/members
func (h *AdminHandler) AddMember(kind models.RoomKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, err := uuidParam(c, "roomId")
		if err != nil {
			respondError(c, err, "add member")
			return
		}

		var req AddMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, bindError(err), "add member")
			return
		}

		if err := h.rooms.AddMember(c.Request.Context(), kind, roomID, uuid.MustParse(req.UserID)); err != nil {
			respondError(c, err, "add member")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// DELETE /api/admin/{chapters|groups}/:roomId/members/:userId
func (h *AdminHandler) RemoveMember(kind models.RoomKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, err := uuidParam(c, "roomId")
		if err != nil {
			respondError(c, err, "remove member")
			return
		}
		userID, err := uuidParam(c, "userId")
		if err != nil {
			respondError(c, err, "remove member")
			return
		}

		if err := h.rooms.RemoveMember(c.Request.Context(), kind, roomID, userID); err != nil {
			respondError(c, err, "remove member")
			return
		}

		logger.Log.Info("Admin removed member",
			zap.String("admin_id", adminID(c)),
			zap.String("room_kind", string(kind)),
			zap.String("room_id", roomID.String()),
			zap.String("user_id", userID.String()),
		)
		c.Status(http.StatusNoContent)
	}
}

// POST /api/admin/chapters/:roomId/events
func (h *AdminHandler) CreateEvent(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	chapterID, err := uuidParam(c, "roomId")
	if err != nil {
		respondError(c, err, "create event")
		return
	}

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err), "create event")
		return
	}

	event, err := h.events.CreateEvent(c.Request.Context(), service.CreateEventInput{
		ChapterID: chapterID,
		CreatedBy: claims.UserID,
		Title:     req.Title,
		Body:      req.Body,
		StartsAt:  req.StartsAt,
		PublishAt: req.PublishAt,
	})
	if err != nil {
		respondError(c, err, "create event")
		return
	}
	c.JSON(http.StatusCreated, event)
}

// POST /api/admin/bans
func (h *AdminHandler) BanIP(c *gin.Context) {
	var req BanIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err), "ban ip")
		return
	}

	if err := h.bans.BanIP(c.Request.Context(), req.IP); err != nil {
		respondError(c, apperr.Classify(err, "ban ip"), "ban ip")
		return
	}

	logger.Log.Info("Admin banned IP",
		zap.String("admin_id", adminID(c)),
		zap.String("ip", req.IP),
	)
	c.Status(http.StatusNoContent)
}

// DELETE /api/admin/bans/:ip
func (h *AdminHandler) UnbanIP(c *gin.Context) {
	ip := c.Param("ip")
	if net.ParseIP(ip) == nil {
		respondError(c, apperr.Validation("invalid ip"), "unban ip")
		return
	}

	if err := h.bans.UnbanIP(c.Request.Context(), ip); err != nil {
		respondError(c, apperr.Classify(err, "unban ip"), "unban ip")
		return
	}
	c.Status(http.StatusNoContent)
}

func adminID(c *gin.Context) string {
	if claims, ok := currentClaims(c); ok {
		return claims.UserID.String()
	}
	return ""
}
