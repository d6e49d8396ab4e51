package handler

import (
	"net/http"
	"strconv"

	"github.com/Baaaki/chapterhub/internal/apperr"
	"github.com/Baaaki/chapterhub/internal/service"
	"github.com/gin-gonic/gin"
)

// MessageHandler exposes the chat history of one room kind. The server mounts
// one instance under /api/chapters and one under /api/groups.
type MessageHandler struct {
	chat         *service.ChatService
	defaultLimit int
}

func NewMessageHandler(chat *service.ChatService, defaultLimit int) *MessageHandler {
	return &MessageHandler{
		chat:         chat,
		defaultLimit: defaultLimit,
	}
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

func (h *MessageHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/:roomId/messages", h.Post)
	rg.GET("/:roomId/messages", h.List)
	rg.DELETE("/:roomId/messages/:messageId", h.Delete)
}

// Post appends a message.
// POST /api/{chapters|groups}/:roomId/messages
func (h *MessageHandler) Post(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	roomID, err := uuidParam(c, "roomId")
	if err != nil {
		respondError(c, err, "post message")
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err), "post message")
		return
	}

	msg, err := h.chat.PostMessage(c.Request.Context(), roomID, claims.UserID, req.Content)
	if err != nil {
		respondError(c, err, "post message")
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// List returns one page of history, newest page first.
// GET /api/{chapters|groups}/:roomId/messages?limit=&cursor=
func (h *MessageHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	roomID, err := uuidParam(c, "roomId")
	if err != nil {
		respondError(c, err, "list messages")
		return
	}

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	page, err := h.chat.ListMessages(c.Request.Context(), roomID, claims.UserID, limit, c.Query("cursor"))
	if err != nil {
		respondError(c, err, "list messages")
		return
	}

	c.JSON(http.StatusOK, page)
}

// Delete removes one message.
// DELETE /api/{chapters|groups}/:roomId/messages/:messageId
func (h *MessageHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	roomID, err := uuidParam(c, "roomId")
	if err != nil {
		respondError(c, err, "delete message")
		return
	}
	messageID, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil || messageID <= 0 {
		respondError(c, apperr.Validation("invalid messageId"), "delete message")
		return
	}

	if err := h.chat.DeleteMessage(c.Request.Context(), roomID, messageID, claims.UserID, claims.IsAdmin()); err != nil {
		respondError(c, err, "delete message")
		return
	}

	c.Status(http.StatusNoContent)
}
