package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zn4editz-pixel/z-app-sub003/internal/relay"
)

// ListMessages returns the caller's direct messages after the given
// cursor. Offline delivery works by polling this endpoint.
func (h *Handler) ListMessages(c *gin.Context) {
	userID := c.GetString("user_id")

	var since uint64
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a message id"})
			return
		}
		since = parsed
	}

	msgs, err := h.Relay.ListSince(userID, uint(since))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type sendMessageRequest struct {
	To      string          `json:"to" binding:"required"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// SendMessage is the HTTP alternative to the dm:send realtime event.
func (h *Handler) SendMessage(c *gin.Context) {
	userID := c.GetString("user_id")

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to and payload are required"})
		return
	}

	msg, err := h.Relay.Send(userID, req.To, req.Payload)
	switch {
	case errors.Is(err, relay.ErrNotFriends), errors.Is(err, relay.ErrBadRecipient):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
	default:
		c.JSON(http.StatusCreated, gin.H{"message_id": msg.ID, "delivered": msg.Delivered})
	}
}
