package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/zn4editz-pixel/z-app-sub003/internal/chathub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checking is the reverse proxy's job in this deployment.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and hands it to the hub.
// Browsers cannot set headers on WebSocket requests, so the token is
// also accepted as a query parameter.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		header := c.GetHeader("Authorization")
		if len(header) > 7 && header[:7] == "Bearer " {
			tokenString = header[7:]
		}
	}
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing"})
		return
	}

	ident, err := h.validateToken(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token or expired"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	// Guests keep an empty userID inside the core: their anonymous id
	// authenticates the socket but owns no account, friends, or presence.
	userID := ident.ID
	if ident.Anonymous {
		userID = ""
	}

	client := chathub.NewWebSocketClient(h.Hub, uuid.New().String(), userID, conn)
	h.Hub.RegisterCh <- client
	client.Run()
}
