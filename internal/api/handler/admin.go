package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// AdminOnline lists the users currently holding a live connection.
func (h *Handler) AdminOnline(c *gin.Context) {
	users := h.Hub.Registry.ListOnline()
	c.JSON(http.StatusOK, gin.H{
		"count": len(users),
		"users": users,
	})
}

// AdminStats is the dashboard counters endpoint.
func (h *Handler) AdminStats(c *gin.Context) {
	stats := gin.H{
		"online_users":     h.Hub.Registry.CountOnline(),
		"live_connections": h.Hub.Registry.CountConnections(),
		"waiting":          h.Hub.Matchmaker.CountWaiting(),
		"active_sessions":  h.Hub.Sessions.CountActive(),
	}

	if n, err := h.Store.CountUsers(); err == nil {
		stats["total_users"] = n
	} else {
		log.Error().Err(err).Msg("admin stats: user count failed")
	}
	if n, err := h.Store.CountSessionRecords(); err == nil {
		stats["total_sessions"] = n
	}

	c.JSON(http.StatusOK, stats)
}
