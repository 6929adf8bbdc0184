package handler

import (
	"github.com/zn4editz-pixel/z-app-sub003/internal/chathub"
	"github.com/zn4editz-pixel/z-app-sub003/internal/relay"
	"github.com/zn4editz-pixel/z-app-sub003/internal/storage"
)

// Handler carries the dependencies of the HTTP surface.
type Handler struct {
	Hub       *chathub.Hub
	Relay     *relay.Relay
	Store     storage.Storage
	jwtSecret []byte
}

func NewHandler(hub *chathub.Hub, r *relay.Relay, store storage.Storage, jwtSecret string) *Handler {
	return &Handler{
		Hub:       hub,
		Relay:     r,
		Store:     store,
		jwtSecret: []byte(jwtSecret),
	}
}
