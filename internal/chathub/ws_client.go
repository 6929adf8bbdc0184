package chathub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/zn4editz-pixel/z-app-sub003/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// WebSocketClient implements Client over a gorilla/websocket connection.
type WebSocketClient struct {
	ConnID string
	UserID string
	Conn   *websocket.Conn
	Hub    *Hub

	send      chan models.Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewWebSocketClient(hub *Hub, connID, userID string, conn *websocket.Conn) *WebSocketClient {
	return &WebSocketClient{
		ConnID: connID,
		UserID: userID,
		Conn:   conn,
		Hub:    hub,
		send:   make(chan models.Event, 256),
		done:   make(chan struct{}),
	}
}

func (c *WebSocketClient) GetConnectionID() string { return c.ConnID }
func (c *WebSocketClient) GetUserID() string       { return c.UserID }

// Send queues an event without ever blocking the caller. Events for a
// closed or saturated client are dropped; the read pump will notice a
// dead connection on its own.
func (c *WebSocketClient) Send(ev models.Event) {
	select {
	case <-c.done:
	case c.send <- ev:
	default:
		log.Warn().Str("conn_id", c.ConnID).Str("event", ev.Type).Msg("dropping event for slow client")
	}
}

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close stops the write pump. Idempotent.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("conn_id", c.ConnID).Msg("websocket read error")
			}
			break
		}

		var ev models.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			log.Warn().Err(err).Str("conn_id", c.ConnID).Msg("dropping malformed event")
			continue
		}

		c.Hub.HandleInbound(c, ev)
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case ev := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			data, err := json.Marshal(ev)
			if err != nil {
				log.Error().Err(err).Str("conn_id", c.ConnID).Msg("failed to encode event")
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
