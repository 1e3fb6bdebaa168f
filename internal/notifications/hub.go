package notifications

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gofiber/websocket/v2"

	"github.com/gustavohdab/rettiwt-backend/internal/observability"
)

const (
	// Max connections per user
	maxConnsPerUser = 8
	// Max total connections
	maxTotalConns = 10000
)

// Hub maps userID -> connected Clients. Every authenticated websocket joins
// exactly one room keyed by its user id; broadcast events reach all rooms.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[uint]map[*Client]struct{}
	totalConns int
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[uint]map[*Client]struct{})}
}

// Name identifies this hub in logs and metrics.
func (h *Hub) Name() string { return "events" }

// Register attaches a connection to the user's room. Returns the Client or
// an error when a connection limit is exceeded.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}

	room, ok := h.rooms[userID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[userID] = room
	}

	if len(room) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	room[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	return client, nil
}

// UnregisterClient detaches a connection from its room.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if room, ok := h.rooms[client.UserID]; ok {
		if _, exists := room[client]; exists {
			delete(room, client)
			h.totalConns--
			removed = true
		}
		if len(room) == 0 {
			delete(h.rooms, client.UserID)
		}
	}
	h.mu.Unlock()

	if removed {
		observability.WebSocketConnectionsTotal.Dec()
	}
}

// Broadcast sends a raw payload to every connection in the user's room.
func (h *Hub) Broadcast(userID uint, payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[userID]; ok {
		data := []byte(payload)
		for c := range room {
			c.TrySend(data)
		}
	}
}

// BroadcastAll sends a raw payload to every connected client.
func (h *Hub) BroadcastAll(payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(payload)
	for _, room := range h.rooms {
		for c := range room {
			c.TrySend(data)
		}
	}
}

// StartWiring subscribes the hub to the Notifier's Redis channels and relays
// incoming events to the matching rooms.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		if channel == broadcastChannel {
			h.BroadcastAll(payload)
			return
		}
		if !strings.HasPrefix(channel, userChannelPrefix) {
			log.Printf("unexpected event channel: %s", channel)
			return
		}
		// channel form: events:user:<id>
		var userID uint
		if _, err := fmt.Sscanf(channel, userChannelPrefix+"%d", &userID); err != nil {
			log.Printf("unexpected event channel: %s", channel)
			return
		}
		h.Broadcast(userID, payload)
	})
}

// Shutdown closes every websocket connection with a going-away frame.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	closed := 0
	for userID, room := range h.rooms {
		for client := range room {
			closed++
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")); err != nil {
				log.Printf("close frame for user %d: %v", userID, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("close websocket for user %d: %v", userID, err)
			}
		}
	}
	h.rooms = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Sub(float64(closed))
	return nil
}
