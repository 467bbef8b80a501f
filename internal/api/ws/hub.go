package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"coppit-server/internal/room"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy lives in the CORS layer
	},
}

// Hub holds one websocket per seated player and fans room events out to
// them. It implements room.Broadcaster.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*client // room id -> player id -> conn

	rm  RoomManager
	log *zap.Logger
}

// client serializes writes to one connection; gorilla allows a single
// concurrent writer.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) send(ev room.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(ev)
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[string]*client),
		log:   log,
	}
}

// SetRoomManager wires the coordinator in after construction; the manager
// needs the hub as its broadcaster first.
func (h *Hub) SetRoomManager(rm RoomManager) {
	h.rm = rm
}

// HandleWS upgrades the connection and pumps client actions into the room
// coordinator until the socket closes. The player must already be seated
// (via the HTTP create/join endpoints).
func (h *Hub) HandleWS(c *gin.Context) {
	roomID := c.Query("room_id")
	playerID := c.Query("player_id")
	if roomID == "" || playerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id and player_id required"})
		return
	}
	ctx := c.Request.Context()
	s, err := h.rm.State(ctx, roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	if _, seated := s.Players[playerID]; !seated {
		c.JSON(http.StatusForbidden, gin.H{"error": "not seated in this room"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	cl := &client{conn: conn}
	h.register(roomID, playerID, cl)
	_ = h.rm.SetConnected(context.Background(), roomID, playerID, true)
	h.log.Info("player connected",
		zap.String("room_id", roomID), zap.String("player_id", playerID))

	defer func() {
		h.unregister(roomID, playerID, cl)
		_ = conn.Close()
		_ = h.rm.SetConnected(context.Background(), roomID, playerID, false)
		h.log.Info("player disconnected",
			zap.String("room_id", roomID), zap.String("player_id", playerID))
	}()

	for {
		var act room.ClientAction
		if err := conn.ReadJSON(&act); err != nil {
			return
		}
		// Rule violations are answered on this socket only; the manager
		// already sent the error event, so the error itself is dropped.
		if err := h.rm.HandleAction(context.Background(), roomID, playerID, act); err != nil {
			h.log.Debug("action rejected",
				zap.String("room_id", roomID),
				zap.String("player_id", playerID),
				zap.String("action", act.Type),
				zap.Error(err))
		}
	}
}

// Broadcast sends an event to every connected player of the room.
func (h *Hub) Broadcast(roomID string, ev room.Event) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[roomID]))
	for _, cl := range h.rooms[roomID] {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()
	for _, cl := range clients {
		if err := cl.send(ev); err != nil {
			h.log.Debug("broadcast write failed", zap.String("room_id", roomID), zap.Error(err))
		}
	}
}

// SendTo targets a single player; a missing connection is not an error.
func (h *Hub) SendTo(roomID, playerID string, ev room.Event) {
	h.mu.RLock()
	cl := h.rooms[roomID][playerID]
	h.mu.RUnlock()
	if cl == nil {
		return
	}
	if err := cl.send(ev); err != nil {
		h.log.Debug("direct write failed",
			zap.String("room_id", roomID), zap.String("player_id", playerID), zap.Error(err))
	}
}

func (h *Hub) register(roomID, playerID string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*client)
	}
	h.rooms[roomID][playerID] = cl
}

func (h *Hub) unregister(roomID, playerID string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur := h.rooms[roomID][playerID]; cur == cl {
		delete(h.rooms[roomID], playerID)
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
}
