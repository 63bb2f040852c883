package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"nexuscrm/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second

	// sendBuffer bounds per-client backlog; a client that cannot keep up is
	// disconnected rather than allowed to stall the hub.
	sendBuffer = 64
)

// envelope is the wire format for server pushes.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// clientMessage is what clients may send: room subscription management.
type clientMessage struct {
	Action string `json:"action"` // subscribe | unsubscribe
	Room   string `json:"room"`
}

type client struct {
	conn  *websocket.Conn
	send  chan []byte
	orgID string

	mu    sync.Mutex
	rooms map[string]bool
}

func (c *client) inRoom(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms[room]
}

// Hub fans call events out to websocket clients. Every client sits in its
// organization room; call rooms are joined on request. A client may only
// subscribe to rooms inside its own organization boundary, which the hub
// enforces at delivery time via the event's organization id.
type Hub struct {
	verifier auth.Verifier
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]bool
}

func NewHub(verifier auth.Verifier, log *slog.Logger) *Hub {
	return &Hub{
		verifier: verifier,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from the CRM frontend; origin policy is
			// enforced at the gateway in front of this service.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]bool),
	}
}

// OrgRoom is the room every authenticated client joins automatically.
func OrgRoom(organizationID string) string { return "org:" + organizationID }

// CallRoom carries per-call status and transcript streams.
func CallRoom(callID string) string { return "call:" + callID }

// HandleWS upgrades the connection after verifying the token, which arrives
// as a query parameter because browsers cannot set headers on websocket
// handshakes.
func (h *Hub) HandleWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("Authorization")
	}
	principal, err := h.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "websocket auth check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
		return
	}
	if principal == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WarnContext(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}

	cl := &client{
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		orgID: principal.OrganizationID,
		rooms: map[string]bool{OrgRoom(principal.OrganizationID): true},
	}
	h.register(cl)
	h.log.InfoContext(c.Request.Context(), "websocket client connected",
		"user_id", principal.UserID, "organization_id", principal.OrganizationID)

	go h.writePump(cl)
	go h.readPump(cl)
}

func (h *Hub) register(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[cl] = true
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[cl] {
		delete(h.clients, cl)
		close(cl.send)
	}
}

func (h *Hub) readPump(cl *client) {
	defer func() {
		h.unregister(cl)
		cl.conn.Close()
	}()
	cl.conn.SetReadLimit(4 << 10)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		h.handleClientMessage(cl, msg)
	}
}

func (h *Hub) handleClientMessage(cl *client, msg clientMessage) {
	// Clients may only manage call rooms; the org room is fixed.
	if !strings.HasPrefix(msg.Room, "call:") {
		return
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	switch msg.Action {
	case "subscribe":
		cl.rooms[msg.Room] = true
	case "unsubscribe":
		delete(cl.rooms, msg.Room)
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()
	for {
		select {
		case raw, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// broadcast delivers raw to clients of orgID that sit in any of rooms.
func (h *Hub) broadcast(ctx context.Context, orgID string, rooms []string, event string, data any) {
	raw, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		h.log.ErrorContext(ctx, "encode broadcast failed", "event", event, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients {
		if cl.orgID != orgID {
			continue
		}
		member := false
		for _, room := range rooms {
			if cl.inRoom(room) {
				member = true
				break
			}
		}
		if !member {
			continue
		}
		select {
		case cl.send <- raw:
		default:
			h.log.WarnContext(ctx, "dropping slow websocket client", "organization_id", orgID)
			go cl.conn.Close()
		}
	}
}

func (h *Hub) BroadcastCallStatus(ctx context.Context, e CallStatusEvent) {
	h.broadcast(ctx, e.OrganizationID,
		[]string{OrgRoom(e.OrganizationID), CallRoom(e.CallID)},
		EventCallStatus, e)
}

func (h *Hub) BroadcastCallTranscript(ctx context.Context, e CallTranscriptEvent) {
	h.broadcast(ctx, e.OrganizationID,
		[]string{OrgRoom(e.OrganizationID), CallRoom(e.CallID)},
		EventCallTranscript, e)
}
