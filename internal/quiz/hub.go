package quiz

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var errNotWatching = errors.New("connection is not watching this session")

// client serializes writes to one connection, which allows a single
// concurrent writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans session events out to the websocket clients watching them.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]map[*websocket.Conn]*client
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*websocket.Conn]*client),
	}
}

func (h *Hub) AddConnection(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[*websocket.Conn]*client)
	}
	h.sessions[sessionID][conn] = &client{conn: conn}
	log.Printf("[ws] client connected to session %s (total: %d)", sessionID, len(h.sessions[sessionID]))
}

func (h *Hub) RemoveConnection(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.sessions[sessionID]; ok {
		if _, ok := conns[conn]; ok {
			delete(conns, conn)
			conn.Close()
		}
		if len(conns) == 0 {
			delete(h.sessions, sessionID)
		}
	}
}

// Broadcast writes msg to every client of the session. The hub lock only
// guards the registry; writes happen outside it so one slow client cannot
// stall other sessions.
func (h *Hub) Broadcast(sessionID string, msg Message) {
	clients := h.clients(sessionID)
	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[ws] marshal error: %v", err)
		return
	}

	for _, c := range clients {
		if err := c.write(data); err != nil {
			log.Printf("[ws] write error on session %s: %v", sessionID, err)
			h.RemoveConnection(sessionID, c.conn)
		}
	}
}

func (h *Hub) clients(sessionID string) []*client {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*client, 0, len(h.sessions[sessionID]))
	for _, c := range h.sessions[sessionID] {
		clients = append(clients, c)
	}
	return clients
}

// CloseSession disconnects every client of a torn-down session.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	conns := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()

	for conn := range conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
			time.Now().Add(writeWait))
		conn.Close()
	}
}

// Send writes msg to one registered connection of the session.
func (h *Hub) Send(sessionID string, conn *websocket.Conn, msg Message) error {
	h.mu.Lock()
	c, ok := h.sessions[sessionID][conn]
	h.mu.Unlock()
	if !ok {
		return errNotWatching
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.write(data)
}
