package hub

import (
	"encoding/json"
	"sync"

	"github.com/parley-chat/parley/pkg/log"
)

// Hub tracks the connections this gateway instance holds and which
// rooms each is subscribed to. A connection may be subscribed to many
// rooms at once.
type Hub struct {
	clients    map[string]*Client            // connID -> client
	rooms      map[string]map[string]*Client // roomID -> connID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomMessage
	mu         sync.RWMutex
}

type roomMessage struct {
	RoomID  string
	Payload []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomMessage, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldConnID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for roomID, members := range h.rooms {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.rooms, roomID)
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldConnID, client.ID).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			if members, ok := h.rooms[msg.RoomID]; ok {
				for _, client := range members {
					select {
					case client.Send <- msg.Payload:
					default:
						// Slow consumer; drop the connection rather than
						// stall the room.
						go h.Unregister(client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// JoinRoom subscribes a connection to a room's broadcast set.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
	l := log.L()
	l.Info().Str(log.FieldConnID, client.ID).Str(log.FieldRoomID, roomID).Msg("client joined room")
}

// LeaveRoom removes a connection from a room's broadcast set.
func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[roomID]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Broadcast fans a payload out to every live connection subscribed to
// the room on this instance.
func (h *Hub) Broadcast(roomID string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	h.broadcast <- &roomMessage{RoomID: roomID, Payload: data}
	return nil
}

// RoomClientCount reports how many local connections are subscribed to
// a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if members, ok := h.rooms[roomID]; ok {
		return len(members)
	}
	return 0
}
