package hub

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamza-v/dash-chat/internal/history"
)

const createdAtLayout = "2006-01-02T15:04:05.000Z"

// Archiver persists relayed chat messages. The relay never depends on the
// write succeeding.
type Archiver interface {
	Archive(ctx context.Context, rec history.Record) error
}

type envelope struct {
	client *Client
	data   []byte
}

// clientFrame is what a connected client may send up.
type clientFrame struct {
	Type       string `json:"type"`
	Content    string `json:"content"`
	ReceiverID string `json:"receiver_id"`
}

type onlineUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Hub relays 1:1 chat and typing signals between connected clients and pushes
// a full presence snapshot on every join and leave.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	RegisterChan   chan *Client
	UnregisterChan chan *Client
	inboundChan    chan *envelope

	archiver Archiver
	logger   *zap.Logger
}

func New(archiver Archiver, logger *zap.Logger) *Hub {
	return &Hub{
		clients:        map[*Client]bool{},
		RegisterChan:   make(chan *Client),
		UnregisterChan: make(chan *Client),
		inboundChan:    make(chan *envelope, 64),
		archiver:       archiver,
		logger:         logger,
	}
}

// Run drives the hub until the process exits. Start it once, in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.RegisterChan:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("chat client registered", zap.String("user", client.Username))
			h.broadcastOnlineUsers()

		case client := <-h.UnregisterChan:
			h.mu.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			h.logger.Info("chat client unregistered", zap.String("user", client.Username))
			h.broadcastOnlineUsers()

		case env := <-h.inboundChan:
			h.handleFrame(env.client, env.data)
		}
	}
}

func (h *Hub) handleFrame(from *Client, data []byte) {
	var f clientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		h.logger.Debug("discarding malformed client frame", zap.Error(err))
		return
	}
	switch f.Type {
	case "typing", "typing_stop":
		// Forwarded, never stored.
		if f.ReceiverID == "" {
			return
		}
		payload, _ := json.Marshal(map[string]string{
			"type":        f.Type,
			"sender_id":   from.UserID,
			"receiver_id": f.ReceiverID,
			"username":    from.Username,
		})
		h.sendToUser(f.ReceiverID, payload)
	case "chat":
		h.relayChat(from, &f)
	}
}

func (h *Hub) relayChat(from *Client, f *clientFrame) {
	now := time.Now().UTC()
	id := uuid.NewString()

	rec := history.Record{
		ID:             id,
		SenderID:       from.UserID,
		Body:           f.Content,
		SenderUsername: from.Username,
		CreatedAt:      now,
	}
	if f.ReceiverID != "" {
		rec.ReceiverID = sql.NullString{String: f.ReceiverID, Valid: true}
	}
	if h.archiver != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := h.archiver.Archive(ctx, rec); err != nil {
			h.logger.Error("archiving chat message", zap.Error(err))
		}
		cancel()
	}

	payload := map[string]interface{}{
		"type":       "chat",
		"id":         id,
		"sender_id":  from.UserID,
		"message":    f.Content,
		"created_at": now.Format(createdAtLayout),
		"sender": map[string]string{
			"id":       from.UserID,
			"username": from.Username,
		},
	}
	if f.ReceiverID != "" {
		payload["receiver_id"] = f.ReceiverID
	}
	data, _ := json.Marshal(payload)

	if f.ReceiverID != "" {
		// Deliver to the receiver and echo to every connection of the sender.
		h.sendToUser(f.ReceiverID, data)
		if f.ReceiverID != from.UserID {
			h.sendToUser(from.UserID, data)
		}
		return
	}
	// No receiver: broadcast to everyone except the sender.
	h.mu.RLock()
	for c := range h.clients {
		if c.UserID == from.UserID {
			continue
		}
		c.trySend(data)
	}
	h.mu.RUnlock()
}

func (h *Hub) sendToUser(userID string, data []byte) {
	h.mu.RLock()
	for c := range h.clients {
		if c.UserID == userID {
			c.trySend(data)
		}
	}
	h.mu.RUnlock()
}

// OnlineUsers returns the current presence set, one entry per user id even if
// the user holds several connections.
func (h *Hub) OnlineUsers() []onlineUser {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := map[string]bool{}
	users := make([]onlineUser, 0, len(h.clients))
	for c := range h.clients {
		if seen[c.UserID] {
			continue
		}
		seen[c.UserID] = true
		users = append(users, onlineUser{ID: c.UserID, Username: c.Username})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users
}

func (h *Hub) broadcastOnlineUsers() {
	data, _ := json.Marshal(map[string]interface{}{
		"type":  "online_users",
		"users": h.OnlineUsers(),
	})
	h.mu.RLock()
	for c := range h.clients {
		c.trySend(data)
	}
	h.mu.RUnlock()
}
