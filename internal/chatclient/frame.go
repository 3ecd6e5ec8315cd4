package chatclient

import (
	"fmt"
	"time"
)

// Frame type discriminators shared with the server.
const (
	frameChat        = "chat"
	frameOnlineUsers = "online_users"
	frameTyping      = "typing"
	frameTypingStop  = "typing_stop"
)

// UserSummary is the embedded sender block the server attaches to chat frames.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
}

// ChatMessage is immutable once built; the store never rewrites an entry.
type ChatMessage struct {
	ID         string       `json:"id"`
	SenderID   string       `json:"sender_id"`
	ReceiverID string       `json:"receiver_id,omitempty"`
	Body       string       `json:"message"`
	CreatedAt  string       `json:"created_at"`
	Sender     *UserSummary `json:"sender,omitempty"`
}

type OnlineUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// inboundFrame is the superset of every shape the server may push. Field
// aliases (message/content, created_at/timestamp) exist because older server
// builds used the short names.
type inboundFrame struct {
	Type       string       `json:"type"`
	ID         string       `json:"id"`
	SenderID   string       `json:"sender_id"`
	ReceiverID string       `json:"receiver_id"`
	Message    string       `json:"message"`
	Content    string       `json:"content"`
	CreatedAt  string       `json:"created_at"`
	Timestamp  string       `json:"timestamp"`
	Sender     *UserSummary `json:"sender"`
	Users      []OnlineUser `json:"users"`
}

// chatMessage normalizes a chat frame: missing ids get a timestamp-based
// stand-in, missing creation times default to arrival time.
func (f *inboundFrame) chatMessage(now time.Time) ChatMessage {
	id := f.ID
	if id == "" {
		id = fmt.Sprintf("ws-%d", now.UnixMilli())
	}
	body := f.Message
	if body == "" {
		body = f.Content
	}
	created := f.CreatedAt
	if created == "" {
		created = f.Timestamp
	}
	if created == "" {
		created = now.UTC().Format(time.RFC3339)
	}
	return ChatMessage{
		ID:         id,
		SenderID:   f.SenderID,
		ReceiverID: f.ReceiverID,
		Body:       body,
		CreatedAt:  created,
		Sender:     f.Sender,
	}
}

func (f *inboundFrame) senderName() string {
	if f.Sender != nil {
		if f.Sender.Username != "" {
			return f.Sender.Username
		}
		if f.Sender.FullName != "" {
			return f.Sender.FullName
		}
	}
	return "Someone"
}

// outboundFrame covers every client intent.
type outboundFrame struct {
	Type       string `json:"type"`
	Content    string `json:"content,omitempty"`
	ReceiverID string `json:"receiver_id,omitempty"`
}
