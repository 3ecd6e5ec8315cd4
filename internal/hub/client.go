package hub

import (
	"github.com/gofiber/contrib/websocket"
)

// ConnLike is the slice of a websocket connection the pumps need; tests swap
// in a fake.
type ConnLike interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

// Client is one authenticated websocket connection. A user with several open
// tabs holds several Clients sharing a UserID.
type Client struct {
	UserID   string
	Username string
	Conn     ConnLike
	Send     chan []byte
}

func NewClient(userID, username string, conn ConnLike) *Client {
	return &Client{UserID: userID, Username: username, Conn: conn, Send: make(chan []byte, 16)}
}

// trySend queues data without blocking; a slow consumer loses frames rather
// than stalling the hub.
func (c *Client) trySend(data []byte) {
	select {
	case c.Send <- data:
	default:
	}
}

// ReadPump feeds inbound frames to the hub until the socket dies.
func (c *Client) ReadPump(h *Hub) {
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			h.UnregisterChan <- c
			return
		}
		h.inboundChan <- &envelope{client: c, data: data}
	}
}

// WritePump drains the send queue onto the socket.
func (c *Client) WritePump() {
	for data := range c.Send {
		_ = c.Conn.WriteMessage(websocket.TextMessage, data)
	}
}
