package chatclient

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketDialer is the production Dialer backed by gorilla/websocket.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
}

func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Transport, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &gorillaTransport{conn: conn}, nil
}

type gorillaTransport struct {
	conn *websocket.Conn
	wmu  sync.Mutex // gorilla allows only one concurrent writer
}

func (t *gorillaTransport) ReadMessage() ([]byte, error) {
	for {
		typ, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if typ != websocket.TextMessage && typ != websocket.BinaryMessage {
			continue
		}
		return data, nil
	}
}

func (t *gorillaTransport) WriteMessage(data []byte) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *gorillaTransport) Close() error {
	return t.conn.Close()
}
