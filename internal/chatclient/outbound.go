package chatclient

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sender serializes client intents onto the connection. Every send is
// fire-and-forget: if the socket is down the frame is dropped, and a chat
// message is never echoed locally (the server echoes it back).
type Sender struct {
	conn   *Conn
	logger *zap.Logger
}

func NewSender(conn *Conn, logger *zap.Logger) *Sender {
	return &Sender{conn: conn, logger: logger}
}

func (s *Sender) SendMessage(text, peerID string) {
	s.send(outboundFrame{Type: frameChat, Content: text, ReceiverID: peerID})
}

func (s *Sender) SendTyping(peerID string) {
	s.send(outboundFrame{Type: frameTyping, ReceiverID: peerID})
}

func (s *Sender) SendTypingStop(peerID string) {
	s.send(outboundFrame{Type: frameTypingStop, ReceiverID: peerID})
}

func (s *Sender) send(f outboundFrame) {
	data, err := json.Marshal(f)
	if err != nil {
		s.logger.Error("encoding outbound frame", zap.Error(err))
		return
	}
	s.conn.Send(data)
}

type typingSender interface {
	SendTyping(peerID string)
	SendTypingStop(peerID string)
}

// TypingTracker debounces keystrokes into typing signals: one typing frame
// per burst, one typing_stop after the idle window, and a forced stop when
// the peer changes or the view goes away so the remote indicator never
// sticks.
type TypingTracker struct {
	sender typingSender
	idle   time.Duration

	mu     sync.Mutex
	peer   string
	active bool
	timer  *time.Timer
}

func NewTypingTracker(sender typingSender, idle time.Duration) *TypingTracker {
	if idle <= 0 {
		idle = 2 * time.Second
	}
	return &TypingTracker{sender: sender, idle: idle}
}

// Keystroke marks input activity towards peer.
func (t *TypingTracker) Keystroke(peer string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active && t.peer != peer {
		t.sender.SendTypingStop(t.peer)
		t.active = false
	}
	t.peer = peer
	if !t.active {
		t.active = true
		t.sender.SendTyping(peer)
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.idle, t.flush)
}

func (t *TypingTracker) flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	t.active = false
	t.timer = nil
	t.sender.SendTypingStop(t.peer)
}

// Stop cancels the idle timer and, if a burst is in progress, emits the
// typing_stop immediately. Called on peer switch and teardown.
func (t *TypingTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.active {
		t.active = false
		t.sender.SendTypingStop(t.peer)
	}
}
