package chatclient

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Notifier receives a transient heads-up for each incoming message the user
// is not currently looking at. The UI shell decides how to surface it.
type Notifier interface {
	Notify(senderName, preview string)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(senderName, preview string)

func (f NotifierFunc) Notify(senderName, preview string) { f(senderName, preview) }

const previewLimit = 80

// Dispatcher parses raw inbound frames, classifies them by type and applies
// the matching store mutation. One malformed frame never affects the next.
type Dispatcher struct {
	userID    string
	store     *Store
	notifier  Notifier
	typingTTL time.Duration
	logger    *zap.Logger

	mu          sync.Mutex
	typingTimer *time.Timer
	closed      bool
}

func NewDispatcher(userID string, store *Store, notifier Notifier, typingTTL time.Duration, logger *zap.Logger) *Dispatcher {
	if typingTTL <= 0 {
		typingTTL = 4 * time.Second
	}
	return &Dispatcher{
		userID:    userID,
		store:     store,
		notifier:  notifier,
		typingTTL: typingTTL,
		logger:    logger,
	}
}

// HandleFrame processes one raw frame. Unknown types are ignored, parse
// failures are logged and dropped.
func (d *Dispatcher) HandleFrame(data []byte) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		d.logger.Debug("discarding malformed frame", zap.Error(err))
		return
	}
	switch f.Type {
	case frameChat:
		d.handleChat(&f)
	case frameOnlineUsers:
		d.store.SetOnlineUsers(f.Users)
	case frameTyping:
		if f.SenderID != "" && f.ReceiverID == d.userID {
			d.store.SetTypingUser(f.SenderID)
			d.scheduleTypingClear()
		}
	case frameTypingStop:
		if f.SenderID != "" && f.ReceiverID == d.userID {
			d.cancelTypingClear()
			d.store.SetTypingUser("")
		}
	}
}

func (d *Dispatcher) handleChat(f *inboundFrame) {
	msg := f.chatMessage(time.Now())
	wasNew := d.store.AddMessage(msg)

	incoming := f.ReceiverID != "" && f.ReceiverID == d.userID
	if !incoming || !wasNew || d.store.Viewing(f.SenderID) {
		return
	}
	d.store.IncrementUnreadFrom(f.SenderID, msg.ID)
	if d.notifier != nil {
		d.notifier.Notify(f.senderName(), preview(msg.Body))
	}
}

// preview truncates body to previewLimit runes, marking the cut.
func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLimit {
		return body
	}
	return string(runes[:previewLimit]) + "..."
}

// scheduleTypingClear arms the safety timeout that covers a lost typing_stop
// frame. A fresh typing frame rearms it instead of stacking timers.
func (d *Dispatcher) scheduleTypingClear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.typingTimer != nil {
		d.typingTimer.Stop()
	}
	d.typingTimer = time.AfterFunc(d.typingTTL, func() {
		d.store.SetTypingUser("")
	})
}

func (d *Dispatcher) cancelTypingClear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.typingTimer != nil {
		d.typingTimer.Stop()
		d.typingTimer = nil
	}
}

// Close cancels the pending typing timer so no mutation fires after teardown.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.typingTimer != nil {
		d.typingTimer.Stop()
		d.typingTimer = nil
	}
}
