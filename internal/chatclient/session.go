package chatclient

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Identity is what the login flow hands over: who we are and how to prove it.
type Identity struct {
	UserID string
	Token  string
}

// Config carries the endpoints and the timing knobs. Zero durations fall back
// to the defaults the dashboard ships with.
type Config struct {
	WSURL  string // ws(s)://host/ws/chat
	APIURL string // http(s)://host, base for the history fetch

	ReconnectDelay time.Duration // fixed delay between reconnect attempts
	TypingTTL      time.Duration // inbound typing indicator safety timeout
	TypingIdle     time.Duration // outbound typing_stop debounce window
}

// Session wires the connection, dispatcher, store and sender together for one
// authenticated identity. It is created when a token becomes available and
// closed on logout; nothing here is process-global, so sessions (and tests)
// run in isolation.
type Session struct {
	identity   Identity
	store      *Store
	conn       *Conn
	dispatcher *Dispatcher
	sender     *Sender
	typing     *TypingTracker
	history    *HistoryClient
	logger     *zap.Logger

	closeOnce sync.Once
}

func NewSession(cfg Config, id Identity, dialer Dialer, notifier Notifier, logger *zap.Logger) (*Session, error) {
	if id.Token == "" {
		return nil, errors.New("chatclient: identity token required")
	}
	if cfg.WSURL == "" {
		return nil, errors.New("chatclient: websocket url required")
	}

	store := NewStore()
	dispatcher := NewDispatcher(id.UserID, store, notifier, cfg.TypingTTL, logger)
	wsURL := cfg.WSURL + "?token=" + url.QueryEscape(id.Token)
	conn := NewConn(wsURL, dialer, dispatcher.HandleFrame, cfg.ReconnectDelay, logger)
	sender := NewSender(conn, logger)

	return &Session{
		identity:   id,
		store:      store,
		conn:       conn,
		dispatcher: dispatcher,
		sender:     sender,
		typing:     NewTypingTracker(sender, cfg.TypingIdle),
		history:    NewHistoryClient(cfg.APIURL, id.Token, logger),
		logger:     logger,
	}, nil
}

// Start opens the connection and keeps it open until Close.
func (s *Session) Start() {
	s.conn.Start()
}

func (s *Session) Store() *Store          { return s.store }
func (s *Session) Sender() *Sender        { return s.sender }
func (s *Session) Typing() *TypingTracker { return s.typing }
func (s *Session) State() State           { return s.conn.State() }
func (s *Session) UserID() string         { return s.identity.UserID }

// SelectPeer switches the active conversation. The new peer's unread counter
// clears immediately; the previous peer keeps its first-unread divider only
// while its view is open, so it clears now. An in-flight typing burst for the
// old peer is stopped so the remote indicator doesn't stick.
func (s *Session) SelectPeer(peerID string) {
	prev := s.store.SelectedUser()
	if prev != "" && prev != peerID {
		s.typing.Stop()
		s.store.ClearFirstUnreadFor(prev)
	}
	s.store.SetSelectedUser(peerID)
	if peerID != "" {
		s.store.ClearUnreadCountFor(peerID)
	}
}

// LoadHistory hydrates the store with the saved conversation for peerID.
func (s *Session) LoadHistory(ctx context.Context, peerID string) error {
	msgs, err := s.history.Load(ctx, peerID)
	if err != nil {
		return err
	}
	s.store.SetMessages(msgs)
	return nil
}

// Close ends the session: pending typing state is flushed while the socket
// may still be open, every timer is cancelled, the socket is closed without
// reconnect, and the store is wiped.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.typing.Stop()
		s.dispatcher.Close()
		s.conn.Close()
		s.store.Clear()
		s.logger.Info("chat session closed")
	})
}
