package chatclient

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Transport is one established socket. Implementations must allow ReadMessage
// and WriteMessage from different goroutines.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens a Transport. Tests inject a fake; production uses
// WebsocketDialer.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// Conn owns the socket lifecycle: dial, detect closure, reconnect after a
// fixed delay, forever, until Close. It carries no chat logic; inbound frames
// go to the onFrame callback in arrival order.
type Conn struct {
	url        string
	dialer     Dialer
	onFrame    func(data []byte)
	retryDelay time.Duration
	logger     *zap.Logger

	mu        sync.Mutex
	state     State
	transport Transport

	done      chan struct{}
	closeOnce sync.Once
}

func NewConn(url string, dialer Dialer, onFrame func([]byte), retryDelay time.Duration, logger *zap.Logger) *Conn {
	if retryDelay <= 0 {
		retryDelay = 3 * time.Second
	}
	return &Conn{
		url:        url,
		dialer:     dialer,
		onFrame:    onFrame,
		retryDelay: retryDelay,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start launches the connect loop. Call at most once.
func (c *Conn) Start() {
	go c.run()
}

func (c *Conn) run() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.setState(StateConnecting)
		t, err := c.dialer.Dial(context.Background(), c.url)
		if err != nil {
			c.logger.Warn("chat socket dial failed", zap.Error(err))
			c.setState(StateDisconnected)
			if !c.waitRetry() {
				return
			}
			continue
		}

		c.mu.Lock()
		select {
		case <-c.done:
			// Closed while the dial was in flight; a stale reconnect must
			// not resurrect the session.
			c.mu.Unlock()
			t.Close()
			return
		default:
		}
		c.transport = t
		c.state = StateConnected
		c.mu.Unlock()
		c.logger.Info("chat socket connected")

		c.readLoop(t)

		c.mu.Lock()
		c.transport = nil
		c.state = StateDisconnected
		c.mu.Unlock()

		if !c.waitRetry() {
			return
		}
	}
}

func (c *Conn) readLoop(t Transport) {
	for {
		data, err := t.ReadMessage()
		if err != nil {
			t.Close()
			select {
			case <-c.done:
			default:
				c.logger.Info("chat socket closed, scheduling reconnect", zap.Error(err))
			}
			return
		}
		c.onFrame(data)
	}
}

func (c *Conn) waitRetry() bool {
	select {
	case <-time.After(c.retryDelay):
		return true
	case <-c.done:
		return false
	}
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send writes one frame if the connection is open, and silently drops it
// otherwise. No queueing, no error to the caller.
func (c *Conn) Send(data []byte) {
	c.mu.Lock()
	t := c.transport
	open := c.state == StateConnected
	c.mu.Unlock()
	if !open || t == nil {
		c.logger.Debug("dropping outbound frame, not connected")
		return
	}
	if err := t.WriteMessage(data); err != nil {
		c.logger.Warn("chat socket write failed", zap.Error(err))
	}
}

// Close tears the connection down deliberately. No reconnect follows; the
// Conn is terminal after this.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		t := c.transport
		c.transport = nil
		c.state = StateDisconnected
		c.mu.Unlock()
		if t != nil {
			t.Close()
		}
	})
}
