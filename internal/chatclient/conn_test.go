package chatclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeTransport feeds scripted frames to the read loop and records writes.
type fakeTransport struct {
	mu      sync.Mutex
	inbound chan []byte
	written [][]byte
	closed  bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbound: make(chan []byte, 16)}
}

func (t *fakeTransport) ReadMessage() ([]byte, error) {
	data, ok := <-t.inbound
	if !ok {
		return nil, errors.New("connection closed")
	}
	return data, nil
}

func (t *fakeTransport) WriteMessage(data []byte) error {
	t.mu.Lock()
	t.written = append(t.written, data)
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.inbound)
	}
	return nil
}

func (t *fakeTransport) drop() {
	t.Close()
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *fakeTransport) writes() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.written...)
}

// fakeDialer hands out transports, or errors, one attempt at a time.
type fakeDialer struct {
	mu       sync.Mutex
	attempts []time.Time
	fail     bool
	current  *fakeTransport
}

func (d *fakeDialer) Dial(_ context.Context, _ string) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts = append(d.attempts, time.Now())
	if d.fail {
		return nil, errors.New("dial refused")
	}
	d.current = newFakeTransport()
	return d.current, nil
}

func (d *fakeDialer) attemptCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.attempts)
}

func (d *fakeDialer) transport() *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestConnDeliversFramesInOrder(t *testing.T) {
	dialer := &fakeDialer{}
	var mu sync.Mutex
	var got []string
	conn := NewConn("ws://test/ws/chat?token=t", dialer, func(data []byte) {
		mu.Lock()
		got = append(got, string(data))
		mu.Unlock()
	}, 20*time.Millisecond, zap.NewNop())
	conn.Start()
	defer conn.Close()

	waitFor(t, time.Second, func() bool { return conn.State() == StateConnected })
	tr := dialer.transport()
	tr.inbound <- []byte("one")
	tr.inbound <- []byte("two")
	tr.inbound <- []byte("three")

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	})
	mu.Lock()
	defer mu.Unlock()
	for i, want := range []string{"one", "two", "three"} {
		if got[i] != want {
			t.Errorf("frame %d: expected %q, got %q", i, want, got[i])
		}
	}
}

func TestConnReconnectsAfterFixedDelay(t *testing.T) {
	dialer := &fakeDialer{}
	delay := 60 * time.Millisecond
	conn := NewConn("ws://test", dialer, func([]byte) {}, delay, zap.NewNop())
	conn.Start()
	defer conn.Close()

	waitFor(t, time.Second, func() bool { return conn.State() == StateConnected })
	dropped := time.Now()
	dialer.transport().drop()

	waitFor(t, time.Second, func() bool { return dialer.attemptCount() >= 2 })
	elapsed := time.Since(dropped)
	if elapsed < delay {
		t.Errorf("reconnect fired after %v, sooner than the %v delay", elapsed, delay)
	}
	if elapsed > delay+500*time.Millisecond {
		t.Errorf("reconnect fired after %v, far beyond the %v delay", elapsed, delay)
	}
	waitFor(t, time.Second, func() bool { return conn.State() == StateConnected })
}

func TestConnRetriesDialFailuresIndefinitely(t *testing.T) {
	dialer := &fakeDialer{fail: true}
	conn := NewConn("ws://test", dialer, func([]byte) {}, 10*time.Millisecond, zap.NewNop())
	conn.Start()
	defer conn.Close()

	waitFor(t, time.Second, func() bool { return dialer.attemptCount() >= 4 })

	// Let the endpoint come back; the loop must settle into Connected.
	dialer.mu.Lock()
	dialer.fail = false
	dialer.mu.Unlock()
	waitFor(t, time.Second, func() bool { return conn.State() == StateConnected })
}

func TestSendWhileDisconnectedIsSilentNoop(t *testing.T) {
	dialer := &fakeDialer{fail: true}
	conn := NewConn("ws://test", dialer, func([]byte) {}, time.Hour, zap.NewNop())
	conn.Start()
	defer conn.Close()

	conn.Send([]byte(`{"type":"chat","content":"lost"}`)) // must not panic or block
	if conn.State() == StateConnected {
		t.Fatal("test setup: connection unexpectedly established")
	}
}

func TestSendWritesWhenConnected(t *testing.T) {
	dialer := &fakeDialer{}
	conn := NewConn("ws://test", dialer, func([]byte) {}, time.Hour, zap.NewNop())
	conn.Start()
	defer conn.Close()

	waitFor(t, time.Second, func() bool { return conn.State() == StateConnected })
	conn.Send([]byte("payload"))

	tr := dialer.transport()
	waitFor(t, time.Second, func() bool { return len(tr.writes()) == 1 })
	if string(tr.writes()[0]) != "payload" {
		t.Errorf("unexpected write %q", tr.writes()[0])
	}
}

func TestCloseStopsReconnecting(t *testing.T) {
	dialer := &fakeDialer{}
	conn := NewConn("ws://test", dialer, func([]byte) {}, 10*time.Millisecond, zap.NewNop())
	conn.Start()

	waitFor(t, time.Second, func() bool { return conn.State() == StateConnected })
	conn.Close()

	if conn.State() != StateDisconnected {
		t.Error("deliberate close must leave the connection disconnected")
	}
	waitFor(t, time.Second, func() bool { return dialer.transport().isClosed() })

	attempts := dialer.attemptCount()
	time.Sleep(60 * time.Millisecond)
	if dialer.attemptCount() != attempts {
		t.Error("no reconnect attempt may follow a deliberate close")
	}
}

func TestCloseDuringRetryWaitStopsLoop(t *testing.T) {
	dialer := &fakeDialer{fail: true}
	conn := NewConn("ws://test", dialer, func([]byte) {}, time.Hour, zap.NewNop())
	conn.Start()

	waitFor(t, time.Second, func() bool { return dialer.attemptCount() >= 1 })
	conn.Close()
	time.Sleep(20 * time.Millisecond)
	if got := dialer.attemptCount(); got != 1 {
		t.Errorf("expected no attempts after close, got %d total", got)
	}
}
