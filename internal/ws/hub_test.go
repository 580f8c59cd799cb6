package ws_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"live-quiz-backend/internal/ws"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fakeConn struct {
	mu        sync.Mutex
	msgs      []ws.WSMessage
	fail      bool
	closed    bool
	deadlines int
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	var msg ws.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadlines++
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.msgs))
	for i, m := range c.msgs {
		out[i] = m.Type
	}
	return out
}

func (c *fakeConn) received(n int) func() bool {
	return func() bool { return len(c.types()) == n }
}

// stuckConn never finishes a write until it is closed.
type stuckConn struct {
	entered  chan struct{}
	released chan struct{}
	once     sync.Once
	mu       sync.Mutex
	closed   bool
}

func newStuckConn() *stuckConn {
	return &stuckConn{entered: make(chan struct{}, 1), released: make(chan struct{})}
}

func (c *stuckConn) WriteMessage(int, []byte) error {
	select {
	case c.entered <- struct{}{}:
	default:
	}
	<-c.released
	return errors.New("use of closed connection")
}

func (c *stuckConn) SetWriteDeadline(time.Time) error { return nil }

func (c *stuckConn) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.released)
	})
	return nil
}

func (c *stuckConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestHub_BroadcastReachesOnlySubscribers(t *testing.T) {
	hub := ws.NewHub(zap.NewNop())
	a, b, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	ca, cb, co := hub.Register(a), hub.Register(b), hub.Register(other)

	hub.Subscribe("111111", ca.ID)
	hub.Subscribe("111111", cb.ID)
	hub.Subscribe("222222", co.ID)

	hub.Broadcast("111111", ws.WSMessage{Type: "new_question"})

	assert.Eventually(t, a.received(1), waitFor, tick)
	assert.Eventually(t, b.received(1), waitFor, tick)
	assert.Equal(t, []string{"new_question"}, a.types())
	assert.Empty(t, other.types())
	assert.Equal(t, 2, hub.RoomSize("111111"))
}

func TestHub_WritesCarryDeadline(t *testing.T) {
	hub := ws.NewHub(zap.NewNop())
	a := &fakeConn{}
	ca := hub.Register(a)

	hub.Send(ca.ID, ws.WSMessage{Type: "joined_success"})
	hub.Send(ca.ID, ws.WSMessage{Type: "new_question"})

	require.Eventually(t, a.received(2), waitFor, tick)
	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Equal(t, 2, a.deadlines)
}

func TestHub_SendIsPrivate(t *testing.T) {
	hub := ws.NewHub(zap.NewNop())
	a, b := &fakeConn{}, &fakeConn{}
	ca, cb := hub.Register(a), hub.Register(b)
	hub.Subscribe("111111", ca.ID)
	hub.Subscribe("111111", cb.ID)

	hub.Send(ca.ID, ws.WSMessage{Type: "answer_result"})

	require.Eventually(t, a.received(1), waitFor, tick)
	assert.Equal(t, []string{"answer_result"}, a.types())
	assert.Empty(t, b.types())
}

func TestHub_UnregisterClosesAndRemoves(t *testing.T) {
	hub := ws.NewHub(zap.NewNop())
	a := &fakeConn{}
	ca := hub.Register(a)
	hub.Subscribe("111111", ca.ID)

	hub.Unregister(ca.ID)
	hub.Unregister(ca.ID)

	assert.True(t, a.isClosed())
	assert.Equal(t, 0, hub.RoomSize("111111"))

	// unknown ids are ignored
	hub.Send(ca.ID, ws.WSMessage{Type: "error"})
	hub.Subscribe("111111", ca.ID)
	hub.Broadcast("111111", ws.WSMessage{Type: "error"})
	assert.Empty(t, a.types())
	assert.Equal(t, 0, hub.RoomSize("111111"))
}

func TestHub_FailedWriteDropsClient(t *testing.T) {
	hub := ws.NewHub(zap.NewNop())
	good, bad := &fakeConn{}, &fakeConn{fail: true}
	cg, cb := hub.Register(good), hub.Register(bad)
	hub.Subscribe("111111", cg.ID)
	hub.Subscribe("111111", cb.ID)

	hub.Broadcast("111111", ws.WSMessage{Type: "update_leaderboard"})

	assert.Eventually(t, good.received(1), waitFor, tick)
	assert.Eventually(t, bad.isClosed, waitFor, tick)
	assert.Eventually(t, func() bool { return hub.RoomSize("111111") == 1 }, waitFor, tick)
}

func TestHub_StalledClientDoesNotBlockRoom(t *testing.T) {
	hub := ws.NewHub(zap.NewNop())
	healthy, stuck := &fakeConn{}, newStuckConn()
	ch, cs := hub.Register(healthy), hub.Register(stuck)
	hub.Subscribe("111111", ch.ID)
	hub.Subscribe("111111", cs.ID)

	hub.Broadcast("111111", ws.WSMessage{Type: "new_question"})
	select {
	case <-stuck.entered:
	case <-time.After(waitFor):
		t.Fatal("stuck client never started writing")
	}
	require.Eventually(t, healthy.received(1), waitFor, tick)

	// Each broadcast returns while the stuck write is still pending. Once
	// its queue is full the stuck client is dropped.
	const n = 100
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 2; i <= n; i++ {
			hub.Broadcast("111111", ws.WSMessage{Type: "update_leaderboard"})
			if !assert.Eventually(t, healthy.received(i), waitFor, tick) {
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("broadcasts blocked behind a stalled client")
	}

	assert.True(t, stuck.isClosed())
	assert.Equal(t, 1, hub.RoomSize("111111"))
	assert.Len(t, healthy.types(), n)
}

func TestHub_ConcurrentBroadcasts(t *testing.T) {
	hub := ws.NewHub(zap.NewNop())
	conns := make([]*fakeConn, 5)
	for i := range conns {
		conns[i] = &fakeConn{}
		hub.Subscribe("111111", hub.Register(conns[i]).ID)
	}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast("111111", ws.WSMessage{Type: "update_leaderboard"})
		}()
	}
	wg.Wait()

	for _, c := range conns {
		assert.Eventually(t, c.received(n), waitFor, tick)
	}
}
