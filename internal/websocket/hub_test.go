package websocket

import (
	"context"
	"sync"
	"testing"
	"time"

	"trawell-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(nil, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	stop := func() {
		cancel()
		wg.Wait()
	}
	t.Cleanup(stop)
	return hub, stop
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond)
}

func TestHub_PublishReachesTopicOnly(t *testing.T) {
	hub, _ := startHub(t)

	a := NewClient(hub, nil, RoomTopic("ABC234"), nil)
	b := NewClient(hub, nil, RoomTopic("ABC234"), nil)
	other := NewClient(hub, nil, RoomTopic("XYZ789"), nil)
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)
	waitFor(t, func() bool { return hub.Subscribers(RoomTopic("ABC234")) == 2 })

	hub.Publish(RoomTopic("ABC234"), []byte(`{"type":"system_notice"}`))

	assert.Equal(t, `{"type":"system_notice"}`, string(<-a.Send))
	assert.Equal(t, `{"type":"system_notice"}`, string(<-b.Send))
	assert.Empty(t, other.Send)
}

func TestHub_LateSubscriberSeesOnlyLaterFrames(t *testing.T) {
	hub, _ := startHub(t)
	topic := RoomTopic("LATE22")

	early := NewClient(hub, nil, topic, nil)
	hub.Register(early)
	waitFor(t, func() bool { return hub.Subscribers(topic) == 1 })

	hub.Publish(topic, []byte("one"))

	late := NewClient(hub, nil, topic, nil)
	hub.Register(late)
	waitFor(t, func() bool { return hub.Subscribers(topic) == 2 })

	hub.Publish(topic, []byte("two"))

	assert.Equal(t, "one", string(<-early.Send))
	assert.Equal(t, "two", string(<-early.Send))
	assert.Equal(t, "two", string(<-late.Send))
	assert.Empty(t, late.Send)
}

func TestHub_SlowClientDroppedOnce(t *testing.T) {
	hub, _ := startHub(t)
	topic := UserTopic("anon:anon_slow")

	slow := &Client{Hub: hub, Topic: topic, Send: make(chan []byte, 1)}
	hub.Register(slow)
	waitFor(t, func() bool { return hub.Subscribers(topic) == 1 })

	hub.Publish(topic, []byte("fills the buffer"))
	hub.Publish(topic, []byte("overflows"))
	assert.Equal(t, 0, hub.Subscribers(topic))

	// Unregistering after the drop must not close Send a second time.
	hub.Unregister(slow)
	_, ok := <-slow.Send
	assert.True(t, ok)
	_, ok = <-slow.Send
	assert.False(t, ok)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub, stop := startHub(t)
	c := NewClient(hub, nil, ProfilingTopic("prof_1"), nil)
	hub.Register(c)
	waitFor(t, func() bool { return hub.Subscribers(ProfilingTopic("prof_1")) == 1 })

	stop()
	_, ok := <-c.Send
	assert.False(t, ok)

	// Calls after shutdown return instead of blocking.
	late := NewClient(hub, nil, ProfilingTopic("prof_1"), nil)
	hub.Register(late)
	hub.Unregister(late)
	_, ok = <-late.Send
	assert.False(t, ok)
}

func TestHub_ReplyTargetsOneClient(t *testing.T) {
	hub, _ := startHub(t)
	topic := RoomTopic("REPLY2")

	a := NewClient(hub, nil, topic, nil)
	b := NewClient(hub, nil, topic, nil)
	hub.Register(a)
	hub.Register(b)
	// Register returns only once the client is reachable.
	require.Equal(t, 2, hub.Subscribers(topic))

	require.True(t, a.Reply(map[string]string{"type": "error"}))
	assert.JSONEq(t, `{"type":"error"}`, string(<-a.Send))
	assert.Empty(t, b.Send)

	hub.Unregister(a)
	waitFor(t, func() bool { return hub.Subscribers(topic) == 1 })
	assert.False(t, a.Reply(map[string]string{"type": "late"}))
}
