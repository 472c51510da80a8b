package mathserver

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchStream(t *testing.T) {
	s, ts := newTestServer(t, testConfig(t), nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/watch"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The handshake completes before the hub registers the subscriber,
	// so wait for registration before triggering an evaluation.
	require.Eventually(t, func() bool {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		return len(s.hub.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	postJSON(t, ts.URL+"/v1/eval/pdf", `{"x":"0"}`)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev evalEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "pdf", ev.Op)
	assert.Equal(t, "0", ev.Input)
	assert.Equal(t, "398942280401432678", ev.Result)
	assert.False(t, ev.TS.IsZero())
}

func TestWatchSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := newWatchHub(1)
	c := &watchClient{send: make(chan evalEvent, 1)}
	hub.add(c)

	// Fill the queue and keep broadcasting; the hub must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.broadcast(evalEvent{Op: "pdf"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}

	// Only the buffered event is retained.
	assert.Len(t, c.send, 1)

	hub.remove(c)
	_, ok := <-c.send
	assert.True(t, ok, "buffered event should still be readable")
	_, ok = <-c.send
	assert.False(t, ok, "channel should be closed after removal")
}
