package mathserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/betbot/gostat/internal/metrics"
	"github.com/betbot/gostat/pkg/logger"
)

const (
	watchWriteTimeout = 10 * time.Second
	watchPingInterval = 15 * time.Second
)

var watchUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Token 鉴权在中间件完成，这里不做 Origin 校验
	CheckOrigin: func(r *http.Request) bool { return true },
}

type watchClient struct {
	conn *websocket.Conn
	send chan evalEvent
}

// watchHub fans evaluation events out to websocket subscribers. Slow
// subscribers lose events rather than stalling the request path; drops
// are counted.
type watchHub struct {
	mu      sync.Mutex
	clients map[*watchClient]struct{}
	queue   int
}

func newWatchHub(queueSize int) *watchHub {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &watchHub{
		clients: make(map[*watchClient]struct{}),
		queue:   queueSize,
	}
}

func (h *watchHub) add(c *watchClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// remove closes the client's send channel under the hub lock, so a
// concurrent broadcast can never write to a closed channel.
func (h *watchHub) remove(c *watchClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *watchHub) broadcast(ev evalEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			metrics.WatchDropped.Add(1)
		}
	}
}

// closeAll disconnects every subscriber (used at shutdown).
func (h *watchHub) closeAll() {
	h.mu.Lock()
	clients := make([]*watchClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := watchUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已经写入了错误响应
		logger.Debugf("watch upgrade failed: %v", err)
		return
	}

	c := &watchClient{
		conn: conn,
		send: make(chan evalEvent, s.hub.queue),
	}
	s.hub.add(c)
	metrics.WatchSessions.Add(1)

	go s.watchWriter(c)

	// 读循环只用于感知客户端断开
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.remove(c)
	_ = conn.Close()
}

func (s *Server) watchWriter(c *watchClient) {
	ticker := time.NewTicker(watchPingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := c.conn.WriteJSON(ev); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

// broadcast publishes a successful evaluation to watch subscribers.
func (s *Server) broadcast(op, input, result, caller string) {
	if s.hub == nil {
		return
	}
	s.hub.broadcast(evalEvent{
		Op:     op,
		Input:  input,
		Result: result,
		Caller: caller,
		TS:     time.Now().UTC(),
	})
}
