package sdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// WatchSession is a live subscription to the service's evaluation
// feed. Events is closed when the session ends; Err then reports why.
type WatchSession struct {
	conn   *websocket.Conn
	events chan Event

	closeOnce sync.Once
	done      chan struct{}

	mu  sync.Mutex
	err error
}

// Watch subscribes to the evaluation feed. The session stays open
// until Close is called, ctx is canceled, or the server goes away.
func (c *Client) Watch(ctx context.Context) (*WatchSession, error) {
	wsURL, err := c.watchURL()
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, &APIError{Status: resp.StatusCode, Message: "watch handshake failed"}
		}
		return nil, errors.Wrap(err, "dial watch")
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	ws := &WatchSession{
		conn:   conn,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
	go ws.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = ws.Close()
		case <-ws.done:
		}
	}()
	return ws, nil
}

func (c *Client) watchURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", errors.Wrap(err, "parse base url")
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/watch"
	return u.String(), nil
}

func (ws *WatchSession) Events() <-chan Event { return ws.events }

// Err reports why the session ended; nil after a clean Close.
func (ws *WatchSession) Err() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.err
}

func (ws *WatchSession) Close() error {
	ws.closeOnce.Do(func() { close(ws.done) })
	return ws.conn.Close()
}

func (ws *WatchSession) readLoop() {
	defer close(ws.events)
	for {
		var ev Event
		if err := ws.conn.ReadJSON(&ev); err != nil {
			select {
			case <-ws.done:
				// closed by the caller, not an error
			default:
				ws.mu.Lock()
				ws.err = err
				ws.mu.Unlock()
			}
			_ = ws.Close()
			return
		}
		select {
		case ws.events <- ev:
		case <-ws.done:
			return
		}
	}
}
