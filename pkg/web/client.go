package web

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/framelab/go-reframe/pkg/service"
)

// Watcher consumes the /ws/progress stream from a running scan server.
type Watcher struct {
	conn *websocket.Conn
}

// Watch dials the progress stream of the server at addr (host:port).
func Watch(ctx context.Context, addr string) (*Watcher, error) {
	url := fmt.Sprintf("ws://%s/ws/progress", addr)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("web: dial %s: %w", url, err)
	}
	return &Watcher{conn: conn}, nil
}

// Next blocks until the next event arrives or the connection closes.
func (w *Watcher) Next() (service.Event, error) {
	_, data, err := w.conn.ReadMessage()
	if err != nil {
		return service.Event{}, err
	}

	var ev service.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return service.Event{}, fmt.Errorf("web: decode event: %w", err)
	}
	return ev, nil
}

// Close closes the underlying connection.
func (w *Watcher) Close() error {
	return w.conn.Close()
}
