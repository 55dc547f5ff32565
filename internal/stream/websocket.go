package stream

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
)

// WebSocketTransport reads text frames from a WebSocket.
type WebSocketTransport struct {
	dialer *websocket.Dialer
}

// NewWebSocketTransport creates a WebSocket transport. A nil dialer uses websocket.DefaultDialer.
func NewWebSocketTransport(dialer *websocket.Dialer) *WebSocketTransport {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &WebSocketTransport{dialer: dialer}
}

// Connect implements Transport. Each text frame is one message.
func (t *WebSocketTransport) Connect(ctx context.Context, url string, onOpen func(), onMessage func([]byte)) error {
	conn, _, err := t.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	onOpen()

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				return nil
			}
			return err
		}
		if kind == websocket.TextMessage {
			onMessage(msg)
		}
	}
}

// NewTransport picks a transport by name: "websocket" or "sse" (default).
func NewTransport(name string) Transport {
	if name == "websocket" || name == "ws" {
		return NewWebSocketTransport(nil)
	}
	return NewSSETransport(nil)
}
