package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dokzlo13/lumictl/internal/api"
)

func fastConfig() Config {
	return Config{MinBackoff: 5 * time.Millisecond, MaxBackoff: 5 * time.Millisecond, Multiplier: 1}
}

func staticURL(u string) URLFunc {
	return func() (string, error) { return u, nil }
}

type collector struct {
	mu    sync.Mutex
	items []api.SensorData
	got   chan struct{}
}

func newCollector() *collector {
	return &collector{got: make(chan struct{}, 100)}
}

func (c *collector) handle(batch []api.SensorData) {
	c.mu.Lock()
	c.items = append(c.items, batch...)
	c.mu.Unlock()
	c.got <- struct{}{}
}

func (c *collector) wait(t *testing.T, n int) []api.SensorData {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		c.mu.Lock()
		if len(c.items) >= n {
			items := append([]api.SensorData(nil), c.items...)
			c.mu.Unlock()
			return items
		}
		c.mu.Unlock()
		select {
		case <-c.got:
		case <-deadline:
			t.Fatalf("timed out waiting for %d readings", n)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"batch", `[{"id":1,"sensor_id":3,"light":300,"temperature":22,"time":"2025-01-01T00:00:00Z"},{"id":2,"sensor_id":3}]`, 2, false},
		{"single", `{"id":1,"sensor_id":3,"light":300}`, 1, false},
		{"timestamp_field", `{"id":1,"sensor_id":3,"timestamp":"2025-01-01T00:00:00Z"}`, 1, false},
		{"empty_batch", `[]`, 0, false},
		{"garbage", `not json`, 0, true},
		{"broken_batch", `[{"id":1}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("Decode() = %d readings, want %d", len(got), tt.want)
			}
		})
	}

	got, _ := Decode([]byte(`{"id":1,"sensor_id":3,"timestamp":"2025-01-01T00:00:00Z"}`))
	if got[0].Time.IsZero() {
		t.Error("timestamp field not mapped to Time")
	}
}

func sseServer(t *testing.T, events []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, ": hi\n\n")
		for _, ev := range events {
			fmt.Fprint(w, ev)
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
}

func TestStream_SSE(t *testing.T) {
	srv := sseServer(t, []string{
		"data: [{\"id\":1,\"sensor_id\":3,\"light\":300}]\n\n",
		"data: broken\n\n",
		"data: {\"id\":2,\n",
		"data: \"sensor_id\":3}\n\n",
	})
	defer srv.Close()

	s := New(NewSSETransport(nil), staticURL(srv.URL), fastConfig())

	var dropped atomic.Int32
	s.OnMessage(func(err error) {
		if err != nil {
			dropped.Add(1)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	c := newCollector()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, c.handle) }()

	items := c.wait(t, 2)
	if items[0].ID != 1 || items[1].ID != 2 {
		t.Errorf("items = %+v", items)
	}
	if dropped.Load() != 1 {
		t.Errorf("dropped = %d, want 1", dropped.Load())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v after cancel, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestStream_ReconnectsAfterClose(t *testing.T) {
	var connections atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := connections.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: {\"id\":%d,\"sensor_id\":1}\n\n", n)
		// Return closes the stream
	}))
	defer srv.Close()

	s := New(NewSSETransport(nil), staticURL(srv.URL), fastConfig())

	var states []State
	var mu sync.Mutex
	s.OnState(func(st State) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newCollector()
	go s.Run(ctx, c.handle)

	c.wait(t, 3)
	if connections.Load() < 3 {
		t.Errorf("connections = %d, want >= 3", connections.Load())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 3 || states[0] != StateConnecting || states[1] != StateConnected || states[2] != StateDisconnected {
		t.Errorf("states = %v", states)
	}
}

func TestStream_MaxReconnects(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.MaxReconnects = 2
	s := New(NewSSETransport(nil), staticURL(srv.URL), cfg)

	err := s.Run(context.Background(), func([]api.SensorData) {})
	if !errors.Is(err, ErrMaxReconnectsExceeded) {
		t.Fatalf("Run() = %v, want ErrMaxReconnectsExceeded", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 reconnects)", got)
	}
}

func TestStream_URLErrorCountsAsFailure(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxReconnects = 1
	s := New(NewSSETransport(nil), func() (string, error) { return "", errors.New("no token") }, cfg)

	if err := s.Run(context.Background(), func([]api.SensorData) {}); !errors.Is(err, ErrMaxReconnectsExceeded) {
		t.Errorf("Run() = %v", err)
	}
}

func TestBackOffSchedule(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []time.Duration
	}{
		{"fixed_default", DefaultConfig(), []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}},
		{"exponential_capped", Config{MinBackoff: time.Second, MaxBackoff: 3 * time.Second, Multiplier: 2},
			[]time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(nil, nil, tt.cfg).newBackOff()
			for i, want := range tt.want {
				if got := b.NextBackOff(); got != want {
					t.Errorf("delay %d = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestStream_WebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "abc" {
			t.Errorf("token query = %q", r.URL.Query().Get("token"))
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`[{"id":1,"sensor_id":9,"light":120}]`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{oops`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"id":2,"sensor_id":9,"light":130}`))
		// Hold the connection until the client goes away
		conn.ReadMessage()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sensors/data/sse/9?token=abc"
	s := New(NewWebSocketTransport(nil), staticURL(wsURL), fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	c := newCollector()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, c.handle) }()

	items := c.wait(t, 2)
	if items[0].Light != 120 || items[1].Light != 130 {
		t.Errorf("items = %+v", items)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestNewTransport(t *testing.T) {
	if _, ok := NewTransport("websocket").(*WebSocketTransport); !ok {
		t.Error("websocket transport not selected")
	}
	if _, ok := NewTransport("").(*SSETransport); !ok {
		t.Error("sse should be the default transport")
	}
}
