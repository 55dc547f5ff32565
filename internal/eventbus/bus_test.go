package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dokzlo13/lumictl/internal/api"
)

func TestBus_DeliversInOrder(t *testing.T) {
	b := NewWithConfig(1, 100)

	var mu sync.Mutex
	var got []int
	b.Subscribe(EventTypeSensorData, func(e Event) {
		data := e.Payload.(SensorData)
		mu.Lock()
		got = append(got, data.Readings[0].ID)
		mu.Unlock()
	})

	for i := 1; i <= 20; i++ {
		b.Publish(Event{Type: EventTypeSensorData, Payload: SensorData{
			SensorID: 1,
			Readings: []api.SensorData{{ID: i, SensorID: 1}},
		}})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b.Close(ctx)

	if len(got) != 20 {
		t.Fatalf("delivered %d events, want 20", len(got))
	}
	for i, id := range got {
		if id != i+1 {
			t.Fatalf("order = %v", got)
		}
	}
}

func TestBus_RecoversFromPanic(t *testing.T) {
	b := New()

	done := make(chan struct{})
	calls := 0
	b.Subscribe(EventTypeStreamState, func(e Event) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		close(done)
	})

	b.Publish(Event{Type: EventTypeStreamState, Payload: StreamState{SensorID: 1, State: "connected"}})
	b.Publish(Event{Type: EventTypeStreamState, Payload: StreamState{SensorID: 1, State: "disconnected"}})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler after panic was not called")
	}
	b.Close(context.Background())
}

func TestBus_DropsWhenFull(t *testing.T) {
	b := NewWithConfig(1, 1)

	release := make(chan struct{})
	var mu sync.Mutex
	delivered := 0
	b.Subscribe(EventTypeSensorData, func(Event) {
		<-release
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	// One event blocks the worker, one fills the queue, the rest are dropped
	for i := 0; i < 10; i++ {
		b.Publish(Event{Type: EventTypeSensorData})
		time.Sleep(time.Millisecond)
	}
	close(release)
	b.Close(context.Background())

	if delivered >= 10 || delivered == 0 {
		t.Errorf("delivered = %d, want some but not all", delivered)
	}
}

func TestBus_PublishAfterClose(t *testing.T) {
	b := New()
	b.Subscribe(EventTypeSensorData, func(Event) {})
	b.Close(context.Background())
	b.Close(context.Background())

	// Must not panic
	b.Publish(Event{Type: EventTypeSensorData})
}
