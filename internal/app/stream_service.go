package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumictl/internal/api"
	"github.com/dokzlo13/lumictl/internal/config"
	"github.com/dokzlo13/lumictl/internal/eventbus"
	"github.com/dokzlo13/lumictl/internal/metrics"
	"github.com/dokzlo13/lumictl/internal/stream"
)

// StreamService runs one live stream per sensor and publishes batches to the bus.
type StreamService struct {
	cfg     *config.Config
	client  *api.Client
	bus     *eventbus.Bus
	metrics *metrics.Metrics

	wg sync.WaitGroup
}

// NewStreamService creates a new StreamService.
func NewStreamService(cfg *config.Config, client *api.Client, bus *eventbus.Bus, m *metrics.Metrics) *StreamService {
	return &StreamService{cfg: cfg, client: client, bus: bus, metrics: m}
}

func (s *StreamService) streamConfig() stream.Config {
	return stream.Config{
		MinBackoff:    s.cfg.Stream.MinRetryBackoff.Duration(),
		MaxBackoff:    s.cfg.Stream.MaxRetryBackoff.Duration(),
		Multiplier:    s.cfg.Stream.RetryMultiplier,
		MaxReconnects: s.cfg.Stream.MaxReconnects,
	}
}

// Start launches the streams in the background.
func (s *StreamService) Start(ctx context.Context, sensorIDs []int, onFatalError func(error)) {
	websocket := s.cfg.Stream.Transport == "websocket"
	transport := stream.NewTransport(s.cfg.Stream.Transport)

	for _, id := range sensorIDs {
		sensorID := id
		st := stream.New(transport, func() (string, error) {
			return s.client.SensorStreamURL(sensorID, websocket)
		}, s.streamConfig())

		s.observe(st, sensorID)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			err := st.Run(ctx, func(batch []api.SensorData) {
				s.bus.Publish(eventbus.Event{
					Type:    eventbus.EventTypeSensorData,
					Payload: eventbus.SensorData{SensorID: sensorID, Readings: batch},
				})
			})
			if errors.Is(err, stream.ErrMaxReconnectsExceeded) && onFatalError != nil {
				onFatalError(err)
			}
		}()
	}

	log.Info().Ints("sensors", sensorIDs).Str("transport", s.cfg.Stream.Transport).Msg("Sensor streams started")
}

func (s *StreamService) observe(st *stream.Stream, sensorID int) {
	attempts := 0
	connected := false
	st.OnState(func(state stream.State) {
		switch state {
		case stream.StateConnecting:
			attempts++
			if attempts > 1 {
				s.metrics.StreamReconnecting()
			}
		case stream.StateConnected:
			connected = true
			s.metrics.StreamConnected(true)
		case stream.StateDisconnected:
			if connected {
				connected = false
				s.metrics.StreamConnected(false)
			}
		}
		s.bus.Publish(eventbus.Event{
			Type:    eventbus.EventTypeStreamState,
			Payload: eventbus.StreamState{SensorID: sensorID, State: string(state)},
		})
	})
	st.OnMessage(s.metrics.ObserveMessage)
}

// Wait blocks until all streams have returned or ctx is done.
func (s *StreamService) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("Sensor streams did not stop in time")
	}
}
