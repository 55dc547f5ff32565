package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumictl/internal/eventbus"
	"github.com/dokzlo13/lumictl/internal/store"
)

// EventService handles event bus subscriptions and merges events into the registry.
type EventService struct {
	bus      *eventbus.Bus
	registry *store.Registry
}

// NewEventService creates a new EventService.
func NewEventService(bus *eventbus.Bus, registry *store.Registry) *EventService {
	return &EventService{bus: bus, registry: registry}
}

// Start sets up all event handlers.
func (s *EventService) Start(ctx context.Context) {
	s.setupSensorDataHandler(ctx)
	s.setupStreamStateHandler()
}

// setupSensorDataHandler merges live readings. Batches arriving after shutdown are ignored.
func (s *EventService) setupSensorDataHandler(ctx context.Context) {
	s.bus.Subscribe(eventbus.EventTypeSensorData, func(event eventbus.Event) {
		if ctx.Err() != nil {
			return
		}
		data, ok := event.Payload.(eventbus.SensorData)
		if !ok {
			return
		}

		log.Debug().
			Int("sensor_id", data.SensorID).
			Int("readings", len(data.Readings)).
			Msg("Sensor data received")

		s.registry.ApplyReadings(data.Readings)
	})
}

func (s *EventService) setupStreamStateHandler() {
	s.bus.Subscribe(eventbus.EventTypeStreamState, func(event eventbus.Event) {
		state, ok := event.Payload.(eventbus.StreamState)
		if !ok {
			return
		}
		log.Info().Int("sensor_id", state.SensorID).Str("state", state.State).Msg("Sensor stream state changed")
	})
}
