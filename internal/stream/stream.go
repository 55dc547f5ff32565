// Package stream receives live sensor readings over SSE or WebSocket and
// keeps the connection alive with a reconnect schedule.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumictl/internal/api"
)

// ErrMaxReconnectsExceeded is returned when the maximum number of reconnect attempts is exceeded.
var ErrMaxReconnectsExceeded = errors.New("max reconnects exceeded")

// Transport opens one connection and blocks until it ends.
// onOpen is called once the server accepted the connection.
type Transport interface {
	Connect(ctx context.Context, url string, onOpen func(), onMessage func([]byte)) error
}

// State is the connection state reported to OnState listeners.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// Config contains configuration for stream reconnection.
type Config struct {
	MinBackoff    time.Duration // Delay before the first reconnect
	MaxBackoff    time.Duration // Upper bound for the delay
	Multiplier    float64       // Delay growth per attempt
	MaxReconnects int           // Max consecutive reconnect attempts, 0 = infinite
}

// DefaultConfig reconnects every 5 seconds forever.
func DefaultConfig() Config {
	return Config{
		MinBackoff: 5 * time.Second,
		MaxBackoff: 5 * time.Second,
		Multiplier: 1.0,
	}
}

// URLFunc resolves the stream URL before every connection attempt,
// so a refreshed token is picked up on reconnect.
type URLFunc func() (string, error)

// Stream follows one sensor's live readings.
type Stream struct {
	transport Transport
	url       URLFunc
	config    Config

	onState   func(State)
	onMessage func(error)
}

// New creates a stream. Zero config fields fall back to DefaultConfig.
func New(transport Transport, url URLFunc, config Config) *Stream {
	def := DefaultConfig()
	if config.MinBackoff <= 0 {
		config.MinBackoff = def.MinBackoff
	}
	if config.MaxBackoff < config.MinBackoff {
		config.MaxBackoff = config.MinBackoff
	}
	if config.Multiplier < 1 {
		config.Multiplier = def.Multiplier
	}
	return &Stream{
		transport: transport,
		url:       url,
		config:    config,
	}
}

// OnState registers a connection state listener. Must be called before Run.
func (s *Stream) OnState(fn func(State)) {
	s.onState = fn
}

// OnMessage registers a listener told about every received message:
// nil when it decoded, the parse error when it was dropped. Must be called before Run.
func (s *Stream) OnMessage(fn func(error)) {
	s.onMessage = fn
}

func (s *Stream) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.config.MinBackoff
	b.MaxInterval = s.config.MaxBackoff
	b.Multiplier = s.config.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Run connects and reconnects until ctx is cancelled.
// Returns ErrMaxReconnectsExceeded if max reconnects is exceeded.
func (s *Stream) Run(ctx context.Context, handler func([]api.SensorData)) error {
	schedule := s.newBackOff()
	retryCount := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		connected := false
		err := s.connect(ctx, handler, func() {
			connected = true
			retryCount = 0
			schedule.Reset()
		})
		s.setState(StateDisconnected)

		if ctx.Err() != nil {
			return nil
		}

		retryCount++
		if s.config.MaxReconnects > 0 && retryCount > s.config.MaxReconnects {
			log.Error().
				Int("max_reconnects", s.config.MaxReconnects).
				Msg("Sensor stream: max reconnects exceeded, terminating")
			return ErrMaxReconnectsExceeded
		}

		delay := schedule.NextBackOff()
		log.Warn().
			Err(err).
			Bool("was_connected", connected).
			Dur("backoff", delay).
			Int("retry", retryCount).
			Int("max_reconnects", s.config.MaxReconnects).
			Msg("Sensor stream closed, reconnecting")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Stream) connect(ctx context.Context, handler func([]api.SensorData), opened func()) error {
	url, err := s.url()
	if err != nil {
		return err
	}

	s.setState(StateConnecting)
	return s.transport.Connect(ctx, url,
		func() {
			opened()
			s.setState(StateConnected)
		},
		func(msg []byte) {
			batch, err := Decode(msg)
			if s.onMessage != nil {
				s.onMessage(err)
			}
			if err != nil {
				log.Warn().Err(err).Str("data", string(msg)).Msg("Failed to parse sensor message")
				return
			}
			// Late message after cancellation
			if ctx.Err() != nil || len(batch) == 0 {
				return
			}
			handler(batch)
		},
	)
}

func (s *Stream) setState(state State) {
	if s.onState != nil {
		s.onState(state)
	}
}

// Decode parses a message carrying either a batch (JSON array) or one reading.
func Decode(msg []byte) ([]api.SensorData, error) {
	msg = bytes.TrimSpace(msg)
	if len(msg) > 0 && msg[0] == '[' {
		var batch []api.SensorData
		if err := json.Unmarshal(msg, &batch); err != nil {
			return nil, err
		}
		return batch, nil
	}

	var one api.SensorData
	if err := json.Unmarshal(msg, &one); err != nil {
		return nil, err
	}
	return []api.SensorData{one}, nil
}
