package store

import (
	"sync"

	"github.com/dokzlo13/lumictl/internal/api"
)

// DefaultSeriesCapacity is how many readings are kept per sensor.
const DefaultSeriesCapacity = 100

// Series keeps the most recent readings of each sensor, oldest first.
type Series struct {
	mu       sync.RWMutex
	capacity int
	data     map[int][]api.SensorData
}

// NewSeries creates a series store. capacity <= 0 uses DefaultSeriesCapacity.
func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = DefaultSeriesCapacity
	}
	return &Series{
		capacity: capacity,
		data:     make(map[int][]api.SensorData),
	}
}

// Append adds readings for a sensor, dropping the oldest beyond capacity.
func (s *Series) Append(sensorID int, readings ...api.SensorData) {
	if len(readings) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	buf := append(s.data[sensorID], readings...)
	if over := len(buf) - s.capacity; over > 0 {
		buf = append([]api.SensorData(nil), buf[over:]...)
	}
	s.data[sensorID] = buf
}

// Get returns a copy of a sensor's readings.
func (s *Series) Get(sensorID int) []api.SensorData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.SensorData(nil), s.data[sensorID]...)
}

// Latest returns the newest reading of a sensor.
func (s *Series) Latest(sensorID int) (api.SensorData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf := s.data[sensorID]
	if len(buf) == 0 {
		return api.SensorData{}, false
	}
	return buf[len(buf)-1], true
}

// Capacity returns the per-sensor bound.
func (s *Series) Capacity() int {
	return s.capacity
}
