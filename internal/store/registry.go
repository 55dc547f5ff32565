package store

import (
	"slices"

	"github.com/dokzlo13/lumictl/internal/api"
)

// Registry groups the stores of every entity type.
type Registry struct {
	regions  *Store[api.Region]
	sensors  *Store[api.Sensor]
	windows  *Store[api.Window]
	settings *Store[api.Setting]
	readings *Series
}

// NewRegistry creates empty stores. readingsCapacity <= 0 uses the default.
func NewRegistry(readingsCapacity int) *Registry {
	return &Registry{
		regions:  New[api.Region]("regions"),
		sensors:  New[api.Sensor]("sensors"),
		windows:  New[api.Window]("windows"),
		settings: New[api.Setting]("settings"),
		readings: NewSeries(readingsCapacity),
	}
}

func (r *Registry) Regions() *Store[api.Region] { return r.regions }
func (r *Registry) Sensors() *Store[api.Sensor] { return r.sensors }
func (r *Registry) Windows() *Store[api.Window] { return r.windows }
func (r *Registry) Settings() *Store[api.Setting] { return r.settings }
func (r *Registry) Readings() *Series { return r.readings }

// OnDispatch installs the same dispatch hook on every store.
func (r *Registry) OnDispatch(fn func(store, kind string, changed bool)) {
	r.regions.OnDispatch(fn)
	r.sensors.OnDispatch(fn)
	r.windows.OnDispatch(fn)
	r.settings.OnDispatch(fn)
}

// ApplyReadings records a batch of readings, marks every known reporting
// sensor dirty and refreshes the aggregate of the regions owning them.
// Readings of unknown sensors are still recorded.
func (r *Registry) ApplyReadings(batch []api.SensorData) {
	touched := make(map[int]struct{})
	var sensorIDs []int
	for _, d := range batch {
		r.readings.Append(d.SensorID, d)
		if sensor, ok := r.sensors.Get(d.SensorID); ok {
			if !slices.Contains(sensorIDs, sensor.ID) {
				sensorIDs = append(sensorIDs, sensor.ID)
			}
			touched[sensor.RegionID] = struct{}{}
		}
	}

	// The sensor itself is unchanged; the update only flags its latest reading
	slices.Sort(sensorIDs)
	for _, id := range sensorIDs {
		r.sensors.Dispatch(Update[api.Sensor]{ID: id, Patch: func(*api.Sensor) {}})
	}

	for regionID := range touched {
		light, temp, ok := r.regionAverage(regionID)
		if !ok {
			continue
		}
		r.regions.Dispatch(Update[api.Region]{
			ID: regionID,
			Patch: func(region *api.Region) {
				region.Light = light
				region.Temperature = temp
			},
		})
	}
}

// regionAverage averages the latest reading of each sensor in the region.
func (r *Registry) regionAverage(regionID int) (light int, temperature float64, ok bool) {
	var (
		n        int
		lightSum int
		tempSum  float64
	)
	for _, sensor := range r.sensors.State().Entries {
		if sensor.Data.RegionID != regionID {
			continue
		}
		latest, has := r.readings.Latest(sensor.Data.ID)
		if !has {
			continue
		}
		n++
		lightSum += latest.Light
		tempSum += latest.Temperature
	}
	if n == 0 {
		return 0, 0, false
	}
	return lightSum / n, tempSum / float64(n), true
}
