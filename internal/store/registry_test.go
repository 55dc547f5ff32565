package store

import (
	"testing"
	"time"

	"github.com/dokzlo13/lumictl/internal/api"
)

func TestSeries_Bounded(t *testing.T) {
	s := NewSeries(3)
	for i := 1; i <= 5; i++ {
		s.Append(7, api.SensorData{ID: i, SensorID: 7})
	}

	got := s.Get(7)
	if len(got) != 3 || got[0].ID != 3 || got[2].ID != 5 {
		t.Errorf("Get() = %+v, want ids 3..5", got)
	}

	latest, ok := s.Latest(7)
	if !ok || latest.ID != 5 {
		t.Errorf("Latest() = %+v, %v", latest, ok)
	}
	if _, ok := s.Latest(8); ok {
		t.Error("Latest() on unknown sensor reported a reading")
	}
	if NewSeries(0).Capacity() != DefaultSeriesCapacity {
		t.Error("zero capacity should use the default")
	}
}

func TestRegistry_ApplyReadingsUpdatesRegion(t *testing.T) {
	r := NewRegistry(10)
	r.Regions().Dispatch(LoadSuccess[api.Region]{Items: []api.Region{{ID: 1, Name: "Living Room"}}})
	r.Sensors().Dispatch(LoadSuccess[api.Sensor]{Items: []api.Sensor{
		{ID: 10, RegionID: 1},
		{ID: 11, RegionID: 1},
		{ID: 20, RegionID: 2},
	}})
	r.Regions().ClearDirty()
	r.Sensors().ClearDirty()

	now := time.Now()
	r.ApplyReadings([]api.SensorData{
		{ID: 1, SensorID: 10, Light: 200, Temperature: 20, Time: now},
		{ID: 2, SensorID: 11, Light: 400, Temperature: 24, Time: now},
		{ID: 3, SensorID: 20, Light: 999, Temperature: 99, Time: now},
		{ID: 4, SensorID: 99, Light: 1, Temperature: 1, Time: now},
	})

	region, _ := r.Regions().Get(1)
	if region.Light != 300 || region.Temperature != 22 {
		t.Errorf("region = %+v, want light 300 temperature 22", region)
	}
	if got := r.Regions().Dirty(); len(got) != 1 || got[0] != 1 {
		t.Errorf("Dirty() = %v, want [1]", got)
	}
	if got := r.Sensors().Dirty(); len(got) != 3 || got[0] != 10 || got[1] != 11 || got[2] != 20 {
		t.Errorf("sensors Dirty() = %v, want [10 11 20]", got)
	}
	if r.Regions().State().Len() != 1 {
		t.Error("readings for an unknown region created an entry")
	}
	if got := r.Readings().Get(99); len(got) != 1 {
		t.Errorf("readings of unknown sensor = %d, want 1", len(got))
	}
}
