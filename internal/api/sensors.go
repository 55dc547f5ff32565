package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// GetSensors lists all sensors.
func (c *Client) GetSensors(ctx context.Context) ([]Sensor, error) {
	var sensors []Sensor
	if err := c.get(ctx, "/sensors", &sensors); err != nil {
		return nil, err
	}
	return sensors, nil
}

// GetSensorsByRegion lists the sensors of one region.
func (c *Client) GetSensorsByRegion(ctx context.Context, regionID int) ([]Sensor, error) {
	var sensors []Sensor
	if err := c.get(ctx, fmt.Sprintf("/sensors/region/%d", regionID), &sensors); err != nil {
		return nil, err
	}
	return sensors, nil
}

// GetSensor fetches one sensor.
func (c *Client) GetSensor(ctx context.Context, id int) (*Sensor, error) {
	var sensor Sensor
	if err := c.get(ctx, fmt.Sprintf("/sensors/%d", id), &sensor); err != nil {
		return nil, err
	}
	return &sensor, nil
}

// CreateSensor creates a sensor.
func (c *Client) CreateSensor(ctx context.Context, req CreateSensorRequest) (*Sensor, error) {
	var sensor Sensor
	if err := c.post(ctx, "/sensors", req, &sensor); err != nil {
		return nil, err
	}
	return &sensor, nil
}

// DeleteSensor deletes a sensor.
func (c *Client) DeleteSensor(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("/sensors/%d", id))
}

// GetSensorData returns the stored readings of a sensor inside r.
func (c *Client) GetSensorData(ctx context.Context, sensorID int, r TimeRange) ([]SensorData, error) {
	query := url.Values{}
	if !r.Start.IsZero() {
		query.Set("start", r.Start.UTC().Format(time.RFC3339))
	}
	if !r.End.IsZero() {
		query.Set("end", r.End.UTC().Format(time.RFC3339))
	}

	var data []SensorData
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sensors/data/%d", sensorID), query, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}
