package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// Region is a named physical area owning sensors and windows.
type Region struct {
	ID          int     `json:"id"`
	GroupID     int     `json:"group_id"`
	Name        string  `json:"name"`
	Light       int     `json:"light"`       // Average illuminance of the region's sensors
	Temperature float64 `json:"temperature"` // Average temperature of the region's sensors
}

// EntityID returns the server-assigned id
func (r Region) EntityID() int { return r.ID }

// Sensor reports periodic light/temperature readings.
type Sensor struct {
	ID       int    `json:"id"`
	RegionID int    `json:"region_id"`
	Name     string `json:"name"`
}

// EntityID returns the server-assigned id
func (s Sensor) EntityID() int { return s.ID }

// SensorData is one reading of a sensor.
type SensorData struct {
	ID          int       `json:"id"`
	SensorID    int       `json:"sensor_id"`
	Light       int       `json:"light"`
	Temperature float64   `json:"temperature"`
	Time        time.Time `json:"time"`
}

// EntityID returns the server-assigned id
func (d SensorData) EntityID() int { return d.ID }

// UnmarshalJSON accepts both "time" and "timestamp" for the reading time.
func (d *SensorData) UnmarshalJSON(data []byte) error {
	type plain SensorData
	var aux struct {
		plain
		Timestamp *time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*d = SensorData(aux.plain)
	if d.Time.IsZero() && aux.Timestamp != nil {
		d.Time = *aux.Timestamp
	}
	return nil
}

// Window is a controllable blind. State is its position in [-1, 1]:
// 0 is off, -1 fully anti-clockwise, 1 fully clockwise.
type Window struct {
	ID       int     `json:"id"`
	RegionID int     `json:"region_id"`
	Name     string  `json:"name"`
	State    float64 `json:"state"`
}

// EntityID returns the server-assigned id
func (w Window) EntityID() int { return w.ID }

// Setting is a scheduled target light/temperature rule.
type Setting struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id,omitempty"`
	Light       int       `json:"light"`
	Temperature float64   `json:"temperature"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Interval    int       `json:"interval"`
}

// EntityID returns the server-assigned id
func (s Setting) EntityID() int { return s.ID }

// Repeat reports whether the rule recurs.
func (s Setting) Repeat() bool { return s.Interval > 0 }

// Active reports whether t falls inside the rule's time window.
func (s Setting) Active(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

// User is the authenticated account.
type User struct {
	ID      int    `json:"id"`
	GroupID int    `json:"group_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

// AuthRequest is the body of authenticate/register calls.
type AuthRequest struct {
	Group    string `json:"group,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Token is the server's authentication response.
type Token struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Token string `json:"token"`
	Iat   int64  `json:"iat"`
	Exp   int64  `json:"exp"`
}

// UnmarshalJSON accepts either the full token object or a bare token string.
func (t *Token) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*t = Token{Token: raw}
		return nil
	}
	type plain Token
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Token == "" {
		return fmt.Errorf("token response carries no token")
	}
	*t = Token(p)
	return nil
}

// CreateRegionRequest creates a region.
type CreateRegionRequest struct {
	Name  string `json:"name"`
	Users []int  `json:"users,omitempty"`
}

// UpdateRegionRequest is a partial region update.
type UpdateRegionRequest struct {
	Name        *string  `json:"name,omitempty"`
	Light       *int     `json:"light,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// CreateSensorRequest creates a sensor in a region.
type CreateSensorRequest struct {
	RegionID int    `json:"region_id"`
	Name     string `json:"name"`
}

// CreateWindowRequest creates a window in a region.
type CreateWindowRequest struct {
	RegionID int     `json:"region_id"`
	Name     string  `json:"name"`
	State    float64 `json:"state"`
}

// UpdateWindowRequest is a partial window update.
type UpdateWindowRequest struct {
	Name  *string  `json:"name,omitempty"`
	State *float64 `json:"state,omitempty"`
}

// CreateSettingRequest creates a setting.
type CreateSettingRequest struct {
	Light       int       `json:"light"`
	Temperature float64   `json:"temperature"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Interval    int       `json:"interval"`
}

// UpdateSettingRequest is a partial setting update.
type UpdateSettingRequest struct {
	Light       *int       `json:"light,omitempty"`
	Temperature *float64   `json:"temperature,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	Interval    *int       `json:"interval,omitempty"`
}

// TimeRange bounds a sensor data query. Zero values are omitted.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// CommandResponse is the reply to /control/:command.
type CommandResponse struct {
	Message string `json:"message"`
}
