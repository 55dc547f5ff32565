package view

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dokzlo13/lumictl/internal/api"
)

const timeLayout = "2006-01-02 15:04"

// RegionCard builds the card of a region.
func RegionCard(ctx Context, r api.Region) CardProps {
	return CardProps{
		Title: fmt.Sprintf("#%d %s", r.ID, r.Name),
		Rows: []Row{
			{Label: ctx.T("region.group", nil), Value: strconv.Itoa(r.GroupID)},
			{Label: ctx.T("region.light", nil), Value: fmt.Sprintf("%d lx", r.Light)},
			{Label: ctx.T("region.temperature", nil), Value: fmt.Sprintf("%.1f °C", r.Temperature)},
		},
	}
}

// RegionHeaders are the columns of RegionRow.
func RegionHeaders(ctx Context) []string {
	return []string{"ID", ctx.T("region.name", nil), ctx.T("region.group", nil), ctx.T("region.light", nil), ctx.T("region.temperature", nil)}
}

// RegionRow builds a table row for a region.
func RegionRow(r api.Region) []string {
	return []string{strconv.Itoa(r.ID), r.Name, strconv.Itoa(r.GroupID), strconv.Itoa(r.Light), fmt.Sprintf("%.1f", r.Temperature)}
}

// WindowHeaders are the columns of WindowRow.
func WindowHeaders(ctx Context) []string {
	return []string{"ID", ctx.T("window.name", nil), ctx.T("window.region", nil), ctx.T("window.state", nil), ""}
}

// WindowRow builds a table row for a window. A state of 0 is closed.
func WindowRow(ctx Context, w api.Window) []string {
	status := ctx.T("window.closed", nil)
	if w.State != 0 {
		status = ctx.T("window.open", nil)
	}
	return []string{strconv.Itoa(w.ID), w.Name, strconv.Itoa(w.RegionID), fmt.Sprintf("%+.2f", w.State), status}
}

// SensorHeaders are the columns of SensorRow.
func SensorHeaders(ctx Context) []string {
	return []string{"ID", ctx.T("sensor.name", nil), ctx.T("sensor.region", nil), ctx.T("region.light", nil), ctx.T("region.temperature", nil), ""}
}

// SensorRow builds a table row for a sensor with its latest reading, if any.
func SensorRow(s api.Sensor, latest *api.SensorData) []string {
	row := []string{strconv.Itoa(s.ID), s.Name, strconv.Itoa(s.RegionID), "-", "-", ""}
	if latest != nil {
		row[3] = strconv.Itoa(latest.Light)
		row[4] = fmt.Sprintf("%.1f", latest.Temperature)
		if !latest.Time.IsZero() {
			row[5] = latest.Time.Local().Format(timeLayout)
		}
	}
	return row
}

// ReadingHeaders are the columns of ReadingRow.
func ReadingHeaders(ctx Context) []string {
	return []string{"ID", ctx.T("region.light", nil), ctx.T("region.temperature", nil), ""}
}

// ReadingRow builds a table row for one sensor reading.
func ReadingRow(d api.SensorData) []string {
	return []string{strconv.Itoa(d.ID), strconv.Itoa(d.Light), fmt.Sprintf("%.1f", d.Temperature), d.Time.Local().Format(time.RFC3339)}
}

// SettingHeaders are the columns of SettingRow.
func SettingHeaders(ctx Context) []string {
	return []string{"ID", ctx.T("setting.light", nil), ctx.T("setting.temperature", nil), ctx.T("setting.start", nil), ctx.T("setting.end", nil), ctx.T("setting.interval", nil), ""}
}

// SettingRow builds a table row for a setting; the last column says whether it is active at now.
func SettingRow(ctx Context, s api.Setting, now time.Time) []string {
	interval := "-"
	if s.Repeat() {
		interval = (time.Duration(s.Interval) * time.Second).String()
	}
	status := ctx.T("setting.inactive", nil)
	if s.Active(now) {
		status = ctx.T("setting.active", nil)
	}
	return []string{
		strconv.Itoa(s.ID),
		strconv.Itoa(s.Light),
		fmt.Sprintf("%.1f", s.Temperature),
		s.Start.Local().Format(timeLayout),
		s.End.Local().Format(timeLayout),
		interval,
		status,
	}
}
