package view

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dokzlo13/lumictl/internal/api"
	"github.com/dokzlo13/lumictl/internal/storage/kv"
	"github.com/dokzlo13/lumictl/internal/store"
	"github.com/dokzlo13/lumictl/internal/theme"
)

// plain renders keys verbatim so assertions do not depend on dictionaries.
var plain = NewContext(nil, false, false)

func TestCard(t *testing.T) {
	var buf bytes.Buffer
	region := api.Region{ID: 1, GroupID: 1, Name: "Living Room", Light: 300, Temperature: 22}
	if err := Card(plain, &buf, RegionCard(plain, region)); err != nil {
		t.Fatalf("Card() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"#1 Living Room", "300 lx", "22.0 °C", "region.light"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("plain context emitted ANSI codes")
	}
}

func TestTable_Aligns(t *testing.T) {
	var buf bytes.Buffer
	err := Table(plain, &buf, TableProps{
		Headers: []string{"ID", "NAME"},
		Rows:    [][]string{{"1", "a"}, {"100", "b"}},
	})
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	col := strings.Index(lines[0], "NAME")
	if strings.Index(lines[1], "a") != col || strings.Index(lines[2], "b") != col {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}

func TestTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	Table(plain, &buf, TableProps{Headers: []string{"ID"}})
	if !strings.Contains(buf.String(), "app.empty") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestBadge(t *testing.T) {
	if got := Badge(plain, "live", StatusOK); got != "[live]" {
		t.Errorf("Badge() = %q", got)
	}
	colored := NewContext(nil, true, true)
	if got := Badge(colored, "live", StatusOK); got != darkPalette.OK+"[live]"+darkPalette.Reset {
		t.Errorf("Badge() = %q", got)
	}
}

func TestRows(t *testing.T) {
	if row := WindowRow(plain, api.Window{ID: 2, Name: "South", RegionID: 1, State: -0.5}); row[3] != "-0.50" || row[4] != "window.open" {
		t.Errorf("WindowRow() = %v", row)
	}
	if row := WindowRow(plain, api.Window{ID: 2}); row[4] != "window.closed" {
		t.Errorf("WindowRow(closed) = %v", row)
	}
	if row := SensorRow(api.Sensor{ID: 3, Name: "s"}, nil); row[3] != "-" {
		t.Errorf("SensorRow(no reading) = %v", row)
	}

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	setting := api.Setting{ID: 4, Start: now.Add(-time.Hour), End: now.Add(time.Hour), Interval: 3600}
	row := SettingRow(plain, setting, now)
	if row[5] != "1h0m0s" || row[6] != "setting.active" {
		t.Errorf("SettingRow() = %v", row)
	}
}

func TestDashboard_RendersOnlyDirty(t *testing.T) {
	reg := store.NewRegistry(10)
	reg.Regions().Dispatch(store.LoadSuccess[api.Region]{Items: []api.Region{
		{ID: 1, Name: "Living Room"},
		{ID: 2, Name: "Kitchen"},
	}})
	reg.Windows().Dispatch(store.LoadSuccess[api.Window]{Items: []api.Window{{ID: 5, Name: "South"}}})

	var buf bytes.Buffer
	d := NewDashboard(plain, reg, &buf)
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer d.Stop()

	initial := buf.String()
	for _, want := range []string{"Living Room", "Kitchen", "South"} {
		if !strings.Contains(initial, want) {
			t.Errorf("initial render missing %q", want)
		}
	}
	if got := reg.Regions().Dirty(); len(got) != 0 {
		t.Errorf("Dirty() after RenderAll = %v", got)
	}

	buf.Reset()
	reg.Regions().Dispatch(store.Update[api.Region]{ID: 2, Patch: func(r *api.Region) { r.Light = 450 }})

	out := buf.String()
	if !strings.Contains(out, "Kitchen") || !strings.Contains(out, "450 lx") {
		t.Errorf("update not rendered:\n%s", out)
	}
	if strings.Contains(out, "Living Room") {
		t.Errorf("clean entry re-rendered:\n%s", out)
	}
	if got := reg.Regions().Dirty(); len(got) != 0 {
		t.Errorf("Dirty() after render = %v", got)
	}

	d.Stop()
	buf.Reset()
	reg.Windows().Dispatch(store.Upsert[api.Window]{Item: api.Window{ID: 6, Name: "North"}})
	if buf.Len() != 0 {
		t.Errorf("rendered after Stop():\n%s", buf.String())
	}
}

func TestDashboard_RedrawsSensorOnReading(t *testing.T) {
	reg := store.NewRegistry(10)
	reg.Regions().Dispatch(store.LoadSuccess[api.Region]{Items: []api.Region{{ID: 1, Name: "Living Room"}}})
	reg.Sensors().Dispatch(store.LoadSuccess[api.Sensor]{Items: []api.Sensor{
		{ID: 10, RegionID: 1, Name: "Window sill"},
		{ID: 11, RegionID: 1, Name: "Ceiling"},
	}})

	var buf bytes.Buffer
	d := NewDashboard(plain, reg, &buf)
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer d.Stop()

	buf.Reset()
	reg.ApplyReadings([]api.SensorData{{ID: 1, SensorID: 10, Light: 512, Temperature: 21.5}})

	out := buf.String()
	if !strings.Contains(out, "Window sill") || !strings.Contains(out, "512") || !strings.Contains(out, "21.5") {
		t.Errorf("reading not rendered:\n%s", out)
	}
	if strings.Contains(out, "Ceiling") {
		t.Errorf("sensor without readings re-rendered:\n%s", out)
	}
}

func TestDashboard_FollowTheme(t *testing.T) {
	reg := store.NewRegistry(10)
	reg.Regions().Dispatch(store.LoadSuccess[api.Region]{Items: []api.Region{{ID: 1, Name: "Living Room"}}})
	tm := theme.New(kv.NewMemoryBucket("prefs"), theme.DetectorFunc(func() bool { return false }))

	var buf bytes.Buffer
	d := NewDashboard(NewContext(nil, tm.IsDark(), true), reg, &buf)
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	d.FollowTheme(tm)
	if !strings.Contains(buf.String(), lightPalette.Title) {
		t.Fatal("initial render should use the light palette")
	}

	buf.Reset()
	if err := tm.Set(theme.ModeDark); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, darkPalette.Title) || !strings.Contains(out, "Living Room") {
		t.Errorf("theme change did not redraw with the dark palette:\n%q", out)
	}

	d.Stop()
	buf.Reset()
	tm.Set(theme.ModeLight)
	if buf.Len() != 0 {
		t.Errorf("rendered after Stop():\n%q", buf.String())
	}
}

func TestDashboard_SetDarkKeepsPlainText(t *testing.T) {
	var buf bytes.Buffer
	d := NewDashboard(plain, store.NewRegistry(10), &buf)
	if err := d.SetDark(true); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Error("plain dashboard emitted ANSI codes after SetDark")
	}
}
