package view

import (
	"io"
	"sort"
	"sync"

	"github.com/dokzlo13/lumictl/internal/api"
	"github.com/dokzlo13/lumictl/internal/store"
	"github.com/dokzlo13/lumictl/internal/theme"
)

// Dashboard prints the registry once, then re-renders only entries that changed.
type Dashboard struct {
	ctx Context
	reg *store.Registry

	mu     sync.Mutex // serializes writes to w
	w      io.Writer
	unsubs []func()
}

// NewDashboard creates a dashboard writing to w.
func NewDashboard(ctx Context, reg *store.Registry, w io.Writer) *Dashboard {
	return &Dashboard{ctx: ctx, reg: reg, w: w}
}

// Start renders everything and subscribes to region, sensor and window changes.
func (d *Dashboard) Start() error {
	if err := d.RenderAll(); err != nil {
		return err
	}

	d.unsubs = append(d.unsubs,
		d.reg.Regions().Subscribe(func(st store.State[api.Region], _ store.Action[api.Region]) {
			d.mu.Lock()
			defer d.mu.Unlock()
			renderDirty(st, d.reg.Regions(), func(r api.Region) error {
				return Card(d.ctx, d.w, RegionCard(d.ctx, r))
			})
		}),
		d.reg.Windows().Subscribe(func(st store.State[api.Window], _ store.Action[api.Window]) {
			d.mu.Lock()
			defer d.mu.Unlock()
			renderDirty(st, d.reg.Windows(), func(w api.Window) error {
				return Table(d.ctx, d.w, TableProps{Rows: [][]string{WindowRow(d.ctx, w)}})
			})
		}),
		d.reg.Sensors().Subscribe(func(st store.State[api.Sensor], _ store.Action[api.Sensor]) {
			d.mu.Lock()
			defer d.mu.Unlock()
			renderDirty(st, d.reg.Sensors(), func(s api.Sensor) error {
				return Table(d.ctx, d.w, TableProps{Rows: [][]string{d.sensorRow(s)}})
			})
		}),
	)
	return nil
}

// Stop removes the subscriptions.
func (d *Dashboard) Stop() {
	for _, unsubscribe := range d.unsubs {
		unsubscribe()
	}
	d.unsubs = nil
}

// FollowTheme redraws the dashboard with the matching palette whenever the
// resolved theme changes. Stop removes the subscription.
func (d *Dashboard) FollowTheme(tm *theme.Manager) {
	unsubscribe := tm.Subscribe(func(resolved theme.Mode) {
		_ = d.SetDark(resolved == theme.ModeDark)
	})
	d.unsubs = append(d.unsubs, unsubscribe)
}

// SetDark swaps the palette and renders everything again.
// A plain-text dashboard stays plain.
func (d *Dashboard) SetDark(dark bool) error {
	d.mu.Lock()
	color := d.ctx.Palette != (Palette{})
	d.ctx = NewContext(d.ctx.Tr, dark, color)
	d.mu.Unlock()

	return d.RenderAll()
}

// RenderAll prints every visible entry and clears all dirty flags.
func (d *Dashboard) RenderAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.heading("region.title"); err != nil {
		return err
	}
	regions := d.reg.Regions().Visible()
	if len(regions) == 0 {
		if err := List(d.ctx, d.w, ListProps{}); err != nil {
			return err
		}
	}
	for _, r := range regions {
		if err := Card(d.ctx, d.w, RegionCard(d.ctx, r)); err != nil {
			return err
		}
	}

	windows := TableProps{Headers: WindowHeaders(d.ctx)}
	for _, w := range d.reg.Windows().Visible() {
		windows.Rows = append(windows.Rows, WindowRow(d.ctx, w))
	}
	if err := d.heading("window.title"); err != nil {
		return err
	}
	if err := Table(d.ctx, d.w, windows); err != nil {
		return err
	}

	sensors := TableProps{Headers: SensorHeaders(d.ctx)}
	for _, s := range d.reg.Sensors().Visible() {
		sensors.Rows = append(sensors.Rows, d.sensorRow(s))
	}
	if err := d.heading("sensor.title"); err != nil {
		return err
	}
	if err := Table(d.ctx, d.w, sensors); err != nil {
		return err
	}

	d.reg.Regions().ClearDirty()
	d.reg.Windows().ClearDirty()
	d.reg.Sensors().ClearDirty()
	return nil
}

func (d *Dashboard) heading(key string) error {
	_, err := io.WriteString(d.w, d.ctx.paint(d.ctx.Palette.Title, d.ctx.T(key, nil))+"\n")
	return err
}

func (d *Dashboard) sensorRow(s api.Sensor) []string {
	if latest, ok := d.reg.Readings().Latest(s.ID); ok {
		return SensorRow(s, &latest)
	}
	return SensorRow(s, nil)
}

// renderDirty runs inside a store listener, so it clears flags instead of dispatching.
// Hidden entries are cleared without output.
func renderDirty[T store.Entity](st store.State[T], s *store.Store[T], render func(T) error) {
	var dirty []int
	for id, entry := range st.Entries {
		if entry.Dirty {
			dirty = append(dirty, id)
		}
	}
	if len(dirty) == 0 {
		return
	}
	sort.Ints(dirty)

	for _, id := range dirty {
		if entry := st.Entries[id]; entry.Visible {
			_ = render(entry.Data)
		}
	}
	s.ClearDirty(dirty...)
}
