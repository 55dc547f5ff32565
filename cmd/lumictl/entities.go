package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/lumictl/internal/api"
	"github.com/dokzlo13/lumictl/internal/app"
	"github.com/dokzlo13/lumictl/internal/form"
	"github.com/dokzlo13/lumictl/internal/store"
	"github.com/dokzlo13/lumictl/internal/view"
)

// listInto loads a collection through the store and returns the visible entities.
func listInto[T store.Entity](ctx context.Context, st *store.Store[T], fetch func(context.Context) ([]T, error), filter func(T) bool) ([]T, error) {
	if filter != nil {
		st.Dispatch(store.SetFilter[T]{Predicate: filter})
	}
	if err := app.Load(ctx, st, fetch); err != nil {
		return nil, err
	}
	return st.Visible(), nil
}

// validated builds a form from flag values and fails with the first message.
func (c *cli) validated(values map[string]string, fields ...form.Field) (*form.Form, error) {
	s, err := c.services()
	if err != nil {
		return nil, err
	}
	f := form.New(s.Translator, fields...)
	presetForm(f, values)
	return f, submit(f)
}

func (c *cli) regionsCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "regions", Aliases: []string{"region"}, Short: "Manage regions"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List regions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.services()
			if err != nil {
				return err
			}
			regions, err := listInto(cmd.Context(), s.Registry.Regions(), s.API.GetRegions, nil)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(regions)
			}
			ctx := c.viewContext()
			rows := make([][]string, 0, len(regions))
			for _, r := range regions {
				rows = append(rows, view.RegionRow(r))
			}
			return c.printTable(view.RegionHeaders(ctx), rows)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one region with its sensors and windows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := c.services()
			if err != nil {
				return err
			}
			region, err := s.API.GetRegion(cmd.Context(), id)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(region)
			}
			ctx := c.viewContext()
			if err := view.Card(ctx, cmd.OutOrStdout(), view.RegionCard(ctx, *region)); err != nil {
				return err
			}

			windows, err := s.API.GetWindowsByRegion(cmd.Context(), id)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(windows))
			for _, w := range windows {
				rows = append(rows, view.WindowRow(ctx, w))
			}
			return c.printTable(view.WindowHeaders(ctx), rows)
		},
	})

	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.validated(map[string]string{"name": name},
				form.Field{Name: "name", Label: c.t("region.name", nil), Rules: []form.Rule{form.Required(), form.MaxLength(64)}},
			); err != nil {
				return err
			}
			s, _ := c.services()
			region, err := s.API.CreateRegion(cmd.Context(), api.CreateRegionRequest{Name: name})
			if err != nil {
				return err
			}
			s.Registry.Regions().Dispatch(store.Upsert[api.Region]{Item: *region})
			if c.jsonOutput {
				return printJSON(region)
			}
			c.say("region.created", map[string]any{"name": region.Name})
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "Region name")
	cmd.AddCommand(create)

	var newName string
	var light int
	var temperature float64
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := c.services()
			if err != nil {
				return err
			}
			req := api.UpdateRegionRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &newName
			}
			if cmd.Flags().Changed("light") {
				req.Light = &light
			}
			if cmd.Flags().Changed("temperature") {
				req.Temperature = &temperature
			}
			region, err := s.API.UpdateRegion(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			s.Registry.Regions().Dispatch(store.Upsert[api.Region]{Item: *region})
			if c.jsonOutput {
				return printJSON(region)
			}
			ctx := c.viewContext()
			return view.Card(ctx, cmd.OutOrStdout(), view.RegionCard(ctx, *region))
		},
	}
	update.Flags().StringVar(&newName, "name", "", "New name")
	update.Flags().IntVar(&light, "light", 0, "Light level")
	update.Flags().Float64Var(&temperature, "temperature", 0, "Temperature")
	cmd.AddCommand(update)

	cmd.AddCommand(c.deleteCommand("region", func(ctx context.Context, s *app.Services, id int) error {
		if err := s.API.DeleteRegion(ctx, id); err != nil {
			return err
		}
		s.Registry.Regions().Dispatch(store.Remove[api.Region]{ID: id})
		return nil
	}))
	return cmd
}

func (c *cli) deleteCommand(kind string, del func(context.Context, *app.Services, int) error) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + kind,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := c.services()
			if err != nil {
				return err
			}
			if err := del(cmd.Context(), s, id); err != nil {
				return err
			}
			c.say(kind+".deleted", map[string]any{"id": id})
			return nil
		},
	}
}

func (c *cli) sensorsCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "sensors", Aliases: []string{"sensor"}, Short: "Manage sensors and read their data"}

	var regionFilter int
	list := &cobra.Command{
		Use:   "list",
		Short: "List sensors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.services()
			if err != nil {
				return err
			}
			var filter func(api.Sensor) bool
			if regionFilter > 0 {
				filter = func(sn api.Sensor) bool { return sn.RegionID == regionFilter }
			}
			sensors, err := listInto(cmd.Context(), s.Registry.Sensors(), s.API.GetSensors, filter)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(sensors)
			}
			ctx := c.viewContext()
			rows := make([][]string, 0, len(sensors))
			for _, sn := range sensors {
				rows = append(rows, view.SensorRow(sn, nil))
			}
			return c.printTable(view.SensorHeaders(ctx), rows)
		},
	}
	list.Flags().IntVar(&regionFilter, "region", 0, "Only sensors of this region")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one sensor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := c.services()
			if err != nil {
				return err
			}
			sensor, err := s.API.GetSensor(cmd.Context(), id)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(sensor)
			}
			return c.printTable(view.SensorHeaders(c.viewContext()), [][]string{view.SensorRow(*sensor, nil)})
		},
	})

	var name string
	var regionID int
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a sensor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.validated(map[string]string{"name": name, "region": positive(regionID)},
				form.Field{Name: "name", Label: c.t("sensor.name", nil), Rules: []form.Rule{form.Required(), form.MaxLength(64)}},
				form.Field{Name: "region", Label: c.t("sensor.region", nil), Rules: []form.Rule{form.Required()}},
			); err != nil {
				return err
			}
			s, _ := c.services()
			sensor, err := s.API.CreateSensor(cmd.Context(), api.CreateSensorRequest{RegionID: regionID, Name: name})
			if err != nil {
				return err
			}
			s.Registry.Sensors().Dispatch(store.Upsert[api.Sensor]{Item: *sensor})
			if c.jsonOutput {
				return printJSON(sensor)
			}
			c.say("sensor.created", map[string]any{"name": sensor.Name})
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "Sensor name")
	create.Flags().IntVar(&regionID, "region", 0, "Owning region id")
	cmd.AddCommand(create)

	cmd.AddCommand(c.deleteCommand("sensor", func(ctx context.Context, s *app.Services, id int) error {
		if err := s.API.DeleteSensor(ctx, id); err != nil {
			return err
		}
		s.Registry.Sensors().Dispatch(store.Remove[api.Sensor]{ID: id})
		return nil
	}))

	var since time.Duration
	var start, end string
	data := &cobra.Command{
		Use:   "data <id>",
		Short: "Show historical readings of a sensor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			r, err := timeRange(since, start, end, time.Now())
			if err != nil {
				return err
			}
			s, err := c.services()
			if err != nil {
				return err
			}
			readings, err := s.API.GetSensorData(cmd.Context(), id, r)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(readings)
			}
			rows := make([][]string, 0, len(readings))
			for _, d := range readings {
				rows = append(rows, view.ReadingRow(d))
			}
			return c.printTable(view.ReadingHeaders(c.viewContext()), rows)
		},
	}
	data.Flags().DurationVar(&since, "since", 0, "Only readings newer than this, e.g. 24h")
	data.Flags().StringVar(&start, "start", "", "Range start (RFC 3339)")
	data.Flags().StringVar(&end, "end", "", "Range end (RFC 3339)")
	cmd.AddCommand(data)

	return cmd
}

// timeRange builds a query range from --since or explicit --start/--end.
func timeRange(since time.Duration, start, end string, now time.Time) (api.TimeRange, error) {
	var r api.TimeRange
	if since > 0 {
		r.Start = now.Add(-since)
	}
	if start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return r, fmt.Errorf("invalid --start: %w", err)
		}
		r.Start = t
	}
	if end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return r, fmt.Errorf("invalid --end: %w", err)
		}
		r.End = t
	}
	if !r.Start.IsZero() && !r.End.IsZero() && !r.End.After(r.Start) {
		return r, fmt.Errorf("range end must be after start")
	}
	return r, nil
}

func positive(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func (c *cli) windowsCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "windows", Aliases: []string{"window"}, Short: "Manage windows and their blinds"}

	var regionFilter int
	list := &cobra.Command{
		Use:   "list",
		Short: "List windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.services()
			if err != nil {
				return err
			}
			var filter func(api.Window) bool
			if regionFilter > 0 {
				filter = func(w api.Window) bool { return w.RegionID == regionFilter }
			}
			windows, err := listInto(cmd.Context(), s.Registry.Windows(), s.API.GetWindows, filter)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(windows)
			}
			ctx := c.viewContext()
			rows := make([][]string, 0, len(windows))
			for _, w := range windows {
				rows = append(rows, view.WindowRow(ctx, w))
			}
			return c.printTable(view.WindowHeaders(ctx), rows)
		},
	}
	list.Flags().IntVar(&regionFilter, "region", 0, "Only windows of this region")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := c.services()
			if err != nil {
				return err
			}
			window, err := s.API.GetWindow(cmd.Context(), id)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(window)
			}
			ctx := c.viewContext()
			return c.printTable(view.WindowHeaders(ctx), [][]string{view.WindowRow(ctx, *window)})
		},
	})

	var name string
	var regionID int
	var state float64
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkState(state); err != nil {
				return err
			}
			if _, err := c.validated(map[string]string{"name": name, "region": positive(regionID)},
				form.Field{Name: "name", Label: c.t("window.name", nil), Rules: []form.Rule{form.Required(), form.MaxLength(64)}},
				form.Field{Name: "region", Label: c.t("window.region", nil), Rules: []form.Rule{form.Required()}},
			); err != nil {
				return err
			}
			s, _ := c.services()
			window, err := s.API.CreateWindow(cmd.Context(), api.CreateWindowRequest{RegionID: regionID, Name: name, State: state})
			if err != nil {
				return err
			}
			s.Registry.Windows().Dispatch(store.Upsert[api.Window]{Item: *window})
			if c.jsonOutput {
				return printJSON(window)
			}
			ctx := c.viewContext()
			return c.printTable(view.WindowHeaders(ctx), [][]string{view.WindowRow(ctx, *window)})
		},
	}
	create.Flags().StringVar(&name, "name", "", "Window name")
	create.Flags().IntVar(&regionID, "region", 0, "Owning region id")
	create.Flags().Float64Var(&state, "state", 0, "Initial position in [-1, 1]")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "set <id> <state>",
		Short: "Move a window's blind to a position in [-1, 1]",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			pos, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid state %q", args[1])
			}
			if err := checkState(pos); err != nil {
				return err
			}
			s, err := c.services()
			if err != nil {
				return err
			}
			window, err := s.API.UpdateWindow(cmd.Context(), id, api.UpdateWindowRequest{State: &pos})
			if err != nil {
				return err
			}
			s.Registry.Windows().Dispatch(store.Upsert[api.Window]{Item: *window})
			if c.jsonOutput {
				return printJSON(window)
			}
			c.say("window.updated", map[string]any{"name": window.Name, "state": fmt.Sprintf("%+.2f", window.State)})
			return nil
		},
	})

	cmd.AddCommand(c.deleteCommand("window", func(ctx context.Context, s *app.Services, id int) error {
		if err := s.API.DeleteWindow(ctx, id); err != nil {
			return err
		}
		s.Registry.Windows().Dispatch(store.Remove[api.Window]{ID: id})
		return nil
	}))
	return cmd
}

func checkState(v float64) error {
	if v < -1 || v > 1 {
		return fmt.Errorf("state %.2f out of range [-1, 1]", v)
	}
	return nil
}

// settingFlags holds the flag values shared by settings create and update.
type settingFlags struct {
	light       int
	temperature float64
	start       string
	end         string
	interval    int
}

func (f *settingFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.light, "light", 0, "Target light level")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "Target temperature")
	cmd.Flags().StringVar(&f.start, "start", "", "Start time (RFC 3339)")
	cmd.Flags().StringVar(&f.end, "end", "", "End time (RFC 3339)")
	cmd.Flags().IntVar(&f.interval, "interval", 0, "Repeat interval in seconds, 0 = once")
}

func (c *cli) settingsCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "settings", Aliases: []string{"setting"}, Short: "Manage scheduled light and temperature targets"}

	var activeOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.services()
			if err != nil {
				return err
			}
			now := time.Now()
			var filter func(api.Setting) bool
			if activeOnly {
				filter = func(st api.Setting) bool { return st.Active(now) }
			}
			settings, err := listInto(cmd.Context(), s.Registry.Settings(), s.API.GetSettings, filter)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(settings)
			}
			ctx := c.viewContext()
			rows := make([][]string, 0, len(settings))
			for _, st := range settings {
				rows = append(rows, view.SettingRow(ctx, st, now))
			}
			return c.printTable(view.SettingHeaders(ctx), rows)
		},
	}
	list.Flags().BoolVar(&activeOnly, "active", false, "Only settings active now")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := c.services()
			if err != nil {
				return err
			}
			setting, err := s.API.GetSetting(cmd.Context(), id)
			if err != nil {
				return err
			}
			return c.showSetting(*setting)
		},
	})

	var cf settingFlags
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.validated(map[string]string{"start": cf.start, "end": cf.end},
				form.Field{Name: "start", Label: c.t("setting.start", nil), Rules: []form.Rule{form.Required(), rfc3339Rule()}},
				form.Field{Name: "end", Label: c.t("setting.end", nil), Rules: []form.Rule{form.Required(), rfc3339Rule()}},
			); err != nil {
				return err
			}
			start, _ := time.Parse(time.RFC3339, cf.start)
			end, _ := time.Parse(time.RFC3339, cf.end)
			if !end.After(start) {
				return fmt.Errorf("end must be after start")
			}
			if cf.interval < 0 {
				return fmt.Errorf("interval must not be negative")
			}
			s, _ := c.services()
			setting, err := s.API.CreateSetting(cmd.Context(), api.CreateSettingRequest{
				Light:       cf.light,
				Temperature: cf.temperature,
				Start:       start,
				End:         end,
				Interval:    cf.interval,
			})
			if err != nil {
				return err
			}
			s.Registry.Settings().Dispatch(store.Upsert[api.Setting]{Item: *setting})
			return c.showSetting(*setting)
		},
	}
	cf.register(create)
	cmd.AddCommand(create)

	var uf settingFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			req, err := uf.update(cmd)
			if err != nil {
				return err
			}
			s, err := c.services()
			if err != nil {
				return err
			}
			setting, err := s.API.UpdateSetting(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			s.Registry.Settings().Dispatch(store.Upsert[api.Setting]{Item: *setting})
			return c.showSetting(*setting)
		},
	}
	uf.register(update)
	cmd.AddCommand(update)

	cmd.AddCommand(c.deleteCommand("setting", func(ctx context.Context, s *app.Services, id int) error {
		if err := s.API.DeleteSetting(ctx, id); err != nil {
			return err
		}
		s.Registry.Settings().Dispatch(store.Remove[api.Setting]{ID: id})
		return nil
	}))
	return cmd
}

// update builds a partial request from the flags the user actually set.
func (f *settingFlags) update(cmd *cobra.Command) (api.UpdateSettingRequest, error) {
	var req api.UpdateSettingRequest
	flags := cmd.Flags()
	if flags.Changed("light") {
		req.Light = &f.light
	}
	if flags.Changed("temperature") {
		req.Temperature = &f.temperature
	}
	if flags.Changed("interval") {
		if f.interval < 0 {
			return req, fmt.Errorf("interval must not be negative")
		}
		req.Interval = &f.interval
	}
	for _, p := range []struct {
		name  string
		value string
		dst   **time.Time
	}{{"start", f.start, &req.Start}, {"end", f.end, &req.End}} {
		if !flags.Changed(p.name) {
			continue
		}
		t, err := time.Parse(time.RFC3339, p.value)
		if err != nil {
			return req, fmt.Errorf("invalid --%s: %w", p.name, err)
		}
		*p.dst = &t
	}
	if req.Start != nil && req.End != nil && !req.End.After(*req.Start) {
		return req, fmt.Errorf("end must be after start")
	}
	return req, nil
}

func rfc3339Rule() form.Rule {
	return form.Custom(func(v string) bool {
		if v == "" {
			return true
		}
		_, err := time.Parse(time.RFC3339, v)
		return err == nil
	})
}

func (c *cli) showSetting(s api.Setting) error {
	if c.jsonOutput {
		return printJSON(s)
	}
	ctx := c.viewContext()
	return c.printTable(view.SettingHeaders(ctx), [][]string{view.SettingRow(ctx, s, time.Now())})
}

func (c *cli) controlCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "control <command>",
		Short: "Send a control command to the backend, e.g. start or stop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.services()
			if err != nil {
				return err
			}
			resp, err := s.API.Control(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}
}
