package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/lumictl/internal/device"
	"github.com/dokzlo13/lumictl/internal/form"
)

func (c *cli) deviceCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "device", Short: "Talk to blind controllers on the local network"}

	cmd.AddCommand(&cobra.Command{
		Use:   "stepper <endpoint> <command> [value]",
		Short: "Send a stepper command: move, speed, accel, home, stop, status or ping",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := device.ParseCommand(args[1], args[2:]...)
			if err != nil {
				return err
			}
			s, err := c.services()
			if err != nil {
				return err
			}
			endpoint, err := device.ParseEndpoint(args[0], device.DefaultPort)
			if err != nil {
				return err
			}

			result, err := s.Device.Execute(cmd.Context(), endpoint, command)
			if err != nil {
				return err
			}
			if s.Ledger != nil {
				if err := s.Ledger.Record(endpoint, result); err != nil {
					log.Warn().Err(err).Msg("Failed to record device command")
				}
			}
			if c.jsonOutput {
				return printJSON(result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s)\n", result.Command, result.Response, result.Duration.Round(time.Millisecond))
			if !result.Success {
				return fmt.Errorf("device: %s", result.Response.Message)
			}
			return nil
		},
	})

	var limit int
	history := &cobra.Command{
		Use:   "history [endpoint]",
		Short: "Show recently sent stepper commands",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.services()
			if err != nil {
				return err
			}
			if s.Ledger == nil {
				return fmt.Errorf("device history needs the local database")
			}
			endpoint := ""
			if len(args) == 1 {
				if endpoint, err = device.ParseEndpoint(args[0], device.DefaultPort); err != nil {
					return err
				}
			}
			entries, err := s.Ledger.Recent(endpoint, limit)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(entries)
			}
			ctx := c.viewContext()
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.Timestamp.Local().Format("2006-01-02 15:04:05"),
					e.Endpoint,
					string(e.Command),
					string(e.Response),
					e.Duration.String(),
				})
			}
			return c.printTable([]string{
				ctx.T("device.time", nil), ctx.T("device.endpoint", nil), ctx.T("device.command", nil),
				ctx.T("device.response", nil), ctx.T("device.duration", nil),
			}, rows)
		},
	}
	history.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries")
	cmd.AddCommand(history)

	cmd.AddCommand(&cobra.Command{
		Use:   "provision <addr> <ssid> [password]",
		Short: "Send Wi-Fi credentials to a device in setup mode",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := map[string]string{"ssid": args[1]}
			if len(args) == 3 {
				values["password"] = args[2]
			}

			s, err := c.services()
			if err != nil {
				return err
			}
			f := form.New(s.Translator,
				form.Field{Name: "ssid", Label: "SSID", Rules: []form.Rule{form.Required(), form.MaxLength(32)}},
				form.Field{Name: "password", Label: c.t("auth.password", nil), Rules: []form.Rule{form.MinLength(8), form.MaxLength(63)}, Secret: true},
			)
			presetForm(f, values)
			if err := newPrompter().fill(f); err != nil {
				return err
			}
			if err := submit(f); err != nil {
				return err
			}

			if err := device.Provision(cmd.Context(), args[0], f.Value("ssid"), f.Value("password")); err != nil {
				return err
			}
			c.say("device.provisioned", map[string]any{"addr": args[0]})
			return nil
		},
	})
	return cmd
}
