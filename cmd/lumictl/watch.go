package main

import (
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (c *cli) watchCommand() *cobra.Command {
	var noDashboard bool
	cmd := &cobra.Command{
		Use:   "watch [sensor-id...]",
		Short: "Stream live sensor data and keep a dashboard up to date",
		Long: "Syncs all collections, then subscribes to each sensor's stream. " +
			"Without ids every sensor is watched. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			if _, err := c.services(); err != nil {
				return err
			}

			var out io.Writer = os.Stdout
			if noDashboard {
				out = nil
			}
			if err := c.app.Start(cmd.Context(), ids, out); err != nil {
				return err
			}
			c.app.Wait()

			if err := c.app.Stop(); err != nil {
				log.Error().Err(err).Msg("Shutdown error")
				return err
			}
			log.Info().Msg("Shutdown complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&noDashboard, "no-dashboard", false, "Only log, do not render the dashboard")
	return cmd
}
