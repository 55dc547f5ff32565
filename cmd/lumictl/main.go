package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/lumictl/internal/app"
	"github.com/dokzlo13/lumictl/internal/config"
)

// cli holds state shared by all commands. The application is built lazily
// on first use so that --help never touches the database.
type cli struct {
	configPath string
	logLevel   string
	jsonOutput bool

	cfg *config.Config
	app *app.App
}

func main() {
	c := &cli{}
	root := c.rootCommand()

	err := root.ExecuteContext(app.SignalContext())
	if c.app != nil {
		c.app.Close()
	}
	if err != nil {
		c.printError(err)
		os.Exit(1)
	}
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "lumictl",
		Short:         "Command-line client for LumiSync smart blinds",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if c.logLevel != "" {
				cfg.Log.Level = c.logLevel
			}
			c.cfg = cfg
			setupLogging(cfg.Log.GetLevel(), cfg.Log.JSON, cfg.Log.Colors)
			log.Debug().Str("config", c.configPath).Str("api", cfg.API.URL).Msg("Configuration loaded")
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "lumictl.yaml", "Path to configuration file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "Print results as JSON")

	root.AddCommand(
		c.loginCommand(),
		c.registerCommand(),
		c.logoutCommand(),
		c.whoamiCommand(),
		c.regionsCommand(),
		c.sensorsCommand(),
		c.windowsCommand(),
		c.settingsCommand(),
		c.controlCommand(),
		c.watchCommand(),
		c.themeCommand(),
		c.langCommand(),
		c.deviceCommand(),
	)
	return root
}

// services builds the application container on first use.
func (c *cli) services() (*app.Services, error) {
	if c.app == nil {
		a, err := app.New(c.cfg)
		if err != nil {
			return nil, err
		}
		c.app = a
	}
	return c.app.Services(), nil
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
