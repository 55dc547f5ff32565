package main

import (
	"github.com/spf13/cobra"

	"github.com/dokzlo13/lumictl/internal/theme"
)

func (c *cli) themeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show or change the color theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.showTheme()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the stored and resolved theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.showTheme()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "set <light|dark|system>",
		Short:     "Set the color theme",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(theme.ModeLight), string(theme.ModeDark), string(theme.ModeSystem)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := theme.ParseMode(args[0])
			if err != nil {
				return err
			}
			s, err := c.services()
			if err != nil {
				return err
			}
			if err := s.Theme.Set(mode); err != nil {
				return err
			}
			return c.showTheme()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between light and dark",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.services()
			if err != nil {
				return err
			}
			if err := s.Theme.Toggle(); err != nil {
				return err
			}
			return c.showTheme()
		},
	})
	return cmd
}

func (c *cli) showTheme() error {
	s, err := c.services()
	if err != nil {
		return err
	}
	if c.jsonOutput {
		return printJSON(map[string]string{"mode": string(s.Theme.Mode()), "resolved": string(s.Theme.Resolved())})
	}
	c.say("theme.current", map[string]any{
		"mode":     c.t("theme."+string(s.Theme.Mode()), nil),
		"resolved": c.t("theme."+string(s.Theme.Resolved()), nil),
	})
	return nil
}

func (c *cli) langCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lang",
		Short: "Show or change the interface language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.showLanguage()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the interface language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.showLanguage()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <code>",
		Short: "Set the interface language, e.g. en or zh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.services()
			if err != nil {
				return err
			}
			if err := s.Translator.SetLanguage(args[0]); err != nil {
				return err
			}
			return c.showLanguage()
		},
	})
	return cmd
}

func (c *cli) showLanguage() error {
	s, err := c.services()
	if err != nil {
		return err
	}
	lang := s.Translator.Language()
	if c.jsonOutput {
		return printJSON(map[string]any{"language": lang, "supported": s.Translator.Supported()})
	}
	c.say("lang.current", map[string]any{"lang": c.t("lang."+lang, nil)})
	return nil
}
