package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/lumictl/internal/api"
	"github.com/dokzlo13/lumictl/internal/form"
	"github.com/dokzlo13/lumictl/internal/session"
)

func (c *cli) credentialsForm(withGroup, newAccount bool) *form.Form {
	s, _ := c.services()
	var tr form.Translator
	if s != nil {
		tr = s.Translator
	}

	password := []form.Rule{form.Required()}
	if newAccount {
		password = append(password, form.MinLength(6))
	}

	fields := []form.Field{}
	if withGroup {
		fields = append(fields, form.Field{Name: "group", Label: c.t("auth.group", nil), Rules: []form.Rule{form.Required()}})
	}
	fields = append(fields,
		form.Field{Name: "email", Label: c.t("auth.email", nil), Rules: []form.Rule{form.Required(), form.Email()}},
		form.Field{Name: "password", Label: c.t("auth.password", nil), Rules: password, Secret: true},
	)
	return form.New(tr, fields...)
}

func (c *cli) authenticate(cmd *cobra.Command, register bool, values map[string]string) error {
	s, err := c.services()
	if err != nil {
		return err
	}

	f := c.credentialsForm(register, register)
	presetForm(f, values)
	if err := newPrompter().fill(f); err != nil {
		return err
	}
	if err := submit(f); err != nil {
		return err
	}

	req := api.AuthRequest{Group: f.Value("group"), Email: f.Value("email"), Password: f.Value("password")}
	var token *api.Token
	if register {
		token, err = s.API.Register(cmd.Context(), req)
	} else {
		token, err = s.API.Authenticate(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	if err := s.Session.SetToken(token.Token); err != nil {
		return err
	}
	c.say("auth.logged_in", map[string]any{"email": req.Email})
	return nil
}

func (c *cli) loginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.authenticate(cmd, false, map[string]string{"email": email, "password": password})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func (c *cli) registerCommand() *cobra.Command {
	var group, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.authenticate(cmd, true, map[string]string{"group": group, "email": email, "password": password})
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "Group to join")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.services()
			if err != nil {
				return err
			}
			if err := s.Session.Clear(); err != nil {
				return err
			}
			c.say("auth.logout", nil)
			return nil
		},
	}
}

func (c *cli) whoamiCommand() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.services()
			if err != nil {
				return err
			}
			if !s.Session.HasToken() {
				c.say("auth.not_logged_in", nil)
				return session.ErrNoToken
			}

			if refresh {
				token, err := s.API.Authorize(cmd.Context())
				if err != nil {
					return err
				}
				if err := s.Session.SetToken(token.Token); err != nil {
					return err
				}
			}

			claims, err := s.Session.Claims()
			if err != nil {
				// Opaque token: nothing to show beyond being signed in
				c.say("auth.logged_in", map[string]any{"email": "?"})
				return nil
			}
			if c.jsonOutput {
				return printJSON(claims)
			}

			c.say("auth.logged_in", map[string]any{"email": claims.Email})
			if claims.Role != "" {
				fmt.Println(claims.Role)
			}
			if !claims.ExpiresAt.IsZero() {
				c.say("auth.expires", map[string]any{"time": claims.ExpiresAt.Local().Format(time.RFC1123)})
			}
			if s.Session.Expired(time.Now()) {
				c.say("errors.unauthorized", nil)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ask the server for a fresh token first")
	return cmd
}
