package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/dokzlo13/lumictl/internal/api"
	"github.com/dokzlo13/lumictl/internal/app"
	"github.com/dokzlo13/lumictl/internal/i18n"
	"github.com/dokzlo13/lumictl/internal/storage/kv"
	"github.com/dokzlo13/lumictl/internal/view"
)

// viewContext builds the render context from the stored theme and language.
func (c *cli) viewContext() view.Context {
	s, err := c.services()
	if err != nil {
		return view.NewContext(nil, false, false)
	}
	return view.NewContext(s.Translator, s.Theme.IsDark(), view.ColorEnabled(os.Stdout))
}

// t translates a key. Before the app exists the process locale decides the language.
func (c *cli) t(key string, params map[string]any) string {
	if c.app != nil {
		return c.app.Services().Translator.T(key, params)
	}
	tr, err := i18n.New(kv.NewMemoryBucket(app.PreferencesBucket))
	if err != nil {
		return key
	}
	return tr.T(key, params)
}

func (c *cli) say(key string, params map[string]any) {
	fmt.Fprintln(os.Stdout, c.t(key, params))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) printTable(headers []string, rows [][]string) error {
	return view.Table(c.viewContext(), os.Stdout, view.TableProps{Headers: headers, Rows: rows})
}

// errorMessage maps an error to a translated line.
func errorMessage(t func(string, map[string]any) string, err error) string {
	var apiErr *api.APIError
	var netErr net.Error
	switch {
	case api.IsUnauthorized(err):
		return t("errors.unauthorized", nil)
	case api.IsStatus(err, 404):
		return t("errors.not_found", nil)
	case errors.As(err, &apiErr):
		return t("errors.server", map[string]any{"status": apiErr.Status, "message": apiErr.Message})
	case errors.As(err, &netErr):
		return t("errors.network", nil)
	default:
		return t("errors.unknown", map[string]any{"message": err.Error()})
	}
}

func (c *cli) printError(err error) {
	fmt.Fprintln(os.Stderr, errorMessage(c.t, err))
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
