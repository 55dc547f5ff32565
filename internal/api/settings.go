package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// GetSettings lists the user's settings.
func (c *Client) GetSettings(ctx context.Context) ([]Setting, error) {
	var settings []Setting
	if err := c.get(ctx, "/settings", &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// GetSetting fetches one setting.
func (c *Client) GetSetting(ctx context.Context, id int) (*Setting, error) {
	var setting Setting
	if err := c.get(ctx, fmt.Sprintf("/settings/%d", id), &setting); err != nil {
		return nil, err
	}
	return &setting, nil
}

// CreateSetting creates a setting.
func (c *Client) CreateSetting(ctx context.Context, req CreateSettingRequest) (*Setting, error) {
	if !req.End.After(req.Start) {
		return nil, fmt.Errorf("setting end must be after start")
	}
	var setting Setting
	if err := c.post(ctx, "/settings", req, &setting); err != nil {
		return nil, err
	}
	return &setting, nil
}

// UpdateSetting applies a partial update.
func (c *Client) UpdateSetting(ctx context.Context, id int, req UpdateSettingRequest) (*Setting, error) {
	var setting Setting
	if err := c.put(ctx, fmt.Sprintf("/settings/%d", id), req, &setting); err != nil {
		return nil, err
	}
	return &setting, nil
}

// DeleteSetting deletes a setting.
func (c *Client) DeleteSetting(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("/settings/%d", id))
}

// Control sends a named command to the backend, e.g. "start" or "stop".
func (c *Client) Control(ctx context.Context, command string) (*CommandResponse, error) {
	if command == "" {
		return nil, fmt.Errorf("empty control command")
	}
	var raw string
	if err := c.post(ctx, "/control/"+url.PathEscape(command), nil, &raw); err != nil {
		return nil, err
	}

	// Older servers answer with plain text
	var resp CommandResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil || resp.Message == "" {
		resp.Message = strings.TrimSpace(raw)
	}
	return &resp, nil
}
