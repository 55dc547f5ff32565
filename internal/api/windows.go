package api

import (
	"context"
	"fmt"
)

// GetWindows lists all windows.
func (c *Client) GetWindows(ctx context.Context) ([]Window, error) {
	var windows []Window
	if err := c.get(ctx, "/windows", &windows); err != nil {
		return nil, err
	}
	return windows, nil
}

// GetWindowsByRegion lists the windows of one region.
func (c *Client) GetWindowsByRegion(ctx context.Context, regionID int) ([]Window, error) {
	var windows []Window
	if err := c.get(ctx, fmt.Sprintf("/windows/region/%d", regionID), &windows); err != nil {
		return nil, err
	}
	return windows, nil
}

// GetWindow fetches one window.
func (c *Client) GetWindow(ctx context.Context, id int) (*Window, error) {
	var window Window
	if err := c.get(ctx, fmt.Sprintf("/windows/%d", id), &window); err != nil {
		return nil, err
	}
	return &window, nil
}

// CreateWindow creates a window.
func (c *Client) CreateWindow(ctx context.Context, req CreateWindowRequest) (*Window, error) {
	var window Window
	if err := c.post(ctx, "/windows", req, &window); err != nil {
		return nil, err
	}
	return &window, nil
}

// UpdateWindow applies a partial update, typically a new blind position.
func (c *Client) UpdateWindow(ctx context.Context, id int, req UpdateWindowRequest) (*Window, error) {
	var window Window
	if err := c.put(ctx, fmt.Sprintf("/windows/%d", id), req, &window); err != nil {
		return nil, err
	}
	return &window, nil
}

// DeleteWindow deletes a window.
func (c *Client) DeleteWindow(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("/windows/%d", id))
}
