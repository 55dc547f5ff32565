package api

import (
	"context"
	"fmt"
)

// GetRegions lists the regions visible to the user.
func (c *Client) GetRegions(ctx context.Context) ([]Region, error) {
	var regions []Region
	if err := c.get(ctx, "/regions", &regions); err != nil {
		return nil, err
	}
	return regions, nil
}

// GetRegion fetches one region.
func (c *Client) GetRegion(ctx context.Context, id int) (*Region, error) {
	var region Region
	if err := c.get(ctx, fmt.Sprintf("/regions/%d", id), &region); err != nil {
		return nil, err
	}
	return &region, nil
}

// CreateRegion creates a region.
func (c *Client) CreateRegion(ctx context.Context, req CreateRegionRequest) (*Region, error) {
	var region Region
	if err := c.post(ctx, "/regions", req, &region); err != nil {
		return nil, err
	}
	return &region, nil
}

// UpdateRegion applies a partial update.
func (c *Client) UpdateRegion(ctx context.Context, id int, req UpdateRegionRequest) (*Region, error) {
	var region Region
	if err := c.put(ctx, fmt.Sprintf("/regions/%d", id), req, &region); err != nil {
		return nil, err
	}
	return &region, nil
}

// DeleteRegion deletes a region. Sensors and windows are the server's concern.
func (c *Client) DeleteRegion(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("/regions/%d", id))
}
