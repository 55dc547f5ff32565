package api

import "context"

// Authenticate logs in and returns the issued token.
func (c *Client) Authenticate(ctx context.Context, req AuthRequest) (*Token, error) {
	var token Token
	if err := c.post(ctx, "/users/authenticate", req, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// Register creates an account and returns its token.
func (c *Client) Register(ctx context.Context, req AuthRequest) (*Token, error) {
	var token Token
	if err := c.post(ctx, "/users/register", req, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// Authorize exchanges the current token for a fresh one.
func (c *Client) Authorize(ctx context.Context) (*Token, error) {
	var token Token
	if err := c.get(ctx, "/users/authorize", &token); err != nil {
		return nil, err
	}
	return &token, nil
}
