package backend

import (
	"context"
	"fmt"

	"github.com/movie-tracker/movietracker-web/internal/models"
)

type loginResponse struct {
	AuthToken string `json:"authToken"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}
	var resp loginResponse
	if err := c.do(ctx, "POST", "/auth/login", nil, body, &resp); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if resp.AuthToken == "" {
		return "", &Error{Kind: ErrUnknown, Message: "login response carried no token"}
	}
	return resp.AuthToken, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, "POST", "/auth/register", nil, reg, &user); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &user, nil
}

// Profile fetches the profile of the token's owner.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, "GET", "/users/profile", nil, nil, &user); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &user, nil
}
