package backend

import (
	"context"

	"github.com/Dan9191/finsight/internal/models"
)

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	if email == "" || password == "" {
		return nil, validationError("login", "email", "enter email and password")
	}

	var res models.LoginResponse
	if err := c.postJSON(ctx, "login", "/api/auth/login", models.LoginRequest{Email: email, Password: password}, &res); err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, &Error{Kind: KindAuth, Op: "login", Message: "login failed"}
	}
	return &res, nil
}
