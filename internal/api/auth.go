package api

import (
	"context"
	"net/http"
	"strings"

	"tasksync-cli/internal/model"
)

func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.AuthResponse, error) {
	body := map[string]string{
		"email":    strings.TrimSpace(creds.Email),
		"password": creds.Password,
	}
	var out model.AuthResponse
	err := c.do(ctx, request{op: "log in", method: http.MethodPost, path: "/api/auth/login", body: body, unavailable: "Login failed"}, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, creds model.Credentials) (model.AuthResponse, error) {
	body := map[string]string{
		"email":    strings.TrimSpace(creds.Email),
		"password": creds.Password,
		"name":     strings.TrimSpace(creds.Name),
	}
	var out model.AuthResponse
	err := c.do(ctx, request{op: "register", method: http.MethodPost, path: "/api/auth/register", body: body, unavailable: "Registration failed"}, &out)
	return out, err
}
