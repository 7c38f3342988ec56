package client

import (
	"context"

	"github.com/deskline/deskline/internal/wire"
)

// AuthService handles login and registration.
type AuthService struct {
	client *Client
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	RoleID       string `json:"role_id"`
	DepartmentID int    `json:"department_id"`
}

// Login exchanges credentials for a session token. A success body without
// a token is an invalid response.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	body, err := s.client.Post(ctx, "/auth/login", nil, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	obj, err := wire.DecodeObject(body)
	if err != nil {
		return "", invalid("login", err.Error())
	}
	token := obj.String("token")
	if token == "" {
		return "", invalid("login", "missing token")
	}
	return token, nil
}

// Register creates a user and returns its id.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (string, error) {
	body, err := s.client.Post(ctx, "/auth/register", nil, req)
	if err != nil {
		return "", err
	}

	obj, err := wire.DecodeObject(body)
	if err != nil {
		return "", invalid("register", err.Error())
	}
	id := obj.String("user_id")
	if id == "" {
		return "", invalid("register", "missing user_id")
	}
	return id, nil
}
