// Package session handles the bearer token obtained at login: reading the
// acting user's id out of it and keeping it between CLI invocations.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// UserIDClaim is the claim carrying the acting user's identifier.
const UserIDClaim = "user_id"

// ErrNoSession is returned by Store.Load when nobody has logged in.
var ErrNoSession = errors.New("not logged in")

// UserID extracts the user_id claim from a session token without verifying
// its signature; the client only needs to know who it is acting as. Any
// decoding failure, or a missing or non-string claim, yields "".
func UserID(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	id, _ := claims[UserIDClaim].(string)
	return id
}

// Bearer returns the Authorization header value for token.
func Bearer(token string) string {
	return fmt.Sprintf("Bearer %s", token)
}

// Store keeps the session token in a file readable only by the owner.
type Store struct {
	Path string
}

// NewStore creates a token store at path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Save writes the token, creating the parent directory if needed.
func (s *Store) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(s.Path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Load reads the saved token.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

// Clear removes the saved token. Clearing an absent session is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
