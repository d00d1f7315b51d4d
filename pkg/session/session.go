// Package session stores the credentials the cybered client authenticates with.
//
// A [Session] holds the bearer token returned by the API's login endpoint
// together with who it belongs to and when it lapses. Sessions are kept by a
// [Store]; the [FileStore] keeps one JSON file per session under the user's
// config directory.
//
// # Usage
//
//	store, err := session.NewCLIStore("")  // Uses ~/.config/cybered/sessions/
//	if err != nil {
//	    return err
//	}
//
//	sess, err := session.New(token, "student@example.com", session.DefaultTTL)
//	if err != nil {
//	    return err
//	}
//	if err := store.SaveSession(ctx, sess); err != nil {
//	    return err
//	}
//
// A [CLIStore] also implements the gateway's token source: every request
// reads the current token from disk, so a login or logout in another process
// takes effect immediately.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// ErrNotLoggedIn is returned when a command needs a session and none is stored.
var ErrNotLoggedIn = errors.New("not logged in")

// Session stores an authenticated user's API credentials.
type Session struct {
	ID          string    `json:"id"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	Email       string    `json:"email,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error
}

// DefaultTTL matches the API's access token lifetime of 8 days.
const DefaultTTL = 8 * 24 * time.Hour

// GenerateID creates a cryptographically secure random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// New creates a session for the token issued to email.
func New(accessToken, email string, ttl time.Duration) (*Session, error) {
	if accessToken == "" {
		return nil, errors.New("empty access token")
	}
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		ID:          id,
		AccessToken: accessToken,
		TokenType:   "bearer",
		Email:       email,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}, nil
}
