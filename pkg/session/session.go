// Package session stores gallery API credentials.
//
// A [Session] holds the JWT pair returned by the API together with the
// user it belongs to. Backends:
//   - [FileStore]: JSON files, for the CLI
//   - [RedisStore]: shared storage for `masonry serve`
//
// [CLIStore] wraps FileStore with a single well-known session, the one
// written by `masonry login` and read by every other command.
//
// A Session is also a gallery.CredentialProvider:
//
//	sess, _ := cli.GetSession(ctx)
//	client, _ := gallery.NewClient(baseURL, gallery.WithCredentials(sess))
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/masonry/pkg/errors"
)

const (
	// DefaultTTL is used when the access token carries no expiry.
	DefaultTTL = 24 * time.Hour

	// GuestUserID and GuestUsername identify the shared guest account.
	GuestUserID   int64 = -1
	GuestUsername       = "guest"
	guestPassword       = "guest"
)

// Session stores an authenticated user's tokens.
type Session struct {
	ID           string    `json:"id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	Guest        bool      `json:"guest"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Token returns the access token for API requests. A nil session sends
// requests anonymously.
func (s *Session) Token(ctx context.Context) (string, error) {
	if s == nil {
		return "", nil
	}
	if s.IsExpired() {
		return "", errors.New(errors.ErrCodeSessionExpired, "session for %s expired at %s", s.Username, s.ExpiresAt.Format(time.RFC3339))
	}
	return s.AccessToken, nil
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

	// Cleanup removes expired sessions (no-op where the backend expires keys).
	Cleanup(ctx context.Context) error
}

// New creates a session for a token pair. The user and expiry are taken
// from the access token claims when present; username is the fallback.
func New(access, refresh, username string) *Session {
	now := time.Now()
	sess := &Session{
		ID:           uuid.NewString(),
		AccessToken:  access,
		RefreshToken: refresh,
		Username:     username,
		ExpiresAt:    now.Add(DefaultTTL),
		CreatedAt:    now,
	}
	if c, err := ParseClaims(access); err == nil {
		sess.UserID = c.UserID
		if c.Username != "" {
			sess.Username = c.Username
		}
		if !c.ExpiresAt.IsZero() {
			sess.ExpiresAt = c.ExpiresAt
		}
	}
	return sess
}

// Guest creates a session for the shared guest account. Guest sessions
// always report user ID -1, whatever the token says.
func Guest(access, refresh string) *Session {
	sess := New(access, refresh, GuestUsername)
	sess.UserID = GuestUserID
	sess.Username = GuestUsername
	sess.Guest = true
	return sess
}

// GuestCredentials returns the username and password of the guest account.
func GuestCredentials() (username, password string) {
	return GuestUsername, guestPassword
}

// Claims are the fields read from a JWT access token.
type Claims struct {
	UserID    int64
	Username  string
	ExpiresAt time.Time
}

// ParseClaims decodes the payload of a JWT without verifying its signature.
// Verification is the API's job; the CLI only needs to display the user and
// know when to log in again.
func ParseClaims(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, errors.New(errors.ErrCodeInvalidInput, "malformed token")
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return Claims{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode token payload")
	}

	var raw struct {
		UserID   json.RawMessage `json:"user_id"`
		Username string          `json:"username"`
		Exp      int64           `json:"exp"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Claims{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse token payload")
	}

	c := Claims{Username: raw.Username}
	if len(raw.UserID) > 0 {
		// user_id may be a JSON number or a string.
		id := strings.Trim(string(raw.UserID), `"`)
		if c.UserID, err = strconv.ParseInt(id, 10, 64); err != nil {
			return Claims{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse user_id claim")
		}
	}
	if raw.Exp > 0 {
		c.ExpiresAt = time.Unix(raw.Exp, 0)
	}
	return c, nil
}
