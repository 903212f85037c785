package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session backs a magic-link login. Only the HMAC hash of the token is
// stored; consumed_at makes the link single-use.
type Session struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	ConsumedAt *time.Time `json:"consumedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

var ErrNotFound = errors.New("session not found")
var ErrExpired = errors.New("session expired")
var ErrConsumed = errors.New("session already used")

func New(userID, tokenHash string, ttl time.Duration) Session {
	now := time.Now().UTC()

	return Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}
