package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// MagicLink issues and hashes magic-link login tokens. The raw token goes
// out in the emailed URL; only the HMAC hash is stored server-side.
type MagicLink struct {
	secret []byte
}

func NewMagicLink(secret string) *MagicLink {
	return &MagicLink{secret: []byte(secret)}
}

// NewToken returns a fresh random token and its storable hash.
func (m *MagicLink) NewToken() (raw string, hash string, err error) {
	buf := make([]byte, 32)

	_, err = rand.Read(buf)

	if err != nil {
		return
	}

	raw = hex.EncodeToString(buf)
	hash = m.Hash(raw)
	return
}

// Deterministic HMAC hash (server-side pepper = JWT secret bytes).
// Store this in DB (never store the raw token).
func (m *MagicLink) Hash(raw string) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}
