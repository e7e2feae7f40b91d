package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Session is the server-side record behind a refresh token. Only a hash
// of the token is stored; presenting the matching raw token is what
// proves ownership at refresh time. Sessions are rotated on every
// refresh, so a leaked token stops working the moment its owner uses
// the real one.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"refresh_token_hash"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	IPAddress        string    `json:"ip_address"`
	UserAgent        string    `json:"user_agent"`
}

func NewSession(userID, refreshToken string, expiresAt time.Time, ipAddress, userAgent string) *Session {
	return &Session{
		ID:               uuid.New().String(),
		UserID:           userID,
		RefreshTokenHash: HashRefreshToken(refreshToken),
		ExpiresAt:        expiresAt,
		CreatedAt:        time.Now(),
		IPAddress:        ipAddress,
		UserAgent:        userAgent,
	}
}

// Matches reports whether the presented refresh token is the one this
// session was minted with.
func (s *Session) Matches(refreshToken string) bool {
	return s.RefreshTokenHash == HashRefreshToken(refreshToken)
}

// Expired reports whether the session's refresh window has closed.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// HashRefreshToken hashes a refresh token for storage. Raw refresh
// tokens never reach the document store.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
