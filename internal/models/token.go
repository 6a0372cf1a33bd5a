package models

import "time"

// RefreshToken stores the SHA-256 hash of an opaque refresh token.
// The raw token is only ever returned to the client once.
type RefreshToken struct {
	ID        int64      `json:"-" db:"id"`
	UserID    int64      `json:"-" db:"user_id"`
	TokenHash string     `json:"-" db:"token_hash"`
	ExpiresAt time.Time  `json:"-" db:"expires_at"`
	CreatedAt time.Time  `json:"-" db:"created_at"`
	RevokedAt *time.Time `json:"-" db:"revoked_at"`
}

// Valid reports whether the token can still be redeemed
func (t *RefreshToken) Valid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// GoogleFitToken holds a user's Google Fit OAuth credentials
type GoogleFitToken struct {
	UserID       int64      `json:"-" db:"user_id"`
	AccessToken  string     `json:"-" db:"access_token"`
	RefreshToken string     `json:"-" db:"refresh_token"`
	TokenType    string     `json:"-" db:"token_type"`
	Expiry       time.Time  `json:"-" db:"expiry"`
	LastSyncedAt *time.Time `json:"-" db:"last_synced_at"`
	CreatedAt    time.Time  `json:"-" db:"created_at"`
	UpdatedAt    time.Time  `json:"-" db:"updated_at"`
}
