package domain

import "time"

// LoginResult is what the login and refresh operations return to the caller.
type LoginResult struct {
	AccessToken  string    `json:"access_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
	Role         string    `json:"role"`
	OwnerID      string    `json:"owner_id"`
}

// TokenMetadata is optional telemetry recorded against a refresh token row.
type TokenMetadata struct {
	Device    string
	IPAddress string
	UserAgent string
}

// RefreshToken models the stored refresh token record. Only the SHA-256
// fingerprint of the opaque secret is persisted, never the secret itself.
// Rows form an append-only rotation chain via ReplacedByHash.
type RefreshToken struct {
	ID             string
	UserID         string
	TokenHash      string // base64url SHA-256 of the opaque secret
	Device         string
	IPAddress      string
	UserAgent      string
	ExpiresAt      time.Time
	RevokedAt      *time.Time
	ReplacedByHash string // fingerprint of the token that rotated this one out
	CreatedAt      time.Time
}

// Active reports whether the token is still usable at the given instant.
func (t RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// ConfirmationToken is a hashed single-use email confirmation secret.
type ConfirmationToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
