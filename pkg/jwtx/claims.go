package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultAccessTokenTTL is the default lifetime for access tokens.
// Short-lived for security - typical range is 15m to 1h.
const DefaultAccessTokenTTL = 30 * time.Minute

// Claims are the access-token claims shared across the service. Keep
// changes additive so previously issued tokens still parse.
type Claims struct {
	jwt.RegisteredClaims

	/* Custom fields */

	// Email of the authenticated user.
	Email string `json:"email,omitempty"`

	// Name is the display name for the user.
	Name string `json:"name,omitempty"`

	// OwnerID is the tenant boundary the token operates under. For an
	// owner it equals the subject; for a worker it is the employer.
	OwnerID string `json:"owner_id,omitempty"`

	// Roles the user holds, e.g. ["Owner"] or ["Worker"].
	Roles []string `json:"roles,omitempty"`
}

// NewAccessClaims builds minimally-correct claims.
func NewAccessClaims(
	subject, email, name, ownerID string,
	roles []string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email:   email,
		Name:    name,
		OwnerID: ownerID,
		Roles:   roles,
	}
}

// NewJTI returns a unique identifier for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// HasRole reports whether the claims carry the given role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf), with a small grace period for clock skew.
func (c *Claims) ValidateExpiry(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
