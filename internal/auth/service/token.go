package service

import (
	"errors"
	"time"

	"github.com/paddockhq/paddock/internal/auth/domain"
	"github.com/paddockhq/paddock/pkg/jwtx"
)

var (
	// ErrTenantUnresolved means the user has no derivable tenant boundary,
	// e.g. a worker row with no employer. We fail closed rather than issue
	// an unscoped token.
	ErrTenantUnresolved = errors.New("tenant_unresolved")
)

// TokenService signs access tokens for authenticated users. Every token
// carries the user's tenant boundary so downstream scoping never needs a
// second lookup.
type TokenService struct {
	Signer    jwtx.Signer
	Issuer    string
	Audience  []string
	AccessTTL time.Duration

	// Now is the clock used for iat/nbf/exp. Nil means time.Now.
	Now func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// IssueAccessToken signs a short-lived JWT for u. The owner_id claim is
// derived from the user's role: owners are their own tenant, workers
// inherit their employer's. Returns ErrTenantUnresolved when neither
// derivation applies.
func (s *TokenService) IssueAccessToken(u domain.User) (string, time.Time, error) {
	ownerID, ok := domain.ResolveOwnerID(u)
	if !ok {
		return "", time.Time{}, ErrTenantUnresolved
	}

	now := s.now()
	ttl := s.AccessTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}

	claims := jwtx.NewAccessClaims(
		u.ID,
		u.Email,
		u.FullName,
		ownerID,
		[]string{u.Role.String()},
		ttl,
		s.Issuer,
		s.Audience,
		now,
	)

	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, now.Add(ttl), nil
}
