package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/paddockhq/paddock/internal/auth/domain"
	"github.com/paddockhq/paddock/internal/auth/store"
	"github.com/paddockhq/paddock/pkg/cryptox"
	"github.com/paddockhq/paddock/pkg/idx"
	"github.com/paddockhq/paddock/pkg/slogx"
)

var (
	ErrInvalidRefresh = errors.New("invalid_refresh_token")

	// ErrRefreshReused means an inactive token was presented. The whole
	// family is torn down because we can't tell which presenter is the
	// attacker.
	ErrRefreshReused = errors.New("refresh_token_reused")
)

// DefaultRefreshTTL is the default refresh-token lifetime.
const DefaultRefreshTTL = 14 * 24 * time.Hour

// RefreshService manages the opaque refresh-token family: issuance,
// single-use rotation, and revocation. Raw tokens are never stored, only
// SHA-256 fingerprints.
type RefreshService struct {
	Store      store.Store
	RefreshTTL time.Duration

	// Now is the injected clock. Nil means time.Now.
	Now func() time.Time
}

func (s *RefreshService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *RefreshService) ttl() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return DefaultRefreshTTL
}

// Issue mints a fresh opaque refresh token for userID and persists its
// fingerprint. The raw token is returned exactly once; it cannot be
// recovered later.
func (s *RefreshService) Issue(ctx context.Context, userID string, meta domain.TokenMetadata) (string, error) {
	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	now := s.now()
	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(opaque),
		Device:    meta.Device,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		ExpiresAt: now.Add(s.ttl()),
		CreatedAt: now,
	}

	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return "", err
	}

	return opaque, nil
}

// ValidateAndRotate redeems a presented refresh token. On success the
// presented token is retired, a replacement is minted atomically, and the
// owning user's id is returned alongside the new raw token.
//
// Presenting a token that is rotated, revoked, or expired is treated as
// evidence of theft: every active token the user holds is revoked and
// ErrRefreshReused is returned. The teardown is committed even though
// the call fails.
func (s *RefreshService) ValidateAndRotate(ctx context.Context, presented string, meta domain.TokenMetadata) (string, string, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return "", "", ErrInvalidRefresh
	}

	l := slogx.FromContext(ctx)
	now := s.now()
	hash := cryptox.FingerprintToken(presented)

	var (
		userID    string
		newOpaque string
		reuseUser string
	)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}

		if !current.Active(now) {
			// Reuse of an inactive token. The teardown runs after this
			// transaction so the error return can't roll it back.
			reuseUser = current.UserID
			l.Warn("refresh token reuse detected, revoking all sessions",
				"user_id", current.UserID,
				"token_id", current.ID,
			)
			return ErrRefreshReused
		}

		opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return err
		}
		newHash := cryptox.FingerprintToken(opaque)

		// CAS on the old row: exactly one concurrent redeemer wins.
		rotated, err := tx.RefreshTokens().MarkRotated(ctx, hash, newHash, now)
		if err != nil {
			return err
		}
		if !rotated {
			// Lost the race, which means the token was redeemed twice.
			reuseUser = current.UserID
			l.Warn("concurrent refresh redemption detected, revoking all sessions",
				"user_id", current.UserID,
			)
			return ErrRefreshReused
		}

		next := domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    current.UserID,
			TokenHash: newHash,
			Device:    meta.Device,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
			ExpiresAt: now.Add(s.ttl()),
			CreatedAt: now,
		}
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, next); err != nil {
			return err
		}

		userID = current.UserID
		newOpaque = opaque
		return nil
	})
	if errors.Is(err, ErrRefreshReused) && reuseUser != "" {
		if revokeErr := s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, reuseUser, now); revokeErr != nil {
			return "", "", revokeErr
		}
		return "", "", ErrRefreshReused
	}
	if err != nil {
		return "", "", err
	}

	return userID, newOpaque, nil
}

// Revoke retires the presented token. Revoking a token that is already
// revoked or unknown is not an error; logout stays idempotent.
func (s *RefreshService) Revoke(ctx context.Context, presented string) error {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil
	}

	hash := cryptox.FingerprintToken(presented)
	return s.Store.RefreshTokens().RevokeRefreshToken(ctx, hash, s.now())
}

// RevokeOwned retires the presented token only when it belongs to
// userID. Authenticated logout uses this so a caller can't revoke a
// token stolen from someone else's session without also invalidating
// their own claims.
func (s *RefreshService) RevokeOwned(ctx context.Context, userID, presented string) error {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil
	}

	hash := cryptox.FingerprintToken(presented)
	if _, err := s.Store.RefreshTokens().GetUserRefreshTokenByHash(ctx, userID, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidRefresh
		}
		return err
	}

	return s.Store.RefreshTokens().RevokeRefreshToken(ctx, hash, s.now())
}

// RevokeAll retires every active refresh token the user holds.
func (s *RefreshService) RevokeAll(ctx context.Context, userID string) error {
	return s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID, s.now())
}
