package service

import (
	"testing"
	"time"

	"github.com/paddockhq/paddock/internal/auth/domain"
	"github.com/paddockhq/paddock/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestIssueAccessTokenClaims(t *testing.T) {
	t.Parallel()

	key := []byte("0123456789abcdef0123456789abcdef")
	signer, err := jwtx.NewSignerHS256(key)
	require.NoError(t, err)

	svc := &TokenService{
		Signer:    signer,
		Issuer:    "paddock-test",
		Audience:  []string{"paddock-api"},
		AccessTTL: time.Minute,
	}
	verifier := jwtx.NewVerifierHS256(key, "paddock-test", []string{"paddock-api"})

	t.Run("owner is their own tenant", func(t *testing.T) {
		owner := domain.User{
			ID:       "owner-1",
			Email:    "grace@example.com",
			FullName: "Grace Fielder",
			Role:     domain.RoleOwner,
		}

		token, expiresAt, err := svc.IssueAccessToken(owner)
		require.NoError(t, err)
		require.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

		claims, err := verifier.Verify(token)
		require.NoError(t, err)
		require.Equal(t, "owner-1", claims.Subject)
		require.Equal(t, "owner-1", claims.OwnerID)
		require.Equal(t, "grace@example.com", claims.Email)
		require.Equal(t, "Grace Fielder", claims.Name)
		require.Equal(t, []string{"Owner"}, claims.Roles)
		require.NotEmpty(t, claims.ID)
	})

	t.Run("worker inherits employer tenant", func(t *testing.T) {
		employer := "owner-1"
		worker := domain.User{
			ID:              "worker-1",
			Email:           "wes@example.com",
			FullName:        "Wes Paddock",
			Role:            domain.RoleWorker,
			EmployerOwnerID: &employer,
		}

		token, _, err := svc.IssueAccessToken(worker)
		require.NoError(t, err)

		claims, err := verifier.Verify(token)
		require.NoError(t, err)
		require.Equal(t, "worker-1", claims.Subject)
		require.Equal(t, "owner-1", claims.OwnerID)
		require.Equal(t, []string{"Worker"}, claims.Roles)
	})

	t.Run("worker without employer fails closed", func(t *testing.T) {
		orphan := domain.User{
			ID:   "worker-2",
			Role: domain.RoleWorker,
		}

		_, _, err := svc.IssueAccessToken(orphan)
		require.ErrorIs(t, err, ErrTenantUnresolved)
	})

	t.Run("unique jti per issuance", func(t *testing.T) {
		owner := domain.User{ID: "owner-1", Role: domain.RoleOwner}

		a, _, err := svc.IssueAccessToken(owner)
		require.NoError(t, err)
		b, _, err := svc.IssueAccessToken(owner)
		require.NoError(t, err)

		ca, err := verifier.Verify(a)
		require.NoError(t, err)
		cb, err := verifier.Verify(b)
		require.NoError(t, err)
		require.NotEqual(t, ca.ID, cb.ID)
	})
}

func TestIssueAccessTokenExpiry(t *testing.T) {
	t.Parallel()

	key := []byte("0123456789abcdef0123456789abcdef")
	signer, err := jwtx.NewSignerHS256(key)
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	svc := &TokenService{
		Signer:    signer,
		Issuer:    "paddock-test",
		AccessTTL: time.Minute,
		Now:       func() time.Time { return past },
	}

	token, _, err := svc.IssueAccessToken(domain.User{ID: "owner-1", Role: domain.RoleOwner})
	require.NoError(t, err)

	verifier := jwtx.NewVerifierHS256(key, "paddock-test", nil)
	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}
