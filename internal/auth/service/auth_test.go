package service

import (
	"context"
	"testing"
	"time"

	"github.com/paddockhq/paddock/internal/auth/domain"
	"github.com/paddockhq/paddock/internal/auth/store"
	"github.com/paddockhq/paddock/pkg/cryptox"
	"github.com/paddockhq/paddock/pkg/idx"
	"github.com/paddockhq/paddock/pkg/ratex"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T, st store.Store) (*AuthService, *recordingSender) {
	t.Helper()

	mailer := &recordingSender{}
	svc := &AuthService{
		Store: st,
		Tokens: &TokenService{
			Signer:    newTestSigner(t),
			Issuer:    "paddock-test",
			AccessTTL: time.Minute,
		},
		Sessions: &RefreshService{Store: st, RefreshTTL: time.Hour},
		Mailer:   mailer,
	}
	return svc, mailer
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)

	owner := seedOwner(t, st, "grace@example.com", "correct horse battery")

	t.Run("success returns full pair", func(t *testing.T) {
		res, err := svc.Login(ctx, "grace@example.com", "correct horse battery", domain.TokenMetadata{Device: "phone"})
		require.NoError(t, err)
		require.NotEmpty(t, res.AccessToken)
		require.NotEmpty(t, res.RefreshToken)
		require.Equal(t, "Owner", res.Role)
		require.Equal(t, owner.ID, res.OwnerID)
	})

	t.Run("email lookup is case-insensitive", func(t *testing.T) {
		_, err := svc.Login(ctx, "  GRACE@Example.COM ", "correct horse battery", domain.TokenMetadata{})
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "grace@example.com", "wrong", domain.TokenMetadata{})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@example.com", "whatever", domain.TokenMetadata{})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLoginRejectsInactiveAndUnconfirmed(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)

	inactive := seedOwner(t, st, "inactive@example.com", "correct horse battery")
	require.NoError(t, st.Users().SetActive(ctx, inactive.ID, false))

	_, err := svc.Login(ctx, "inactive@example.com", "correct horse battery", domain.TokenMetadata{})
	require.ErrorIs(t, err, ErrAccountInactive)

	hash, err := cryptox.HashPassword("correct horse battery")
	require.NoError(t, err)
	now := time.Now().UTC()
	unconfirmed := domain.User{
		ID:           idx.New().String(),
		Email:        "unconfirmed@example.com",
		FullName:     "New Owner",
		PasswordHash: hash,
		Role:         domain.RoleOwner,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().CreateUser(ctx, unconfirmed))

	_, err = svc.Login(ctx, "unconfirmed@example.com", "correct horse battery", domain.TokenMetadata{})
	require.ErrorIs(t, err, ErrEmailNotConfirmed)
}

func TestLoginRateLimited(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	seedOwner(t, st, "target@example.com", "correct horse battery")

	svc.Limiter = ratex.New(ratex.Config{
		RequestsPerWindow: 2,
		Window:            time.Minute,
		Burst:             2,
	})

	meta := domain.TokenMetadata{IPAddress: "203.0.113.9"}

	_, err := svc.Login(ctx, "target@example.com", "wrong", meta)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "target@example.com", "wrong", meta)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Third attempt in the window is cut off before password checking,
	// even with the right password.
	_, err = svc.Login(ctx, "target@example.com", "correct horse battery", meta)
	require.ErrorIs(t, err, ErrTooManyAttempts)

	// A different source keeps its own bucket.
	_, err = svc.Login(ctx, "target@example.com", "correct horse battery", domain.TokenMetadata{IPAddress: "198.51.100.7"})
	require.NoError(t, err)
}

func TestRefreshGrantRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	owner := seedOwner(t, st, "session@example.com", "correct horse battery")

	login, err := svc.Login(ctx, "session@example.com", "correct horse battery", domain.TokenMetadata{})
	require.NoError(t, err)

	res, err := svc.Refresh(ctx, login.RefreshToken, domain.TokenMetadata{})
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.NotEqual(t, login.RefreshToken, res.RefreshToken)
	require.Equal(t, owner.ID, res.OwnerID)

	// The original refresh token is spent.
	_, err = svc.Refresh(ctx, login.RefreshToken, domain.TokenMetadata{})
	require.ErrorIs(t, err, ErrRefreshReused)
}

func TestRefreshGrantDeactivatedAccount(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	owner := seedOwner(t, st, "leaver@example.com", "correct horse battery")

	login, err := svc.Login(ctx, "leaver@example.com", "correct horse battery", domain.TokenMetadata{})
	require.NoError(t, err)

	require.NoError(t, st.Users().SetActive(ctx, owner.ID, false))

	_, err = svc.Refresh(ctx, login.RefreshToken, domain.TokenMetadata{})
	require.ErrorIs(t, err, ErrAccountInactive)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)
	owner := seedOwner(t, st, "bye@example.com", "correct horse battery")

	login, err := svc.Login(ctx, "bye@example.com", "correct horse battery", domain.TokenMetadata{})
	require.NoError(t, err)

	// Logout is scoped to the caller: another user can't retire this
	// session even with the raw token in hand.
	stranger := seedOwner(t, st, "stranger@example.com", "correct horse battery")
	require.ErrorIs(t, svc.Logout(ctx, stranger.ID, login.RefreshToken), ErrInvalidRefresh)

	require.NoError(t, svc.Logout(ctx, owner.ID, login.RefreshToken))
	require.NoError(t, svc.Logout(ctx, owner.ID, login.RefreshToken))

	_, err = svc.Refresh(ctx, login.RefreshToken, domain.TokenMetadata{})
	require.ErrorIs(t, err, ErrRefreshReused)

	// LogoutAll kills the rest.
	again, err := svc.Login(ctx, "bye@example.com", "correct horse battery", domain.TokenMetadata{})
	require.NoError(t, err)
	require.NoError(t, svc.LogoutAll(ctx, owner.ID))
	_, err = svc.Refresh(ctx, again.RefreshToken, domain.TokenMetadata{})
	require.ErrorIs(t, err, ErrRefreshReused)
}

func TestRegisterOwner(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, mailer := newAuthService(t, st)

	u, err := svc.RegisterOwner(ctx, "New@Example.com", "New Owner", "a strong password")
	require.NoError(t, err)
	require.Equal(t, "new@example.com", u.Email)
	require.Equal(t, domain.RoleOwner, u.Role)
	require.False(t, u.EmailConfirmed)

	// A confirmation code was mailed.
	msgs := mailer.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "new@example.com", msgs[0].To)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.RegisterOwner(ctx, "new@example.com", "Someone Else", "another password")
		require.ErrorIs(t, err, ErrDuplicateAccount)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := svc.RegisterOwner(ctx, "short@example.com", "Short", "tiny")
		require.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("cannot log in before confirming", func(t *testing.T) {
		_, err := svc.Login(ctx, "new@example.com", "a strong password", domain.TokenMetadata{})
		require.ErrorIs(t, err, ErrEmailNotConfirmed)
	})
}

func TestConfirmEmail(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)

	u, err := svc.RegisterOwner(ctx, "confirm@example.com", "New Owner", "a strong password")
	require.NoError(t, err)

	// Seed a known code directly; the mailed one is opaque to the test.
	code := "known-confirmation-code"
	now := time.Now().UTC()
	require.NoError(t, st.ConfirmationTokens().CreateConfirmationToken(ctx, domain.ConfirmationToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: cryptox.FingerprintToken(code),
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}))

	t.Run("bad code", func(t *testing.T) {
		err := svc.ConfirmEmail(ctx, u.ID, "not-the-code")
		require.ErrorIs(t, err, ErrInvalidConfirmation)
	})

	t.Run("redeems and unlocks login", func(t *testing.T) {
		require.NoError(t, svc.ConfirmEmail(ctx, u.ID, code))

		_, err := svc.Login(ctx, "confirm@example.com", "a strong password", domain.TokenMetadata{})
		require.NoError(t, err)
	})

	t.Run("single use", func(t *testing.T) {
		err := svc.ConfirmEmail(ctx, u.ID, code)
		require.ErrorIs(t, err, ErrInvalidConfirmation)
	})
}
