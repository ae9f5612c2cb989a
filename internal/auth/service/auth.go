package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/paddockhq/paddock/internal/auth/domain"
	"github.com/paddockhq/paddock/internal/auth/email"
	"github.com/paddockhq/paddock/internal/auth/store"
	"github.com/paddockhq/paddock/pkg/cryptox"
	"github.com/paddockhq/paddock/pkg/idx"
	"github.com/paddockhq/paddock/pkg/ratex"
	"github.com/paddockhq/paddock/pkg/slogx"
)

var (
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrAccountInactive     = errors.New("account_inactive")
	ErrEmailNotConfirmed   = errors.New("email_not_confirmed")
	ErrDuplicateAccount    = errors.New("duplicate_account")
	ErrTooManyAttempts     = errors.New("too_many_attempts")
	ErrWeakPassword        = errors.New("weak_password")
	ErrInvalidConfirmation = errors.New("invalid_confirmation_token")
)

// DefaultConfirmationTTL is how long an email confirmation code stays
// redeemable.
const DefaultConfirmationTTL = 24 * time.Hour

const minPasswordLength = 8

// AuthService handles credential login, session refresh, logout, and
// owner self-registration with email confirmation.
type AuthService struct {
	Store    store.Store
	Tokens   *TokenService
	Sessions *RefreshService
	Limiter  *ratex.Limiter
	Mailer   email.Sender

	ConfirmTTL time.Duration

	// Now is the injected clock. Nil means time.Now.
	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *AuthService) confirmTTL() time.Duration {
	if s.ConfirmTTL > 0 {
		return s.ConfirmTTL
	}
	return DefaultConfirmationTTL
}

// NormalizeEmail lowercases and trims an address so lookups and
// uniqueness behave case-insensitively.
func NormalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Login verifies credentials and mints an access/refresh pair. Attempts
// are rate limited per email+source pair; limited callers get
// ErrTooManyAttempts without touching the password hash.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string, meta domain.TokenMetadata) (*domain.LoginResult, error) {
	l := slogx.FromContext(ctx)
	emailAddr = NormalizeEmail(emailAddr)

	if s.Limiter != nil && !s.Limiter.Allow(emailAddr+":"+meta.IPAddress) {
		l.Warn("login attempt rate limited", "email", emailAddr, "ip", meta.IPAddress)
		return nil, ErrTooManyAttempts
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		l.Info("login failed: bad password", "user_id", u.ID)
		return nil, ErrInvalidCredentials
	}

	if !u.Active {
		return nil, ErrAccountInactive
	}
	if !u.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}

	return s.issuePair(ctx, u, meta)
}

// Refresh redeems a refresh token and returns a fresh pair. Rotation and
// reuse detection live in RefreshService; this layer re-checks the
// account is still active before signing anything.
func (s *AuthService) Refresh(ctx context.Context, presented string, meta domain.TokenMetadata) (*domain.LoginResult, error) {
	userID, newOpaque, err := s.Sessions.ValidateAndRotate(ctx, presented, meta)
	if err != nil {
		return nil, err
	}

	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	if !u.Active {
		// The account was deactivated mid-session. Burn the token we
		// just minted so it can't sit around usable.
		_ = s.Sessions.Revoke(ctx, newOpaque)
		return nil, ErrAccountInactive
	}

	access, expiresAt, err := s.Tokens.IssueAccessToken(u)
	if err != nil {
		return nil, err
	}

	ownerID, _ := domain.ResolveOwnerID(u)
	return &domain.LoginResult{
		AccessToken:  access,
		ExpiresAt:    expiresAt,
		RefreshToken: newOpaque,
		Role:         u.Role.String(),
		OwnerID:      ownerID,
	}, nil
}

// Logout retires the presented refresh token, but only if it belongs to
// the authenticated caller. A user can't log out someone else's session.
func (s *AuthService) Logout(ctx context.Context, userID, presented string) error {
	return s.Sessions.RevokeOwned(ctx, userID, presented)
}

// LogoutAll retires every session the user holds.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	return s.Sessions.RevokeAll(ctx, userID)
}

// RegisterOwner creates a new owner account and emails a confirmation
// code. The account can't log in until the code is redeemed.
func (s *AuthService) RegisterOwner(ctx context.Context, emailAddr, fullName, password string) (*domain.User, error) {
	l := slogx.FromContext(ctx)
	emailAddr = NormalizeEmail(emailAddr)

	if emailAddr == "" || fullName == "" {
		return nil, ErrInvalidCredentials
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, err
	}

	confirmOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        emailAddr,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		Role:         domain.RoleOwner,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrDuplicateAccount
			}
			return err
		}

		ct := domain.ConfirmationToken{
			ID:        idx.New().String(),
			UserID:    u.ID,
			TokenHash: cryptox.FingerprintToken(confirmOpaque),
			ExpiresAt: now.Add(s.confirmTTL()),
			CreatedAt: now,
		}
		return tx.ConfirmationTokens().CreateConfirmationToken(ctx, ct)
	})
	if err != nil {
		return nil, err
	}

	// Delivery is best effort; the code can be re-requested.
	if s.Mailer != nil {
		if err := s.Mailer.Send(ctx, email.ConfirmationMessage(u.Email, confirmOpaque, s.confirmTTL())); err != nil {
			l.Error("failed to send confirmation email", "user_id", u.ID, "error", err)
		}
	}

	l.Info("owner registered", "user_id", u.ID)
	return &u, nil
}

// ConfirmEmail redeems a confirmation code for the given account. Codes
// are single use and expire; anything else is ErrInvalidConfirmation.
func (s *AuthService) ConfirmEmail(ctx context.Context, userID, code string) error {
	code = strings.TrimSpace(code)
	if userID == "" || code == "" {
		return ErrInvalidConfirmation
	}

	now := s.now()
	hash := cryptox.FingerprintToken(code)

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.ConfirmationTokens().ConsumeConfirmationToken(ctx, userID, hash, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidConfirmation
			}
			return err
		}
		return tx.Users().ConfirmEmail(ctx, userID)
	})
}

// issuePair signs an access token and mints a refresh token for u.
func (s *AuthService) issuePair(ctx context.Context, u domain.User, meta domain.TokenMetadata) (*domain.LoginResult, error) {
	access, expiresAt, err := s.Tokens.IssueAccessToken(u)
	if err != nil {
		return nil, err
	}

	refresh, err := s.Sessions.Issue(ctx, u.ID, meta)
	if err != nil {
		return nil, err
	}

	ownerID, _ := domain.ResolveOwnerID(u)
	return &domain.LoginResult{
		AccessToken:  access,
		ExpiresAt:    expiresAt,
		RefreshToken: refresh,
		Role:         u.Role.String(),
		OwnerID:      ownerID,
	}, nil
}
