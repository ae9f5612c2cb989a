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
	"github.com/paddockhq/paddock/pkg/slogx"
)

var (
	// ErrInviteInvalid covers unknown, expired, and revoked invitations.
	// Callers can't distinguish them; that's deliberate so the accept
	// endpoint doesn't leak invite state.
	ErrInviteInvalid = errors.New("invite_invalid")

	// ErrInviteAccepted means the invitation already produced a worker
	// account. Accepted is terminal.
	ErrInviteAccepted = errors.New("invite_already_accepted")
)

// DefaultInviteTTL is how long a worker invitation stays redeemable.
const DefaultInviteTTL = 7 * 24 * time.Hour

// InviteService manages the worker invitation lifecycle: create, verify,
// accept, revoke, resend. All owner-facing operations take an explicit
// tenant context so one owner can never touch another's invites.
type InviteService struct {
	Store     store.Store
	Mailer    email.Sender
	InviteTTL time.Duration

	// Now is the injected clock. Nil means time.Now.
	Now func() time.Time
}

func (s *InviteService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *InviteService) ttl() time.Duration {
	if s.InviteTTL > 0 {
		return s.InviteTTL
	}
	return DefaultInviteTTL
}

// Create issues a new invitation for workerEmail under the owner in tc.
// Any previous pending invite for the same address is revoked first, so
// at most one invitation per (owner, email) is ever live. The raw invite
// token is returned once and also mailed to the worker.
func (s *InviteService) Create(ctx context.Context, tc domain.TenantContext, ownerName, workerEmail, fullName string) (*domain.Invite, string, error) {
	l := slogx.FromContext(ctx)
	workerEmail = NormalizeEmail(workerEmail)

	if workerEmail == "" || strings.TrimSpace(fullName) == "" {
		return nil, "", ErrInviteInvalid
	}

	// An address that already has an account can't be invited.
	if _, err := s.Store.Users().GetUserByEmail(ctx, workerEmail); err == nil {
		return nil, "", ErrDuplicateAccount
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, "", err
	}

	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	inv := domain.Invite{
		ID:        idx.New().String(),
		OwnerID:   tc.OwnerID,
		Email:     workerEmail,
		FullName:  strings.TrimSpace(fullName),
		TokenHash: cryptox.FingerprintToken(opaque),
		ExpiresAt: now.Add(s.ttl()),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Invites().RevokeActiveInvites(ctx, tc, workerEmail, now); err != nil {
			return err
		}
		return tx.Invites().CreateInvite(ctx, inv)
	})
	if err != nil {
		return nil, "", err
	}

	if s.Mailer != nil {
		if err := s.Mailer.Send(ctx, email.InviteMessage(workerEmail, ownerName, opaque, s.ttl())); err != nil {
			l.Error("failed to send invite email", "invite_id", inv.ID, "error", err)
		}
	}

	l.Info("worker invited", "invite_id", inv.ID, "owner_id", tc.OwnerID)
	return &inv, opaque, nil
}

// Verify checks that a presented invite token is live for the given
// address without consuming it. Used by the accept form to show the
// invitation before the worker commits.
func (s *InviteService) Verify(ctx context.Context, workerEmail, token string) (*domain.Invite, error) {
	workerEmail = NormalizeEmail(workerEmail)
	token = strings.TrimSpace(token)
	if workerEmail == "" || token == "" {
		return nil, ErrInviteInvalid
	}

	inv, err := s.Store.Invites().GetActiveInvite(ctx, workerEmail, cryptox.FingerprintToken(token), s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInviteInvalid
		}
		return nil, err
	}
	return &inv, nil
}

// Accept redeems a live invitation and creates the worker account bound
// to the inviting owner. Exactly one concurrent accept can win; losers
// get ErrInviteAccepted and no account.
func (s *InviteService) Accept(ctx context.Context, workerEmail, token, password string) (*domain.User, error) {
	l := slogx.FromContext(ctx)
	workerEmail = NormalizeEmail(workerEmail)
	token = strings.TrimSpace(token)

	if workerEmail == "" || token == "" {
		return nil, ErrInviteInvalid
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hashPwd, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	tokenHash := cryptox.FingerprintToken(token)

	var created domain.User

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		inv, err := tx.Invites().GetActiveInvite(ctx, workerEmail, tokenHash, now)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInviteInvalid
			}
			return err
		}

		employer := inv.OwnerID
		created = domain.User{
			ID:              idx.New().String(),
			Email:           workerEmail,
			FullName:        inv.FullName,
			PasswordHash:    hashPwd,
			Role:            domain.RoleWorker,
			EmployerOwnerID: &employer,
			Active:          true,
			// Redeeming the mailed token proves control of the address.
			EmailConfirmed: true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := tx.Users().CreateUser(ctx, created); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrDuplicateAccount
			}
			return err
		}

		// CAS on the invite row: a concurrent accept already won if this
		// flips nothing, and the tx rollback discards our user row.
		accepted, err := tx.Invites().MarkAccepted(ctx, inv.ID, created.ID, now)
		if err != nil {
			return err
		}
		if !accepted {
			return ErrInviteAccepted
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	l.Info("invite accepted", "user_id", created.ID, "owner_id", *created.EmployerOwnerID)
	return &created, nil
}

// Revoke cancels a pending invitation. Revoking an already revoked
// invite is a no-op; revoking an accepted one fails because accepted is
// terminal.
func (s *InviteService) Revoke(ctx context.Context, tc domain.TenantContext, inviteID string) error {
	inv, err := s.Store.Invites().GetInviteByID(ctx, tc, inviteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInviteInvalid
		}
		return err
	}

	if inv.AcceptedAt != nil {
		return ErrInviteAccepted
	}
	if inv.Revoked {
		return nil
	}

	return s.Store.Invites().RevokeInvite(ctx, tc, inviteID, s.now())
}

// Resend rotates a pending invitation: the old token is revoked and a
// fresh one with a full TTL is issued and mailed. The old token stops
// working immediately.
func (s *InviteService) Resend(ctx context.Context, tc domain.TenantContext, inviteID, ownerName string) (*domain.Invite, string, error) {
	inv, err := s.Store.Invites().GetInviteByID(ctx, tc, inviteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInviteInvalid
		}
		return nil, "", err
	}

	if inv.AcceptedAt != nil {
		return nil, "", ErrInviteAccepted
	}
	if inv.Revoked {
		return nil, "", ErrInviteInvalid
	}

	return s.Create(ctx, tc, ownerName, inv.Email, inv.FullName)
}

// List returns every invitation the owner in tc has issued, newest
// first.
func (s *InviteService) List(ctx context.Context, tc domain.TenantContext) ([]domain.Invite, error) {
	return s.Store.Invites().ListInvitesByOwner(ctx, tc)
}
