package store

import (
	"context"
	"errors"
	"time"

	"github.com/paddockhq/paddock/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and a transactional closure for multi-step operations that must
// be atomic (refresh rotation, invite acceptance).
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	Invites() Invites
	ConfirmationTokens() ConfirmationTokens
	Farms() Farms

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login and duplicate-account checks.
	// Email matching is case-insensitive.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// ConfirmEmail flips email_confirmed and bumps updated_at.
	ConfirmEmail(ctx context.Context, userID string) error

	// SetActive toggles the active flag for a user.
	SetActive(ctx context.Context, userID string, active bool) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token row by its SHA-256 fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// MarkRotated revokes the row and records its replacement fingerprint,
	// but only if the row is still unrevoked. Returns false when a
	// concurrent rotation already claimed it. This is the CAS guard that
	// keeps two rotations from both succeeding on one token.
	MarkRotated(ctx context.Context, hash, replacedByHash string, now time.Time) (bool, error)

	// RevokeRefreshToken sets revoked_at if not already set. Idempotent:
	// an already-revoked row is left untouched.
	RevokeRefreshToken(ctx context.Context, hash string, now time.Time) error

	// RevokeAllUserRefreshTokens revokes every active token for a user
	// (reuse-detection teardown, logout-all). Idempotent.
	RevokeAllUserRefreshTokens(ctx context.Context, userID string, now time.Time) error

	// GetUserRefreshTokenByHash is the logout lookup: the row must belong
	// to the given user, so one user cannot revoke another's token.
	GetUserRefreshTokenByHash(ctx context.Context, userID, hash string) (domain.RefreshToken, error)

	// DeleteExpiredRefreshTokens hard-deletes terminal rows past the
	// retention cutoffs (housekeeping only).
	DeleteExpiredRefreshTokens(ctx context.Context, expiredBefore, revokedBefore time.Time) (int64, error)
}

type Invites interface {
	// CreateInvite writes a new invite row (token_hash is the SHA-256
	// fingerprint of the opaque invite secret).
	CreateInvite(ctx context.Context, inv domain.Invite) error

	// GetActiveInvite returns the not-revoked, not-accepted, not-expired
	// invite matching both email and token fingerprint.
	GetActiveInvite(ctx context.Context, email, hash string, now time.Time) (domain.Invite, error)

	// GetInviteByID is owner-scoped: the invite must belong to tc.OwnerID.
	GetInviteByID(ctx context.Context, tc domain.TenantContext, inviteID string) (domain.Invite, error)

	// ListInvitesByOwner returns the owner's invites, newest first.
	ListInvitesByOwner(ctx context.Context, tc domain.TenantContext) ([]domain.Invite, error)

	// RevokeActiveInvites revokes every active invite for (owner, email).
	// Called before inserting a replacement so at most one stays active.
	RevokeActiveInvites(ctx context.Context, tc domain.TenantContext, email string, now time.Time) error

	// RevokeInvite revokes a single pending invite. Idempotent on
	// already-revoked rows; accepted rows are never touched.
	RevokeInvite(ctx context.Context, tc domain.TenantContext, inviteID string, now time.Time) error

	// MarkAccepted stamps accepted_at and the created worker id, but only
	// if the invite is still pending. Returns false when a concurrent
	// accept (or a revoke) won the race.
	MarkAccepted(ctx context.Context, inviteID, workerUserID string, now time.Time) (bool, error)

	// DeleteExpiredInvites hard-deletes terminal rows older than the cutoff.
	DeleteExpiredInvites(ctx context.Context, before time.Time) (int64, error)
}

type ConfirmationTokens interface {
	// CreateConfirmationToken stores a hashed email confirmation secret.
	CreateConfirmationToken(ctx context.Context, t domain.ConfirmationToken) error

	// ConsumeConfirmationToken marks the matching unused, unexpired token
	// used and returns it. Returns ErrNotFound on any mismatch.
	ConsumeConfirmationToken(ctx context.Context, userID, hash string, now time.Time) (domain.ConfirmationToken, error)

	// DeleteExpiredConfirmationTokens removes stale rows (housekeeping).
	DeleteExpiredConfirmationTokens(ctx context.Context, before time.Time) (int64, error)
}

// Farms is the tenant-isolation choke point. Every method requires a
// TenantContext and compiles the owner filter into its query; there is no
// unscoped accessor, so forgetting the filter is not expressible.
type Farms interface {
	CreateFarm(ctx context.Context, tc domain.TenantContext, f domain.Farm) error
	GetFarmByID(ctx context.Context, tc domain.TenantContext, id string) (domain.Farm, error)
	ListFarms(ctx context.Context, tc domain.TenantContext) ([]domain.Farm, error)
	SoftDeleteFarm(ctx context.Context, tc domain.TenantContext, id string) error
}
