package domain

import "time"

// Invite is a pending offer for an email address to join an Owner's tenant
// as a Worker. The opaque invite secret is stored as a SHA-256 fingerprint.
//
// State machine: Pending -> Accepted | Revoked | Expired. Accepted and
// Revoked are terminal; at most one invite per (owner, email) is active.
type Invite struct {
	ID           string
	OwnerID      string
	Email        string
	FullName     string
	TokenHash    string
	ExpiresAt    time.Time
	AcceptedAt   *time.Time
	Revoked      bool
	WorkerUserID string // set once accepted: the created Worker account
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the invite can still be accepted at the given instant.
func (i Invite) Active(now time.Time) bool {
	return !i.Revoked && i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}

// OwnerScope implements TenantScoped.
func (i Invite) OwnerScope() string { return i.OwnerID }
