package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/paddockhq/paddock/internal/auth/domain"
)

type invitesRepo struct {
	db dbtx
}

const inviteColumns = `id, owner_id, email, full_name, token_hash, expires_at,
	accepted_at, revoked, worker_user_id, created_at, updated_at`

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	createdAt := inv.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invites (id, owner_id, email, full_name, token_hash, expires_at,
			accepted_at, revoked, worker_user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.OwnerID, inv.Email, inv.FullName, inv.TokenHash,
		formatTime(inv.ExpiresAt), formatOptionalTime(inv.AcceptedAt),
		boolToInt(inv.Revoked), mapStringNull(inv.WorkerUserID),
		formatTime(createdAt), formatTime(createdAt),
	)
	return err
}

func (r *invitesRepo) GetActiveInvite(
	ctx context.Context,
	email, hash string,
	now time.Time,
) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites
		 WHERE email = ? AND token_hash = ?
		   AND revoked = 0 AND accepted_at IS NULL AND expires_at > ?`,
		email, hash, formatTime(now))
	return scanInvite(row)
}

func (r *invitesRepo) GetInviteByID(
	ctx context.Context,
	tc domain.TenantContext,
	inviteID string,
) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE id = ? AND owner_id = ?`,
		inviteID, tc.OwnerID)
	return scanInvite(row)
}

func (r *invitesRepo) ListInvitesByOwner(
	ctx context.Context,
	tc domain.TenantContext,
) ([]domain.Invite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+inviteColumns+` FROM invites
		 WHERE owner_id = ? ORDER BY created_at DESC`, tc.OwnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invites := []domain.Invite{}
	for rows.Next() {
		inv, err := scanInviteRows(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

func (r *invitesRepo) RevokeActiveInvites(
	ctx context.Context,
	tc domain.TenantContext,
	email string,
	now time.Time,
) error {
	// Also catches expired-but-pending rows so the partial unique index
	// never blocks a replacement invite.
	_, err := r.db.ExecContext(ctx,
		`UPDATE invites SET revoked = 1, updated_at = ?
		 WHERE owner_id = ? AND email = ? AND revoked = 0 AND accepted_at IS NULL`,
		formatTime(now), tc.OwnerID, email)
	return err
}

func (r *invitesRepo) RevokeInvite(
	ctx context.Context,
	tc domain.TenantContext,
	inviteID string,
	now time.Time,
) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE invites SET revoked = 1, updated_at = ?
		 WHERE id = ? AND owner_id = ? AND revoked = 0 AND accepted_at IS NULL`,
		formatTime(now), inviteID, tc.OwnerID)
	return err
}

// MarkAccepted is the acceptance CAS: only a still-pending invite matches,
// so of two concurrent accepts exactly one reports true.
func (r *invitesRepo) MarkAccepted(
	ctx context.Context,
	inviteID, workerUserID string,
	now time.Time,
) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invites SET accepted_at = ?, worker_user_id = ?, updated_at = ?
		 WHERE id = ? AND revoked = 0 AND accepted_at IS NULL`,
		formatTime(now), workerUserID, formatTime(now), inviteID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *invitesRepo) DeleteExpiredInvites(ctx context.Context, before time.Time) (int64, error) {
	cutoff := formatTime(before)
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM invites
		 WHERE expires_at < ?
		    OR (revoked = 1 AND updated_at < ?)
		    OR (accepted_at IS NOT NULL AND accepted_at < ?)`,
		cutoff, cutoff, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvite(row *sql.Row) (domain.Invite, error) {
	inv, err := scanInviteFrom(row)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	return inv, nil
}

func scanInviteRows(rows *sql.Rows) (domain.Invite, error) {
	return scanInviteFrom(rows)
}

func scanInviteFrom(s rowScanner) (domain.Invite, error) {
	var (
		inv                  domain.Invite
		expiresAt            string
		acceptedAt           sql.NullString
		revoked              int
		workerUserID         sql.NullString
		createdAt, updatedAt string
	)

	err := s.Scan(&inv.ID, &inv.OwnerID, &inv.Email, &inv.FullName, &inv.TokenHash,
		&expiresAt, &acceptedAt, &revoked, &workerUserID, &createdAt, &updatedAt)
	if err != nil {
		return domain.Invite{}, err
	}

	inv.ExpiresAt = parseTime(expiresAt)
	inv.AcceptedAt = parseNullTime(acceptedAt)
	inv.Revoked = revoked != 0
	inv.WorkerUserID = mapNullString(workerUserID)
	inv.CreatedAt = parseTime(createdAt)
	inv.UpdatedAt = parseTime(updatedAt)
	return inv, nil
}
