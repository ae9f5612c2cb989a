package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/paddockhq/paddock/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

const refreshTokenColumns = `id, user_id, token_hash, device, ip_address, user_agent,
	expires_at, revoked_at, replaced_by_hash, created_at`

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, device, ip_address, user_agent,
			expires_at, revoked_at, replaced_by_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, t.Device, t.IPAddress, t.UserAgent,
		formatTime(t.ExpiresAt), formatOptionalTime(t.RevokedAt),
		t.ReplacedByHash, formatTime(createdAt),
	)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(
	ctx context.Context,
	hash string,
) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = ?`, hash)
	return scanRefreshToken(row)
}

func (r *refreshTokensRepo) GetUserRefreshTokenByHash(
	ctx context.Context,
	userID, hash string,
) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens
		 WHERE token_hash = ? AND user_id = ?`, hash, userID)
	return scanRefreshToken(row)
}

// MarkRotated is the rotation CAS: the WHERE clause only matches an
// unrevoked row, so of two concurrent rotations exactly one reports true.
func (r *refreshTokensRepo) MarkRotated(
	ctx context.Context,
	hash, replacedByHash string,
	now time.Time,
) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens
		 SET revoked_at = ?, replaced_by_hash = ?
		 WHERE token_hash = ? AND revoked_at IS NULL`,
		formatTime(now), replacedByHash, hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string, now time.Time) error {
	// Idempotent: already-revoked rows keep their original revoked_at.
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ?
		 WHERE token_hash = ? AND revoked_at IS NULL`,
		formatTime(now), hash)
	return err
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(
	ctx context.Context,
	userID string,
	now time.Time,
) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ?
		 WHERE user_id = ? AND revoked_at IS NULL`,
		formatTime(now), userID)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(
	ctx context.Context,
	expiredBefore, revokedBefore time.Time,
) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens
		 WHERE expires_at < ?
		    OR (revoked_at IS NOT NULL AND revoked_at < ?)`,
		formatTime(expiredBefore), formatTime(revokedBefore))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRefreshToken(row *sql.Row) (domain.RefreshToken, error) {
	var (
		t                    domain.RefreshToken
		expiresAt, createdAt string
		revokedAt            sql.NullString
	)

	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Device, &t.IPAddress,
		&t.UserAgent, &expiresAt, &revokedAt, &t.ReplacedByHash, &createdAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	t.ExpiresAt = parseTime(expiresAt)
	t.RevokedAt = parseNullTime(revokedAt)
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}
