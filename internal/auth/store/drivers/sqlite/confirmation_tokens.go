package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/paddockhq/paddock/internal/auth/domain"
	"github.com/paddockhq/paddock/internal/auth/store"
)

type confirmationTokensRepo struct {
	db dbtx
}

func (r *confirmationTokensRepo) CreateConfirmationToken(
	ctx context.Context,
	t domain.ConfirmationToken,
) error {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO confirmation_tokens (id, user_id, token_hash, expires_at, used_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, formatTime(t.ExpiresAt),
		formatOptionalTime(t.UsedAt), formatTime(createdAt),
	)
	return err
}

func (r *confirmationTokensRepo) ConsumeConfirmationToken(
	ctx context.Context,
	userID, hash string,
	now time.Time,
) (domain.ConfirmationToken, error) {
	// Single-use: the UPDATE only matches an unused, unexpired row.
	res, err := r.db.ExecContext(ctx,
		`UPDATE confirmation_tokens SET used_at = ?
		 WHERE user_id = ? AND token_hash = ? AND used_at IS NULL AND expires_at > ?`,
		formatTime(now), userID, hash, formatTime(now))
	if err != nil {
		return domain.ConfirmationToken{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ConfirmationToken{}, err
	}
	if n == 0 {
		return domain.ConfirmationToken{}, store.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, used_at, created_at
		 FROM confirmation_tokens WHERE user_id = ? AND token_hash = ?`,
		userID, hash)

	var (
		t                    domain.ConfirmationToken
		expiresAt, createdAt string
		usedAt               sql.NullString
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &expiresAt, &usedAt, &createdAt); err != nil {
		return domain.ConfirmationToken{}, mapNotFound(err)
	}

	t.ExpiresAt = parseTime(expiresAt)
	t.UsedAt = parseNullTime(usedAt)
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

func (r *confirmationTokensRepo) DeleteExpiredConfirmationTokens(
	ctx context.Context,
	before time.Time,
) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM confirmation_tokens WHERE expires_at < ? OR used_at IS NOT NULL`,
		formatTime(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
