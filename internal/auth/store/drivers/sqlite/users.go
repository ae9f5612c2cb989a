package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/paddockhq/paddock/internal/auth/domain"
	"github.com/paddockhq/paddock/internal/auth/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, full_name, password_hash, role, employer_owner_id,
	active, email_confirmed, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := formatTime(time.Now())
	createdAt := now
	if !u.CreatedAt.IsZero() {
		createdAt = formatTime(u.CreatedAt)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, full_name, password_hash, role, employer_owner_id,
			active, email_confirmed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FullName, u.PasswordHash, string(u.Role),
		optionalStringPtr(u.EmployerOwnerID),
		boolToInt(u.Active), boolToInt(u.EmailConfirmed), createdAt, createdAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *usersRepo) ConfirmEmail(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_confirmed = 1, updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), userID)
	return err
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), formatTime(time.Now()), userID)
	return err
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                    domain.User
		role                 string
		employer             sql.NullString
		active, confirmed    int
		createdAt, updatedAt string
	)

	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &role,
		&employer, &active, &confirmed, &createdAt, &updatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Role = domain.Role(role)
	if employer.Valid {
		v := employer.String
		u.EmployerOwnerID = &v
	}
	u.Active = active != 0
	u.EmailConfirmed = confirmed != 0
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return u, nil
}

func optionalStringPtr(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
