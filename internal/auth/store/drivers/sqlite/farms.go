package sqlite

import (
	"context"
	"time"

	"github.com/paddockhq/paddock/internal/auth/domain"
	"github.com/paddockhq/paddock/internal/auth/store"
)

// farmsRepo is the tenant-isolation choke point: every query below carries
// `owner_id = ? AND is_deleted = 0`. There is no unscoped variant.
type farmsRepo struct {
	db dbtx
}

func (r *farmsRepo) CreateFarm(ctx context.Context, tc domain.TenantContext, f domain.Farm) error {
	now := formatTime(time.Now())

	// The row is always written under the caller's tenant, regardless of
	// what the struct claims.
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO farms (id, owner_id, name, location, is_deleted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		f.ID, tc.OwnerID, f.Name, f.Location, now, now)
	return err
}

func (r *farmsRepo) GetFarmByID(
	ctx context.Context,
	tc domain.TenantContext,
	id string,
) (domain.Farm, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, location, is_deleted, created_at, updated_at
		 FROM farms WHERE id = ? AND owner_id = ? AND is_deleted = 0`,
		id, tc.OwnerID)

	var (
		f                    domain.Farm
		deleted              int
		createdAt, updatedAt string
	)
	err := row.Scan(&f.ID, &f.OwnerID, &f.Name, &f.Location, &deleted, &createdAt, &updatedAt)
	if err != nil {
		return domain.Farm{}, mapNotFound(err)
	}

	f.IsDeleted = deleted != 0
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return f, nil
}

func (r *farmsRepo) ListFarms(ctx context.Context, tc domain.TenantContext) ([]domain.Farm, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, location, is_deleted, created_at, updated_at
		 FROM farms WHERE owner_id = ? AND is_deleted = 0
		 ORDER BY created_at DESC`, tc.OwnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	farms := []domain.Farm{}
	for rows.Next() {
		var (
			f                    domain.Farm
			deleted              int
			createdAt, updatedAt string
		)
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.Name, &f.Location, &deleted,
			&createdAt, &updatedAt); err != nil {
			return nil, err
		}
		f.IsDeleted = deleted != 0
		f.CreatedAt = parseTime(createdAt)
		f.UpdatedAt = parseTime(updatedAt)
		farms = append(farms, f)
	}
	return farms, rows.Err()
}

func (r *farmsRepo) SoftDeleteFarm(ctx context.Context, tc domain.TenantContext, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE farms SET is_deleted = 1, updated_at = ?
		 WHERE id = ? AND owner_id = ? AND is_deleted = 0`,
		formatTime(time.Now()), id, tc.OwnerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
