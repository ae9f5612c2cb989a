package domain

import "time"

// Farm is the minimal tenant-scoped entity. Farm rows are only ever reachable
// through an owner-scoped query; soft deletion keeps the rotation of
// assignments auditable.
type Farm struct {
	ID        string
	OwnerID   string
	Name      string
	Location  string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnerScope implements TenantScoped.
func (f Farm) OwnerScope() string { return f.OwnerID }
