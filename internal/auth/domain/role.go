package domain

// Role is the single role assigned to a user. The system has exactly two:
// an Owner is a tenant root, a Worker is scoped to an Owner's tenant.
type Role string

const (
	RoleOwner  Role = "Owner"
	RoleWorker Role = "Worker"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleWorker
}

func (r Role) String() string { return string(r) }
