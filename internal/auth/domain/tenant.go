package domain

// TenantContext carries the resolved owner id through every tenant-scoped
// repository call. It is a mandatory parameter, never an ambient filter, so
// the isolation contract stays visible at each call site.
type TenantContext struct {
	OwnerID string
}

// TenantScoped is implemented by entities partitioned by owner id. Row
// retrieval for these types always filters on OwnerScope.
type TenantScoped interface {
	OwnerScope() string
}

// ResolveOwnerID derives the tenant (owner) identity for a user.
//
// Owners are their own tenant root. Workers inherit their employer's tenant.
// The second return is false when no owner id can be derived, which is a
// misconfiguration for Workers and must fail closed at token issuance.
func ResolveOwnerID(u User) (string, bool) {
	switch u.Role {
	case RoleOwner:
		return u.ID, true
	case RoleWorker:
		if u.EmployerOwnerID == nil || *u.EmployerOwnerID == "" {
			return "", false
		}
		return *u.EmployerOwnerID, true
	default:
		return "", false
	}
}
