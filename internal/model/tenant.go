package model

import "github.com/google/uuid"

// Operator roles as carried in the identity token. Approval endpoints are
// gated to accountant / manager respectively; session lifecycle endpoints to
// counter staff.
const (
	RoleOperator   = "operator"
	RoleAccountant = "accountant"
	RoleManager    = "manager"
	RoleAdmin      = "admin"
)

// TenantScope isolates every operation to one (company, agency) pair. It is
// always passed explicitly — never inferred from ambient state — and every
// repository query filters on it.
type TenantScope struct {
	CompanyID uuid.UUID
	AgencyID  uuid.UUID
}

// Actor identifies who triggered an operation, as supplied by the external
// identity collaborator.
type Actor struct {
	ID          uuid.UUID
	DisplayName string
	Role        string
}
