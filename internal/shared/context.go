package shared

import "context"

type principalContextKey struct{}

// Principal is the authenticated caller resolved by the auth provider.
type Principal struct {
	ID             int64  `json:"id"`
	Designation    string `json:"designation"`
	ApprovalStatus string `json:"approval_status"`
}

// Designations recognised by role checks.
const (
	DesignationAdmin     = "Admin"
	DesignationAccounts  = "Accounts"
	DesignationSales     = "Sales"
	DesignationWarehouse = "Warehouse"
)

// HasDesignation reports whether the principal holds one of the designations.
func (p Principal) HasDesignation(designations ...string) bool {
	for _, d := range designations {
		if p.Designation == d {
			return true
		}
	}
	return false
}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
