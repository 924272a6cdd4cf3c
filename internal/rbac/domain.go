package rbac

import (
	"sort"
	"strings"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// Policy maps designations to the permissions they grant.
type Policy struct {
	grants map[string][]string
}

// DefaultPolicy grants Admin every permission and the other designations their scopes.
func DefaultPolicy() Policy {
	all := unionScopes(shared.SalesScopes(), shared.AccountsScopes(), shared.WarehouseScopes(),
		[]string{shared.PermCatalogEdit, shared.PermCatalogImport})
	return Policy{grants: map[string][]string{
		shared.DesignationAdmin:     all,
		shared.DesignationAccounts:  shared.AccountsScopes(),
		shared.DesignationSales:     shared.SalesScopes(),
		shared.DesignationWarehouse: shared.WarehouseScopes(),
	}}
}

// EffectivePermissions returns the sorted permissions granted to a designation.
func (p Policy) EffectivePermissions(designation string) []string {
	perms := p.grants[designation]
	out := make([]string, len(perms))
	copy(out, perms)
	sort.Strings(out)
	return out
}

// Allows reports whether the principal holds every listed permission.
func (p Policy) Allows(principal shared.Principal, perms ...string) bool {
	return hasAllPermissions(p.grants[principal.Designation], normalizePermissions(perms))
}

func unionScopes(scopes ...[]string) []string {
	set := make(map[string]struct{})
	for _, scope := range scopes {
		for _, perm := range scope {
			set[strings.ToLower(perm)] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for perm := range set {
		out = append(out, perm)
	}
	sort.Strings(out)
	return out
}
