// Package auth resolves principals and answers role questions about them.
//
// Role checks are pure predicates over the RoleSet captured at authentication
// time. They never query group membership again, so a check and the action it
// guards always see the same roles.
package auth

import "little-lemon/internal/models"

// Predicate is a capability check over a principal
type Predicate func(p models.Principal) bool

// HasRole reports whether p belongs to role
func HasRole(p models.Principal, role models.Role) bool {
	return p.Roles.Has(role)
}

func IsCustomer(p models.Principal) bool  { return HasRole(p, models.RoleCustomer) }
func IsDeliverer(p models.Principal) bool { return HasRole(p, models.RoleDeliverer) }
func IsManager(p models.Principal) bool   { return HasRole(p, models.RoleManager) }

// IsAdmin reports staff accounts, which may perform administrative repairs.
func IsAdmin(p models.Principal) bool { return p.Admin }

// Any composes predicates with OR.
func Any(preds ...Predicate) Predicate {
	return func(p models.Principal) bool {
		for _, pred := range preds {
			if pred(p) {
				return true
			}
		}
		return false
	}
}

// CanAssignDelivery gates delivery agent assignment.
var CanAssignDelivery = Any(IsManager, IsAdmin)

// OrderView picks the role whose rules govern p's access to orders.
// Precedence is Manager, then Deliverer, then Customer. ok is false when p
// holds none of them.
func OrderView(p models.Principal) (role models.Role, ok bool) {
	for _, r := range models.AllRoles {
		if HasRole(p, r) {
			return r, true
		}
	}
	return "", false
}
