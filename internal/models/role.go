package models

import "strings"

// Role is a group a principal can belong to
type Role string

const (
	RoleCustomer  Role = "Customer"
	RoleDeliverer Role = "Deliverer"
	RoleManager   Role = "Manager"
)

// AllRoles lists the known roles in precedence order, highest first
var AllRoles = []Role{RoleManager, RoleDeliverer, RoleCustomer}

// ParseRole matches a group name case-insensitively
func ParseRole(name string) (Role, bool) {
	for _, r := range AllRoles {
		if strings.EqualFold(string(r), strings.TrimSpace(name)) {
			return r, true
		}
	}
	return "", false
}

// RoleSet is the set of roles a principal held when the request was authenticated
type RoleSet uint8

func roleBit(r Role) RoleSet {
	switch r {
	case RoleCustomer:
		return 1 << 0
	case RoleDeliverer:
		return 1 << 1
	case RoleManager:
		return 1 << 2
	}
	return 0
}

// NewRoleSet builds a set from roles. Unknown roles are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= roleBit(r)
	}
	return s
}

// RoleSetFromNames builds a set from group names, skipping groups that are not roles.
func RoleSetFromNames(names []string) RoleSet {
	var s RoleSet
	for _, n := range names {
		if r, ok := ParseRole(n); ok {
			s |= roleBit(r)
		}
	}
	return s
}

func (s RoleSet) Has(r Role) bool {
	bit := roleBit(r)
	return bit != 0 && s&bit != 0
}

func (s RoleSet) Empty() bool {
	return s == 0
}

// Roles returns the members in precedence order
func (s RoleSet) Roles() []Role {
	var out []Role
	for _, r := range AllRoles {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Principal is the authenticated actor making a request
type Principal struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Admin    bool    `json:"is_staff"`
	Roles    RoleSet `json:"-"`
}

// User is a stored account together with its group memberships
type User struct {
	ID       int64    `json:"id" db:"id"`
	Username string   `json:"username" db:"username"`
	Token    string   `json:"-" db:"token"`
	Admin    bool     `json:"is_staff" db:"is_staff"`
	Groups   []string `json:"groups" db:"groups"`
}

// Principal resolves the user's role set once
func (u User) Principal() Principal {
	return Principal{
		ID:       u.ID,
		Username: u.Username,
		Admin:    u.Admin,
		Roles:    RoleSetFromNames(u.Groups),
	}
}
