package auth

import "strings"

// Role is the access level carried in the token "role" claim.
type Role string

const (
	RoleViewer    Role = "viewer"
	RolePhysicist Role = "physicist"
	RoleAdmin     Role = "admin"
)

var roleRanks = map[Role]int{
	RoleViewer:    1,
	RolePhysicist: 2,
	RoleAdmin:     3,
}

// NormalizeRole lowercases value and reports whether it names a known role.
func NormalizeRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := roleRanks[role]; !ok {
		return "", false
	}
	return role, true
}

// Satisfies reports whether r grants at least the required role.
func (r Role) Satisfies(required Role) bool {
	rank := roleRanks[r]
	return rank > 0 && rank >= roleRanks[required]
}
