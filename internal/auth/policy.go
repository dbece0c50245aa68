package auth

import (
	"net/http"
	"strings"
)

// Rule requires Role for requests whose path starts with Prefix and ends with
// Suffix. An empty Method matches any method.
type Rule struct {
	Method string
	Prefix string
	Suffix string
	Role   Role
}

func (r Rule) matches(method, path string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	return strings.HasPrefix(path, r.Prefix) && strings.HasSuffix(path, r.Suffix)
}

// QARules protects the check-record API. Sign-off is a physicist action and
// removing a record is reserved to admins.
var QARules = []Rule{
	{Method: http.MethodPost, Prefix: "/api/v1/records/", Suffix: "/approve", Role: RolePhysicist},
	{Method: http.MethodDelete, Prefix: "/api/v1/records/", Role: RoleAdmin},
	{Method: http.MethodGet, Prefix: "/api/", Role: RoleViewer},
	{Method: http.MethodHead, Prefix: "/api/", Role: RoleViewer},
	{Prefix: "/api/", Role: RoleAdmin},
}

// Policy resolves the role a request needs. The first matching rule wins.
type Policy struct {
	public []string
	rules  []Rule
}

// NewPolicy builds a policy. Public entries ending in "/" match as prefixes.
func NewPolicy(public []string, rules []Rule) Policy {
	return Policy{public: public, rules: rules}
}

// Public reports whether path skips token checks.
func (p Policy) Public(path string) bool {
	for _, entry := range p.public {
		if path == entry || (strings.HasSuffix(entry, "/") && strings.HasPrefix(path, entry)) {
			return true
		}
	}
	return false
}

// Required returns the minimum role for r, or false when no rule applies.
func (p Policy) Required(r *http.Request) (Role, bool) {
	if r == nil || r.URL == nil {
		return "", false
	}
	for _, rule := range p.rules {
		if rule.matches(r.Method, r.URL.Path) {
			return rule.Role, true
		}
	}
	return "", false
}
