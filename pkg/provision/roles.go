package provision

import (
	"fmt"
	"strconv"
	"strings"
)

// Harbor project role ids
const (
	RoleProjectAdmin = 1
	RoleDeveloper    = 2
	RoleGuest        = 3
	RoleMaintainer   = 4
)

// roleAliases maps normalized role names to Harbor role ids
var roleAliases = map[string]int{
	"projectadmin": RoleProjectAdmin,
	"admin":        RoleProjectAdmin,
	"developer":    RoleDeveloper,
	"dev":          RoleDeveloper,
	"guest":        RoleGuest,
	"visitor":      RoleGuest,
	"maintainer":   RoleMaintainer,
	"master":       RoleMaintainer,
}

var roleSeparators = strings.NewReplacer(" ", "", "-", "", "_", "")

// UnknownRoleError is returned for a role token that is neither a known name nor an integer
type UnknownRoleError struct {
	Token string
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("unknown role %q", e.Token)
}

// ResolveRole maps a role token to a Harbor role id. Names are matched
// ignoring case, spaces, hyphens and underscores, so "Project-Admin" and
// "PROJECT_ADMIN" both resolve to 1. Any other token must be an integer id.
func ResolveRole(token string) (int, error) {
	token = strings.TrimSpace(token)
	if id, ok := roleAliases[normalizeRole(token)]; ok {
		return id, nil
	}
	if id, err := strconv.Atoi(token); err == nil {
		return id, nil
	}
	return 0, &UnknownRoleError{Token: token}
}

func normalizeRole(token string) string {
	return strings.ToLower(roleSeparators.Replace(token))
}
