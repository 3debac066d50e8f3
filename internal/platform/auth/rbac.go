package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Staff roles recognised by the role gate. Admin implicitly satisfies every
// role check.
const (
	RoleAdmin       = "admin"
	RoleChargeNurse = "charge_nurse"
	RoleEDNurse     = "ed_nurse"
	RoleTriageNurse = "triage_nurse"
	RoleProvider    = "provider"
)

// RequireRole returns middleware that checks if the user has at least one
// of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == RoleAdmin {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// AnyNurse lists every nursing role, for endpoints open to all nursing staff.
func AnyNurse() []string {
	return []string{RoleChargeNurse, RoleEDNurse, RoleTriageNurse}
}
