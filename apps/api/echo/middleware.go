package echoapi

import (
	"github.com/labstack/echo/v4"
)

// schoolRoleMiddleware gates a school route group on the resolved user's role.
// It runs after schoolAuthMiddleware, so the context user is always set.
// rejection is the 403 returned on a role miss, worded for the route group.
func schoolRoleMiddleware(rejection *echo.HTTPError, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextSchoolUser(ctx)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return rejection
		}
	}
}
