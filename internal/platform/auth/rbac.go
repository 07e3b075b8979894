package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("access denied")
)

// Authorize checks that the caller in ctx holds at least one of roles.
// Role names compare case-insensitively and tolerate a "ROLE_" prefix.
func Authorize(ctx context.Context, roles ...string) error {
	if UserNameFromContext(ctx) == "" {
		return ErrUnauthenticated
	}
	for _, has := range RolesFromContext(ctx) {
		for _, required := range roles {
			if roleMatches(has, required) {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: required role: %s", ErrForbidden, strings.Join(roles, " or "))
}

func roleMatches(has, required string) bool {
	has = strings.TrimPrefix(strings.ToLower(has), "role_")
	required = strings.TrimPrefix(strings.ToLower(required), "role_")
	return has != "" && has == required
}

// RequireRole is the echo adapter for Authorize.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := Authorize(c.Request().Context(), roles...)
			switch {
			case err == nil:
				return next(c)
			case errors.Is(err, ErrUnauthenticated):
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			default:
				return echo.NewHTTPError(http.StatusForbidden, err.Error())
			}
		}
	}
}
