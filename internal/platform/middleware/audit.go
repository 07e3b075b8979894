package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/upstac/consultation/internal/platform/auth"
)

// auditEntry records who touched which test request and how.
type auditEntry struct {
	UserName   string
	UserRoles  []string
	Resource   string
	ResourceID string
	Action     string // read, create, update, delete
	IPAddress  string
	Path       string
	Method     string
	RequestID  string
	StatusCode int
}

// Audit logs every /api/ request after it has been handled, including those
// rejected by authentication. Register it ahead of the auth middleware.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.HasPrefix(c.Request().URL.Path, "/api/") {
				return next(c)
			}

			err := next(c)

			// auth replaces the request, so read it again for the identity.
			req := c.Request()
			ctx := req.Context()
			entry := auditEntry{
				Path:       req.URL.Path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				StatusCode: statusOf(c, err),
				UserName:   auth.UserNameFromContext(ctx),
				UserRoles:  auth.RolesFromContext(ctx),
				Action:     httpMethodToAction(req.Method),
			}
			entry.Resource, entry.ResourceID = splitResource(req.URL.Path)
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user", entry.UserName).
				Strs("user_roles", entry.UserRoles).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("access")

			return err
		}
	}
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// splitResource turns /api/consultations/assign/5 into ("consultations", "5").
// The id is the last purely numeric segment, if any.
func splitResource(path string) (resource, id string) {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/"), "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "unknown", ""
	}
	resource = segments[0]
	for i := len(segments) - 1; i > 0; i-- {
		if isNumeric(segments[i]) {
			return resource, segments[i]
		}
	}
	return resource, ""
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
