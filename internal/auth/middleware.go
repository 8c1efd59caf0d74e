package auth

import (
	"strings"

	"dinein-backend/internal/apperr"
	"dinein-backend/internal/audit"
	"dinein-backend/internal/config"
	"dinein-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxStaffIDKey   = "staff_id"
	CtxStaffNameKey = "staff_name"
	CtxRoleKey      = "role"
)

// IdentifyMiddleware reads an optional bearer token. Requests without one are
// table-side customer requests; a present but invalid token is rejected.
func IdentifyMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			c.Locals(CtxRoleKey, models.RoleCustomer)
			return c.Next()
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return apperr.Unauthorized("authorization header must be 'Bearer <token>'")
		}

		claims, err := ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return apperr.Unauthorized("invalid or expired token")
		}

		c.Locals(CtxStaffIDKey, claims.StaffID)
		c.Locals(CtxStaffNameKey, claims.Name)
		c.Locals(CtxRoleKey, claims.Role)

		return c.Next()
	}
}

// RequireRole lets the request through only for the given staff roles.
func RequireRole(allowedRoles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxRoleKey).(models.Role)
		if !ok || role == models.RoleCustomer {
			return apperr.Unauthorized("staff login required")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return apperr.Forbidden("role %s may not perform this action", role)
	}
}

// ActorFrom returns who is calling, for the audit trail.
func ActorFrom(c *fiber.Ctx) audit.Actor {
	role, ok := c.Locals(CtxRoleKey).(models.Role)
	if !ok {
		return audit.Customer
	}
	name, _ := c.Locals(CtxStaffNameKey).(string)
	return audit.Actor{Role: role, Name: name}
}
