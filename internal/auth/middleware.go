package auth

import (
	"strings"

	"warehouse-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
	CtxStoreIDKey  = "store_id"
)

func JWTMiddleware(tokens *Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header missing")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}

		claims, err := tokens.Parse(parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}

		id := claims.Identity()
		c.Locals(CtxUserIDKey, id.UserID)
		c.Locals(CtxUserRoleKey, id.Role)
		c.Locals(CtxStoreIDKey, id.StoreID)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "Role missing from token")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "You are not allowed to perform this action")
	}
}

// Identity is the caller as described by the verified token.
type Identity struct {
	UserID  uint
	Role    models.UserRole
	StoreID *uint
}

func CurrentIdentity(c *fiber.Ctx) (Identity, error) {
	userID, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return Identity{}, fiber.NewError(fiber.StatusForbidden, "User missing from token")
	}
	role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
	if !ok {
		return Identity{}, fiber.NewError(fiber.StatusForbidden, "Role missing from token")
	}
	var storeID *uint
	if p, ok := c.Locals(CtxStoreIDKey).(*uint); ok && p != nil {
		storeID = p
	}
	return Identity{UserID: userID, Role: role, StoreID: storeID}, nil
}

// ResolveStoreID returns the store the request acts on. Store managers are
// pinned to their own store; admins must name one.
func ResolveStoreID(c *fiber.Ctx, requested *uint) (uint, error) {
	id, err := CurrentIdentity(c)
	if err != nil {
		return 0, err
	}

	if id.Role == models.RoleStoreManager {
		if id.StoreID == nil {
			return 0, fiber.NewError(fiber.StatusForbidden, "No store assigned to this user")
		}
		if requested != nil && *requested != *id.StoreID {
			return 0, fiber.NewError(fiber.StatusForbidden, "You can only work on your own store")
		}
		return *id.StoreID, nil
	}

	if requested == nil || *requested == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "store_id is required")
	}
	return *requested, nil
}

// UserID returns the caller's id, or nil outside an authenticated route.
func UserID(c *fiber.Ctx) *uint {
	if id, ok := c.Locals(CtxUserIDKey).(uint); ok {
		return &id
	}
	return nil
}
