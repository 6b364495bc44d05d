package auth

import (
	"strings"

	"warehouse-backend/internal/database"
	"warehouse-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateUserRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
	StoreID  *uint           `json:"store_id"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/register-admin
// Only allowed while no admin exists.
func RegisterAdminHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.Email == "" || body.Password == "" || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name, email and password are required")
		}

		var count int64
		db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "An admin already exists")
		}

		user, err := createUser(db, body.Name, body.Email, body.Password, models.RoleAdmin, nil)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		})
	}
}

// POST /api/admin/users
func CreateUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.Email == "" || body.Password == "" || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name, email and password are required")
		}
		switch body.Role {
		case models.RoleAdmin:
			body.StoreID = nil
		case models.RoleStoreManager:
			if body.StoreID == nil {
				return fiber.NewError(fiber.StatusBadRequest, "store_id is required for store managers")
			}
			var store models.Store
			if err := db.First(&store, "id = ?", *body.StoreID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Store not found")
			}
		default:
			return fiber.NewError(fiber.StatusBadRequest, "role must be admin or store_manager")
		}

		user, err := createUser(db, body.Name, body.Email, body.Password, body.Role, body.StoreID)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":       user.ID,
			"email":    user.Email,
			"role":     user.Role,
			"store_id": user.StoreID,
		})
	}
}

func createUser(db *gorm.DB, name, email, password string, role models.UserRole, storeID *uint) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Password could not be hashed")
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		StoreID:      storeID,
	}
	if err := db.Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fiber.NewError(fiber.StatusConflict, "Email already registered")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "User could not be created")
	}
	return &user, nil
}

// POST /api/auth/login
func LoginHandler(db *gorm.DB, tokens *Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := db.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Wrong email or password")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Wrong email or password")
		}

		if user.Role == models.RoleStoreManager && user.StoreID == nil {
			return fiber.NewError(fiber.StatusForbidden, "No store assigned to this user")
		}

		token, err := tokens.Issue(&user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Token could not be created")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user": fiber.Map{
				"id":       user.ID,
				"name":     user.Name,
				"email":    user.Email,
				"role":     user.Role,
				"store_id": user.StoreID,
			},
		})
	}
}

// GET /api/auth/me
func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := CurrentIdentity(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := db.Preload("Store").First(&user, id.UserID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}

		response := fiber.Map{
			"user_id":  user.ID,
			"name":     user.Name,
			"email":    user.Email,
			"role":     user.Role,
			"store_id": user.StoreID,
		}
		if user.Store != nil {
			response["store"] = fiber.Map{
				"id":      user.Store.ID,
				"name":    user.Store.Name,
				"address": user.Store.Address,
				"phone":   user.Store.Phone,
			}
		}
		return c.JSON(response)
	}
}
