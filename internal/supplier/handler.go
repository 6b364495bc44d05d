package supplier

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/database"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/query"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateSupplierRequest struct {
	Name        string `json:"name"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

type UpdateSupplierRequest struct {
	Name        *string `json:"name"`
	ContactName *string `json:"contact_name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
}

type SupplierResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toResponse(s models.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:          s.ID,
		Name:        s.Name,
		ContactName: s.ContactName,
		Email:       s.Email,
		Phone:       s.Phone,
		Address:     s.Address,
		CreatedAt:   s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   s.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func writeLog(db *gorm.DB, c *fiber.Ctx, opts audit.LogOptions) {
	userID, userName, ok := audit.Actor(c, db)
	if !ok {
		return
	}
	opts.UserID = userID
	opts.UserName = userName
	opts.EntityType = "supplier"
	if err := audit.WriteLog(db, opts); err != nil {
		slog.Warn("audit log not written", "entity", "supplier", "id", opts.EntityID, "err", err)
	}
}

func saveError(err error) error {
	if database.IsUniqueViolation(err) {
		return fiber.NewError(fiber.StatusConflict, "A supplier with this name already exists")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "Supplier could not be saved")
}

func findSupplier(db *gorm.DB, c *fiber.Ctx) (*models.Supplier, error) {
	id, err := query.ParseID(c.Params("id"))
	if err != nil || id == nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid id")
	}
	var s models.Supplier
	err = db.First(&s, "id = ?", *id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "Supplier not found")
	}
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Supplier could not be loaded")
	}
	return &s, nil
}

// GET /api/suppliers?q=
func ListSuppliersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		crit := query.New("name")
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			_ = crit.Where(query.Contains{Column: "name", Value: q})
		}

		var suppliers []models.Supplier
		if err := crit.Apply(db.Model(&models.Supplier{})).Order("name ASC").Find(&suppliers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Suppliers could not be listed")
		}
		resp := make([]SupplierResponse, 0, len(suppliers))
		for _, s := range suppliers {
			resp = append(resp, toResponse(s))
		}
		return c.JSON(resp)
	}
}

// GET /api/suppliers/:id
func GetSupplierHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := findSupplier(db, c)
		if err != nil {
			return err
		}
		return c.JSON(toResponse(*s))
	}
}

// POST /api/admin/suppliers
func CreateSupplierHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if strings.TrimSpace(body.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		s := models.Supplier{
			Name:        strings.TrimSpace(body.Name),
			ContactName: strings.TrimSpace(body.ContactName),
			Email:       strings.TrimSpace(body.Email),
			Phone:       strings.TrimSpace(body.Phone),
			Address:     strings.TrimSpace(body.Address),
		}
		if err := db.Create(&s).Error; err != nil {
			return saveError(err)
		}

		writeLog(db, c, audit.LogOptions{
			EntityID:    s.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Supplier created: %s", s.Name),
			After:       s,
		})
		return c.Status(fiber.StatusCreated).JSON(toResponse(s))
	}
}

// PUT /api/admin/suppliers/:id
func UpdateSupplierHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := findSupplier(db, c)
		if err != nil {
			return err
		}
		var body UpdateSupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		before := *s

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
			}
			s.Name = name
		}
		if body.ContactName != nil {
			s.ContactName = strings.TrimSpace(*body.ContactName)
		}
		if body.Email != nil {
			s.Email = strings.TrimSpace(*body.Email)
		}
		if body.Phone != nil {
			s.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Address != nil {
			s.Address = strings.TrimSpace(*body.Address)
		}

		if err := db.Save(s).Error; err != nil {
			return saveError(err)
		}

		writeLog(db, c, audit.LogOptions{
			EntityID:    s.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Supplier updated: %s", s.Name),
			Before:      before,
			After:       *s,
		})
		return c.JSON(toResponse(*s))
	}
}

// DELETE /api/admin/suppliers/:id
// Suppliers with purchase orders are kept.
func DeleteSupplierHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := findSupplier(db, c)
		if err != nil {
			return err
		}

		var orders int64
		if err := db.Model(&models.PurchaseOrder{}).Where("supplier_id = ?", s.ID).Count(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Supplier could not be deleted")
		}
		if orders > 0 {
			return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("Supplier has %d purchase orders", orders))
		}

		if err := db.Delete(&models.Supplier{}, s.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Supplier could not be deleted")
		}

		writeLog(db, c, audit.LogOptions{
			EntityID:    s.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Supplier deleted: %s", s.Name),
			Before:      *s,
		})
		return c.JSON(fiber.Map{"message": "Supplier deleted"})
	}
}
