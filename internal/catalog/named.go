package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/database"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/query"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Kind describes one of the name-only lookup tables items point at.
type Kind struct {
	Entity string // audit entity type
	Label  string
	Table  string
}

var (
	Brands     = Kind{Entity: "brand", Label: "Brand", Table: "brands"}
	Makes      = Kind{Entity: "make", Label: "Make", Table: "makes"}
	Categories = Kind{Entity: "category", Label: "Category", Table: "categories"}
)

// namedRow mirrors models.Brand, models.Make and models.Category. Its JSON
// form matches theirs, so audit snapshots restore into the real models.
type namedRow struct {
	ID        uint
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type NamedRequest struct {
	Name string `json:"name"`
}

type NamedResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := query.ParseID(c.Params("id"))
	if err != nil || id == nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid id")
	}
	return *id, nil
}

func writeError(err error, label string) error {
	switch {
	case database.IsUniqueViolation(err):
		return fiber.NewError(fiber.StatusConflict, label+" with this name already exists")
	case database.IsForeignKeyViolation(err):
		return fiber.NewError(fiber.StatusConflict, label+" references a missing record or is still in use")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, label+" could not be saved")
	}
}

func logChange(db *gorm.DB, c *fiber.Ctx, opts audit.LogOptions) {
	userID, userName, ok := audit.Actor(c, db)
	if !ok {
		return
	}
	opts.UserID = userID
	opts.UserName = userName
	if err := audit.WriteLog(db, opts); err != nil {
		slog.Warn("audit log not written", "entity", opts.EntityType, "id", opts.EntityID, "err", err)
	}
}

// GET /api/brands?q=
func ListNamedHandler(db *gorm.DB, k Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		crit := query.New("name")
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			_ = crit.Where(query.Contains{Column: "name", Value: q})
		}

		var rows []namedRow
		if err := crit.Apply(db.Table(k.Table)).Order("name ASC").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, k.Label+" list could not be loaded")
		}
		resp := make([]NamedResponse, 0, len(rows))
		for _, r := range rows {
			resp = append(resp, NamedResponse{ID: r.ID, Name: r.Name})
		}
		return c.JSON(resp)
	}
}

// POST /api/admin/brands
func CreateNamedHandler(db *gorm.DB, k Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body NamedRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		now := time.Now()
		row := namedRow{Name: name, CreatedAt: now, UpdatedAt: now}
		if err := db.Table(k.Table).Create(&row).Error; err != nil {
			return writeError(err, k.Label)
		}

		logChange(db, c, audit.LogOptions{
			EntityType:  k.Entity,
			EntityID:    row.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%s created: %s", k.Label, row.Name),
			After:       row,
		})
		return c.Status(fiber.StatusCreated).JSON(NamedResponse{ID: row.ID, Name: row.Name})
	}
}

// PUT /api/admin/brands/:id
func UpdateNamedHandler(db *gorm.DB, k Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body NamedRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		var row namedRow
		err = db.Table(k.Table).Where("id = ?", id).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, k.Label+" not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, k.Label+" could not be loaded")
		}
		before := row

		row.Name = name
		row.UpdatedAt = time.Now()
		if err := db.Table(k.Table).Where("id = ?", id).
			Updates(map[string]any{"name": row.Name, "updated_at": row.UpdatedAt}).Error; err != nil {
			return writeError(err, k.Label)
		}

		logChange(db, c, audit.LogOptions{
			EntityType:  k.Entity,
			EntityID:    row.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("%s renamed: %s -> %s", k.Label, before.Name, row.Name),
			Before:      before,
			After:       row,
		})
		return c.JSON(NamedResponse{ID: row.ID, Name: row.Name})
	}
}

// DELETE /api/admin/brands/:id
// Fails with 409 while items still reference the row.
func DeleteNamedHandler(db *gorm.DB, k Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var row namedRow
		err = db.Table(k.Table).Where("id = ?", id).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, k.Label+" not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, k.Label+" could not be loaded")
		}

		var refs int64
		column := k.Entity + "_id"
		if err := db.Model(&models.Item{}).Where(column+" = ?", id).Count(&refs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, k.Label+" could not be deleted")
		}
		if refs > 0 {
			return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("%s is used by %d items", k.Label, refs))
		}

		if err := db.Table(k.Table).Where("id = ?", id).Delete(&namedRow{}).Error; err != nil {
			return writeError(err, k.Label)
		}

		logChange(db, c, audit.LogOptions{
			EntityType:  k.Entity,
			EntityID:    row.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("%s deleted: %s", k.Label, row.Name),
			Before:      row,
		})
		return c.JSON(fiber.Map{"message": k.Label + " deleted"})
	}
}
