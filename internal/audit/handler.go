package audit

import (
	"errors"

	"warehouse-backend/internal/auth"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/query"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	StoreID     *uint              `json:"store_id"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	IsUndone    bool               `json:"is_undone"`
	UndoneBy    *uint              `json:"undone_by"`
	UndoneAt    *string            `json:"undone_at"`
}

// GET /api/audit-logs?entity_type=brand&entity_id=1&user_id=1&store_id=1&page=1
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}

		crit := query.New("store_id", "user_id", "entity_type", "entity_id")

		// store managers only see their own store
		storeID := id.StoreID
		if id.Role == models.RoleAdmin {
			if storeID, err = query.ParseID(c.Query("store_id")); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		if storeID != nil {
			_ = crit.Where(query.Eq{Column: "store_id", Value: *storeID})
		}

		for _, col := range []string{"user_id", "entity_id"} {
			v, err := query.ParseID(c.Query(col))
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			if v != nil {
				_ = crit.Where(query.Eq{Column: col, Value: *v})
			}
		}
		if et := c.Query("entity_type"); et != "" {
			_ = crit.Where(query.Eq{Column: "entity_type", Value: et})
		}

		page, err := query.ParsePage(c.Query("page"), c.Query("page_size"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var logs []models.AuditLog
		dbq := crit.Apply(db.Model(&models.AuditLog{}))
		if err := page.Apply(dbq).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Audit logs could not be listed")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			var undoneAt *string
			if l.UndoneAt != nil {
				formatted := l.UndoneAt.Format("2006-01-02 15:04:05")
				undoneAt = &formatted
			}
			resp = append(resp, AuditLogResponse{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
				StoreID:     l.StoreID,
				UserID:      l.UserID,
				UserName:    l.UserName,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      l.Action,
				Description: l.Description,
				IsUndone:    l.IsUndone,
				UndoneBy:    l.UndoneBy,
				UndoneAt:    undoneAt,
			})
		}
		return c.JSON(resp)
	}
}

// POST /api/admin/audit-logs/:id/undo
func UndoAuditLogHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logID, err := query.ParseID(c.Params("id"))
		if err != nil || logID == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid log id")
		}

		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		var user models.User
		if err := db.First(&user, "id = ?", id.UserID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "User not found")
		}

		if err := UndoLog(db, *logID, user.ID, user.Name); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Audit log not found")
			}
			if errors.Is(err, ErrAlreadyUndone) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.JSON(fiber.Map{"message": "Action undone"})
	}
}

// Actor loads the caller's id and display name for audit entries.
func Actor(c *fiber.Ctx, db *gorm.DB) (uint, string, bool) {
	id, err := auth.CurrentIdentity(c)
	if err != nil {
		return 0, "", false
	}
	var user models.User
	if err := db.Select("id", "name").First(&user, "id = ?", id.UserID).Error; err != nil {
		return 0, "", false
	}
	return user.ID, user.Name, true
}
