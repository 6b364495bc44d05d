package catalog

import (
	"errors"
	"fmt"
	"strings"

	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/query"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateItemRequest struct {
	Name       string          `json:"name"`
	PartNumber *string         `json:"part_number"`
	Type       models.ItemType `json:"type"`
	Unit       string          `json:"unit"`
	BrandID    *uint           `json:"brand_id"`
	MakeID     *uint           `json:"make_id"`
	CategoryID *uint           `json:"category_id"`
	Components []ComponentLine `json:"components"`
}

type UpdateItemRequest struct {
	Name       *string          `json:"name"`
	PartNumber *string          `json:"part_number"`
	Type       *models.ItemType `json:"type"`
	Unit       *string          `json:"unit"`
	BrandID    *uint            `json:"brand_id"`
	MakeID     *uint            `json:"make_id"`
	CategoryID *uint            `json:"category_id"`
}

type ReplaceComponentsRequest struct {
	Components []ComponentLine `json:"components"`
}

type ComponentResponse struct {
	ItemID         uint    `json:"item_id"`
	Name           string  `json:"name"`
	PartNumber     *string `json:"part_number"`
	QuantityPerKit int     `json:"quantity_per_kit"`
}

type ItemResponse struct {
	ID         uint                `json:"id"`
	Name       string              `json:"name"`
	PartNumber *string             `json:"part_number"`
	Type       models.ItemType     `json:"type"`
	Unit       string              `json:"unit"`
	BrandID    *uint               `json:"brand_id"`
	BrandName  string              `json:"brand_name,omitempty"`
	MakeID     *uint               `json:"make_id"`
	MakeName   string              `json:"make_name,omitempty"`
	CategoryID *uint               `json:"category_id"`
	Category   string              `json:"category_name,omitempty"`
	Components []ComponentResponse `json:"components,omitempty"`
}

func toItemResponse(it models.Item) ItemResponse {
	resp := ItemResponse{
		ID:         it.ID,
		Name:       it.Name,
		PartNumber: it.PartNumber,
		Type:       it.Type,
		Unit:       it.Unit,
		BrandID:    it.BrandID,
		MakeID:     it.MakeID,
		CategoryID: it.CategoryID,
	}
	if it.Brand != nil {
		resp.BrandName = it.Brand.Name
	}
	if it.Make != nil {
		resp.MakeName = it.Make.Name
	}
	if it.Category != nil {
		resp.Category = it.Category.Name
	}
	for _, comp := range it.Components {
		resp.Components = append(resp.Components, ComponentResponse{
			ItemID:         comp.ItemID,
			Name:           comp.Item.Name,
			PartNumber:     comp.Item.PartNumber,
			QuantityPerKit: comp.QuantityPerKit,
		})
	}
	return resp
}

func loadItem(db *gorm.DB, id uint) (*models.Item, error) {
	var item models.Item
	err := db.
		Preload("Brand").
		Preload("Make").
		Preload("Category").
		Preload("Components", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC, id ASC") }).
		Preload("Components.Item").
		First(&item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func normalizePartNumber(pn *string) *string {
	if pn == nil {
		return nil
	}
	v := strings.TrimSpace(*pn)
	if v == "" {
		return nil
	}
	return &v
}

func recipeError(err error) error {
	switch {
	case errors.Is(err, ErrItemNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Item not found")
	case errors.Is(err, ErrNotAKit), errors.Is(err, ErrEmptyRecipe), errors.Is(err, ErrRecipeCycle),
		errors.Is(err, ErrDuplicateLine), errors.Is(err, ErrUnknownComponent), errors.Is(err, ErrInvalidLine):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return writeError(err, "Item")
	}
}

// GET /api/items?type=kit&brand_id=1&make_id=2&category_id=3&q=filter&page=1&page_size=50
func ListItemsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		crit := query.New("type", "brand_id", "make_id", "category_id", "name")

		switch t := models.ItemType(c.Query("type")); t {
		case "":
		case models.ItemTypePart, models.ItemTypeKit:
			_ = crit.Where(query.Eq{Column: "type", Value: t})
		default:
			return fiber.NewError(fiber.StatusBadRequest, "type must be part or kit")
		}
		for _, col := range []string{"brand_id", "make_id", "category_id"} {
			v, err := query.ParseID(c.Query(col))
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			if v != nil {
				_ = crit.Where(query.Eq{Column: col, Value: *v})
			}
		}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			_ = crit.Where(query.Contains{Column: "name", Value: q})
		}

		page, err := query.ParsePage(c.Query("page"), c.Query("page_size"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var items []models.Item
		dbq := crit.Apply(db.Model(&models.Item{})).Preload("Brand").Preload("Make").Preload("Category")
		if err := page.Apply(dbq).Order("name ASC").Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Items could not be listed")
		}

		resp := make([]ItemResponse, 0, len(items))
		for _, it := range items {
			resp = append(resp, toItemResponse(it))
		}
		return c.JSON(resp)
	}
}

// GET /api/items/:id
func GetItemHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		item, err := loadItem(db, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Item not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Item could not be loaded")
		}
		return c.JSON(toItemResponse(*item))
	}
}

// POST /api/admin/items
// A kit may be created together with its recipe.
func CreateItemHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}
		if body.Type == "" {
			body.Type = models.ItemTypePart
		}
		if body.Type != models.ItemTypePart && body.Type != models.ItemTypeKit {
			return fiber.NewError(fiber.StatusBadRequest, "type must be part or kit")
		}
		if body.Type == models.ItemTypePart && len(body.Components) > 0 {
			return fiber.NewError(fiber.StatusBadRequest, ErrNotAKit.Error())
		}
		if body.Unit = strings.TrimSpace(body.Unit); body.Unit == "" {
			body.Unit = "pcs"
		}

		item := models.Item{
			Name:       body.Name,
			PartNumber: normalizePartNumber(body.PartNumber),
			Type:       body.Type,
			Unit:       body.Unit,
			BrandID:    body.BrandID,
			MakeID:     body.MakeID,
			CategoryID: body.CategoryID,
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			if len(body.Components) > 0 {
				return ReplaceComponents(tx, item.ID, body.Components)
			}
			return nil
		})
		if err != nil {
			return recipeError(err)
		}

		created, err := loadItem(db, item.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Item could not be loaded")
		}
		resp := toItemResponse(*created)
		logChange(db, c, audit.LogOptions{
			EntityType:  "item",
			EntityID:    item.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Item created: %s", item.Name),
			After:       resp,
		})
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// PUT /api/admin/items/:id
func UpdateItemHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body UpdateItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		item, err := loadItem(db, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Item not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Item could not be loaded")
		}
		before := toItemResponse(*item)

		updates := map[string]any{}
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
			}
			updates["name"] = name
		}
		if body.PartNumber != nil {
			updates["part_number"] = normalizePartNumber(body.PartNumber)
		}
		if body.Type != nil {
			switch *body.Type {
			case models.ItemTypeKit:
			case models.ItemTypePart:
				if len(item.Components) > 0 {
					return fiber.NewError(fiber.StatusBadRequest, "Remove the kit's components before turning it into a part")
				}
			default:
				return fiber.NewError(fiber.StatusBadRequest, "type must be part or kit")
			}
			updates["type"] = *body.Type
		}
		if body.Unit != nil {
			if unit := strings.TrimSpace(*body.Unit); unit != "" {
				updates["unit"] = unit
			}
		}
		if body.BrandID != nil {
			updates["brand_id"] = *body.BrandID
		}
		if body.MakeID != nil {
			updates["make_id"] = *body.MakeID
		}
		if body.CategoryID != nil {
			updates["category_id"] = *body.CategoryID
		}
		if len(updates) == 0 {
			return c.JSON(before)
		}

		if err := db.Model(&models.Item{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return writeError(err, "Item")
		}

		updated, err := loadItem(db, id)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Item could not be loaded")
		}
		resp := toItemResponse(*updated)
		logChange(db, c, audit.LogOptions{
			EntityType:  "item",
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Item updated: %s", resp.Name),
			Before:      before,
			After:       resp,
		})
		return c.JSON(resp)
	}
}

// PUT /api/admin/items/:id/components
func ReplaceComponentsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body ReplaceComponentsRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		old, err := loadItem(db, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Item not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Item could not be loaded")
		}
		before := toItemResponse(*old)

		if err := db.Transaction(func(tx *gorm.DB) error {
			return ReplaceComponents(tx, id, body.Components)
		}); err != nil {
			return recipeError(err)
		}

		kit, err := loadItem(db, id)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Item could not be loaded")
		}
		resp := toItemResponse(*kit)
		logChange(db, c, audit.LogOptions{
			EntityType:  "item",
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Kit recipe replaced: %s (%d components)", kit.Name, len(kit.Components)),
			Before:      before.Components,
			After:       resp.Components,
		})
		return c.JSON(resp)
	}
}

// DELETE /api/admin/items/:id
// Items with stock, history, or that appear in a recipe cannot be deleted.
func DeleteItemHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		item, err := loadItem(db, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Item not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Item could not be loaded")
		}

		refs := []struct {
			model any
			where string
			what  string
		}{
			{&models.InventoryRecord{}, "item_id = ?", "inventory records"},
			{&models.FlowLogEntry{}, "item_id = ?", "stock movements"},
			{&models.KitComponent{}, "item_id = ?", "kit recipes"},
			{&models.PurchaseOrderLine{}, "item_id = ?", "purchase orders"},
		}
		for _, r := range refs {
			var n int64
			if err := db.Model(r.model).Where(r.where, id).Count(&n).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Item could not be deleted")
			}
			if n > 0 {
				return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("Item is used by %d %s", n, r.what))
			}
		}

		before := toItemResponse(*item)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("kit_id = ?", id).Delete(&models.KitComponent{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Item{}, id).Error
		})
		if err != nil {
			return writeError(err, "Item")
		}

		logChange(db, c, audit.LogOptions{
			EntityType:  "item",
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Item deleted: %s", item.Name),
			Before:      before,
		})
		return c.JSON(fiber.Map{"message": "Item deleted"})
	}
}
