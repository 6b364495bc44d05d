package inventory

import (
	"errors"
	"fmt"
	"log/slog"

	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/auth"
	"warehouse-backend/internal/database"
	"warehouse-backend/internal/location"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/query"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RecordResponse struct {
	ID         uint    `json:"id"`
	ItemID     uint    `json:"item_id"`
	ItemName   string  `json:"item_name"`
	PartNumber *string `json:"part_number"`
	StoreID    uint    `json:"store_id"`
	RackID     uint    `json:"rack_id"`
	RackName   string  `json:"rack_name"`
	ShelfID    uint    `json:"shelf_id"`
	ShelfName  string  `json:"shelf_name"`
	Quantity   int     `json:"quantity"`
	UpdatedAt  string  `json:"updated_at"`
}

type SummaryRow struct {
	ItemID     uint            `json:"item_id"`
	ItemName   string          `json:"item_name"`
	PartNumber *string         `json:"part_number"`
	Type       models.ItemType `json:"type"`
	Unit       string          `json:"unit"`
	Quantity   int             `json:"quantity"`
	Records    int             `json:"records"`
}

type AdjustRequest struct {
	RecordID *uint `json:"record_id"`
	ItemID   uint  `json:"item_id"`
	StoreID  *uint `json:"store_id"`
	RackID   uint  `json:"rack_id"`
	ShelfID  uint  `json:"shelf_id"`
	Quantity *int  `json:"quantity"`
}

type FlowLogResponse struct {
	ID          uint              `json:"id"`
	OperationID string            `json:"operation_id"`
	ItemID      uint              `json:"item_id"`
	ItemName    string            `json:"item_name"`
	StoreID     uint              `json:"store_id"`
	InFlow      int               `json:"in_flow"`
	OutFlow     int               `json:"out_flow"`
	Reason      models.FlowReason `json:"reason"`
	UserID      *uint             `json:"user_id"`
	CreatedAt   string            `json:"created_at"`
}

func toRecordResponse(r models.InventoryRecord) RecordResponse {
	return RecordResponse{
		ID:         r.ID,
		ItemID:     r.ItemID,
		ItemName:   r.Item.Name,
		PartNumber: r.Item.PartNumber,
		StoreID:    r.StoreID,
		RackID:     r.RackID,
		RackName:   r.Rack.Name,
		ShelfID:    r.ShelfID,
		ShelfName:  r.Shelf.Name,
		Quantity:   r.Quantity,
		UpdatedAt:  r.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// storeScope returns the store filter for list endpoints: store managers see
// their own store, admins an optional ?store_id.
func storeScope(c *fiber.Ctx) (*uint, error) {
	requested, err := query.ParseID(c.Query("store_id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	id, err := auth.CurrentIdentity(c)
	if err != nil {
		return nil, err
	}
	if id.Role != models.RoleStoreManager && requested == nil {
		return nil, nil
	}
	storeID, err := auth.ResolveStoreID(c, requested)
	if err != nil {
		return nil, err
	}
	return &storeID, nil
}

func listRecords(db *gorm.DB, crit *query.Criteria, page query.Page) ([]models.InventoryRecord, error) {
	var recs []models.InventoryRecord
	dbq := crit.Apply(db.Model(&models.InventoryRecord{})).
		Preload("Item").Preload("Rack").Preload("Shelf")
	err := page.Apply(dbq).Order("store_id ASC, item_id ASC, id ASC").Find(&recs).Error
	return recs, err
}

func recordCriteria(c *fiber.Ctx) (*query.Criteria, error) {
	crit := query.New("store_id", "item_id", "rack_id", "shelf_id")
	storeID, err := storeScope(c)
	if err != nil {
		return nil, err
	}
	if storeID != nil {
		_ = crit.Where(query.Eq{Column: "store_id", Value: *storeID})
	}
	for _, col := range []string{"item_id", "rack_id", "shelf_id"} {
		v, err := query.ParseID(c.Query(col))
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if v != nil {
			_ = crit.Where(query.Eq{Column: col, Value: *v})
		}
	}
	return crit, nil
}

// GET /api/inventory?store_id=1&item_id=2&page=1
func ListRecordsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		crit, err := recordCriteria(c)
		if err != nil {
			return err
		}
		page, err := query.ParsePage(c.Query("page"), c.Query("page_size"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		recs, err := listRecords(db, crit, page)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Inventory could not be listed")
		}
		resp := make([]RecordResponse, 0, len(recs))
		for _, r := range recs {
			resp = append(resp, toRecordResponse(r))
		}
		return c.JSON(resp)
	}
}

// GET /api/inventory/summary?store_id=1
// Totals per item at one store.
func SummaryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requested, err := query.ParseID(c.Query("store_id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		storeID, err := auth.ResolveStoreID(c, requested)
		if err != nil {
			return err
		}

		rows := []SummaryRow{}
		err = db.Model(&models.InventoryRecord{}).
			Select("items.id AS item_id, items.name AS item_name, items.part_number, items.type, items.unit, "+
				"SUM(inventory_records.quantity) AS quantity, COUNT(inventory_records.id) AS records").
			Joins("JOIN items ON items.id = inventory_records.item_id").
			Where("inventory_records.store_id = ?", storeID).
			Group("items.id, items.name, items.part_number, items.type, items.unit").
			Order("items.name ASC").
			Scan(&rows).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Inventory summary could not be loaded")
		}
		return c.JSON(rows)
	}
}

// POST /api/inventory/adjust
// Sets a record to a counted quantity.
func AdjustHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AdjustRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.Quantity == nil || *body.Quantity < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "quantity must be zero or more")
		}

		in := AdjustInput{RecordID: body.RecordID, Quantity: *body.Quantity, UserID: auth.UserID(c)}
		var storeID uint
		if body.RecordID != nil {
			var rec models.InventoryRecord
			if err := db.Select("id", "store_id").First(&rec, "id = ?", *body.RecordID).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound, "Inventory record not found")
			}
			storeID = rec.StoreID
			if _, err := auth.ResolveStoreID(c, &storeID); err != nil {
				return err
			}
		} else {
			if body.ItemID == 0 || body.RackID == 0 || body.ShelfID == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "record_id or item_id, rack_id and shelf_id are required")
			}
			var err error
			if storeID, err = auth.ResolveStoreID(c, body.StoreID); err != nil {
				return err
			}
			in.ItemID = body.ItemID
			in.Placement = location.Placement{StoreID: storeID, RackID: body.RackID, ShelfID: body.ShelfID}
		}

		rec, entry, err := Adjust(c.UserContext(), db, in)
		switch {
		case err == nil:
		case errors.Is(err, ErrRecordNotFound), errors.Is(err, gorm.ErrRecordNotFound):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case errors.Is(err, location.ErrInvalidPlacement), errors.Is(err, ErrInvalidQuantity):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case database.IsConflict(err):
			return fiber.NewError(fiber.StatusConflict, "Stock was changed by another request, please retry")
		default:
			return err
		}

		if entry != nil {
			userID, userName, ok := audit.Actor(c, db)
			if ok {
				if err := audit.WriteLog(db, audit.LogOptions{
					StoreID:     &rec.StoreID,
					UserID:      userID,
					UserName:    userName,
					EntityType:  "inventory_record",
					EntityID:    rec.ID,
					Action:      models.AuditActionUpdate,
					Description: fmt.Sprintf("Stock count: item %d set to %d (+%d/-%d)", rec.ItemID, rec.Quantity, entry.InFlow, entry.OutFlow),
					After:       fiber.Map{"quantity": rec.Quantity, "operation_id": entry.OperationID},
				}); err != nil {
					slog.Warn("audit log not written", "entity", "inventory_record", "id", rec.ID, "err", err)
				}
			}
		}

		resp := fiber.Map{"id": rec.ID, "item_id": rec.ItemID, "store_id": rec.StoreID, "quantity": rec.Quantity}
		if entry != nil {
			resp["operation_id"] = entry.OperationID
		}
		return c.JSON(resp)
	}
}

// GET /api/flow-logs?store_id=1&item_id=2&reason=make_kit&operation_id=...&page=1
func ListFlowLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		crit := query.New("store_id", "item_id", "reason", "operation_id")
		storeID, err := storeScope(c)
		if err != nil {
			return err
		}
		if storeID != nil {
			_ = crit.Where(query.Eq{Column: "store_id", Value: *storeID})
		}
		itemID, err := query.ParseID(c.Query("item_id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if itemID != nil {
			_ = crit.Where(query.Eq{Column: "item_id", Value: *itemID})
		}
		switch r := models.FlowReason(c.Query("reason")); r {
		case "":
		case models.FlowReasonMakeKit, models.FlowReasonBreakKit, models.FlowReasonPurchaseReceive, models.FlowReasonAdjustment:
			_ = crit.Where(query.Eq{Column: "reason", Value: r})
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Unknown reason")
		}
		if op := c.Query("operation_id"); op != "" {
			_ = crit.Where(query.Eq{Column: "operation_id", Value: op})
		}

		page, err := query.ParsePage(c.Query("page"), c.Query("page_size"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var entries []models.FlowLogEntry
		dbq := crit.Apply(db.Model(&models.FlowLogEntry{})).Preload("Item")
		if err := page.Apply(dbq).Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Flow logs could not be listed")
		}

		resp := make([]FlowLogResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, FlowLogResponse{
				ID:          e.ID,
				OperationID: e.OperationID,
				ItemID:      e.ItemID,
				ItemName:    e.Item.Name,
				StoreID:     e.StoreID,
				InFlow:      e.InFlow,
				OutFlow:     e.OutFlow,
				Reason:      e.Reason,
				UserID:      e.UserID,
				CreatedAt:   e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}
		return c.JSON(resp)
	}
}
