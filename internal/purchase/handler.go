package purchase

import (
	"errors"
	"fmt"
	"log/slog"

	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/auth"
	"warehouse-backend/internal/database"
	"warehouse-backend/internal/inventory"
	"warehouse-backend/internal/location"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/query"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateOrderRequest struct {
	SupplierID uint        `json:"supplier_id"`
	StoreID    *uint       `json:"store_id"`
	Note       string      `json:"note"`
	Lines      []LineInput `json:"lines"`
}

type ReceiveRequest struct {
	RackID  *uint `json:"rack_id"`
	ShelfID *uint `json:"shelf_id"`
}

type LineResponse struct {
	ID        uint            `json:"id"`
	ItemID    uint            `json:"item_id"`
	ItemName  string          `json:"item_name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type OrderResponse struct {
	ID           uint                       `json:"id"`
	Number       string                     `json:"number"`
	SupplierID   uint                       `json:"supplier_id"`
	SupplierName string                     `json:"supplier_name,omitempty"`
	StoreID      uint                       `json:"store_id"`
	Status       models.PurchaseOrderStatus `json:"status"`
	Note         string                     `json:"note"`
	TotalAmount  decimal.Decimal            `json:"total_amount"`
	ReceivedAt   *string                    `json:"received_at"`
	CreatedAt    string                     `json:"created_at"`
	Lines        []LineResponse             `json:"lines,omitempty"`
	OperationID  string                     `json:"operation_id,omitempty"`
}

func toResponse(o models.PurchaseOrder) OrderResponse {
	resp := OrderResponse{
		ID:           o.ID,
		Number:       o.Number,
		SupplierID:   o.SupplierID,
		SupplierName: o.Supplier.Name,
		StoreID:      o.StoreID,
		Status:       o.Status,
		Note:         o.Note,
		TotalAmount:  o.TotalAmount,
		CreatedAt:    o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if o.ReceivedAt != nil {
		s := o.ReceivedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.ReceivedAt = &s
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, LineResponse{
			ID:        l.ID,
			ItemID:    l.ItemID,
			ItemName:  l.Item.Name,
			Quantity:  l.Quantity,
			UnitCost:  l.UnitCost,
			LineTotal: l.LineTotal,
		})
	}
	return resp
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrSupplierNotFound), errors.Is(err, ErrStoreNotFound), errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrNoLines), errors.Is(err, ErrInvalidLine), errors.Is(err, location.ErrInvalidPlacement):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotOpen):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, location.ErrNoPlacement):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "No rack/shelf defined for this store, add one before receiving")
	case errors.Is(err, inventory.ErrInvalidQuantity):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case database.IsConflict(err):
		return fiber.NewError(fiber.StatusConflict, "Stock was changed by another request, please retry")
	default:
		return err
	}
}

func orderID(c *fiber.Ctx) (uint, error) {
	id, err := query.ParseID(c.Params("id"))
	if err != nil || id == nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid id")
	}
	return *id, nil
}

// scopedOrder loads the order and checks a store manager may see it.
func scopedOrder(c *fiber.Ctx, db *gorm.DB, id uint) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	if err := loadOrder(db, id, &order); err != nil {
		return nil, toHTTPError(err)
	}
	if _, err := auth.ResolveStoreID(c, &order.StoreID); err != nil {
		return nil, err
	}
	return &order, nil
}

func writeLog(db *gorm.DB, c *fiber.Ctx, order *models.PurchaseOrder, action models.AuditAction, desc string, before, after any) {
	userID, userName, ok := audit.Actor(c, db)
	if !ok {
		return
	}
	if err := audit.WriteLog(db, audit.LogOptions{
		StoreID:     &order.StoreID,
		UserID:      userID,
		UserName:    userName,
		EntityType:  "purchase_order",
		EntityID:    order.ID,
		Action:      action,
		Description: desc,
		Before:      before,
		After:       after,
	}); err != nil {
		slog.Warn("audit log not written", "entity", "purchase_order", "id", order.ID, "err", err)
	}
}

// GET /api/purchase-orders?status=open&supplier_id=1&store_id=1&page=1
func ListOrdersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		crit := query.New("status", "supplier_id", "store_id")

		requested, err := query.ParseID(c.Query("store_id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		if id.Role == models.RoleStoreManager || requested != nil {
			storeID, err := auth.ResolveStoreID(c, requested)
			if err != nil {
				return err
			}
			_ = crit.Where(query.Eq{Column: "store_id", Value: storeID})
		}

		supplierID, err := query.ParseID(c.Query("supplier_id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if supplierID != nil {
			_ = crit.Where(query.Eq{Column: "supplier_id", Value: *supplierID})
		}
		switch st := models.PurchaseOrderStatus(c.Query("status")); st {
		case "":
		case models.PurchaseOrderOpen, models.PurchaseOrderReceived, models.PurchaseOrderCancelled:
			_ = crit.Where(query.Eq{Column: "status", Value: st})
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Unknown status")
		}

		page, err := query.ParsePage(c.Query("page"), c.Query("page_size"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var orders []models.PurchaseOrder
		dbq := crit.Apply(db.Model(&models.PurchaseOrder{})).Preload("Supplier")
		if err := page.Apply(dbq).Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Purchase orders could not be listed")
		}
		resp := make([]OrderResponse, 0, len(orders))
		for _, o := range orders {
			resp = append(resp, toResponse(o))
		}
		return c.JSON(resp)
	}
}

// GET /api/purchase-orders/:id
func GetOrderHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := orderID(c)
		if err != nil {
			return err
		}
		order, err := scopedOrder(c, db, id)
		if err != nil {
			return err
		}
		return c.JSON(toResponse(*order))
	}
}

// POST /api/purchase-orders
func CreateOrderHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.SupplierID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "supplier_id is required")
		}
		storeID, err := auth.ResolveStoreID(c, body.StoreID)
		if err != nil {
			return err
		}

		order, err := CreateOrder(c.UserContext(), db, OrderInput{
			SupplierID: body.SupplierID,
			StoreID:    storeID,
			Note:       body.Note,
			Lines:      body.Lines,
		})
		if err != nil {
			return toHTTPError(err)
		}

		var created models.PurchaseOrder
		if err := loadOrder(db, order.ID, &created); err != nil {
			return toHTTPError(err)
		}
		resp := toResponse(created)
		writeLog(db, c, &created, models.AuditActionCreate,
			fmt.Sprintf("Purchase order %s created (%s)", created.Number, created.TotalAmount.StringFixed(2)), nil, resp)
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// POST /api/purchase-orders/:id/receive
func ReceiveOrderHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := orderID(c)
		if err != nil {
			return err
		}
		var body ReceiveRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
			}
		}
		if _, err := scopedOrder(c, db, id); err != nil {
			return err
		}

		order, opID, err := Receive(c.UserContext(), db, ReceiveInput{
			OrderID: id,
			RackID:  body.RackID,
			ShelfID: body.ShelfID,
			UserID:  auth.UserID(c),
		})
		if err != nil {
			return toHTTPError(err)
		}

		resp := toResponse(*order)
		resp.OperationID = opID
		writeLog(db, c, order, models.AuditActionUpdate,
			fmt.Sprintf("Purchase order %s received", order.Number),
			fiber.Map{"status": models.PurchaseOrderOpen}, fiber.Map{"status": order.Status, "operation_id": opID})
		return c.JSON(resp)
	}
}

// POST /api/purchase-orders/:id/cancel
func CancelOrderHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := orderID(c)
		if err != nil {
			return err
		}
		if _, err := scopedOrder(c, db, id); err != nil {
			return err
		}

		order, err := Cancel(c.UserContext(), db, id)
		if err != nil {
			return toHTTPError(err)
		}
		writeLog(db, c, order, models.AuditActionUpdate,
			fmt.Sprintf("Purchase order %s cancelled", order.Number),
			fiber.Map{"status": models.PurchaseOrderOpen}, fiber.Map{"status": order.Status})
		return c.JSON(toResponse(*order))
	}
}
