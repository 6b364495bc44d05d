package kit

import (
	"errors"

	"warehouse-backend/internal/auth"
	"warehouse-backend/internal/database"
	"warehouse-backend/internal/inventory"
	"warehouse-backend/internal/location"
	"warehouse-backend/internal/query"

	"github.com/gofiber/fiber/v2"
)

type MakeKitRequest struct {
	KitID   uint  `json:"kit_id"`
	StoreID *uint `json:"store_id"`
	InFlow  *int  `json:"in_flow"`
	OutFlow *int  `json:"out_flow"` // accepted for compatibility, ignored
}

type BreakKitRequest struct {
	KitID   uint  `json:"kit_id"`
	StoreID *uint `json:"store_id"`
	OutFlow *int  `json:"out_flow"`
	InFlow  *int  `json:"in_flow"` // accepted for compatibility, ignored
}

type OperationResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	OperationID string `json:"operation_id"`
	KitQuantity int    `json:"kit_quantity"`
}

// POST /api/kits/makeKit
func MakeKitHandler(a *Allocator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body MakeKitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.KitID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "kit_id is required")
		}
		if body.InFlow == nil || *body.InFlow <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "in_flow must be greater than 0")
		}
		storeID, err := auth.ResolveStoreID(c, body.StoreID)
		if err != nil {
			return err
		}

		res, err := a.MakeKit(c.UserContext(), Request{
			KitID:    body.KitID,
			StoreID:  storeID,
			Quantity: *body.InFlow,
			UserID:   auth.UserID(c),
		})
		if err != nil {
			return toHTTPError(err)
		}

		return c.JSON(OperationResponse{
			Status:      "ok",
			Message:     "Kit made successfully",
			OperationID: res.OperationID,
			KitQuantity: res.KitQuantity,
		})
	}
}

// POST /api/kits/breakKit
func BreakKitHandler(a *Allocator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BreakKitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.KitID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "kit_id is required")
		}
		if body.OutFlow == nil || *body.OutFlow <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "out_flow must be greater than 0")
		}
		storeID, err := auth.ResolveStoreID(c, body.StoreID)
		if err != nil {
			return err
		}

		res, err := a.BreakKit(c.UserContext(), Request{
			KitID:    body.KitID,
			StoreID:  storeID,
			Quantity: *body.OutFlow,
			UserID:   auth.UserID(c),
		})
		if err != nil {
			return toHTTPError(err)
		}

		return c.JSON(OperationResponse{
			Status:      "ok",
			Message:     "Kit broken successfully",
			OperationID: res.OperationID,
			KitQuantity: res.KitQuantity,
		})
	}
}

// GET /api/kits/viewKits?id=1&store_id=1
func ViewKitsHandler(a *Allocator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kitID, err := query.ParseID(c.Query("id"))
		if err != nil || kitID == nil {
			return fiber.NewError(fiber.StatusBadRequest, "id is required")
		}
		requested, err := query.ParseID(c.Query("store_id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid store_id")
		}
		storeID, err := auth.ResolveStoreID(c, requested)
		if err != nil {
			return err
		}

		view, err := a.ViewKit(c.UserContext(), *kitID, storeID)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(view)
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, inventory.ErrInvalidQuantity):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrKitNotFound), errors.Is(err, ErrStoreNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotAKit), errors.Is(err, ErrEmptyRecipe):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, inventory.ErrInsufficientStock):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, location.ErrNoPlacement):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "No rack/shelf defined for this store, add one before stocking kits")
	case database.IsConflict(err):
		return fiber.NewError(fiber.StatusConflict, "Stock was changed by another request, please retry")
	default:
		return err
	}
}
