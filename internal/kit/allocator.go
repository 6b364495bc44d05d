// Package kit assembles kits from their components and breaks them back
// down, moving stock between inventory records of one store.
package kit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"warehouse-backend/internal/database"
	"warehouse-backend/internal/inventory"
	"warehouse-backend/internal/metrics"
	"warehouse-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Allocator struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewAllocator(db *gorm.DB, log *slog.Logger) *Allocator {
	return &Allocator{db: db, log: log}
}

type Request struct {
	KitID    uint
	StoreID  uint
	Quantity int
	UserID   *uint
}

type Result struct {
	OperationID string
	KitID       uint
	KitName     string
	StoreID     uint
	Quantity    int
	// KitQuantity is the kit's total on hand at the store after the operation.
	KitQuantity int
}

// MakeKit assembles req.Quantity kits at the store. Component stock is
// checked for every recipe line before anything is deducted; the whole
// operation runs in one transaction.
func (a *Allocator) MakeKit(ctx context.Context, req Request) (*Result, error) {
	return a.run(ctx, "make", req, func(tx *gorm.DB, kit *models.Item, res *Result) error {
		stocks := make([][]models.InventoryRecord, len(kit.Components))
		required := make([]int, len(kit.Components))
		for i, comp := range kit.Components {
			recs, err := inventory.Records(tx, comp.ItemID, req.StoreID)
			if err != nil {
				return err
			}
			required[i], err = inventory.Scale(comp.QuantityPerKit, req.Quantity)
			if err != nil {
				return err
			}
			if available := inventory.Total(recs); available < required[i] {
				return &InsufficientComponentError{
					ItemID:    comp.ItemID,
					ItemName:  comp.Item.Name,
					Required:  required[i],
					Available: available,
				}
			}
			stocks[i] = recs
		}

		for i, comp := range kit.Components {
			if err := inventory.Consume(tx, stocks[i], required[i]); err != nil {
				return fmt.Errorf("consume %s: %w", comp.Item.Name, err)
			}
		}

		if _, err := inventory.Credit(tx, kit.ID, req.StoreID, req.Quantity); err != nil {
			return fmt.Errorf("credit kit: %w", err)
		}

		_, err := inventory.AppendFlow(tx, models.FlowLogEntry{
			OperationID: res.OperationID,
			ItemID:      kit.ID,
			StoreID:     req.StoreID,
			InFlow:      req.Quantity,
			OutFlow:     0,
			Reason:      models.FlowReasonMakeKit,
			UserID:      req.UserID,
		})
		return err
	})
}

// BreakKit disassembles req.Quantity kits and returns their components to
// the store, spread over each component's existing records.
func (a *Allocator) BreakKit(ctx context.Context, req Request) (*Result, error) {
	return a.run(ctx, "break", req, func(tx *gorm.DB, kit *models.Item, res *Result) error {
		recs, err := inventory.Records(tx, kit.ID, req.StoreID)
		if err != nil {
			return err
		}
		returned := make([]int, len(kit.Components))
		for i, comp := range kit.Components {
			if returned[i], err = inventory.Scale(comp.QuantityPerKit, req.Quantity); err != nil {
				return err
			}
		}
		if available := inventory.Total(recs); available < req.Quantity {
			return &InsufficientKitError{KitName: kit.Name, Required: req.Quantity, Available: available}
		}
		if err := inventory.Consume(tx, recs, req.Quantity); err != nil {
			return fmt.Errorf("consume kit: %w", err)
		}

		for i, comp := range kit.Components {
			if err := inventory.Distribute(tx, comp.ItemID, req.StoreID, returned[i]); err != nil {
				return fmt.Errorf("return %s: %w", comp.Item.Name, err)
			}
		}

		_, err = inventory.AppendFlow(tx, models.FlowLogEntry{
			OperationID: res.OperationID,
			ItemID:      kit.ID,
			StoreID:     req.StoreID,
			InFlow:      0,
			OutFlow:     req.Quantity,
			Reason:      models.FlowReasonBreakKit,
			UserID:      req.UserID,
		})
		return err
	})
}

type stepFunc func(tx *gorm.DB, kit *models.Item, res *Result) error

func (a *Allocator) run(ctx context.Context, op string, req Request, step stepFunc) (*Result, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: %d", inventory.ErrInvalidQuantity, req.Quantity)
	}

	start := time.Now()
	res := &Result{
		OperationID: uuid.NewString(),
		KitID:       req.KitID,
		StoreID:     req.StoreID,
		Quantity:    req.Quantity,
	}

	err := database.WithTx(ctx, a.db, func(tx *gorm.DB) error {
		kit, err := loadKit(tx, req.KitID)
		if err != nil {
			return err
		}
		if err := ensureStore(tx, req.StoreID); err != nil {
			return err
		}
		res.KitName = kit.Name

		if err := step(tx, kit, res); err != nil {
			return err
		}

		recs, err := inventory.Records(tx, kit.ID, req.StoreID)
		if err != nil {
			return err
		}
		res.KitQuantity = inventory.Total(recs)
		return nil
	})

	metrics.KitDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.KitOperations.WithLabelValues(op, outcome(err)).Inc()
		a.log.Warn("kit operation failed",
			"operation", op, "operation_id", res.OperationID,
			"kit_id", req.KitID, "store_id", req.StoreID, "quantity", req.Quantity, "err", err)
		return nil, err
	}

	metrics.KitOperations.WithLabelValues(op, "ok").Inc()
	metrics.KitUnits.WithLabelValues(op).Add(float64(req.Quantity))
	a.log.Info("kit operation done",
		"operation", op, "operation_id", res.OperationID,
		"kit_id", req.KitID, "store_id", req.StoreID, "quantity", req.Quantity, "kit_quantity", res.KitQuantity)
	return res, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "insufficient"
	case database.IsConflict(err):
		return "conflict"
	default:
		return "error"
	}
}

func loadKit(db *gorm.DB, kitID uint) (*models.Item, error) {
	var kit models.Item
	err := db.
		Preload("Components", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC, id ASC") }).
		Preload("Components.Item").
		First(&kit, "id = ?", kitID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrKitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load kit: %w", err)
	}
	if !kit.IsKit() {
		return nil, ErrNotAKit
	}
	if len(kit.Components) == 0 {
		return nil, ErrEmptyRecipe
	}
	return &kit, nil
}

func ensureStore(db *gorm.DB, storeID uint) error {
	var store models.Store
	err := db.Select("id").First(&store, "id = ?", storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrStoreNotFound
	}
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	return nil
}
