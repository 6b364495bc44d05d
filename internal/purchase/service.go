// Package purchase handles purchase orders placed with suppliers and their
// receipt into store stock.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warehouse-backend/internal/database"
	"warehouse-backend/internal/inventory"
	"warehouse-backend/internal/location"
	"warehouse-backend/internal/metrics"
	"warehouse-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound    = errors.New("purchase order not found")
	ErrNotOpen          = errors.New("purchase order is not open")
	ErrNoLines          = errors.New("purchase order needs at least one line")
	ErrSupplierNotFound = errors.New("supplier not found")
	ErrStoreNotFound    = errors.New("store not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrInvalidLine      = errors.New("invalid purchase order line")
)

type LineInput struct {
	ItemID   uint            `json:"item_id"`
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

type OrderInput struct {
	SupplierID uint
	StoreID    uint
	Note       string
	Lines      []LineInput
}

func newNumber() string {
	return "PO-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// CreateOrder validates the input and stores an open order with its totals.
func CreateOrder(ctx context.Context, db *gorm.DB, in OrderInput) (*models.PurchaseOrder, error) {
	if len(in.Lines) == 0 {
		return nil, ErrNoLines
	}

	order := models.PurchaseOrder{
		Number:      newNumber(),
		SupplierID:  in.SupplierID,
		StoreID:     in.StoreID,
		Status:      models.PurchaseOrderOpen,
		Note:        strings.TrimSpace(in.Note),
		TotalAmount: decimal.Zero,
	}
	for i, l := range in.Lines {
		if l.ItemID == 0 || l.Quantity <= 0 {
			return nil, fmt.Errorf("%w %d: item_id and a positive quantity are required", ErrInvalidLine, i+1)
		}
		if l.UnitCost.IsNegative() {
			return nil, fmt.Errorf("%w %d: unit_cost cannot be negative", ErrInvalidLine, i+1)
		}
		total := l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		order.Lines = append(order.Lines, models.PurchaseOrderLine{
			ItemID:    l.ItemID,
			Quantity:  l.Quantity,
			UnitCost:  l.UnitCost,
			LineTotal: total,
		})
		order.TotalAmount = order.TotalAmount.Add(total)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.Supplier{}, in.SupplierID, ErrSupplierNotFound); err != nil {
			return err
		}
		if err := exists(tx, &models.Store{}, in.StoreID, ErrStoreNotFound); err != nil {
			return err
		}
		for _, l := range order.Lines {
			if err := exists(tx, &models.Item{}, l.ItemID, ErrItemNotFound); err != nil {
				return fmt.Errorf("item %d: %w", l.ItemID, err)
			}
		}
		return tx.Omit("Supplier", "Store").Create(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func exists(tx *gorm.DB, model any, id uint, notFound error) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

type ReceiveInput struct {
	OrderID uint
	// Optional shelf for every line. Without it each item goes to its first
	// record at the store, or the store's default placement.
	RackID  *uint
	ShelfID *uint
	UserID  *uint
}

// Receive credits every line of an open order to the order's store and
// marks it received. All lines land or none do.
func Receive(ctx context.Context, db *gorm.DB, in ReceiveInput) (*models.PurchaseOrder, string, error) {
	opID := uuid.NewString()
	var order models.PurchaseOrder

	err := database.WithTx(ctx, db, func(tx *gorm.DB) error {
		if err := loadOrder(tx, in.OrderID, &order); err != nil {
			return err
		}
		if order.Status != models.PurchaseOrderOpen {
			return ErrNotOpen
		}

		var placement *location.Placement
		if in.RackID != nil || in.ShelfID != nil {
			if in.RackID == nil || in.ShelfID == nil {
				return fmt.Errorf("%w: rack_id and shelf_id go together", location.ErrInvalidPlacement)
			}
			p := location.Placement{StoreID: order.StoreID, RackID: *in.RackID, ShelfID: *in.ShelfID}
			if err := p.Validate(tx); err != nil {
				return err
			}
			placement = &p
		}

		for _, l := range order.Lines {
			var err error
			if placement != nil {
				_, err = inventory.CreditAt(tx, *placement, l.ItemID, l.Quantity)
			} else {
				_, err = inventory.Credit(tx, l.ItemID, order.StoreID, l.Quantity)
			}
			if err != nil {
				return fmt.Errorf("receive item %d: %w", l.ItemID, err)
			}
			if _, err := inventory.AppendFlow(tx, models.FlowLogEntry{
				OperationID: opID,
				ItemID:      l.ItemID,
				StoreID:     order.StoreID,
				InFlow:      l.Quantity,
				Reason:      models.FlowReasonPurchaseReceive,
				UserID:      in.UserID,
			}); err != nil {
				return err
			}
		}

		now := time.Now()
		order.Status = models.PurchaseOrderReceived
		order.ReceivedAt = &now
		return tx.Model(&models.PurchaseOrder{}).Where("id = ?", order.ID).
			Updates(map[string]any{"status": order.Status, "received_at": now}).Error
	})

	switch {
	case err == nil:
		metrics.PurchaseReceipts.WithLabelValues("ok").Inc()
	case database.IsConflict(err):
		metrics.PurchaseReceipts.WithLabelValues("conflict").Inc()
	default:
		metrics.PurchaseReceipts.WithLabelValues("error").Inc()
	}
	if err != nil {
		return nil, "", err
	}
	return &order, opID, nil
}

// Cancel closes an open order without touching stock.
func Cancel(ctx context.Context, db *gorm.DB, orderID uint) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadOrder(tx, orderID, &order); err != nil {
			return err
		}
		if order.Status != models.PurchaseOrderOpen {
			return ErrNotOpen
		}
		order.Status = models.PurchaseOrderCancelled
		return tx.Model(&models.PurchaseOrder{}).Where("id = ?", order.ID).Update("status", order.Status).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func loadOrder(tx *gorm.DB, id uint, order *models.PurchaseOrder) error {
	err := tx.
		Preload("Supplier").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Lines.Item").
		First(order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("load purchase order: %w", err)
	}
	return nil
}
