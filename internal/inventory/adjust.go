package inventory

import (
	"context"
	"errors"
	"fmt"

	"warehouse-backend/internal/database"
	"warehouse-backend/internal/location"
	"warehouse-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrRecordNotFound = errors.New("inventory record not found")

// AdjustInput sets the counted quantity of one record. Either RecordID or the
// full placement plus ItemID identifies it; a placement without a record
// creates one.
type AdjustInput struct {
	RecordID  *uint
	ItemID    uint
	Placement location.Placement
	Quantity  int
	UserID    *uint
}

// Adjust overwrites a record's quantity with a stock count and logs the
// difference as an adjustment flow. A count equal to the current quantity
// writes nothing and returns a nil entry.
func Adjust(ctx context.Context, db *gorm.DB, in AdjustInput) (*models.InventoryRecord, *models.FlowLogEntry, error) {
	if in.Quantity < 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, in.Quantity)
	}

	var (
		rec   models.InventoryRecord
		entry *models.FlowLogEntry
	)
	err := database.WithTx(ctx, db, func(tx *gorm.DB) error {
		if in.RecordID != nil {
			err := tx.First(&rec, "id = ?", *in.RecordID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			if err != nil {
				return fmt.Errorf("load inventory record: %w", err)
			}
		} else {
			if err := in.Placement.Validate(tx); err != nil {
				return err
			}
			var n int64
			if err := tx.Model(&models.Item{}).Where("id = ?", in.ItemID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("item %d: %w", in.ItemID, gorm.ErrRecordNotFound)
			}
			err := tx.Where(models.InventoryRecord{
				ItemID:  in.ItemID,
				StoreID: in.Placement.StoreID,
				RackID:  in.Placement.RackID,
				ShelfID: in.Placement.ShelfID,
			}).FirstOrCreate(&rec).Error
			if err != nil {
				return fmt.Errorf("load inventory record: %w", err)
			}
		}

		diff := in.Quantity - rec.Quantity
		if diff == 0 {
			return nil
		}
		if err := setQuantity(tx, &rec, in.Quantity); err != nil {
			return err
		}

		flow := models.FlowLogEntry{
			OperationID: uuid.NewString(),
			ItemID:      rec.ItemID,
			StoreID:     rec.StoreID,
			Reason:      models.FlowReasonAdjustment,
			UserID:      in.UserID,
		}
		if diff > 0 {
			flow.InFlow = diff
		} else {
			flow.OutFlow = -diff
		}
		var err error
		entry, err = AppendFlow(tx, flow)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &rec, entry, nil
}
