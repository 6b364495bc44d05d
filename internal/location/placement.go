package location

import (
	"errors"
	"fmt"

	"warehouse-backend/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrNoPlacement: the store has no rack with a shelf to put new stock on.
	ErrNoPlacement      = errors.New("store has no rack/shelf defined")
	ErrInvalidPlacement = errors.New("invalid placement")
)

type Placement struct {
	StoreID uint
	RackID  uint
	ShelfID uint
}

// DefaultPlacement returns the first rack (by id) of the store that has a
// shelf, and the first shelf on it. New stock records land there.
func DefaultPlacement(db *gorm.DB, storeID uint) (Placement, error) {
	var shelf models.Shelf
	err := db.
		Joins("JOIN racks ON racks.id = shelves.rack_id").
		Where("racks.store_id = ?", storeID).
		Order("racks.id ASC, shelves.id ASC").
		First(&shelf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Placement{}, fmt.Errorf("store %d: %w", storeID, ErrNoPlacement)
	}
	if err != nil {
		return Placement{}, fmt.Errorf("find default placement: %w", err)
	}
	return Placement{StoreID: storeID, RackID: shelf.RackID, ShelfID: shelf.ID}, nil
}

// Validate checks that shelf belongs to rack and rack belongs to store.
func (p Placement) Validate(db *gorm.DB) error {
	var count int64
	err := db.Model(&models.Shelf{}).
		Joins("JOIN racks ON racks.id = shelves.rack_id").
		Where("shelves.id = ? AND racks.id = ? AND racks.store_id = ?", p.ShelfID, p.RackID, p.StoreID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("validate placement: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: shelf %d is not on rack %d of store %d", ErrInvalidPlacement, p.ShelfID, p.RackID, p.StoreID)
	}
	return nil
}
