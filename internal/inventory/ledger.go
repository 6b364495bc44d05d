package inventory

import (
	"fmt"

	"warehouse-backend/internal/location"
	"warehouse-backend/internal/models"

	"gorm.io/gorm"
)

// All functions here expect tx to be an open transaction; they never commit.

// Records loads the item's records at the store, oldest first.
func Records(tx *gorm.DB, itemID, storeID uint) ([]models.InventoryRecord, error) {
	var recs []models.InventoryRecord
	if err := tx.
		Where("item_id = ? AND store_id = ?", itemID, storeID).
		Order("id ASC").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load inventory of item %d: %w", itemID, err)
	}
	return recs, nil
}

func Total(recs []models.InventoryRecord) int {
	return sum(quantities(recs))
}

// OnHand returns the total quantity of each item at the store. Items without
// records are absent from the map.
func OnHand(db *gorm.DB, storeID uint, itemIDs []uint) (map[uint]int, error) {
	type row struct {
		ItemID uint
		Total  int
	}
	var rows []row
	err := db.Model(&models.InventoryRecord{}).
		Select("item_id, SUM(quantity) AS total").
		Where("store_id = ? AND item_id IN ?", storeID, itemIDs).
		Group("item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sum inventory: %w", err)
	}
	out := make(map[uint]int, len(rows))
	for _, r := range rows {
		out[r.ItemID] = r.Total
	}
	return out, nil
}

func quantities(recs []models.InventoryRecord) []int {
	q := make([]int, len(recs))
	for i, r := range recs {
		q[i] = r.Quantity
	}
	return q
}

// Consume takes qty units from recs in listed order. recs are updated in
// place. Nothing is written when the total is short.
func Consume(tx *gorm.DB, recs []models.InventoryRecord, qty int) error {
	take, err := planConsume(quantities(recs), qty)
	if err != nil {
		return err
	}
	for i := range recs {
		if take[i] == 0 {
			continue
		}
		if err := setQuantity(tx, &recs[i], recs[i].Quantity-take[i]); err != nil {
			return err
		}
	}
	return nil
}

// Distribute returns qty units of item to the store, spread over existing
// records in proportion to what each already holds. With no record a new one
// is created at the store's default placement.
func Distribute(tx *gorm.DB, itemID, storeID uint, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	recs, err := Records(tx, itemID, storeID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		_, err := createAtDefault(tx, itemID, storeID, qty)
		return err
	}

	credit := planDistribute(quantities(recs), qty)
	for i := range recs {
		if credit[i] == 0 {
			continue
		}
		next, err := add(recs[i].Quantity, credit[i])
		if err != nil {
			return err
		}
		if err := setQuantity(tx, &recs[i], next); err != nil {
			return err
		}
	}
	return nil
}

// Credit adds qty units of item to its first record at the store, creating
// one at the default placement if the store holds none.
func Credit(tx *gorm.DB, itemID, storeID uint, qty int) (*models.InventoryRecord, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	recs, err := Records(tx, itemID, storeID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return createAtDefault(tx, itemID, storeID, qty)
	}
	rec := recs[0]
	next, err := add(rec.Quantity, qty)
	if err != nil {
		return nil, err
	}
	if err := setQuantity(tx, &rec, next); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreditAt adds qty units at an explicit placement, creating the record if needed.
func CreditAt(tx *gorm.DB, p location.Placement, itemID uint, qty int) (*models.InventoryRecord, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	var rec models.InventoryRecord
	err := tx.
		Where(models.InventoryRecord{ItemID: itemID, StoreID: p.StoreID, RackID: p.RackID, ShelfID: p.ShelfID}).
		FirstOrCreate(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("load inventory record: %w", err)
	}
	next, err := add(rec.Quantity, qty)
	if err != nil {
		return nil, err
	}
	if err := setQuantity(tx, &rec, next); err != nil {
		return nil, err
	}
	return &rec, nil
}

func createAtDefault(tx *gorm.DB, itemID, storeID uint, qty int) (*models.InventoryRecord, error) {
	p, err := location.DefaultPlacement(tx, storeID)
	if err != nil {
		return nil, err
	}
	rec := models.InventoryRecord{
		ItemID:   itemID,
		StoreID:  storeID,
		RackID:   p.RackID,
		ShelfID:  p.ShelfID,
		Quantity: qty,
	}
	if err := tx.Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("create inventory record: %w", err)
	}
	return &rec, nil
}

func setQuantity(tx *gorm.DB, rec *models.InventoryRecord, qty int) error {
	if qty < 0 {
		return fmt.Errorf("inventory record %d would go negative (%d)", rec.ID, qty)
	}
	if err := tx.Model(&models.InventoryRecord{}).
		Where("id = ?", rec.ID).
		Update("quantity", qty).Error; err != nil {
		return fmt.Errorf("update inventory record %d: %w", rec.ID, err)
	}
	rec.Quantity = qty
	return nil
}

// AppendFlow writes one flow log entry.
func AppendFlow(tx *gorm.DB, entry models.FlowLogEntry) (*models.FlowLogEntry, error) {
	if entry.InFlow < 0 || entry.OutFlow < 0 {
		return nil, fmt.Errorf("flow quantities must not be negative")
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("write flow log: %w", err)
	}
	return &entry, nil
}
