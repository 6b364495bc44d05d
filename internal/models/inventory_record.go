package models

import "time"

// InventoryRecord: stock of one item at a store/rack/shelf placement.
// Quantity never goes below zero.
type InventoryRecord struct {
	ID        uint `gorm:"primaryKey"`
	ItemID    uint `gorm:"not null;uniqueIndex:idx_inventory_placement;index"`
	Item      Item
	StoreID   uint `gorm:"not null;uniqueIndex:idx_inventory_placement;index"`
	Store     Store
	RackID    uint `gorm:"not null;uniqueIndex:idx_inventory_placement"`
	Rack      Rack
	ShelfID   uint `gorm:"not null;uniqueIndex:idx_inventory_placement"`
	Shelf     Shelf
	Quantity  int `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
