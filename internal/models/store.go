package models

import "time"

type Store struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;unique"`
	Address   string `gorm:"size:255"`
	Phone     string `gorm:"size:50"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Racks []Rack `gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE"`
}

type Rack struct {
	ID        uint   `gorm:"primaryKey"`
	StoreID   uint   `gorm:"not null;uniqueIndex:idx_rack_store_name"`
	Name      string `gorm:"size:50;not null;uniqueIndex:idx_rack_store_name"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Shelves []Shelf `gorm:"foreignKey:RackID;constraint:OnDelete:CASCADE"`
}

type Shelf struct {
	ID        uint   `gorm:"primaryKey"`
	RackID    uint   `gorm:"not null;uniqueIndex:idx_shelf_rack_name"`
	Name      string `gorm:"size:50;not null;uniqueIndex:idx_shelf_rack_name"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
