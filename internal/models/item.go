package models

import "time"

type ItemType string

const (
	ItemTypePart ItemType = "part"
	ItemTypeKit  ItemType = "kit"
)

// Item: catalog entry, either a simple part or a kit
type Item struct {
	ID         uint     `gorm:"primaryKey"`
	Name       string   `gorm:"size:150;not null;unique"`
	PartNumber *string  `gorm:"size:60;uniqueIndex"`
	Type       ItemType `gorm:"size:10;not null;default:part;index"`
	Unit       string   `gorm:"size:20;not null;default:pcs"` // pcs, box, kg ...
	BrandID    *uint    `gorm:"index"`
	Brand      *Brand
	MakeID     *uint `gorm:"index"`
	Make       *Make
	CategoryID *uint `gorm:"index"`
	Category   *Category
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Only kits carry a recipe.
	Components []KitComponent `gorm:"foreignKey:KitID;constraint:OnDelete:CASCADE"`
}

func (i Item) IsKit() bool { return i.Type == ItemTypeKit }

// KitComponent: one recipe line of a kit
type KitComponent struct {
	ID             uint `gorm:"primaryKey"`
	KitID          uint `gorm:"not null;uniqueIndex:idx_kit_component"`
	ItemID         uint `gorm:"not null;uniqueIndex:idx_kit_component;index"`
	Item           Item `gorm:"foreignKey:ItemID;constraint:OnDelete:RESTRICT"`
	QuantityPerKit int  `gorm:"not null"`
	Position       int  `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
