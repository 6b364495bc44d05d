package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseOrderStatus string

const (
	PurchaseOrderOpen      PurchaseOrderStatus = "open"
	PurchaseOrderReceived  PurchaseOrderStatus = "received"
	PurchaseOrderCancelled PurchaseOrderStatus = "cancelled"
)

// PurchaseOrder: order placed with a supplier, credited to stock on receipt
type PurchaseOrder struct {
	ID          uint   `gorm:"primaryKey"`
	Number      string `gorm:"size:40;not null;uniqueIndex"`
	SupplierID  uint   `gorm:"index;not null"`
	Supplier    Supplier
	StoreID     uint `gorm:"index;not null"`
	Store       Store
	Status      PurchaseOrderStatus `gorm:"size:20;not null;default:open;index"`
	Note        string              `gorm:"size:255"`
	TotalAmount decimal.Decimal     `gorm:"type:numeric(14,2);not null"`
	ReceivedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Lines []PurchaseOrderLine `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE"`
}

type PurchaseOrderLine struct {
	ID              uint `gorm:"primaryKey"`
	PurchaseOrderID uint `gorm:"index;not null"`
	ItemID          uint `gorm:"index;not null"`
	Item            Item
	Quantity        int             `gorm:"not null"`
	UnitCost        decimal.Decimal `gorm:"type:numeric(14,4);not null"`
	LineTotal       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
