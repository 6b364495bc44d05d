package models

import "time"

type FlowReason string

const (
	FlowReasonMakeKit         FlowReason = "make_kit"
	FlowReasonBreakKit        FlowReason = "break_kit"
	FlowReasonPurchaseReceive FlowReason = "purchase_receive"
	FlowReasonAdjustment      FlowReason = "adjustment"
)

// FlowLogEntry: append-only stock movement record, never updated or deleted.
type FlowLogEntry struct {
	ID          uint       `gorm:"primaryKey"`
	OperationID string     `gorm:"size:36;index;not null"`
	ItemID      uint       `gorm:"index;not null"`
	Item        Item
	StoreID     uint `gorm:"index;not null"`
	Store       Store
	InFlow      int        `gorm:"not null;default:0"`
	OutFlow     int        `gorm:"not null;default:0"`
	Reason      FlowReason `gorm:"size:30;not null;index"`
	UserID      *uint
	CreatedAt   time.Time `gorm:"index"`
}
