package purchase

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"warehouse-backend/internal/database/dbtest"
	"warehouse-backend/internal/inventory"
	"warehouse-backend/internal/location"
	"warehouse-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newSupplier(t *testing.T, db *gorm.DB) models.Supplier {
	t.Helper()
	s := models.Supplier{Name: "Acme"}
	if err := db.Create(&s).Error; err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCreateOrder_Totals(t *testing.T) {
	db := dbtest.New(t)
	store := dbtest.Store(t, db, "Main", 1)
	sup := newSupplier(t, db)
	a := dbtest.Part(t, db, "A")
	b := dbtest.Part(t, db, "B")

	order, err := CreateOrder(context.Background(), db, OrderInput{
		SupplierID: sup.ID,
		StoreID:    store.ID,
		Lines: []LineInput{
			{ItemID: a.ID, Quantity: 3, UnitCost: decimal.RequireFromString("1.335")},
			{ItemID: b.ID, Quantity: 10, UnitCost: decimal.RequireFromString("0.10")},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != models.PurchaseOrderOpen || order.Number == "" {
		t.Errorf("unexpected order: %+v", order)
	}
	// 3 * 1.335 = 4.005 -> 4.01, 10 * 0.10 = 1.00
	if !order.Lines[0].LineTotal.Equal(decimal.RequireFromString("4.01")) {
		t.Errorf("unexpected first line total %s", order.Lines[0].LineTotal)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("5.01")) {
		t.Errorf("expected total 5.01, got %s", order.TotalAmount)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	db := dbtest.New(t)
	store := dbtest.Store(t, db, "Main", 1)
	sup := newSupplier(t, db)
	a := dbtest.Part(t, db, "A")
	one := decimal.NewFromInt(1)

	tests := []struct {
		name string
		in   OrderInput
		want error
	}{
		{"no lines", OrderInput{SupplierID: sup.ID, StoreID: store.ID}, ErrNoLines},
		{"zero quantity", OrderInput{SupplierID: sup.ID, StoreID: store.ID, Lines: []LineInput{{ItemID: a.ID, UnitCost: one}}}, ErrInvalidLine},
		{"negative cost", OrderInput{SupplierID: sup.ID, StoreID: store.ID, Lines: []LineInput{{ItemID: a.ID, Quantity: 1, UnitCost: one.Neg()}}}, ErrInvalidLine},
		{"unknown supplier", OrderInput{SupplierID: 999, StoreID: store.ID, Lines: []LineInput{{ItemID: a.ID, Quantity: 1, UnitCost: one}}}, ErrSupplierNotFound},
		{"unknown store", OrderInput{SupplierID: sup.ID, StoreID: 999, Lines: []LineInput{{ItemID: a.ID, Quantity: 1, UnitCost: one}}}, ErrStoreNotFound},
		{"unknown item", OrderInput{SupplierID: sup.ID, StoreID: store.ID, Lines: []LineInput{{ItemID: 999, Quantity: 1, UnitCost: one}}}, ErrItemNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CreateOrder(context.Background(), db, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	var n int64
	db.Model(&models.PurchaseOrder{}).Count(&n)
	if n != 0 {
		t.Errorf("expected no orders, got %d", n)
	}
}

func TestReceive_CreditsStockAndLogsFlow(t *testing.T) {
	db := dbtest.New(t)
	store := dbtest.Store(t, db, "Main", 2)
	sup := newSupplier(t, db)
	a := dbtest.Part(t, db, "A")
	b := dbtest.Part(t, db, "B")
	rack := store.Racks[0]
	dbtest.Stock(t, db, a.ID, store.ID, rack.ID, rack.Shelves[1].ID, 5)

	order, err := CreateOrder(context.Background(), db, OrderInput{
		SupplierID: sup.ID,
		StoreID:    store.ID,
		Lines: []LineInput{
			{ItemID: a.ID, Quantity: 4, UnitCost: decimal.NewFromInt(2)},
			{ItemID: b.ID, Quantity: 6, UnitCost: decimal.NewFromInt(3)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	received, opID, err := Receive(context.Background(), db, ReceiveInput{OrderID: order.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received.Status != models.PurchaseOrderReceived || received.ReceivedAt == nil {
		t.Errorf("unexpected order after receipt: %+v", received)
	}

	// A goes onto its existing record, B onto the default shelf.
	if got := dbtest.Quantities(t, db, a.ID, store.ID); !reflect.DeepEqual(got, []int{9}) {
		t.Errorf("A: expected [9], got %v", got)
	}
	var recB models.InventoryRecord
	db.Where("item_id = ?", b.ID).First(&recB)
	if recB.Quantity != 6 || recB.ShelfID != rack.Shelves[0].ID {
		t.Errorf("B: unexpected record %+v", recB)
	}

	var entries []models.FlowLogEntry
	db.Where("operation_id = ?", opID).Find(&entries)
	if len(entries) != 2 || entries[0].Reason != models.FlowReasonPurchaseReceive {
		t.Errorf("unexpected flow entries: %+v", entries)
	}

	if _, _, err := Receive(context.Background(), db, ReceiveInput{OrderID: order.ID}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("second receipt: expected ErrNotOpen, got %v", err)
	}
	if got := dbtest.Total(t, db, a.ID, store.ID); got != 9 {
		t.Errorf("stock changed by rejected receipt: %d", got)
	}
}

func TestReceive_AtPlacement(t *testing.T) {
	db := dbtest.New(t)
	store := dbtest.Store(t, db, "Main", 1, 1)
	other := dbtest.Store(t, db, "Other", 1)
	sup := newSupplier(t, db)
	a := dbtest.Part(t, db, "A")

	order, err := CreateOrder(context.Background(), db, OrderInput{
		SupplierID: sup.ID, StoreID: store.ID,
		Lines: []LineInput{{ItemID: a.ID, Quantity: 2, UnitCost: decimal.NewFromInt(1)}},
	})
	if err != nil {
		t.Fatal(err)
	}

	foreignRack, foreignShelf := other.Racks[0].ID, other.Racks[0].Shelves[0].ID
	_, _, err = Receive(context.Background(), db, ReceiveInput{OrderID: order.ID, RackID: &foreignRack, ShelfID: &foreignShelf})
	if !errors.Is(err, location.ErrInvalidPlacement) {
		t.Fatalf("expected ErrInvalidPlacement, got %v", err)
	}

	rackID, shelfID := store.Racks[1].ID, store.Racks[1].Shelves[0].ID
	if _, _, err := Receive(context.Background(), db, ReceiveInput{OrderID: order.ID, RackID: &rackID, ShelfID: &shelfID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var rec models.InventoryRecord
	db.Where("item_id = ?", a.ID).First(&rec)
	if rec.RackID != rackID || rec.ShelfID != shelfID || rec.Quantity != 2 {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestReceive_NoPlacementRollsBack(t *testing.T) {
	db := dbtest.New(t)
	store := dbtest.Store(t, db, "Bare")
	sup := newSupplier(t, db)
	a := dbtest.Part(t, db, "A")

	order, err := CreateOrder(context.Background(), db, OrderInput{
		SupplierID: sup.ID, StoreID: store.ID,
		Lines: []LineInput{{ItemID: a.ID, Quantity: 2, UnitCost: decimal.NewFromInt(1)}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := Receive(context.Background(), db, ReceiveInput{OrderID: order.ID}); !errors.Is(err, location.ErrNoPlacement) {
		t.Fatalf("expected ErrNoPlacement, got %v", err)
	}
	var reloaded models.PurchaseOrder
	db.First(&reloaded, order.ID)
	if reloaded.Status != models.PurchaseOrderOpen {
		t.Errorf("expected order to stay open, got %s", reloaded.Status)
	}
}

func TestReceive_OverflowingStockIsInvalid(t *testing.T) {
	db := dbtest.New(t)
	store := dbtest.Store(t, db, "Main", 1)
	sup := newSupplier(t, db)
	a := dbtest.Part(t, db, "A")
	rack := store.Racks[0]
	dbtest.Stock(t, db, a.ID, store.ID, rack.ID, rack.Shelves[0].ID, math.MaxInt-2)

	order, err := CreateOrder(context.Background(), db, OrderInput{
		SupplierID: sup.ID, StoreID: store.ID,
		Lines: []LineInput{{ItemID: a.ID, Quantity: 10, UnitCost: decimal.NewFromInt(1)}},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = Receive(context.Background(), db, ReceiveInput{OrderID: order.ID})
	if !errors.Is(err, inventory.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	var fe *fiber.Error
	if !errors.As(toHTTPError(err), &fe) || fe.Code != fiber.StatusBadRequest {
		t.Errorf("expected a 400 error, got %v", toHTTPError(err))
	}

	if got := dbtest.Quantities(t, db, a.ID, store.ID); !reflect.DeepEqual(got, []int{math.MaxInt - 2}) {
		t.Errorf("stock changed: %v", got)
	}
	var reloaded models.PurchaseOrder
	db.First(&reloaded, order.ID)
	if reloaded.Status != models.PurchaseOrderOpen {
		t.Errorf("expected order to stay open, got %s", reloaded.Status)
	}
}

func TestCancel(t *testing.T) {
	db := dbtest.New(t)
	store := dbtest.Store(t, db, "Main", 1)
	sup := newSupplier(t, db)
	a := dbtest.Part(t, db, "A")

	order, err := CreateOrder(context.Background(), db, OrderInput{
		SupplierID: sup.ID, StoreID: store.ID,
		Lines: []LineInput{{ItemID: a.ID, Quantity: 1, UnitCost: decimal.NewFromInt(1)}},
	})
	if err != nil {
		t.Fatal(err)
	}
	cancelled, err := Cancel(context.Background(), db, order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != models.PurchaseOrderCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
	if _, _, err := Receive(context.Background(), db, ReceiveInput{OrderID: order.ID}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("receiving a cancelled order: expected ErrNotOpen, got %v", err)
	}
	if _, err := Cancel(context.Background(), db, 999); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}
