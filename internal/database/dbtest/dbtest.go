// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"warehouse-backend/internal/database"
	"warehouse-backend/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a migrated in-memory database private to t.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Store creates a store with one rack per entry in shelvesPerRack, each
// holding that many shelves. Racks are named R1..Rn, shelves S1..Sn.
func Store(t *testing.T, db *gorm.DB, name string, shelvesPerRack ...int) models.Store {
	t.Helper()

	store := models.Store{Name: name}
	if err := db.Create(&store).Error; err != nil {
		t.Fatalf("create store: %v", err)
	}
	for i, n := range shelvesPerRack {
		rack := models.Rack{StoreID: store.ID, Name: fmt.Sprintf("R%d", i+1)}
		if err := db.Create(&rack).Error; err != nil {
			t.Fatalf("create rack: %v", err)
		}
		for j := 0; j < n; j++ {
			shelf := models.Shelf{RackID: rack.ID, Name: fmt.Sprintf("S%d", j+1)}
			if err := db.Create(&shelf).Error; err != nil {
				t.Fatalf("create shelf: %v", err)
			}
			rack.Shelves = append(rack.Shelves, shelf)
		}
		store.Racks = append(store.Racks, rack)
	}
	return store
}

func Part(t *testing.T, db *gorm.DB, name string) models.Item {
	t.Helper()
	item := models.Item{Name: name, Type: models.ItemTypePart, Unit: "pcs"}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create part: %v", err)
	}
	return item
}

// Kit creates a kit item whose recipe lists the given (item, quantity per kit) pairs in order.
func Kit(t *testing.T, db *gorm.DB, name string, lines ...KitLine) models.Item {
	t.Helper()
	kit := models.Item{Name: name, Type: models.ItemTypeKit, Unit: "pcs"}
	if err := db.Create(&kit).Error; err != nil {
		t.Fatalf("create kit: %v", err)
	}
	for i, l := range lines {
		comp := models.KitComponent{KitID: kit.ID, ItemID: l.ItemID, QuantityPerKit: l.QuantityPerKit, Position: i}
		if err := db.Create(&comp).Error; err != nil {
			t.Fatalf("create kit component: %v", err)
		}
		kit.Components = append(kit.Components, comp)
	}
	return kit
}

type KitLine struct {
	ItemID         uint
	QuantityPerKit int
}

// Stock places qty units of item on the given shelf.
func Stock(t *testing.T, db *gorm.DB, itemID, storeID, rackID, shelfID uint, qty int) models.InventoryRecord {
	t.Helper()
	rec := models.InventoryRecord{ItemID: itemID, StoreID: storeID, RackID: rackID, ShelfID: shelfID, Quantity: qty}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("create inventory record: %v", err)
	}
	return rec
}

// Quantities returns the record quantities of item at store, ordered by id.
func Quantities(t *testing.T, db *gorm.DB, itemID, storeID uint) []int {
	t.Helper()
	var recs []models.InventoryRecord
	if err := db.Where("item_id = ? AND store_id = ?", itemID, storeID).Order("id ASC").Find(&recs).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	out := make([]int, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Quantity)
	}
	return out
}

func Total(t *testing.T, db *gorm.DB, itemID, storeID uint) int {
	t.Helper()
	sum := 0
	for _, q := range Quantities(t, db, itemID, storeID) {
		sum += q
	}
	return sum
}
