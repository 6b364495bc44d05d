package kit

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"warehouse-backend/internal/auth"
	"warehouse-backend/internal/database/dbtest"
	"warehouse-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func newTestApp(a *Allocator, role models.UserRole, storeID *uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, uint(1))
		c.Locals(auth.CtxUserRoleKey, role)
		c.Locals(auth.CtxStoreIDKey, storeID)
		return c.Next()
	})
	app.Post("/api/kits/makeKit", MakeKitHandler(a))
	app.Post("/api/kits/breakKit", BreakKitHandler(a))
	app.Get("/api/kits/viewKits", ViewKitsHandler(a))
	return app
}

func post(t *testing.T, app *fiber.App, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func TestMakeKitHandler(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.partA, 0, 10)
	f.stock(t, f.partB, 0, 3)
	app := newTestApp(newAllocator(f.db), models.RoleAdmin, nil)

	status, body := post(t, app, "/api/kits/makeKit",
		fmt.Sprintf(`{"kit_id":%d,"store_id":%d,"in_flow":3,"out_flow":0}`, f.kit.ID, f.store.ID))
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var resp OperationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.KitQuantity != 3 || resp.OperationID == "" {
		t.Errorf("unexpected response: %+v", resp)
	}

	var entry models.FlowLogEntry
	if err := f.db.First(&entry).Error; err != nil {
		t.Fatalf("load flow entry: %v", err)
	}
	if entry.UserID == nil || *entry.UserID != 1 {
		t.Errorf("expected flow entry to carry user 1, got %v", entry.UserID)
	}
}

func TestKitHandlers_StatusCodes(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.partA, 0, 10)
	f.stock(t, f.partB, 0, 2)
	bare := dbtest.Store(t, f.db, "Bare")
	app := newTestApp(newAllocator(f.db), models.RoleAdmin, nil)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"malformed body", "/api/kits/makeKit", `{`, fiber.StatusBadRequest},
		{"missing in_flow", "/api/kits/makeKit", fmt.Sprintf(`{"kit_id":%d,"store_id":%d}`, f.kit.ID, f.store.ID), fiber.StatusBadRequest},
		{"in_flow overflows recipe", "/api/kits/makeKit", fmt.Sprintf(`{"kit_id":%d,"store_id":%d,"in_flow":4611686018427387905}`, f.kit.ID, f.store.ID), fiber.StatusBadRequest},
		{"zero in_flow", "/api/kits/makeKit", fmt.Sprintf(`{"kit_id":%d,"store_id":%d,"in_flow":0}`, f.kit.ID, f.store.ID), fiber.StatusBadRequest},
		{"missing store", "/api/kits/makeKit", fmt.Sprintf(`{"kit_id":%d,"in_flow":1}`, f.kit.ID), fiber.StatusBadRequest},
		{"unknown kit", "/api/kits/makeKit", fmt.Sprintf(`{"kit_id":999,"store_id":%d,"in_flow":1}`, f.store.ID), fiber.StatusNotFound},
		{"part is not a kit", "/api/kits/makeKit", fmt.Sprintf(`{"kit_id":%d,"store_id":%d,"in_flow":1}`, f.partA.ID, f.store.ID), fiber.StatusBadRequest},
		{"short component", "/api/kits/makeKit", fmt.Sprintf(`{"kit_id":%d,"store_id":%d,"in_flow":3}`, f.kit.ID, f.store.ID), fiber.StatusConflict},
		{"short kit", "/api/kits/breakKit", fmt.Sprintf(`{"kit_id":%d,"store_id":%d,"out_flow":1}`, f.kit.ID, f.store.ID), fiber.StatusConflict},
		{"missing out_flow", "/api/kits/breakKit", fmt.Sprintf(`{"kit_id":%d,"store_id":%d,"in_flow":1}`, f.kit.ID, f.store.ID), fiber.StatusBadRequest},
		{"unknown store", "/api/kits/breakKit", fmt.Sprintf(`{"kit_id":%d,"store_id":999,"out_flow":1}`, f.kit.ID), fiber.StatusNotFound},
		{"nothing stocked at store", "/api/kits/makeKit", fmt.Sprintf(`{"kit_id":%d,"store_id":%d,"in_flow":1}`, f.kit.ID, bare.ID), fiber.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, body := post(t, app, tt.path, tt.body); status != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, status, body)
			}
		})
	}
}

func TestMakeKitHandler_MissingPlacement(t *testing.T) {
	db := dbtest.New(t)
	bare := dbtest.Store(t, db, "Bare")
	other := dbtest.Store(t, db, "Other", 1)
	part := dbtest.Part(t, db, "PartA")
	kit := dbtest.Kit(t, db, "K", dbtest.KitLine{ItemID: part.ID, QuantityPerKit: 1})
	dbtest.Stock(t, db, part.ID, bare.ID, other.Racks[0].ID, other.Racks[0].Shelves[0].ID, 5)
	app := newTestApp(newAllocator(db), models.RoleAdmin, nil)

	status, body := post(t, app, "/api/kits/makeKit",
		fmt.Sprintf(`{"kit_id":%d,"store_id":%d,"in_flow":1}`, kit.ID, bare.ID))
	if status != fiber.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d: %s", status, body)
	}
}

func TestKitHandlers_StoreManagerPinnedToOwnStore(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.partA, 0, 10)
	f.stock(t, f.partB, 0, 3)
	own := f.store.ID
	app := newTestApp(newAllocator(f.db), models.RoleStoreManager, &own)

	status, body := post(t, app, "/api/kits/makeKit", fmt.Sprintf(`{"kit_id":%d,"in_flow":1}`, f.kit.ID))
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 without store_id, got %d: %s", status, body)
	}

	status, _ = post(t, app, "/api/kits/makeKit", fmt.Sprintf(`{"kit_id":%d,"store_id":%d,"in_flow":1}`, f.kit.ID, own+1))
	if status != fiber.StatusForbidden {
		t.Errorf("expected 403 for a foreign store, got %d", status)
	}
}

func TestViewKitsHandler(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.partA, 0, 4)
	f.stock(t, f.partB, 0, 1)
	app := newTestApp(newAllocator(f.db), models.RoleAdmin, nil)

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/kits/viewKits?id=%d&store_id=%d", f.kit.ID, f.store.ID), nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var view View
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.Buildable != 1 || len(view.Components) != 2 {
		t.Errorf("unexpected view: %+v", view)
	}

	req = httptest.NewRequest("GET", fmt.Sprintf("/api/kits/viewKits?store_id=%d", f.store.ID), nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400 without id, got %d", resp.StatusCode)
	}
}
