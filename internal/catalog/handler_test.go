package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/auth"
	"warehouse-backend/internal/database/dbtest"
	"warehouse-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func newTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()
	admin := models.User{Name: "Admin", Email: "admin@example.com", PasswordHash: "x", Role: models.RoleAdmin}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatal(err)
	}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, admin.ID)
		c.Locals(auth.CtxUserRoleKey, models.RoleAdmin)
		return c.Next()
	})
	app.Get("/brands", ListNamedHandler(db, Brands))
	app.Post("/brands", CreateNamedHandler(db, Brands))
	app.Put("/brands/:id", UpdateNamedHandler(db, Brands))
	app.Delete("/brands/:id", DeleteNamedHandler(db, Brands))
	app.Get("/items", ListItemsHandler(db))
	app.Post("/items", CreateItemHandler(db))
	app.Get("/items/:id", GetItemHandler(db))
	app.Put("/items/:id", UpdateItemHandler(db))
	app.Put("/items/:id/components", ReplaceComponentsHandler(db))
	app.Delete("/items/:id", DeleteItemHandler(db))
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func TestBrandHandlers_LifecycleAndUndo(t *testing.T) {
	db := dbtest.New(t)
	app := newTestApp(t, db)

	status, body := do(t, app, "POST", "/brands", `{"name":" Bosch "}`)
	if status != fiber.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", status, body)
	}
	var brand NamedResponse
	_ = json.Unmarshal(body, &brand)
	if brand.Name != "Bosch" {
		t.Errorf("expected trimmed name, got %q", brand.Name)
	}

	if status, _ := do(t, app, "POST", "/brands", `{"name":"Bosch"}`); status != fiber.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", status)
	}

	if status, body := do(t, app, "PUT", fmt.Sprintf("/brands/%d", brand.ID), `{"name":"Bosch GmbH"}`); status != fiber.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", status, body)
	}

	var logs []models.AuditLog
	db.Where("entity_type = ?", "brand").Order("id ASC").Find(&logs)
	if len(logs) != 2 || logs[1].Action != models.AuditActionUpdate {
		t.Fatalf("unexpected audit logs: %+v", logs)
	}
	if err := audit.UndoLog(db, logs[1].ID, 1, "Admin"); err != nil {
		t.Fatalf("undo rename: %v", err)
	}
	var restored models.Brand
	db.First(&restored, brand.ID)
	if restored.Name != "Bosch" {
		t.Errorf("expected undo to restore the name, got %q", restored.Name)
	}

	status, body = do(t, app, "GET", "/brands?q=bos", "")
	var list []NamedResponse
	_ = json.Unmarshal(body, &list)
	if status != fiber.StatusOK || len(list) != 1 {
		t.Errorf("list: got %d %s", status, body)
	}
}

func TestDeleteBrand_InUse(t *testing.T) {
	db := dbtest.New(t)
	app := newTestApp(t, db)

	brand := models.Brand{Name: "Bosch"}
	db.Create(&brand)
	item := models.Item{Name: "Filter", Type: models.ItemTypePart, Unit: "pcs", BrandID: &brand.ID}
	db.Create(&item)

	if status, _ := do(t, app, "DELETE", fmt.Sprintf("/brands/%d", brand.ID), ""); status != fiber.StatusConflict {
		t.Errorf("expected 409, got %d", status)
	}

	db.Delete(&item)
	if status, body := do(t, app, "DELETE", fmt.Sprintf("/brands/%d", brand.ID), ""); status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var log models.AuditLog
	db.Where("entity_type = ? AND action = ?", "brand", models.AuditActionDelete).First(&log)
	if err := audit.UndoLog(db, log.ID, 1, "Admin"); err != nil {
		t.Fatalf("undo delete: %v", err)
	}
	var count int64
	db.Model(&models.Brand{}).Where("id = ?", brand.ID).Count(&count)
	if count != 1 {
		t.Error("expected undo to recreate the brand")
	}
}

func TestItemHandlers_KitWithRecipe(t *testing.T) {
	db := dbtest.New(t)
	app := newTestApp(t, db)
	a := dbtest.Part(t, db, "A")
	b := dbtest.Part(t, db, "B")

	body := fmt.Sprintf(`{"name":"Kit","type":"kit","part_number":"K-1","components":[{"item_id":%d,"quantity_per_kit":2},{"item_id":%d,"quantity_per_kit":1}]}`, a.ID, b.ID)
	status, data := do(t, app, "POST", "/items", body)
	if status != fiber.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", status, data)
	}
	var kit ItemResponse
	_ = json.Unmarshal(data, &kit)
	if kit.Type != models.ItemTypeKit || len(kit.Components) != 2 || kit.Components[0].ItemID != a.ID {
		t.Fatalf("unexpected kit: %+v", kit)
	}

	status, data = do(t, app, "PUT", fmt.Sprintf("/items/%d/components", kit.ID),
		fmt.Sprintf(`{"components":[{"item_id":%d,"quantity_per_kit":5}]}`, b.ID))
	if status != fiber.StatusOK {
		t.Fatalf("replace: expected 200, got %d: %s", status, data)
	}
	_ = json.Unmarshal(data, &kit)
	if len(kit.Components) != 1 || kit.Components[0].QuantityPerKit != 5 {
		t.Errorf("unexpected recipe: %+v", kit.Components)
	}

	if status, _ := do(t, app, "PUT", fmt.Sprintf("/items/%d", kit.ID), `{"type":"part"}`); status != fiber.StatusBadRequest {
		t.Errorf("kit with components turned into part: got %d", status)
	}
	if status, _ := do(t, app, "PUT", fmt.Sprintf("/items/%d/components", a.ID), fmt.Sprintf(`{"components":[{"item_id":%d,"quantity_per_kit":1}]}`, b.ID)); status != fiber.StatusBadRequest {
		t.Errorf("recipe on a part: got %d", status)
	}
	if status, _ := do(t, app, "DELETE", fmt.Sprintf("/items/%d", b.ID), ""); status != fiber.StatusConflict {
		t.Errorf("deleting a recipe component: got %d", status)
	}
	if status, _ := do(t, app, "DELETE", fmt.Sprintf("/items/%d", kit.ID), ""); status != fiber.StatusOK {
		t.Errorf("deleting the kit: got %d", status)
	}
	var comps int64
	db.Model(&models.KitComponent{}).Count(&comps)
	if comps != 0 {
		t.Errorf("expected recipe rows to be removed, %d left", comps)
	}
}

func TestListItemsHandler_Filters(t *testing.T) {
	db := dbtest.New(t)
	app := newTestApp(t, db)
	a := dbtest.Part(t, db, "Oil filter")
	dbtest.Part(t, db, "Spark plug")
	dbtest.Kit(t, db, "Oil service kit", dbtest.KitLine{ItemID: a.ID, QuantityPerKit: 1})

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?type=kit", 1},
		{"?type=part", 2},
		{"?q=OIL", 2},
		{"?type=part&q=oil", 1},
		{"?page=2&page_size=2", 1},
	}
	for _, tt := range tests {
		status, data := do(t, app, "GET", "/items"+tt.query, "")
		var items []ItemResponse
		_ = json.Unmarshal(data, &items)
		if status != fiber.StatusOK || len(items) != tt.want {
			t.Errorf("%q: expected %d items, got %d (%d)", tt.query, tt.want, len(items), status)
		}
	}

	if status, _ := do(t, app, "GET", "/items?type=gadget", ""); status != fiber.StatusBadRequest {
		t.Errorf("bad type: expected 400, got %d", status)
	}
}
