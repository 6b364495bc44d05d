package supplier

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
	"github.com/shopspring/decimal"
)

func TestSupplierHandlers(t *testing.T) {
	db := dbtest.New(t)
	admin := models.User{Name: "Admin", Email: "a@example.com", PasswordHash: "x", Role: models.RoleAdmin}
	db.Create(&admin)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, admin.ID)
		c.Locals(auth.CtxUserRoleKey, models.RoleAdmin)
		return c.Next()
	})
	app.Get("/suppliers", ListSuppliersHandler(db))
	app.Post("/suppliers", CreateSupplierHandler(db))
	app.Put("/suppliers/:id", UpdateSupplierHandler(db))
	app.Delete("/suppliers/:id", DeleteSupplierHandler(db))

	call := func(method, path, body string) (int, []byte) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, data
	}

	status, data := call("POST", "/suppliers", `{"name":"Acme Parts","email":"sales@acme.test"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", status, data)
	}
	var s SupplierResponse
	_ = json.Unmarshal(data, &s)

	if status, _ := call("POST", "/suppliers", `{"name":""}`); status != fiber.StatusBadRequest {
		t.Errorf("empty name: expected 400, got %d", status)
	}
	if status, _ := call("POST", "/suppliers", `{"name":"Acme Parts"}`); status != fiber.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", status)
	}

	status, data = call("PUT", fmt.Sprintf("/suppliers/%d", s.ID), `{"phone":"555-0100"}`)
	if status != fiber.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", status, data)
	}
	_ = json.Unmarshal(data, &s)
	if s.Phone != "555-0100" || s.Email != "sales@acme.test" {
		t.Errorf("unexpected supplier after update: %+v", s)
	}

	var upd models.AuditLog
	db.Where("entity_type = ? AND action = ?", "supplier", models.AuditActionUpdate).First(&upd)
	if err := audit.UndoLog(db, upd.ID, admin.ID, admin.Name); err != nil {
		t.Fatalf("undo: %v", err)
	}
	var reverted models.Supplier
	db.First(&reverted, s.ID)
	if reverted.Phone != "" {
		t.Errorf("expected phone to be reverted, got %q", reverted.Phone)
	}

	store := dbtest.Store(t, db, "Main", 1)
	db.Create(&models.PurchaseOrder{Number: "PO-1", SupplierID: s.ID, StoreID: store.ID, Status: models.PurchaseOrderOpen, TotalAmount: decimal.Zero})
	if status, _ := call("DELETE", fmt.Sprintf("/suppliers/%d", s.ID), ""); status != fiber.StatusConflict {
		t.Errorf("delete with orders: expected 409, got %d", status)
	}

	status, data = call("GET", "/suppliers?q=acme", "")
	var list []SupplierResponse
	_ = json.Unmarshal(data, &list)
	if status != fiber.StatusOK || len(list) != 1 {
		t.Errorf("list: got %d %s", status, data)
	}
}
