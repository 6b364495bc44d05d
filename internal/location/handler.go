package location

import (
	"errors"
	"strings"

	"warehouse-backend/internal/database"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/query"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type StoreRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type NameRequest struct {
	Name string `json:"name"`
}

type ShelfResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type RackResponse struct {
	ID      uint            `json:"id"`
	StoreID uint            `json:"store_id"`
	Name    string          `json:"name"`
	Shelves []ShelfResponse `json:"shelves"`
}

type StoreResponse struct {
	ID      uint           `json:"id"`
	Name    string         `json:"name"`
	Address string         `json:"address"`
	Phone   string         `json:"phone"`
	Racks   []RackResponse `json:"racks,omitempty"`
}

func toStoreResponse(s models.Store) StoreResponse {
	resp := StoreResponse{ID: s.ID, Name: s.Name, Address: s.Address, Phone: s.Phone}
	for _, r := range s.Racks {
		resp.Racks = append(resp.Racks, toRackResponse(r))
	}
	return resp
}

func toRackResponse(r models.Rack) RackResponse {
	shelves := make([]ShelfResponse, 0, len(r.Shelves))
	for _, sh := range r.Shelves {
		shelves = append(shelves, ShelfResponse{ID: sh.ID, Name: sh.Name})
	}
	return RackResponse{ID: r.ID, StoreID: r.StoreID, Name: r.Name, Shelves: shelves}
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := query.ParseID(c.Params("id"))
	if err != nil || id == nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid id")
	}
	return *id, nil
}

func writeError(err error, what string) error {
	switch {
	case database.IsUniqueViolation(err):
		return fiber.NewError(fiber.StatusConflict, what+" with this name already exists")
	case database.IsForeignKeyViolation(err):
		return fiber.NewError(fiber.StatusConflict, what+" is still referenced by stock or users")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, what+" could not be saved")
	}
}

// GET /api/stores
func ListStoresHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var stores []models.Store
		if err := db.Order("name ASC").Find(&stores).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stores could not be listed")
		}
		resp := make([]StoreResponse, 0, len(stores))
		for _, s := range stores {
			resp = append(resp, toStoreResponse(s))
		}
		return c.JSON(resp)
	}
}

// GET /api/stores/:id
// Includes racks and shelves.
func GetStoreHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var store models.Store
		err = db.
			Preload("Racks", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
			Preload("Racks.Shelves", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
			First(&store, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Store not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Store could not be loaded")
		}
		return c.JSON(toStoreResponse(store))
	}
}

// POST /api/admin/stores
func CreateStoreHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body StoreRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		store := models.Store{Name: body.Name, Address: body.Address, Phone: body.Phone}
		if err := db.Create(&store).Error; err != nil {
			return writeError(err, "Store")
		}
		return c.Status(fiber.StatusCreated).JSON(toStoreResponse(store))
	}
}

// PUT /api/admin/stores/:id
func UpdateStoreHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var store models.Store
		if err := db.First(&store, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Store not found")
		}

		var body StoreRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if name := strings.TrimSpace(body.Name); name != "" {
			store.Name = name
		}
		store.Address = body.Address
		store.Phone = body.Phone

		if err := db.Save(&store).Error; err != nil {
			return writeError(err, "Store")
		}
		return c.JSON(toStoreResponse(store))
	}
}

// DELETE /api/admin/stores/:id
func DeleteStoreHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if err := db.Delete(&models.Store{}, "id = ?", id).Error; err != nil {
			return writeError(err, "Store")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/stores/:id/racks
func ListRacksHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		storeID, err := paramID(c)
		if err != nil {
			return err
		}
		var racks []models.Rack
		if err := db.
			Preload("Shelves", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
			Where("store_id = ?", storeID).
			Order("id ASC").
			Find(&racks).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Racks could not be listed")
		}
		resp := make([]RackResponse, 0, len(racks))
		for _, r := range racks {
			resp = append(resp, toRackResponse(r))
		}
		return c.JSON(resp)
	}
}

// POST /api/admin/stores/:id/racks
func CreateRackHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		storeID, err := paramID(c)
		if err != nil {
			return err
		}
		var body NameRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		var store models.Store
		if err := db.First(&store, "id = ?", storeID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Store not found")
		}

		rack := models.Rack{StoreID: storeID, Name: body.Name}
		if err := db.Create(&rack).Error; err != nil {
			return writeError(err, "Rack")
		}
		return c.Status(fiber.StatusCreated).JSON(toRackResponse(rack))
	}
}

// DELETE /api/admin/racks/:id
func DeleteRackHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if err := db.Delete(&models.Rack{}, "id = ?", id).Error; err != nil {
			return writeError(err, "Rack")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/racks/:id/shelves
func ListShelvesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rackID, err := paramID(c)
		if err != nil {
			return err
		}
		var shelves []models.Shelf
		if err := db.Where("rack_id = ?", rackID).Order("id ASC").Find(&shelves).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Shelves could not be listed")
		}
		resp := make([]ShelfResponse, 0, len(shelves))
		for _, sh := range shelves {
			resp = append(resp, ShelfResponse{ID: sh.ID, Name: sh.Name})
		}
		return c.JSON(resp)
	}
}

// POST /api/admin/racks/:id/shelves
func CreateShelfHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rackID, err := paramID(c)
		if err != nil {
			return err
		}
		var body NameRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		var rack models.Rack
		if err := db.First(&rack, "id = ?", rackID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Rack not found")
		}

		shelf := models.Shelf{RackID: rackID, Name: body.Name}
		if err := db.Create(&shelf).Error; err != nil {
			return writeError(err, "Shelf")
		}
		return c.Status(fiber.StatusCreated).JSON(ShelfResponse{ID: shelf.ID, Name: shelf.Name})
	}
}

// DELETE /api/admin/shelves/:id
func DeleteShelfHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if err := db.Delete(&models.Shelf{}, "id = ?", id).Error; err != nil {
			return writeError(err, "Shelf")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
