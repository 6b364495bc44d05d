package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"warehouse-backend/internal/metrics"
	"warehouse-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// importColumns are the recognised header cells; only name is required.
var importColumns = []string{"name", "part_number", "type", "unit", "brand", "make", "category"}

type ItemRow struct {
	Row        int // 1-based sheet row
	Name       string
	PartNumber string
	Type       models.ItemType
	Unit       string
	Brand      string
	Make       string
	Category   string
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Errors  []RowError `json:"errors"`
}

// ParseItemRows reads the active sheet of an XLSX workbook. The first row is
// the header; columns are matched by name in any order.
func ParseItemRows(r io.Reader) ([]ItemRow, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, errors.New("sheet has no data rows")
	}

	idx := make(map[string]int, len(importColumns))
	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, col := range importColumns {
			if h == col {
				idx[col] = i
			}
		}
	}
	if _, ok := idx["name"]; !ok {
		return nil, nil, errors.New("header must contain a name column")
	}

	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var (
		out  []ItemRow
		bad  []RowError
		seen = map[string]int{}
	)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		item := ItemRow{
			Row:        i + 1,
			Name:       cell(row, "name"),
			PartNumber: cell(row, "part_number"),
			Type:       models.ItemType(strings.ToLower(cell(row, "type"))),
			Unit:       cell(row, "unit"),
			Brand:      cell(row, "brand"),
			Make:       cell(row, "make"),
			Category:   cell(row, "category"),
		}
		if item.Name == "" && item.PartNumber == "" {
			continue // blank line
		}
		if item.Name == "" {
			bad = append(bad, RowError{Row: item.Row, Message: "name is empty"})
			continue
		}
		switch item.Type {
		case "":
			item.Type = models.ItemTypePart
		case models.ItemTypePart, models.ItemTypeKit:
		default:
			bad = append(bad, RowError{Row: item.Row, Message: fmt.Sprintf("unknown type %q", item.Type)})
			continue
		}
		if item.Unit == "" {
			item.Unit = "pcs"
		}
		key := strings.ToLower(item.Name)
		if prev, dup := seen[key]; dup {
			bad = append(bad, RowError{Row: item.Row, Message: fmt.Sprintf("duplicate of row %d", prev)})
			continue
		}
		seen[key] = item.Row
		out = append(out, item)
	}
	return out, bad, nil
}

// ImportItems creates or updates items from rows. Existing items are matched
// by part number first, then by name. Brands, makes and categories are
// created on first use. Recipes are not part of the import.
func ImportItems(db *gorm.DB, rows []ItemRow) (*ImportResult, error) {
	res := &ImportResult{Errors: []RowError{}}

	err := db.Transaction(func(tx *gorm.DB) error {
		lookups := map[string]map[string]uint{}
		lookup := func(k Kind, name string) (*uint, error) {
			if name == "" {
				return nil, nil
			}
			cache := lookups[k.Table]
			if cache == nil {
				cache = map[string]uint{}
				lookups[k.Table] = cache
			}
			if id, ok := cache[strings.ToLower(name)]; ok {
				return &id, nil
			}
			var row namedRow
			err := tx.Table(k.Table).Where("LOWER(name) = ?", strings.ToLower(name)).Take(&row).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				row = namedRow{Name: name}
				err = tx.Table(k.Table).Create(&row).Error
			}
			if err != nil {
				return nil, fmt.Errorf("%s %q: %w", k.Entity, name, err)
			}
			cache[strings.ToLower(name)] = row.ID
			return &row.ID, nil
		}

		for _, r := range rows {
			brandID, err := lookup(Brands, r.Brand)
			if err != nil {
				return err
			}
			makeID, err := lookup(Makes, r.Make)
			if err != nil {
				return err
			}
			categoryID, err := lookup(Categories, r.Category)
			if err != nil {
				return err
			}

			var existing models.Item
			q := tx.Where("LOWER(name) = ?", strings.ToLower(r.Name))
			if r.PartNumber != "" {
				q = tx.Where("part_number = ?", r.PartNumber).Or("LOWER(name) = ?", strings.ToLower(r.Name))
			}
			err = q.Order("id ASC").Take(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				item := models.Item{
					Name:       r.Name,
					PartNumber: normalizePartNumber(&r.PartNumber),
					Type:       r.Type,
					Unit:       r.Unit,
					BrandID:    brandID,
					MakeID:     makeID,
					CategoryID: categoryID,
				}
				if err := tx.Create(&item).Error; err != nil {
					return fmt.Errorf("row %d: %w", r.Row, err)
				}
				res.Created++
			case err != nil:
				return fmt.Errorf("row %d: %w", r.Row, err)
			default:
				if existing.IsKit() && r.Type == models.ItemTypePart {
					res.Errors = append(res.Errors, RowError{Row: r.Row, Message: "kit cannot be turned into a part by import"})
					continue
				}
				updates := map[string]any{
					"name":        r.Name,
					"type":        r.Type,
					"unit":        r.Unit,
					"brand_id":    brandID,
					"make_id":     makeID,
					"category_id": categoryID,
				}
				if pn := normalizePartNumber(&r.PartNumber); pn != nil {
					updates["part_number"] = *pn
				}
				if err := tx.Model(&models.Item{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
					return fmt.Errorf("row %d: %w", r.Row, err)
				}
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ItemsImported.Add(float64(res.Created))
	return res, nil
}

// POST /api/admin/items/import (multipart, field "file")
func ImportItemsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file could not be read")
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file could not be read")
		}
		rows, bad, err := ParseItemRows(bytes.NewReader(data))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := ImportItems(db, rows)
		if err != nil {
			return writeError(err, "Item")
		}
		res.Errors = append(append([]RowError{}, bad...), res.Errors...)
		return c.JSON(res)
	}
}
