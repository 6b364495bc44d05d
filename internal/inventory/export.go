package inventory

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"warehouse-backend/internal/models"
	"warehouse-backend/internal/query"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var exportHeader = []any{"record_id", "item_id", "part_number", "item_name", "rack", "shelf", "quantity"}

// WriteXLSX writes one sheet row per record, after a header row.
func WriteXLSX(w io.Writer, recs []models.InventoryRecord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	header := exportHeader
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range recs {
		pn := ""
		if r.Item.PartNumber != nil {
			pn = *r.Item.PartNumber
		}
		row := []any{r.ID, r.ItemID, pn, r.Item.Name, r.Rack.Name, r.Shelf.Name, r.Quantity}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f.Write(w)
}

// GET /api/inventory/export?store_id=1
func ExportHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		crit, err := recordCriteria(c)
		if err != nil {
			return err
		}
		recs, err := listRecords(db, crit, query.Page{})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Inventory could not be listed")
		}

		buf := &bytes.Buffer{}
		if err := WriteXLSX(buf, recs); err != nil {
			return fmt.Errorf("export inventory: %w", err)
		}

		name := fmt.Sprintf("inventory_%s.xlsx", time.Now().Format("20060102_150405"))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
		return c.Send(buf.Bytes())
	}
}
