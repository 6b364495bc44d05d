package catalog

import (
	"errors"
	"fmt"

	"warehouse-backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrItemNotFound     = errors.New("item not found")
	ErrNotAKit          = errors.New("only kits have components")
	ErrEmptyRecipe      = errors.New("a kit needs at least one component")
	ErrRecipeCycle      = errors.New("component would make the kit contain itself")
	ErrDuplicateLine    = errors.New("component listed more than once")
	ErrUnknownComponent = errors.New("component item not found")
	ErrInvalidLine      = errors.New("invalid component line")
)

type ComponentLine struct {
	ItemID         uint `json:"item_id"`
	QuantityPerKit int  `json:"quantity_per_kit"`
}

// validateLines checks quantities and duplicates without touching the database.
func validateLines(kitID uint, lines []ComponentLine) error {
	if len(lines) == 0 {
		return ErrEmptyRecipe
	}
	seen := make(map[uint]struct{}, len(lines))
	for i, l := range lines {
		if l.ItemID == 0 {
			return fmt.Errorf("%w %d: item_id is required", ErrInvalidLine, i+1)
		}
		if l.ItemID == kitID {
			return ErrRecipeCycle
		}
		if l.QuantityPerKit < 1 {
			return fmt.Errorf("%w %d: quantity_per_kit must be at least 1", ErrInvalidLine, i+1)
		}
		if _, dup := seen[l.ItemID]; dup {
			return fmt.Errorf("%w: item %d", ErrDuplicateLine, l.ItemID)
		}
		seen[l.ItemID] = struct{}{}
	}
	return nil
}

// ReplaceComponents swaps the kit's whole recipe for lines, in order.
// Components may themselves be kits as long as no kit ends up inside itself.
func ReplaceComponents(tx *gorm.DB, kitID uint, lines []ComponentLine) error {
	var kit models.Item
	if err := tx.First(&kit, "id = ?", kitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("load kit: %w", err)
	}
	if !kit.IsKit() {
		return ErrNotAKit
	}
	if err := validateLines(kitID, lines); err != nil {
		return err
	}

	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ItemID)
	}
	var found int64
	if err := tx.Model(&models.Item{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
		return fmt.Errorf("load components: %w", err)
	}
	if int(found) != len(ids) {
		return ErrUnknownComponent
	}

	cyclic, err := reaches(tx, ids, kitID)
	if err != nil {
		return err
	}
	if cyclic {
		return ErrRecipeCycle
	}

	if err := tx.Where("kit_id = ?", kitID).Delete(&models.KitComponent{}).Error; err != nil {
		return fmt.Errorf("clear recipe: %w", err)
	}
	comps := make([]models.KitComponent, 0, len(lines))
	for i, l := range lines {
		comps = append(comps, models.KitComponent{
			KitID:          kitID,
			ItemID:         l.ItemID,
			QuantityPerKit: l.QuantityPerKit,
			Position:       i,
		})
	}
	if err := tx.Omit("Item").Create(&comps).Error; err != nil {
		return fmt.Errorf("save recipe: %w", err)
	}
	return nil
}

// reaches walks the recipes below start and reports whether target is among them.
func reaches(tx *gorm.DB, start []uint, target uint) (bool, error) {
	visited := make(map[uint]bool)
	frontier := start
	for len(frontier) > 0 {
		var next []uint
		if err := tx.Model(&models.KitComponent{}).
			Where("kit_id IN ?", frontier).
			Distinct().
			Pluck("item_id", &next).Error; err != nil {
			return false, fmt.Errorf("walk recipes: %w", err)
		}
		for _, id := range frontier {
			visited[id] = true
		}
		frontier = frontier[:0:0]
		for _, id := range next {
			if id == target {
				return true, nil
			}
			if !visited[id] {
				frontier = append(frontier, id)
			}
		}
	}
	return false, nil
}
