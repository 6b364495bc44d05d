package kit

import (
	"errors"
	"fmt"

	"warehouse-backend/internal/inventory"
)

var (
	ErrKitNotFound   = errors.New("kit not found")
	ErrStoreNotFound = errors.New("store not found")
	ErrNotAKit       = errors.New("item is not a kit")
	ErrEmptyRecipe   = errors.New("kit has no components")
)

// InsufficientComponentError names the first recipe component the store
// cannot cover.
type InsufficientComponentError struct {
	ItemID    uint
	ItemName  string
	Required  int
	Available int
}

func (e *InsufficientComponentError) Error() string {
	return fmt.Sprintf("insufficient quantity of %s: required %d, available %d", e.ItemName, e.Required, e.Available)
}

func (e *InsufficientComponentError) Is(target error) bool {
	return target == inventory.ErrInsufficientStock
}

// InsufficientKitError: the store holds fewer kits than asked to break.
type InsufficientKitError struct {
	KitName   string
	Required  int
	Available int
}

func (e *InsufficientKitError) Error() string {
	return fmt.Sprintf("insufficient kit quantity of %s: required %d, available %d", e.KitName, e.Required, e.Available)
}

func (e *InsufficientKitError) Is(target error) bool {
	return target == inventory.ErrInsufficientStock
}
