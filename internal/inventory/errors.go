package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientStock = errors.New("insufficient quantity")
	ErrInvalidQuantity   = errors.New("quantity must be a positive integer")
)

// ShortageError reports how far a store's stock of one item falls short.
type ShortageError struct {
	Required  int
	Available int
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("insufficient quantity: required %d, available %d", e.Required, e.Available)
}

func (e *ShortageError) Is(target error) bool { return target == ErrInsufficientStock }
