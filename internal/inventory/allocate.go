package inventory

import (
	"fmt"
	"math"
	"math/bits"
)

// planConsume splits qty over the given record quantities in listed order,
// taking min(quantity, remaining) from each. It returns how much to take from
// each record. Fails without a plan if the total is short.
func planConsume(quantities []int, qty int) ([]int, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	total := sum(quantities)
	if total < qty {
		return nil, &ShortageError{Required: qty, Available: total}
	}

	take := make([]int, len(quantities))
	remaining := qty
	for i, q := range quantities {
		if remaining == 0 {
			break
		}
		n := min(q, remaining)
		take[i] = n
		remaining -= n
	}
	return take, nil
}

// planDistribute splits qty over existing records in proportion to their
// current quantity. Every record but the last gets
// floor(qty * quantity / total); the last gets the remainder so the credits
// add up to qty exactly. With a zero total the last record gets everything.
func planDistribute(quantities []int, qty int) []int {
	credit := make([]int, len(quantities))
	if len(quantities) == 0 {
		return credit
	}
	total := sum(quantities)
	allocated := 0
	for i := 0; i < len(quantities)-1; i++ {
		if total > 0 {
			hi, lo := bits.Mul64(uint64(qty), uint64(quantities[i]))
			if hi < uint64(total) {
				q, _ := bits.Div64(hi, lo, uint64(total))
				credit[i] = min(int(q), qty-allocated)
			}
		}
		allocated += credit[i]
	}
	credit[len(credit)-1] = qty - allocated
	return credit
}

// sum saturates at math.MaxInt.
func sum(quantities []int) int {
	total := 0
	for _, q := range quantities {
		if q > math.MaxInt-total {
			return math.MaxInt
		}
		total += q
	}
	return total
}

// Scale returns per * n, failing with ErrInvalidQuantity when the product
// does not fit in an int.
func Scale(per, n int) (int, error) {
	if per <= 0 || n <= 0 {
		return 0, fmt.Errorf("%w: %d x %d", ErrInvalidQuantity, per, n)
	}
	if n > math.MaxInt/per {
		return 0, fmt.Errorf("%w: %d x %d overflows", ErrInvalidQuantity, per, n)
	}
	return per * n, nil
}

// add returns have + qty, failing with ErrInvalidQuantity on overflow.
func add(have, qty int) (int, error) {
	if qty > math.MaxInt-have {
		return 0, fmt.Errorf("%w: %d + %d overflows", ErrInvalidQuantity, have, qty)
	}
	return have + qty, nil
}
