package inventory

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestPlanConsume(t *testing.T) {
	testCases := []struct {
		name       string
		quantities []int
		qty        int
		want       []int
	}{
		{"single record", []int{10}, 6, []int{6}},
		{"exact total", []int{3, 2}, 5, []int{3, 2}},
		{"listed order, not largest first", []int{2, 8, 5}, 4, []int{2, 2, 0}},
		{"skips empty records", []int{0, 4, 4}, 5, []int{0, 4, 1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := planConsume(tc.quantities, tc.qty)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
			for i, n := range got {
				if n > tc.quantities[i] {
					t.Errorf("record %d would go negative", i)
				}
			}
		})
	}
}

func TestPlanConsume_Shortage(t *testing.T) {
	_, err := planConsume([]int{2, 1}, 4)
	var shortage *ShortageError
	if !errors.As(err, &shortage) {
		t.Fatalf("expected ShortageError, got %v", err)
	}
	if shortage.Required != 4 || shortage.Available != 3 {
		t.Errorf("unexpected shortage %+v", shortage)
	}
	if !errors.Is(err, ErrInsufficientStock) {
		t.Error("ShortageError should match ErrInsufficientStock")
	}
}

func TestPlanConsume_InvalidQuantity(t *testing.T) {
	if _, err := planConsume([]int{5}, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestPlanDistribute(t *testing.T) {
	testCases := []struct {
		name       string
		quantities []int
		qty        int
		want       []int
	}{
		{"single record takes all", []int{7}, 5, []int{5}},
		{"proportional, last absorbs remainder", []int{6, 4}, 5, []int{3, 2}},
		{"rounding loss goes to last", []int{1, 1, 1}, 10, []int{3, 3, 4}},
		{"empty earlier record", []int{0, 5}, 4, []int{0, 4}},
		{"all empty", []int{0, 0}, 3, []int{0, 3}},
		{"no records", []int{}, 3, []int{}},
		{"large quantities", []int{1 << 61, 1 << 61}, 1 << 61, []int{1 << 60, 1 << 60}},
		{"record total beyond int range", []int{math.MaxInt, math.MaxInt}, 10, []int{10, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := planDistribute(tc.quantities, tc.qty)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
			if len(tc.quantities) > 0 && sum(got) != tc.qty {
				t.Errorf("credits sum to %d, expected %d", sum(got), tc.qty)
			}
		})
	}
}

func TestScale(t *testing.T) {
	testCases := []struct {
		name    string
		per, n  int
		want    int
		wantErr bool
	}{
		{"small", 2, 3, 6, false},
		{"largest product", 1, math.MaxInt, math.MaxInt, false},
		{"wraps", 4, 1<<62 + 1, 0, true},
		{"just over", 2, math.MaxInt/2 + 1, 0, true},
		{"zero per kit", 0, 3, 0, true},
		{"negative count", 2, -1, 0, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Scale(tc.per, tc.n)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidQuantity) {
					t.Fatalf("expected ErrInvalidQuantity, got %d, %v", got, err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("expected %d, got %d, %v", tc.want, got, err)
			}
		})
	}
}
