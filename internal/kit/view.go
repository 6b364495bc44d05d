package kit

import (
	"context"

	"warehouse-backend/internal/inventory"
)

type ComponentView struct {
	ItemID         uint    `json:"item_id"`
	Name           string  `json:"name"`
	PartNumber     *string `json:"part_number"`
	Unit           string  `json:"unit"`
	QuantityPerKit int     `json:"quantity_per_kit"`
	OnHand         int     `json:"on_hand"`
}

type View struct {
	KitID       uint            `json:"kit_id"`
	KitName     string          `json:"kit_name"`
	StoreID     uint            `json:"store_id"`
	KitQuantity int             `json:"kit_quantity"`
	Buildable   int             `json:"buildable"` // kits the current component stock covers
	Components  []ComponentView `json:"components"`
}

// ViewKit returns the recipe annotated with on-hand quantities at the store.
func (a *Allocator) ViewKit(ctx context.Context, kitID, storeID uint) (*View, error) {
	db := a.db.WithContext(ctx)

	kit, err := loadKit(db, kitID)
	if err != nil {
		return nil, err
	}
	if err := ensureStore(db, storeID); err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(kit.Components)+1)
	ids = append(ids, kit.ID)
	for _, comp := range kit.Components {
		ids = append(ids, comp.ItemID)
	}
	onHand, err := inventory.OnHand(db, storeID, ids)
	if err != nil {
		return nil, err
	}

	view := &View{
		KitID:       kit.ID,
		KitName:     kit.Name,
		StoreID:     storeID,
		KitQuantity: onHand[kit.ID],
		Components:  make([]ComponentView, 0, len(kit.Components)),
	}
	for i, comp := range kit.Components {
		have := onHand[comp.ItemID]
		view.Components = append(view.Components, ComponentView{
			ItemID:         comp.ItemID,
			Name:           comp.Item.Name,
			PartNumber:     comp.Item.PartNumber,
			Unit:           comp.Item.Unit,
			QuantityPerKit: comp.QuantityPerKit,
			OnHand:         have,
		})
		if n := have / comp.QuantityPerKit; i == 0 || n < view.Buildable {
			view.Buildable = n
		}
	}
	return view, nil
}
