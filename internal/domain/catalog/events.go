package catalog

import "time"

// InventoryReleasedEvent is emitted when reserved stock is handed back because a later stage failed.
type InventoryReleasedEvent struct {
	OrderID    string
	SKU        string
	Quantity   int
	Stage      string
	OccurredAt time.Time
}

func (InventoryReleasedEvent) EventName() string { return "inventory.released" }

func NewInventoryReleasedEvent(orderID, sku string, quantity int, stage string) InventoryReleasedEvent {
	return InventoryReleasedEvent{
		OrderID:    orderID,
		SKU:        sku,
		Quantity:   quantity,
		Stage:      stage,
		OccurredAt: time.Now().UTC(),
	}
}
