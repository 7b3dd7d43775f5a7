package engine

import "doubleauction/internal/common"

// BookEntry is one line of the order-book log: a single executed match.
type BookEntry struct {
	Price    float64
	Quantity uint64
	Notional float64
}

// FlatPriceLevel is an exported copy of a price level, used for inspecting the
// book.
type FlatPriceLevel struct {
	PriceLevel float64
	Orders     []*common.Order
}

// FlattenLevels copies price levels in book order.
func FlattenLevels(levels []*PriceLevel) []FlatPriceLevel {
	flat := make([]FlatPriceLevel, 0, len(levels))
	for _, level := range levels {
		orders := make([]*common.Order, len(level.orders))
		copy(orders, level.orders)
		flat = append(flat, FlatPriceLevel{
			PriceLevel: level.priceLevel,
			Orders:     orders,
		})
	}
	return flat
}
