package engine

import (
	"errors"
	"math"

	"doubleauction/internal/common"

	"github.com/tidwall/btree"
)

var (
	ErrRejection    = errors.New("order rejection")
	ErrInvalidOrder = errors.New("invalid order")
)

type PriceLevel struct {
	priceLevel float64
	orders     []*common.Order
}

type PriceLevels = btree.BTreeG[*PriceLevel]

// OrderBook holds a single round's sealed bids and asks. It is built fresh
// every round and thrown away once matched: nothing rests between rounds.
type OrderBook struct {
	// Pointer to the owning engine.
	engine *Engine
	round  int

	// Price levels to orders sat on the price level, sorted by submission
	// order as they will be push-back'd.
	Bids *PriceLevels
	Asks *PriceLevels

	// Some book keeping
	nBuyOrders   uint64 // Track the number of bids in the book.
	nSellOrders  uint64 // Track the number of asks in the book.
	buyQuantity  uint64 // Track the bid-side liquidity of the book.
	sellQuantity uint64 // Track the ask-side liquidity of the book.
}

func NewOrderBook(engine *Engine, round int) *OrderBook {
	// Sorted greatest first.
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.priceLevel > b.priceLevel
	})
	// Sorted least first.
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.priceLevel < b.priceLevel
	})
	return &OrderBook{
		engine: engine,
		round:  round,
		Bids:   bids,
		Asks:   asks,
	}
}

// PlaceOrder queues an order on its side of the book at its limit price. No
// matching happens here; the whole round is matched at once by Match.
func (book *OrderBook) PlaceOrder(order common.Order) error {
	if order.Quantity == 0 || order.Price < 0 || !finite(order.Price) {
		return ErrInvalidOrder
	}
	// Settlement does exact surplus arithmetic on these.
	if !finite(order.BaseValue) || !finite(order.BaseCost) {
		return ErrInvalidOrder
	}

	var levels *PriceLevels
	switch order.Side {
	case common.Buy:
		levels = book.Bids
		book.nBuyOrders++
		book.buyQuantity += order.Quantity
	case common.Sell:
		levels = book.Asks
		book.nSellOrders++
		book.sellQuantity += order.Quantity
	default:
		return ErrRejection
	}

	// Levels comparator only accounts for price levels, so we create a dummy price
	// level for the search.
	level, ok := levels.GetMut(&PriceLevel{priceLevel: order.Price})
	if ok {
		level.orders = append(level.orders, &order)
	} else {
		levels.Set(&PriceLevel{
			priceLevel: order.Price,
			orders:     []*common.Order{&order},
		})
	}
	return nil
}

// Match consumes the top of book while it crosses (i.e., bid >= ask). Each
// crossing pair trades once at min(bid, ask) quantity and both orders leave the
// book whole; any excess on the larger order is dropped for this round.
//
// Within a price level orders are taken in submission order.
func (book *OrderBook) Match() []common.Trade {
	var trades []common.Trade
	for {
		bestBid, bidOk := book.Bids.MinMut()
		bestAsk, askOk := book.Asks.MinMut()

		// If either side is empty, or prices don't cross, we are done.
		if !bidOk || !askOk || bestBid.priceLevel < bestAsk.priceLevel {
			break
		}

		bid := bestBid.orders[0]
		ask := bestAsk.orders[0]
		bestBid.orders = bestBid.orders[1:]
		bestAsk.orders = bestAsk.orders[1:]

		// Full consumption cases (i.e. empty levels).
		if len(bestBid.orders) == 0 {
			book.Bids.Delete(bestBid)
		}
		if len(bestAsk.orders) == 0 {
			book.Asks.Delete(bestAsk)
		}

		book.nBuyOrders--
		book.nSellOrders--
		book.buyQuantity -= bid.Quantity
		book.sellQuantity -= ask.Quantity

		trades = append(trades, book.engine.Trade(bid, ask, book.round))
	}
	return trades
}

// Depth reports the orders and units left on each side.
func (book *OrderBook) Depth() (bids, asks, bidQty, askQty uint64) {
	return book.nBuyOrders, book.nSellOrders, book.buyQuantity, book.sellQuantity
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
