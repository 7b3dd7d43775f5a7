package engine

import (
	"fmt"

	"doubleauction/internal/common"

	"github.com/rs/zerolog/log"
)

// Engine is the round matching engine. It owns the trade id sequence and the
// order-book log, both of which live for the whole auction run.
type Engine struct {
	nextTradeID uint64
	book        []BookEntry
}

func New() *Engine {
	return &Engine{}
}

// Match pairs one round's bids against its asks by price priority and returns
// the formed trades in formation order. Orders that fail validation, or that
// sit in the wrong slice for their side, are logged and left out.
func (engine *Engine) Match(bids, asks []common.Order, round int) []common.Trade {
	book := NewOrderBook(engine, round)
	engine.place(book, bids, common.Buy)
	engine.place(book, asks, common.Sell)
	trades := book.Match()

	nBids, nAsks, bidQty, askQty := book.Depth()
	log.Debug().
		Int("round", round).
		Int("trades", len(trades)).
		Uint64("unmatched_bids", nBids).
		Uint64("unmatched_asks", nAsks).
		Uint64("unmatched_bid_qty", bidQty).
		Uint64("unmatched_ask_qty", askQty).
		Msg("round matched")
	return trades
}

func (engine *Engine) place(book *OrderBook, orders []common.Order, side common.Side) {
	for _, order := range orders {
		var err error
		if order.Side != side {
			err = fmt.Errorf("%w: %v order quoted as %v", ErrRejection, order.Side, side)
		} else {
			err = book.PlaceOrder(order)
		}
		if err != nil {
			log.Warn().
				Err(err).
				Stringer("order", order).
				Msg("order rejected")
		}
	}
}

// Trade books a match between a crossing bid and ask. The execution price is
// the midpoint of the two limits.
func (engine *Engine) Trade(bid, ask *common.Order, round int) common.Trade {
	trade := common.Trade{
		ID:         engine.nextTradeID,
		BuyerID:    bid.AgentID,
		SellerID:   ask.AgentID,
		Quantity:   min(bid.Quantity, ask.Quantity),
		Price:      midpoint(bid.Price, ask.Price),
		BuyerValue: bid.BaseValue,
		SellerCost: ask.BaseCost,
		Round:      round,
	}
	engine.nextTradeID++

	engine.book = append(engine.book, BookEntry{
		Price:    trade.Price,
		Quantity: trade.Quantity,
		Notional: trade.Notional(),
	})
	return trade
}

// midpoint halves before adding so two prices near the float64 limit do not
// overflow to +Inf.
func midpoint(bid, ask float64) float64 {
	return bid/2 + ask/2
}

// OrderBook returns the log of executed matches, oldest first.
func (engine *Engine) OrderBook() []BookEntry {
	book := make([]BookEntry, len(engine.book))
	copy(book, engine.book)
	return book
}

// TradesFormed is the number of trades the engine has formed so far.
func (engine *Engine) TradesFormed() uint64 {
	return engine.nextTradeID
}
