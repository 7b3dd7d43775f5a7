package auction

import (
	"context"
	"fmt"

	"doubleauction/internal/common"
	"doubleauction/internal/engine"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Auction drives a fixed number of double-auction rounds over an environment.
// It is the sole owner of the auction state and is not safe for concurrent use.
type Auction struct {
	id     string
	env    Environment
	engine *engine.Engine

	maxRounds    int
	currentRound int // Last completed round, 0 before the first.

	successfulTrades []common.Trade
	averagePrices    []float64 // Execution price of every settled trade.
	totalSurplus     decimal.Decimal
}

func New(env Environment, maxRounds int) *Auction {
	return &Auction{
		id:        uuid.New().String(),
		env:       env,
		engine:    engine.New(),
		maxRounds: maxRounds,
	}
}

// Run plays every remaining round and returns the end-of-auction summary.
//
// Running a finished auction is a no-op that reports the existing summary. If
// an agent fails to quote, or a trade names an unknown agent, Run stops and
// returns the error; rounds already completed stay completed. ctx is handed to
// agents when they quote and is checked between rounds.
func (a *Auction) Run(ctx context.Context) (Summary, error) {
	if a.Finished() {
		log.Info().
			Str("run", a.id).
			Int("round", a.currentRound).
			Msg("max rounds reached, auction has ended")
		return a.Summary(), nil
	}

	for a.currentRound < a.maxRounds {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		if err := a.runRound(ctx, a.currentRound+1); err != nil {
			return Summary{}, err
		}
	}

	summary := a.Summary()
	summary.Log()
	return summary, nil
}

func (a *Auction) runRound(ctx context.Context, round int) error {
	info := a.marketInfo(round)
	log.Info().
		Str("run", a.id).
		Int("round", round).
		Float64("last_price", info.LastTradePrice).
		Float64("average_price", info.AveragePrice).
		Msg("round started")

	bids, err := a.collect(ctx, a.env.Buyers(), info)
	if err != nil {
		return fmt.Errorf("round %d: %w", round, err)
	}
	asks, err := a.collect(ctx, a.env.Sellers(), info)
	if err != nil {
		return fmt.Errorf("round %d: %w", round, err)
	}

	trades := a.engine.Match(bids, asks, round)
	if len(trades) > 0 {
		if err := a.settle(trades); err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
	}

	a.currentRound = round
	return nil
}

// collect asks every eligible agent for a quote, one at a time, in the
// environment's order. That order is also the tie-break between equal prices.
func (a *Auction) collect(ctx context.Context, agents []Agent, info common.MarketInfo) ([]common.Order, error) {
	var orders []common.Order
	for _, agent := range agents {
		if !agent.CanQuote() {
			continue
		}

		order, ok, err := agent.Quote(ctx, info)
		if err != nil {
			return nil, fmt.Errorf("agent %d quote: %w", agent.ID(), err)
		}
		if !ok {
			continue
		}

		log.Debug().
			Str("run", a.id).
			Int("agent", order.AgentID).
			Stringer("side", order.Side).
			Float64("price", order.Price).
			Uint64("quantity", order.Quantity).
			Msg("quote")
		orders = append(orders, order)
	}
	return orders, nil
}

// ID is the run identifier.
func (a *Auction) ID() string { return a.id }

func (a *Auction) CurrentRound() int { return a.currentRound }

func (a *Auction) MaxRounds() int { return a.maxRounds }

// Finished reports whether every round has been played.
func (a *Auction) Finished() bool { return a.currentRound >= a.maxRounds }

// TradeHistory returns the settled trades in settlement order.
func (a *Auction) TradeHistory() []common.Trade {
	trades := make([]common.Trade, len(a.successfulTrades))
	copy(trades, a.successfulTrades)
	return trades
}

// AveragePrices returns the execution price of every settled trade.
func (a *Auction) AveragePrices() []float64 {
	prices := make([]float64, len(a.averagePrices))
	copy(prices, a.averagePrices)
	return prices
}

// TotalSurplus is the buyer plus seller surplus realised so far.
func (a *Auction) TotalSurplus() float64 {
	return a.totalSurplus.InexactFloat64()
}

// OrderBook returns the diagnostic log of every match the engine formed,
// including matches later rejected at settlement.
func (a *Auction) OrderBook() []engine.BookEntry {
	return a.engine.OrderBook()
}
