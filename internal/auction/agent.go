package auction

import (
	"context"

	"doubleauction/internal/common"
)

// Agent is a market participant as the auction sees it. Buyers quote bids and
// sellers quote asks; how they decide is up to them.
type Agent interface {
	ID() int

	// Quote returns the agent's order for this round. ok is false when the
	// agent declines to quote.
	Quote(ctx context.Context, info common.MarketInfo) (order common.Order, ok bool, err error)

	// FinalizeTrade applies a settled trade to the agent's holdings. It is
	// called exactly once per settled trade.
	FinalizeTrade(trade common.Trade)

	// CanQuote reports whether the agent is eligible to quote: a buyer still
	// has units it values, a seller still holds goods.
	CanQuote() bool

	// FirstUnitValue is the agent's value (buyers) or cost (sellers) of its
	// first unit.
	FirstUnitValue() float64
}

// Environment is the market the auction runs in.
type Environment interface {
	// Agent looks an agent up by id and fails if it is unknown.
	Agent(id int) (Agent, error)
	Buyers() []Agent
	Sellers() []Agent

	// Equilibrium is the theoretical competitive equilibrium, independent of
	// any realised trades.
	Equilibrium() common.Equilibrium
}
