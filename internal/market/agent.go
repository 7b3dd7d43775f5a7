package market

import (
	"context"
	"math"
	"math/rand"

	"doubleauction/internal/common"
)

// Allocation is what an agent holds.
type Allocation struct {
	Cash         float64
	Goods        int
	InitialCash  float64
	InitialGoods int
}

// Agent is a zero-intelligence constrained (ZI-C) trader: it quotes a random
// price that never crosses its own value or cost for the next unit.
type Agent struct {
	id         int
	schedule   Schedule
	allocation Allocation
	spread     float64
	rand       *rand.Rand
}

func NewBuyer(id int, schedule Schedule, cash, spread float64, seed int64) *Agent {
	return &Agent{
		id:         id,
		schedule:   schedule,
		allocation: Allocation{Cash: cash, InitialCash: cash},
		spread:     spread,
		rand:       rand.New(rand.NewSource(seed)),
	}
}

func NewSeller(id int, schedule Schedule, cash float64, goods int, spread float64, seed int64) *Agent {
	return &Agent{
		id:       id,
		schedule: schedule,
		allocation: Allocation{
			Cash:         cash,
			Goods:        goods,
			InitialCash:  cash,
			InitialGoods: goods,
		},
		spread: spread,
		rand:   rand.New(rand.NewSource(seed)),
	}
}

func (a *Agent) ID() int                { return a.id }
func (a *Agent) IsBuyer() bool          { return a.schedule.IsBuyer }
func (a *Agent) Schedule() Schedule     { return a.schedule }
func (a *Agent) Allocation() Allocation { return a.allocation }

func (a *Agent) FirstUnitValue() float64 { return a.schedule.Value(1) }

func (a *Agent) CanQuote() bool {
	if a.IsBuyer() {
		return a.allocation.Goods < a.schedule.Units()
	}
	return a.allocation.Goods > 0
}

// nextUnit is the 1-indexed unit the agent would trade next.
func (a *Agent) nextUnit() int {
	if a.IsBuyer() {
		return a.allocation.Goods + 1
	}
	return a.allocation.InitialGoods - a.allocation.Goods + 1
}

// Quote draws a one-unit bid in [value*(1-spread), value] or a one-unit ask in
// [cost, cost*(1+spread)]. Buyers that cannot pay decline.
func (a *Agent) Quote(ctx context.Context, _ common.MarketInfo) (common.Order, bool, error) {
	if err := ctx.Err(); err != nil {
		return common.Order{}, false, err
	}
	if !a.CanQuote() {
		return common.Order{}, false, nil
	}

	unitValue := a.schedule.Value(a.nextUnit())
	order := common.Order{AgentID: a.id, Quantity: 1}

	if a.IsBuyer() {
		low := unitValue * (1 - a.spread)
		price := math.Floor((low+a.rand.Float64()*(unitValue-low))*100) / 100
		price = math.Min(price, a.allocation.Cash)
		if price <= 0 {
			return common.Order{}, false, nil
		}
		order.Side = common.Buy
		order.Price = price
		order.BaseValue = unitValue
		return order, true, nil
	}

	high := unitValue * (1 + a.spread)
	order.Side = common.Sell
	order.Price = math.Ceil((unitValue+a.rand.Float64()*(high-unitValue))*100) / 100
	order.BaseCost = unitValue
	return order, true, nil
}

// FinalizeTrade moves goods and cash for a settled trade the agent is party to.
func (a *Agent) FinalizeTrade(trade common.Trade) {
	qty := int(trade.Quantity)
	switch a.id {
	case trade.BuyerID:
		a.allocation.Goods += qty
		a.allocation.Cash -= trade.Notional()
	case trade.SellerID:
		a.allocation.Goods -= qty
		a.allocation.Cash += trade.Notional()
	}
}

// Utility is cash plus the value of held units for buyers, or cash plus the
// cost of still-unsold units for sellers.
func (a *Agent) Utility() float64 {
	u := a.allocation.Cash
	if a.IsBuyer() {
		for unit := 1; unit <= a.allocation.Goods; unit++ {
			u += a.schedule.Value(unit)
		}
		return u
	}
	for unit := a.nextUnit(); unit <= a.allocation.InitialGoods; unit++ {
		u += a.schedule.Value(unit)
	}
	return u
}
