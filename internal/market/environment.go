package market

import (
	"errors"
	"fmt"
	"sort"

	"doubleauction/internal/auction"
	"doubleauction/internal/common"

	"github.com/shopspring/decimal"
)

var ErrUnknownAgent = errors.New("unknown agent")

// Params describes a generated market.
type Params struct {
	Buyers          int
	Sellers         int
	Units           int
	BuyerBaseValue  float64
	SellerBaseValue float64
	Spread          float64
	InitialCash     float64
	Seed            int64
}

// Environment is a fixed population of buyers and sellers.
type Environment struct {
	buyers  []*Agent
	sellers []*Agent
	byID    map[int]*Agent
}

func NewEnvironment(agents ...*Agent) *Environment {
	env := &Environment{byID: make(map[int]*Agent, len(agents))}
	for _, a := range agents {
		if a.IsBuyer() {
			env.buyers = append(env.buyers, a)
		} else {
			env.sellers = append(env.sellers, a)
		}
		env.byID[a.ID()] = a
	}
	return env
}

// Generate builds buyers 0..Buyers-1 followed by sellers. Every buyer shares
// the same schedule and starts with cash and no goods; every seller shares
// the same schedule and starts holding all of its units. Each agent draws
// from its own source seeded off Params.Seed.
func Generate(p Params) *Environment {
	buyerSchedule := NewSchedule(true, p.BuyerBaseValue, p.Spread, p.Units)
	sellerSchedule := NewSchedule(false, p.SellerBaseValue, p.Spread, p.Units)

	agents := make([]*Agent, 0, p.Buyers+p.Sellers)
	for i := 0; i < p.Buyers; i++ {
		agents = append(agents, NewBuyer(i, buyerSchedule, p.InitialCash, p.Spread, p.Seed+int64(i)))
	}
	for i := p.Buyers; i < p.Buyers+p.Sellers; i++ {
		agents = append(agents, NewSeller(i, sellerSchedule, p.InitialCash, p.Units, p.Spread, p.Seed+int64(i)))
	}
	return NewEnvironment(agents...)
}

func (env *Environment) Agent(id int) (auction.Agent, error) {
	a, ok := env.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	return a, nil
}

func (env *Environment) Buyers() []auction.Agent  { return asAuctionAgents(env.buyers) }
func (env *Environment) Sellers() []auction.Agent { return asAuctionAgents(env.sellers) }

// Agents returns every agent, buyers first.
func (env *Environment) Agents() []*Agent {
	return append(append([]*Agent(nil), env.buyers...), env.sellers...)
}

func asAuctionAgents(agents []*Agent) []auction.Agent {
	out := make([]auction.Agent, len(agents))
	for i, a := range agents {
		out[i] = a
	}
	return out
}

// Equilibrium finds the competitive equilibrium of the full preference
// schedules: demand is every buyer unit value highest first, supply every
// seller unit cost lowest first. The equilibrium quantity is the number of
// units whose value covers their cost, and the price is the middle of the
// interval that clears exactly that quantity.
func (env *Environment) Equilibrium() common.Equilibrium {
	var demand, supply []float64
	for _, b := range env.buyers {
		demand = append(demand, b.schedule.Values()...)
	}
	for _, s := range env.sellers {
		supply = append(supply, s.schedule.Values()...)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(demand)))
	sort.Float64s(supply)

	q := 0
	for q < len(demand) && q < len(supply) && demand[q] >= supply[q] {
		q++
	}
	if q == 0 {
		return common.Equilibrium{}
	}

	// Marginal units just inside and just outside the trade bound the price.
	low, high := supply[q-1], demand[q-1]
	if q < len(demand) && demand[q] > low {
		low = demand[q]
	}
	if q < len(supply) && supply[q] < high {
		high = supply[q]
	}
	price := decimal.NewFromFloat(low).Add(decimal.NewFromFloat(high)).Div(decimal.NewFromInt(2))

	buyerSurplus, sellerSurplus := decimal.Zero, decimal.Zero
	for i := 0; i < q; i++ {
		buyerSurplus = buyerSurplus.Add(decimal.NewFromFloat(demand[i]).Sub(price))
		sellerSurplus = sellerSurplus.Add(price.Sub(decimal.NewFromFloat(supply[i])))
	}

	return common.Equilibrium{
		Price:         price.InexactFloat64(),
		Quantity:      q,
		BuyerSurplus:  buyerSurplus.InexactFloat64(),
		SellerSurplus: sellerSurplus.InexactFloat64(),
		TotalSurplus:  buyerSurplus.Add(sellerSurplus).InexactFloat64(),
	}
}
