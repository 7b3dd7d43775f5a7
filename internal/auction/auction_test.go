package auction_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"doubleauction/internal/auction"
	. "doubleauction/internal/common"
	"doubleauction/internal/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Setup & Helpers --------------------------------------------------------

var errUnknownAgent = errors.New("unknown agent")

type quoteFunc func(info MarketInfo) (Order, bool, error)

type stubAgent struct {
	id         int
	first      float64
	ineligible bool
	quote      quoteFunc

	infos     []MarketInfo
	finalized []Trade
}

func (a *stubAgent) ID() int                 { return a.id }
func (a *stubAgent) CanQuote() bool          { return !a.ineligible }
func (a *stubAgent) FirstUnitValue() float64 { return a.first }

func (a *stubAgent) Quote(_ context.Context, info MarketInfo) (Order, bool, error) {
	a.infos = append(a.infos, info)
	if a.quote == nil {
		return Order{}, false, nil
	}
	return a.quote(info)
}

func (a *stubAgent) FinalizeTrade(trade Trade) {
	a.finalized = append(a.finalized, trade)
}

type stubEnv struct {
	buyers  []*stubAgent
	sellers []*stubAgent
	eq      Equilibrium
	hidden  map[int]bool
}

func (e *stubEnv) Agent(id int) (auction.Agent, error) {
	if e.hidden[id] {
		return nil, errUnknownAgent
	}
	for _, a := range append(append([]*stubAgent(nil), e.buyers...), e.sellers...) {
		if a.id == id {
			return a, nil
		}
	}
	return nil, errUnknownAgent
}

func (e *stubEnv) Buyers() []auction.Agent  { return agents(e.buyers) }
func (e *stubEnv) Sellers() []auction.Agent { return agents(e.sellers) }
func (e *stubEnv) Equilibrium() Equilibrium { return e.eq }

func agents(in []*stubAgent) []auction.Agent {
	out := make([]auction.Agent, len(in))
	for i, a := range in {
		out[i] = a
	}
	return out
}

// fixedBid quotes the same bid every round.
func fixedBid(id int, price, value float64) *stubAgent {
	return &stubAgent{id: id, first: value, quote: func(MarketInfo) (Order, bool, error) {
		return Order{AgentID: id, Side: Buy, Price: price, Quantity: 1, BaseValue: value}, true, nil
	}}
}

// fixedAsk quotes the same ask every round.
func fixedAsk(id int, price, cost float64) *stubAgent {
	return &stubAgent{id: id, first: cost, quote: func(MarketInfo) (Order, bool, error) {
		return Order{AgentID: id, Side: Sell, Price: price, Quantity: 1, BaseCost: cost}, true, nil
	}}
}

// --- Tests ------------------------------------------------------------------

func TestRun_SingleCrossingPair(t *testing.T) {
	b1, b2 := fixedBid(1, 100, 100), fixedBid(2, 90, 95)
	s1, s2 := fixedAsk(3, 80, 70), fixedAsk(4, 95, 85)
	env := &stubEnv{buyers: []*stubAgent{b1, b2}, sellers: []*stubAgent{s1, s2}}

	a := auction.New(env, 1)
	summary, err := a.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, a.TradeHistory(), 1)
	trade := a.TradeHistory()[0]
	assert.Equal(t, 1, trade.BuyerID)
	assert.Equal(t, 3, trade.SellerID)
	assert.Equal(t, 90.0, trade.Price)
	assert.Equal(t, 30.0, a.TotalSurplus())
	assert.Equal(t, []float64{90}, a.AveragePrices())

	assert.Len(t, b1.finalized, 1)
	assert.Len(t, s1.finalized, 1)
	assert.Empty(t, b2.finalized)
	assert.Empty(t, s2.finalized)

	assert.Equal(t, 1, summary.TotalTrades)
	assert.Equal(t, 30.0, summary.TotalSurplus)
	assert.Equal(t, 90.0, summary.AveragePrice)
	assert.Equal(t, 1, a.CurrentRound())
	assert.True(t, a.Finished())
}

func TestRun_RejectsNegativeSurplusTrade(t *testing.T) {
	// The buyer bids above its own value, so the midpoint leaves it short.
	buyer := fixedBid(1, 100, 80)
	seller := fixedAsk(2, 80, 70)
	env := &stubEnv{buyers: []*stubAgent{buyer}, sellers: []*stubAgent{seller}}

	a := auction.New(env, 2)
	_, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, a.TradeHistory())
	assert.Empty(t, a.AveragePrices())
	assert.Zero(t, a.TotalSurplus())
	assert.Empty(t, buyer.finalized)
	assert.Empty(t, seller.finalized)

	// The engine still logged both matches.
	assert.Equal(t, []engine.BookEntry{
		{Price: 90, Quantity: 1, Notional: 90},
		{Price: 90, Quantity: 1, Notional: 90},
	}, a.OrderBook())
	assert.Equal(t, 2, a.CurrentRound())
}

func TestRun_FinishedAuctionIsNoOp(t *testing.T) {
	buyer := fixedBid(1, 100, 100)
	seller := fixedAsk(2, 80, 70)
	env := &stubEnv{buyers: []*stubAgent{buyer}, sellers: []*stubAgent{seller}}

	a := auction.New(env, 3)
	first, err := a.Run(context.Background())
	require.NoError(t, err)

	history, prices, book := a.TradeHistory(), a.AveragePrices(), a.OrderBook()
	quotes := len(buyer.infos)

	second, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, history, a.TradeHistory())
	assert.Equal(t, prices, a.AveragePrices())
	assert.Equal(t, book, a.OrderBook())
	assert.Equal(t, quotes, len(buyer.infos))
	assert.Equal(t, 3, a.CurrentRound())
}

func TestMarketInfo_FallsBackToValueMidpoint(t *testing.T) {
	b1 := &stubAgent{id: 1, first: 100}
	b2 := &stubAgent{id: 2, first: 120}
	s1 := &stubAgent{id: 3, first: 80}
	s2 := &stubAgent{id: 4, first: 60}
	env := &stubEnv{buyers: []*stubAgent{b1, b2}, sellers: []*stubAgent{s1, s2}}

	a := auction.New(env, 2)
	assert.Equal(t, MarketInfo{LastTradePrice: 90, AveragePrice: 90}, a.MarketInfo())

	_, err := a.Run(context.Background())
	require.NoError(t, err)

	// Nobody quoted, so every round saw the fallback.
	require.Len(t, b1.infos, 2)
	assert.Equal(t, MarketInfo{LastTradePrice: 90, AveragePrice: 90, CurrentRound: 1}, b1.infos[0])
	assert.Equal(t, MarketInfo{LastTradePrice: 90, AveragePrice: 90, CurrentRound: 2}, s2.infos[1])
}

func TestMarketInfo_TracksSettledPrices(t *testing.T) {
	prices := []float64{100, 110, 90}
	buyer := &stubAgent{id: 1, first: 200, quote: func(info MarketInfo) (Order, bool, error) {
		p := prices[info.CurrentRound-1]
		return Order{AgentID: 1, Side: Buy, Price: p, Quantity: 1, BaseValue: 200}, true, nil
	}}
	seller := &stubAgent{id: 2, first: 0, quote: func(info MarketInfo) (Order, bool, error) {
		p := prices[info.CurrentRound-1]
		return Order{AgentID: 2, Side: Sell, Price: p, Quantity: 1, BaseCost: 0}, true, nil
	}}
	env := &stubEnv{buyers: []*stubAgent{buyer}, sellers: []*stubAgent{seller}}

	a := auction.New(env, 3)
	_, err := a.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, buyer.infos, 3)
	assert.Equal(t, MarketInfo{LastTradePrice: 100, AveragePrice: 100, CurrentRound: 1}, buyer.infos[0])
	assert.Equal(t, MarketInfo{LastTradePrice: 100, AveragePrice: 100, TotalTrades: 1, CurrentRound: 2}, buyer.infos[1])
	assert.Equal(t, MarketInfo{LastTradePrice: 110, AveragePrice: 105, TotalTrades: 2, CurrentRound: 3}, buyer.infos[2])
	assert.Equal(t, MarketInfo{LastTradePrice: 90, AveragePrice: 100, TotalTrades: 3, CurrentRound: 3}, a.MarketInfo())
}

func TestRun_SkipsIneligibleAndDecliningAgents(t *testing.T) {
	ineligible := fixedBid(1, 200, 200)
	ineligible.ineligible = true
	declining := &stubAgent{id: 2, first: 150}
	buyer := fixedBid(3, 100, 100)
	seller := fixedAsk(4, 80, 70)
	env := &stubEnv{buyers: []*stubAgent{ineligible, declining, buyer}, sellers: []*stubAgent{seller}}

	a := auction.New(env, 1)
	_, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, ineligible.infos)
	assert.Len(t, declining.infos, 1)
	require.Len(t, a.TradeHistory(), 1)
	assert.Equal(t, 3, a.TradeHistory()[0].BuyerID)
}

func TestRun_QuoteFailureAbortsRun(t *testing.T) {
	errOffline := errors.New("decision service offline")
	buyer := &stubAgent{id: 1, first: 100, quote: func(info MarketInfo) (Order, bool, error) {
		if info.CurrentRound == 2 {
			return Order{}, false, errOffline
		}
		return Order{AgentID: 1, Side: Buy, Price: 100, Quantity: 1, BaseValue: 100}, true, nil
	}}
	seller := fixedAsk(2, 80, 70)
	env := &stubEnv{buyers: []*stubAgent{buyer}, sellers: []*stubAgent{seller}}

	a := auction.New(env, 3)
	_, err := a.Run(context.Background())

	assert.ErrorIs(t, err, errOffline)
	assert.Equal(t, 1, a.CurrentRound())
	assert.Len(t, a.TradeHistory(), 1)
	assert.False(t, a.Finished())
}

func TestRun_UnknownAgentIsFatal(t *testing.T) {
	buyer := fixedBid(1, 100, 100)
	seller := fixedAsk(2, 80, 70)
	env := &stubEnv{
		buyers:  []*stubAgent{buyer},
		sellers: []*stubAgent{seller},
		hidden:  map[int]bool{2: true},
	}

	a := auction.New(env, 1)
	_, err := a.Run(context.Background())

	assert.ErrorIs(t, err, errUnknownAgent)
	assert.Empty(t, a.TradeHistory())
	assert.Empty(t, buyer.finalized)
	assert.Equal(t, 0, a.CurrentRound())
}

func TestRun_CanceledContext(t *testing.T) {
	env := &stubEnv{buyers: []*stubAgent{fixedBid(1, 100, 100)}, sellers: []*stubAgent{fixedAsk(2, 80, 70)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := auction.New(env, 2)
	_, err := a.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, a.CurrentRound())
}

func TestSummary_ComparesWithEquilibrium(t *testing.T) {
	env := &stubEnv{
		buyers:  []*stubAgent{fixedBid(1, 100, 100)},
		sellers: []*stubAgent{fixedAsk(2, 80, 70)},
		eq:      Equilibrium{Price: 85, Quantity: 1, BuyerSurplus: 15, SellerSurplus: 25, TotalSurplus: 40},
	}

	a := auction.New(env, 1)
	summary, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a.ID(), summary.RunID)
	assert.Equal(t, 1, summary.Rounds)
	assert.Equal(t, 30.0, summary.TotalSurplus)
	assert.Equal(t, -10.0, summary.SurplusDifference)
	assert.Equal(t, 0.75, summary.Efficiency)
	assert.False(t, summary.NegativeSurplus)
	assert.Equal(t, env.eq, summary.Equilibrium)
}

func TestSummary_NoTrades(t *testing.T) {
	env := &stubEnv{buyers: []*stubAgent{fixedBid(1, 50, 60)}, sellers: []*stubAgent{fixedAsk(2, 80, 70)}}

	summary, err := auction.New(env, 2).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.TotalTrades)
	assert.Zero(t, summary.AveragePrice)
	assert.Zero(t, summary.Efficiency)
}

func TestRun_SettlesAtFloatLimit(t *testing.T) {
	buyer := fixedBid(1, math.MaxFloat64, math.MaxFloat64)
	seller := fixedAsk(2, math.MaxFloat64, 0)
	env := &stubEnv{buyers: []*stubAgent{buyer}, sellers: []*stubAgent{seller}}

	a := auction.New(env, 1)
	_, err := a.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, a.TradeHistory(), 1)
	assert.Equal(t, math.MaxFloat64, a.TradeHistory()[0].Price)
	assert.Equal(t, math.MaxFloat64, a.TotalSurplus())
	assert.Len(t, buyer.finalized, 1)
	assert.Len(t, seller.finalized, 1)
}

func TestRun_NonFiniteBaseValueIsSkipped(t *testing.T) {
	buyer := fixedBid(1, 100, math.Inf(1))
	seller := fixedAsk(2, 80, 70)
	env := &stubEnv{buyers: []*stubAgent{buyer}, sellers: []*stubAgent{seller}}

	a := auction.New(env, 1)
	_, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, a.TradeHistory())
	assert.Empty(t, a.OrderBook())
	assert.Empty(t, buyer.finalized)
	assert.Equal(t, 1, a.CurrentRound())
}
