package auction

import (
	"doubleauction/internal/common"

	"github.com/shopspring/decimal"
)

// MarketInfo is the public signal as of the last completed round.
func (a *Auction) MarketInfo() common.MarketInfo {
	return a.marketInfo(a.currentRound)
}

// marketInfo is recomputed from the trade history every time it is asked
// for. Before any trade it falls back to the midpoint of the best first-unit
// buyer value and the cheapest first-unit seller cost.
func (a *Auction) marketInfo(round int) common.MarketInfo {
	info := common.MarketInfo{
		TotalTrades:  len(a.successfulTrades),
		CurrentRound: round,
	}

	if len(a.averagePrices) == 0 {
		estimate := a.initialPriceEstimate()
		info.LastTradePrice = estimate
		info.AveragePrice = estimate
		return info
	}

	info.LastTradePrice = a.averagePrices[len(a.averagePrices)-1]
	info.AveragePrice = meanPrice(a.averagePrices)
	return info
}

// initialPriceEstimate is the theoretical fair price before trading starts.
// With only one side present that side's best value is used; with neither it
// is zero.
func (a *Auction) initialPriceEstimate() float64 {
	buyers, sellers := a.env.Buyers(), a.env.Sellers()

	var best, cheapest float64
	for i, buyer := range buyers {
		if v := buyer.FirstUnitValue(); i == 0 || v > best {
			best = v
		}
	}
	for i, seller := range sellers {
		if v := seller.FirstUnitValue(); i == 0 || v < cheapest {
			cheapest = v
		}
	}

	switch {
	case len(buyers) > 0 && len(sellers) > 0:
		return (best + cheapest) / 2
	case len(buyers) > 0:
		return best
	default:
		return cheapest
	}
}

func meanPrice(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(decimal.NewFromFloat(p))
	}
	return sum.Div(decimal.NewFromInt(int64(len(prices)))).InexactFloat64()
}
