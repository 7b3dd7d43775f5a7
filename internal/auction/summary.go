package auction

import (
	"doubleauction/internal/common"

	"github.com/rs/zerolog/log"
)

// Summary compares what the auction realised with the theoretical
// competitive equilibrium of its environment.
type Summary struct {
	RunID        string
	Rounds       int
	TotalTrades  int
	TotalSurplus float64
	AveragePrice float64

	Equilibrium common.Equilibrium

	SurplusDifference float64 // Practical minus theoretical total surplus.
	Efficiency        float64 // Practical over theoretical total surplus; 0 without a positive benchmark.

	// NegativeSurplus flags a run whose realised surplus went below zero.
	// It calls for investigation but is not a failure.
	NegativeSurplus bool
}

func (a *Auction) Summary() Summary {
	eq := a.env.Equilibrium()
	total := a.TotalSurplus()

	s := Summary{
		RunID:             a.id,
		Rounds:            a.currentRound,
		TotalTrades:       len(a.successfulTrades),
		TotalSurplus:      total,
		AveragePrice:      meanPrice(a.averagePrices),
		Equilibrium:       eq,
		SurplusDifference: total - eq.TotalSurplus,
		NegativeSurplus:   a.totalSurplus.IsNegative(),
	}
	if eq.TotalSurplus > 0 {
		s.Efficiency = total / eq.TotalSurplus
	}
	return s
}

// Log writes the summary, warning when realised surplus is negative.
func (s Summary) Log() {
	log.Info().
		Str("run", s.RunID).
		Int("rounds", s.Rounds).
		Int("trades", s.TotalTrades).
		Float64("surplus", s.TotalSurplus).
		Float64("average_price", s.AveragePrice).
		Float64("ce_price", s.Equilibrium.Price).
		Int("ce_quantity", s.Equilibrium.Quantity).
		Float64("ce_surplus", s.Equilibrium.TotalSurplus).
		Float64("difference", s.SurplusDifference).
		Float64("efficiency", s.Efficiency).
		Msg("auction summary")

	if s.NegativeSurplus {
		log.Warn().
			Str("run", s.RunID).
			Float64("surplus", s.TotalSurplus).
			Msg("negative practical surplus: check bid/ask values against agent utilities, overestimated initial utilities, or frictions preventing trades")
	}
}
