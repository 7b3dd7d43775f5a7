package auction

import (
	"fmt"

	"doubleauction/internal/common"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// settle applies matched trades in order. A trade that would leave either
// side with negative surplus never should have cleared; it is logged and
// dropped. An unknown buyer or seller is a hard failure.
func (a *Auction) settle(trades []common.Trade) error {
	for _, trade := range trades {
		buyer, err := a.env.Agent(trade.BuyerID)
		if err != nil {
			return fmt.Errorf("settle trade %d: buyer: %w", trade.ID, err)
		}
		seller, err := a.env.Agent(trade.SellerID)
		if err != nil {
			return fmt.Errorf("settle trade %d: seller: %w", trade.ID, err)
		}

		price := decimal.NewFromFloat(trade.Price)
		buyerSurplus := decimal.NewFromFloat(trade.BuyerValue).Sub(price)
		sellerSurplus := price.Sub(decimal.NewFromFloat(trade.SellerCost))

		if buyerSurplus.IsNegative() || sellerSurplus.IsNegative() {
			log.Warn().
				Str("run", a.id).
				Stringer("trade", trade).
				Str("buyer_surplus", buyerSurplus.String()).
				Str("seller_surplus", sellerSurplus.String()).
				Msg("trade rejected due to negative surplus")
			continue
		}

		buyer.FinalizeTrade(trade)
		seller.FinalizeTrade(trade)

		a.totalSurplus = a.totalSurplus.Add(buyerSurplus).Add(sellerSurplus)
		a.averagePrices = append(a.averagePrices, trade.Price)
		a.successfulTrades = append(a.successfulTrades, trade)

		log.Info().
			Str("run", a.id).
			Uint64("trade", trade.ID).
			Int("round", trade.Round).
			Int("buyer", trade.BuyerID).
			Int("seller", trade.SellerID).
			Float64("price", trade.Price).
			Uint64("quantity", trade.Quantity).
			Str("buyer_surplus", buyerSurplus.StringFixed(2)).
			Str("seller_surplus", sellerSurplus.StringFixed(2)).
			Msg("trade executed")
	}
	return nil
}
