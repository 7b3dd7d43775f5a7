package common

// MarketInfo is the public signal handed to agents before they quote.
type MarketInfo struct {
	LastTradePrice float64
	AveragePrice   float64
	TotalTrades    int
	CurrentRound   int
}

// Equilibrium is the theoretical competitive-equilibrium benchmark of a market.
type Equilibrium struct {
	Price         float64
	Quantity      int
	BuyerSurplus  float64
	SellerSurplus float64
	TotalSurplus  float64
}
