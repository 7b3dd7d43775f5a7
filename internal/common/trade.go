package common

import "fmt"

// Trade accounts for the buyer and seller who matched. Trades are immutable
// once formed.
type Trade struct {
	ID         uint64
	BuyerID    int
	SellerID   int
	Quantity   uint64
	Price      float64
	BuyerValue float64
	SellerCost float64
	Round      int
}

// Notional is the traded value of the match.
func (t Trade) Notional() float64 {
	return t.Price * float64(t.Quantity)
}

func (t Trade) String() string {
	return fmt.Sprintf("#%d round=%d buyer=%d seller=%d %d @ %f (value=%f cost=%f)",
		t.ID, t.Round, t.BuyerID, t.SellerID, t.Quantity, t.Price, t.BuyerValue, t.SellerCost)
}
