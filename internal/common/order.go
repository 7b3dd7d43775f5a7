package common

import "fmt"

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

// Order is a single bid or ask for one round. Orders never outlive the round
// they were quoted in.
type Order struct {
	AgentID   int     // Submitting agent
	Side      Side    // Order side
	Price     float64 // Limit price
	Quantity  uint64  // Units requested
	BaseValue float64 // Buyer's private value, bids only
	BaseCost  float64 // Seller's private cost, asks only
}

func (order Order) String() string {
	return fmt.Sprintf("agent=%d %v %d @ %f (value=%f cost=%f)",
		order.AgentID, order.Side, order.Quantity, order.Price, order.BaseValue, order.BaseCost)
}
