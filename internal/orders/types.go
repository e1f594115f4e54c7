// Package orders defines the order and trade value objects shared by the
// order book and matching engine.
//
// Prices are fixed-point int64 minor units (cents): $150.25 is stored as
// 15025. This avoids the float ordering surprises called out for price map
// keys and matches how the rest of this corpus represents money.
package orders

import (
	"fmt"
	"time"
)

// Side is the side of an order.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the side an order of this side matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Kind distinguishes the two order variants the engine accepts. There is no
// inheritance here: Order is a single tagged struct, and Kind selects which
// fields are meaningful (Price is only valid for KindLimit).
type Kind uint8

const (
	KindLimit Kind = iota
	KindMarket
)

func (k Kind) String() string {
	if k == KindLimit {
		return "limit"
	}
	return "market"
}

// Status is the lifecycle state of an order.
type Status uint8

const (
	StatusNew Status = iota
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusPartiallyFilled:
		return "partially_filled"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the order no longer participates in matching.
func (s Status) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled
}

// Order is the single tagged variant for both limit and market orders.
// Price is ignored (and must be zero) when Kind is KindMarket.
type Order struct {
	ID        string
	ClientID  string
	Side      Side
	Kind      Kind
	Price     int64 // minor units; meaningless for KindMarket
	Qty       float64 // remaining quantity, mutated down as fills occur
	Original  float64 // quantity at submission time, never mutated
	Status    Status
	CreatedAt time.Time
}

// Filled returns the quantity executed so far.
func (o *Order) Filled() float64 {
	return o.Original - o.Qty
}

// IsLimit reports whether this order may rest in the book.
func (o *Order) IsLimit() bool {
	return o.Kind == KindLimit
}

// Trade is an immutable record of one matched pair. Once constructed it is
// never mutated; subscribers own any copy they retain.
type Trade struct {
	ID            string
	Price         int64
	Qty           float64
	BuyerOrderID  string
	SellerOrderID string
	BuyerID       string
	SellerID      string
	Timestamp     time.Time
}

// FormatPrice renders a minor-unit price as a decimal string, e.g. 15025 ->
// "150.25".
func FormatPrice(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
