// Package dispatcher turns a validated order payload into an Order record,
// routes it to the matching engine, and shapes the engine's result into
// the response envelope's "order"/"trades" blocks.
package dispatcher

import (
	"math"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/matchcore/clob/internal/matching"
	"github.com/matchcore/clob/internal/orders"
	"github.com/matchcore/clob/internal/validator"
)

// OrderResult is the shaped "order" block of a successful order response:
// filled_qty + remaining_qty always equals original_qty.
type OrderResult struct {
	OrderID      string  `json:"order_id"`
	Status       string  `json:"status"`
	OriginalQty  float64 `json:"original_qty"`
	RemainingQty float64 `json:"remaining_qty"`
	FilledQty    float64 `json:"filled_qty"`
	Side         string  `json:"side"`
}

// TradeResult is the shaped per-trade entry in a successful order response.
type TradeResult struct {
	TradeID   string  `json:"trade_id"`
	Price     float64 `json:"price"`
	Qty       float64 `json:"qty"`
	Timestamp int64   `json:"timestamp"`
}

// Result bundles the shaped order and trades for a successful dispatch.
type Result struct {
	Order  OrderResult   `json:"order"`
	Trades []TradeResult `json:"trades"`
}

// Dispatch builds the Order record for p, routes it through engine, and
// shapes the response. clientID is the caller's resolved identity — never
// read from the payload itself.
func Dispatch(engine *matching.Engine, clientID string, p *validator.OrderPayload) Result {
	o := &orders.Order{
		ID:        ksuid.New().String(),
		ClientID:  clientID,
		Side:      parseSide(p.Side),
		Original:  p.Qty,
		Qty:       p.Qty,
		Status:    orders.StatusNew,
		CreatedAt: time.Now(),
	}

	var trades []orders.Trade
	if p.OrderType == "limit" {
		o.Kind = orders.KindLimit
		// Round to 2 decimals (minor units) before the order ever touches
		// the book — the engine itself never re-quantizes a price.
		o.Price = int64(math.Round(*p.Price * 100))
		trades = engine.MatchLimit(o)
	} else {
		o.Kind = orders.KindMarket
		trades = engine.MatchMarket(o)
	}

	return shape(o, trades)
}

func shape(o *orders.Order, trades []orders.Trade) Result {
	tradeResults := make([]TradeResult, 0, len(trades))
	for _, t := range trades {
		tradeResults = append(tradeResults, TradeResult{
			TradeID:   t.ID,
			Price:     float64(t.Price) / 100,
			Qty:       t.Qty,
			Timestamp: t.Timestamp.UnixNano(),
		})
	}

	return Result{
		Order: OrderResult{
			OrderID:      o.ID,
			Status:       o.Status.String(),
			OriginalQty:  o.Original,
			RemainingQty: o.Qty,
			FilledQty:    o.Filled(),
			Side:         o.Side.String(),
		},
		Trades: tradeResults,
	}
}

func parseSide(s string) orders.Side {
	if s == "buy" {
		return orders.Buy
	}
	return orders.Sell
}

// Cancel delegates to the engine's cancel protocol and returns whether it
// succeeded.
func Cancel(engine *matching.Engine, orderID, callerClientID string) bool {
	return engine.Cancel(orderID, callerClientID)
}
