// Package matching implements the stateless price-time-priority algorithms
// that run over a single order book: match_limit, match_market, and
// cancel. The engine itself holds only the book and the event bus — all
// synchronization is the caller's responsibility (the facade serializes
// requests into a single engine instance; see DESIGN.md).
package matching

import (
	"time"

	"github.com/segmentio/ksuid"

	"github.com/matchcore/clob/internal/events"
	"github.com/matchcore/clob/internal/orderbook"
	"github.com/matchcore/clob/internal/orders"
)

// Engine runs match_limit, match_market and cancel over one Book and
// publishes lifecycle events as a side effect of each operation. It holds
// no mutex of its own: the facade is the single logical writer.
type Engine struct {
	book *orderbook.Book
	bus  *events.Bus
}

// New creates an Engine over a fresh, empty book.
func New(bus *events.Bus) *Engine {
	return &Engine{book: orderbook.New(), bus: bus}
}

// Book exposes the underlying book for read-only queries (spread, depth).
func (e *Engine) Book() *orderbook.Book {
	return e.book
}

// NextTradeID mints an opaque, k-sortable trade identifier.
func NextTradeID() string {
	return ksuid.New().String()
}

// MatchLimit runs the limit-order algorithm from the spec: consume
// crossing liquidity on the opposite side at increasingly worse prices
// until the order is filled, the book stops crossing, or the opposite side
// is exhausted; rest any non-zero remainder at the order's own price.
func (e *Engine) MatchLimit(o *orders.Order) []orders.Trade {
	trades := e.consume(o, func(bestOppositePrice int64) bool {
		if o.Side == orders.Buy {
			return bestOppositePrice <= o.Price
		}
		return bestOppositePrice >= o.Price
	})

	switch {
	case o.Qty == 0:
		o.Status = orders.StatusFilled
		e.emitOrder(events.OrderFilled, o, o.Filled())
	case o.Qty < o.Original:
		o.Status = orders.StatusPartiallyFilled
		e.emitOrder(events.OrderPartiallyFilled, o, o.Filled())
		e.rest(o)
	default:
		o.Status = orders.StatusNew
		e.rest(o)
	}

	return trades
}

// MatchMarket runs the market-order algorithm: consume the opposite side
// at whatever prices are resting, with no crossing test, until filled or
// the opposite side is exhausted. Market orders never rest; any residual
// quantity is dropped.
func (e *Engine) MatchMarket(o *orders.Order) []orders.Trade {
	trades := e.consume(o, func(int64) bool { return true })

	switch {
	case o.Qty == 0:
		o.Status = orders.StatusFilled
		e.emitOrder(events.OrderFilled, o, o.Filled())
	case o.Filled() > 0:
		// Partial fill with no remaining liquidity: the order keeps its
		// partially_filled status and the residual is dropped, never
		// rested (market orders never enter the book).
		o.Status = orders.StatusPartiallyFilled
		e.emitOrder(events.OrderPartiallyFilled, o, o.Filled())
	default:
		o.Status = orders.StatusCancelled
		e.emitCancelled(o, o.Qty)
	}

	return trades
}

// consume is the shared matching loop for both limit and market orders.
// priceAcceptable implements the crossing test (always true for market
// orders). It mutates o.Qty down to the unfilled remainder and returns the
// trades produced, in execution order.
func (e *Engine) consume(o *orders.Order, priceAcceptable func(bestOppositePrice int64) bool) []orders.Trade {
	var trades []orders.Trade
	oppSide := o.Side.Opposite()

	for o.Qty > 0 {
		level := e.book.BestOppositeLevel(o.Side)
		if level == nil {
			break
		}
		if !priceAcceptable(level.Price) {
			break
		}

		for o.Qty > 0 && !level.Empty() {
			resting := level.Head()

			fillQty := o.Qty
			if resting.Qty < fillQty {
				fillQty = resting.Qty
			}

			trade := e.buildTrade(o, resting, level.Price, fillQty)
			e.emitTrade(trade)

			o.Qty -= fillQty
			e.book.ConsumeHead(oppSide, level, fillQty)

			if resting.Qty == 0 {
				resting.Status = orders.StatusFilled
				e.emitOrder(events.OrderFilled, resting, resting.Filled())
			} else {
				resting.Status = orders.StatusPartiallyFilled
				e.emitOrder(events.OrderPartiallyFilled, resting, resting.Filled())
			}

			trades = append(trades, trade)
		}

		e.book.DropEmptyLevel(oppSide, level)
	}

	return trades
}

// buildTrade constructs the immutable Trade record for one matched pair.
// Price is always the resting (maker) order's price, per price-time
// priority's price-improvement rule.
func (e *Engine) buildTrade(taker, maker *orders.Order, price int64, qty float64) orders.Trade {
	t := orders.Trade{
		ID:        NextTradeID(),
		Price:     price,
		Qty:       qty,
		Timestamp: time.Now(),
	}
	if taker.Side == orders.Buy {
		t.BuyerOrderID, t.BuyerID = taker.ID, taker.ClientID
		t.SellerOrderID, t.SellerID = maker.ID, maker.ClientID
	} else {
		t.BuyerOrderID, t.BuyerID = maker.ID, maker.ClientID
		t.SellerOrderID, t.SellerID = taker.ID, taker.ClientID
	}
	return t
}

// rest places a limit order's non-zero remainder into the book and emits
// ORDER_ADDED. Never called for market orders.
func (e *Engine) rest(o *orders.Order) {
	e.book.Rest(o)
	e.emit(events.OrderAdded, map[string]interface{}{
		"order_id":  o.ID,
		"side":      o.Side.String(),
		"price":     o.Price,
		"qty":       o.Qty,
		"client_id": o.ClientID,
	})
}

// Cancel implements the cancel protocol: remove a live order owned by
// callerClientID, mark it cancelled, and emit ORDER_CANCELLED with the
// residual quantity at the moment of cancellation. Returns false if the
// order is absent, terminal, or owned by a different client.
func (e *Engine) Cancel(orderID, callerClientID string) bool {
	o, ok := e.book.Cancel(orderID, callerClientID)
	if !ok {
		return false
	}
	e.emitCancelled(o, o.Qty)
	return true
}

func (e *Engine) emitOrder(t events.Type, o *orders.Order, filledQty float64) {
	e.emit(t, map[string]interface{}{
		"order_id":   o.ID,
		"client_id":  o.ClientID,
		"side":       o.Side.String(),
		"status":     o.Status.String(),
		"filled_qty": filledQty,
		"remaining":  o.Qty,
	})
}

// emitCancelled always carries client_id — every ORDER_CANCELLED event
// must, including the one for a zero-fill market order, per the resolved
// Open Question in the spec.
func (e *Engine) emitCancelled(o *orders.Order, residual float64) {
	e.emit(events.OrderCancelled, map[string]interface{}{
		"order_id":  o.ID,
		"client_id": o.ClientID,
		"side":      o.Side.String(),
		"residual":  residual,
	})
}

func (e *Engine) emitTrade(t orders.Trade) {
	e.emit(events.Trade, map[string]interface{}{
		"trade_id":       t.ID,
		"price":          t.Price,
		"qty":            t.Qty,
		"buyer_order_id": t.BuyerOrderID,
		"seller_order_id": t.SellerOrderID,
		"buyer_id":       t.BuyerID,
		"seller_id":      t.SellerID,
		"timestamp":      t.Timestamp.UnixNano(),
	})
}

func (e *Engine) emit(t events.Type, data map[string]interface{}) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.New(t, data))
}
