package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchcore/clob/internal/events"
	"github.com/matchcore/clob/internal/orders"
)

func testBus() *events.Bus {
	return events.New(events.Config{TestMode: true}, nil)
}

func limit(id, clientID string, side orders.Side, price int64, qty float64) *orders.Order {
	return &orders.Order{ID: id, ClientID: clientID, Side: side, Kind: orders.KindLimit, Price: price, Qty: qty, Original: qty}
}

func market(id, clientID string, side orders.Side, qty float64) *orders.Order {
	return &orders.Order{ID: id, ClientID: clientID, Side: side, Kind: orders.KindMarket, Qty: qty, Original: qty}
}

// Scenario 1: market order against an empty book cancels with no trades.
func TestScenario1_MarketAgainstEmptyBook(t *testing.T) {
	e := New(testBus())
	o := market("o1", "alice", orders.Buy, 1)

	trades := e.MatchMarket(o)

	assert.Empty(t, trades)
	assert.Equal(t, orders.StatusCancelled, o.Status)
	assert.Equal(t, 0, e.Book().Size())
}

// Scenario 2: a crossing limit order partially fills the resting order.
func TestScenario2_PartialFillAgainstResting(t *testing.T) {
	e := New(testBus())
	resting := limit("sell1", "bob", orders.Sell, 10000, 5)
	e.MatchLimit(resting)

	aggressor := limit("buy1", "alice", orders.Buy, 10000, 3)
	trades := e.MatchLimit(aggressor)

	require.Len(t, trades, 1)
	assert.Equal(t, int64(10000), trades[0].Price)
	assert.Equal(t, 3.0, trades[0].Qty)
	assert.Equal(t, orders.StatusFilled, aggressor.Status)
	assert.Equal(t, orders.StatusPartiallyFilled, resting.Status)
	assert.Equal(t, 2.0, resting.Qty)
	assert.Equal(t, int64(10000), e.Book().BestAsk().Price)
}

// Scenario 3: a non-crossing sell simply rests; no self-match against the
// empty bid side.
func TestScenario3_NonCrossingRests(t *testing.T) {
	e := New(testBus())
	e.MatchLimit(limit("sell1", "bob", orders.Sell, 10000, 5))
	e.MatchLimit(limit("sell2", "bob", orders.Sell, 9500, 6))

	assert.Nil(t, e.Book().BestBid())
	assert.Equal(t, int64(9500), e.Book().BestAsk().Price)
}

// Scenario 4: FIFO within a price level — the first resting bid is consumed
// before the second.
func TestScenario4_FIFOWithinLevel(t *testing.T) {
	e := New(testBus())
	first := limit("buy1", "alice", orders.Buy, 10000, 10)
	second := limit("buy2", "carol", orders.Buy, 10000, 1)
	e.MatchLimit(first)
	e.MatchLimit(second)

	trades := e.MatchLimit(limit("sell1", "bob", orders.Sell, 10000, 10))

	require.Len(t, trades, 1)
	assert.Equal(t, "buy1", trades[0].BuyerOrderID)
	assert.Equal(t, orders.StatusFilled, first.Status)
	assert.Equal(t, 1.0, second.Qty)
	assert.Equal(t, orders.StatusNew, second.Status)
}

// Scenario 5: a market sell executes at the better (higher) bid price first.
func TestScenario5_MarketPrefersBetterPrice(t *testing.T) {
	e := New(testBus())
	low := limit("buy100", "alice", orders.Buy, 10000, 5)
	high := limit("buy101", "carol", orders.Buy, 10100, 5)
	e.MatchLimit(low)
	e.MatchLimit(high)

	trades := e.MatchMarket(market("sell1", "bob", orders.Sell, 1))

	require.Len(t, trades, 1)
	assert.Equal(t, int64(10100), trades[0].Price)
	assert.Equal(t, 5.0, low.Qty)
	assert.Equal(t, 4.0, high.Qty)
}

// Scenario 6: an aggressor sweeps two price levels in price order.
func TestScenario6_SweepsMultipleLevels(t *testing.T) {
	e := New(testBus())
	level100 := limit("sell100", "bob", orders.Sell, 10000, 100)
	level101 := limit("sell101", "bob", orders.Sell, 10100, 100)
	e.MatchLimit(level100)
	e.MatchLimit(level101)

	aggressor := limit("buy1", "alice", orders.Buy, 10200, 101)
	trades := e.MatchLimit(aggressor)

	require.Len(t, trades, 2)
	assert.Equal(t, int64(10000), trades[0].Price)
	assert.Equal(t, 100.0, trades[0].Qty)
	assert.Equal(t, int64(10100), trades[1].Price)
	assert.Equal(t, 1.0, trades[1].Qty)
	assert.Equal(t, orders.StatusFilled, aggressor.Status)
	assert.Equal(t, 101.0, aggressor.Filled())
	assert.Equal(t, 99.0, level101.Qty)
}

func TestSubmitThenCancel_BookReturnsToEmpty(t *testing.T) {
	e := New(testBus())
	o := limit("sell1", "bob", orders.Sell, 10000, 5)
	e.MatchLimit(o)

	ok := e.Cancel("sell1", "bob")

	require.True(t, ok)
	assert.Equal(t, orders.StatusCancelled, o.Status)
	assert.Equal(t, 0, e.Book().Size())
	assert.Nil(t, e.Book().BestAsk())
}

func TestCancel_RejectsDifferentClient(t *testing.T) {
	e := New(testBus())
	e.MatchLimit(limit("sell1", "bob", orders.Sell, 10000, 5))

	ok := e.Cancel("sell1", "mallory")

	assert.False(t, ok)
	assert.Equal(t, 1, e.Book().Size())
}

func TestMarketOrder_PartialFillDropsResidual(t *testing.T) {
	e := New(testBus())
	e.MatchLimit(limit("sell1", "bob", orders.Sell, 10000, 3))

	o := market("buy1", "alice", orders.Buy, 10)
	trades := e.MatchMarket(o)

	require.Len(t, trades, 1)
	assert.Equal(t, orders.StatusPartiallyFilled, o.Status)
	assert.Equal(t, 3.0, o.Filled())
	assert.Equal(t, 0, e.Book().Size())
}

func TestBookNeverLocksAfterMatch(t *testing.T) {
	e := New(testBus())
	e.MatchLimit(limit("buy1", "alice", orders.Buy, 10000, 1))
	e.MatchLimit(limit("sell1", "bob", orders.Sell, 10500, 1))

	bid, ask := e.Book().BestBid(), e.Book().BestAsk()
	require.NotNil(t, bid)
	require.NotNil(t, ask)
	assert.LessOrEqual(t, bid.Price, ask.Price)
}
