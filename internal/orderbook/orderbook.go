package orderbook

import "github.com/matchcore/clob/internal/orders"

// indexEntry is what order_index stores for each live order: enough to
// locate and remove it from its queue in O(1) without a linear scan.
type indexEntry struct {
	side orders.Side
	node *orderNode
}

// Book holds both sides of a single instrument: bids ordered highest first,
// asks ordered lowest first, plus the order-identity index. It has no
// internal synchronization of its own — the engine is the single logical
// writer, per the concurrency model.
type Book struct {
	bids  *priceTree // descending: best bid is the maximum price
	asks  *priceTree // ascending: best ask is the minimum price
	index map[string]*indexEntry
}

// New creates an empty book.
func New() *Book {
	return &Book{
		bids:  newPriceTree(true),
		asks:  newPriceTree(false),
		index: make(map[string]*indexEntry),
	}
}

func (b *Book) tree(side orders.Side) *priceTree {
	if side == orders.Buy {
		return b.bids
	}
	return b.asks
}

// oppositeTree returns the side a taker of the given side matches against.
func (b *Book) oppositeTree(side orders.Side) *priceTree {
	return b.tree(side.Opposite())
}

// BestBid returns the highest resting bid level, or nil if there are none.
func (b *Book) BestBid() *PriceLevel { return b.bids.Best() }

// BestAsk returns the lowest resting ask level, or nil if there are none.
func (b *Book) BestAsk() *PriceLevel { return b.asks.Best() }

// Spread returns best ask minus best bid and true, or (0, false) if either
// side is empty.
func (b *Book) Spread() (int64, bool) {
	bid, ask := b.BestBid(), b.BestAsk()
	if bid == nil || ask == nil {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// Rest inserts a limit order at its price on its side and adds it to the
// identity index. Only called for orders that are new or carry a
// non-terminal residual quantity; callers must have already decided the
// order belongs in the book.
func (b *Book) Rest(o *orders.Order) {
	tree := b.tree(o.Side)
	level := tree.GetOrInsert(o.Price)
	node := level.append(o)
	b.index[o.ID] = &indexEntry{side: o.Side, node: node}
}

// ConsumeHead applies a fill of qty to the head of the given level,
// removing it from the queue and the index if it becomes fully filled.
// The caller (the matching engine) owns setting the order's Status and
// emitting events; ConsumeHead only maintains book structure.
func (b *Book) ConsumeHead(side orders.Side, level *PriceLevel, qty float64) *orders.Order {
	resting := level.Head()
	if resting == nil {
		return nil
	}
	resting.Qty -= qty
	level.adjustQty(-qty)

	if resting.Qty == 0 {
		level.removeHead()
		delete(b.index, resting.ID)
	}
	return resting
}

// DropEmptyLevel removes the price key for level from its side if the
// level has no resting orders left, keeping the "no empty queue" invariant.
func (b *Book) DropEmptyLevel(side orders.Side, level *PriceLevel) {
	b.tree(side).DeleteIfEmpty(level)
}

// Cancel removes a resting order from the book if it exists, is not
// terminal, and is owned by callerClientID. Returns the cancelled order and
// true on success.
func (b *Book) Cancel(orderID, callerClientID string) (*orders.Order, bool) {
	e, ok := b.index[orderID]
	if !ok {
		return nil, false
	}
	o := e.node.order
	if o.Status.Terminal() {
		return nil, false
	}
	if o.ClientID != callerClientID {
		return nil, false
	}

	level := e.node.level
	level.adjustQty(-o.Qty)
	level.remove(e.node)
	delete(b.index, orderID)
	b.tree(e.side).DeleteIfEmpty(level)

	o.Status = orders.StatusCancelled
	return o, true
}

// BestOppositeLevel returns the best price level on the opposite side of
// `side`, used by the matching loop to find the next level to consume.
func (b *Book) BestOppositeLevel(side orders.Side) *PriceLevel {
	return b.oppositeTree(side).Best()
}

// Depth returns up to n price levels on the given side in matching-priority
// order (best first). n <= 0 returns all levels. Used for book/spread
// snapshots; not on the matching hot path.
func (b *Book) Depth(side orders.Side, n int) []*PriceLevel {
	out := make([]*PriceLevel, 0)
	b.tree(side).ForEach(func(l *PriceLevel) bool {
		out = append(out, l)
		return n <= 0 || len(out) < n
	})
	return out
}

// Size returns the number of live orders tracked in the identity index.
func (b *Book) Size() int {
	return len(b.index)
}
