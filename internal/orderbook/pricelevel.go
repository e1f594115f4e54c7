// Package orderbook implements the price-level queues, the red-black
// trees that keep them in price order, and the order-identity index that
// together form the book side of the matching engine.
package orderbook

import "github.com/matchcore/clob/internal/orders"

// orderNode is one link in a price level's FIFO queue. The back-pointer to
// level makes cancel-by-identity O(1) once the node is known, instead of a
// linear scan of the queue.
type orderNode struct {
	order *orders.Order
	prev  *orderNode
	next  *orderNode
	level *PriceLevel
}

// PriceLevel is the FIFO queue of resting orders at one price. Insertion is
// always at the tail; the matching engine always consumes from the head,
// which is exactly price-time priority within a level.
type PriceLevel struct {
	Price    int64
	head     *orderNode
	tail     *orderNode
	count    int
	TotalQty float64
}

// NewPriceLevel creates an empty queue at the given price.
func NewPriceLevel(price int64) *PriceLevel {
	return &PriceLevel{Price: price}
}

// Empty reports whether the level holds no resting orders.
func (pl *PriceLevel) Empty() bool {
	return pl.count == 0
}

// Count returns the number of resting orders at this level.
func (pl *PriceLevel) Count() int {
	return pl.count
}

// Head returns the order at the front of the queue (next to be matched),
// or nil if the level is empty.
func (pl *PriceLevel) Head() *orders.Order {
	if pl.head == nil {
		return nil
	}
	return pl.head.order
}

// append adds an order to the tail of the queue and returns the node handle
// used for O(1) removal on cancel.
func (pl *PriceLevel) append(o *orders.Order) *orderNode {
	n := &orderNode{order: o, level: pl}
	if pl.tail == nil {
		pl.head, pl.tail = n, n
	} else {
		n.prev = pl.tail
		pl.tail.next = n
		pl.tail = n
	}
	pl.count++
	pl.TotalQty += o.Qty
	return n
}

// removeHead pops the order at the front of the queue after it has been
// fully consumed.
func (pl *PriceLevel) removeHead() {
	if pl.head == nil {
		return
	}
	pl.remove(pl.head)
}

// remove unlinks a node from the queue in O(1).
func (pl *PriceLevel) remove(n *orderNode) {
	pl.count--
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		pl.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		pl.tail = n.prev
	}
	n.prev, n.next, n.level = nil, nil, nil
}

// adjustQty keeps TotalQty consistent with a partial fill or cancellation;
// delta is negative for both.
func (pl *PriceLevel) adjustQty(delta float64) {
	pl.TotalQty += delta
}

// Orders returns the resting orders at this level in FIFO order. Allocates;
// intended for depth snapshots and tests, not the matching hot path.
func (pl *PriceLevel) Orders() []*orders.Order {
	out := make([]*orders.Order, 0, pl.count)
	for n := pl.head; n != nil; n = n.next {
		out = append(out, n.order)
	}
	return out
}
