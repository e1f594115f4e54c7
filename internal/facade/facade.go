// Package facade implements the single entry point of the system:
// Handle(request) -> response. It routes a typed request envelope to
// session, validator, dispatcher, and the matching engine, and enforces
// authorization and per-client rate limiting around them.
package facade

import (
	"context"
	"sync"

	limiter "github.com/ulule/limiter/v3"
	"go.uber.org/zap"

	"github.com/matchcore/clob/internal/dispatcher"
	clobErrors "github.com/matchcore/clob/internal/errors"
	"github.com/matchcore/clob/internal/matching"
	"github.com/matchcore/clob/internal/metrics"
	"github.com/matchcore/clob/internal/orderbook"
	"github.com/matchcore/clob/internal/orders"
	"github.com/matchcore/clob/internal/session"
	"github.com/matchcore/clob/internal/validator"
)

// Request is the decoded envelope from the external interface: a type tag
// and a payload record. Payload is left as a map since its shape is
// polymorphic per type — the validator decodes it into a typed struct.
type Request struct {
	Type    string
	Payload map[string]interface{}
}

// Response is the shaped envelope returned to the caller.
type Response struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Facade ties together the session store, matching engine, and the rate
// limiter guarding it. The engine's own methods are not safe for concurrent
// use; mu is the single logical writer the concurrency model requires.
type Facade struct {
	logger  *zap.Logger
	engine  *matching.Engine
	session *session.Store
	metrics *metrics.Metrics
	limiter *limiter.Limiter

	mu sync.Mutex
}

// New creates a Facade over the given collaborators. lim may be nil to
// disable rate limiting (e.g. in tests).
func New(engine *matching.Engine, store *session.Store, m *metrics.Metrics, lim *limiter.Limiter, logger *zap.Logger) *Facade {
	return &Facade{
		logger:  logger,
		engine:  engine,
		session: store,
		metrics: m,
		limiter: lim,
	}
}

// Handle routes req to its handler and always returns a well-formed
// Response — it never panics or returns an error itself.
func (f *Facade) Handle(req Request) Response {
	if req.Type == "" || req.Payload == nil {
		return errorResponse(clobErrors.New(clobErrors.Malformed, "Malformed request"))
	}

	switch req.Type {
	case "login":
		return f.handleLogin(req.Payload)
	case "logout":
		return f.handleLogout(req.Payload)
	case "order":
		return f.handleOrder(req.Payload)
	case "cancel":
		return f.handleCancel(req.Payload)
	case "spread", "spread_info":
		return f.handleSpread()
	case "book":
		return f.handleBook()
	default:
		return errorResponse(clobErrors.New(clobErrors.UnknownType, "Unknown request type"))
	}
}

func (f *Facade) handleLogin(payload map[string]interface{}) Response {
	p, err := validator.Login(payload)
	if err != nil {
		return errorResponse(err)
	}
	token, ok := f.session.Login(p.Username, p.Password)
	if !ok {
		return errorResponse(clobErrors.New(clobErrors.Unauthorized, "Unauthorized"))
	}
	return Response{Success: true, Result: map[string]interface{}{"token": token}}
}

func (f *Facade) handleLogout(payload map[string]interface{}) Response {
	p, err := validator.Logout(payload)
	if err != nil {
		return errorResponse(err)
	}
	f.session.Logout(p.Token)
	return Response{Success: true}
}

// authorize resolves a bearer token to a client_id, and applies the
// per-client rate limit. It is shared by order and cancel, the two
// auth-required request types; logout carries a token too but does not go
// through it.
func (f *Facade) authorize(token string) (string, *Response) {
	clientID, ok := f.session.Resolve(token)
	if !ok {
		resp := errorResponse(clobErrors.New(clobErrors.Unauthorized, "Unauthorized"))
		return "", &resp
	}
	if f.limiter != nil {
		ctxv, err := f.limiter.Get(context.Background(), clientID)
		if err == nil && ctxv.Reached {
			resp := errorResponse(clobErrors.New(clobErrors.RateLimited, "Rate limited"))
			return "", &resp
		}
	}
	return clientID, nil
}

func (f *Facade) handleOrder(payload map[string]interface{}) Response {
	p, err := validator.Order(payload)
	if err != nil {
		return errorResponse(err)
	}
	clientID, errResp := f.authorize(p.Token)
	if errResp != nil {
		return *errResp
	}

	f.mu.Lock()
	result := dispatcher.Dispatch(f.engine, clientID, p)
	f.mu.Unlock()

	if f.metrics != nil {
		f.metrics.ObserveOrder(p.OrderType, p.Side)
		f.metrics.ObserveTrades(len(result.Trades))
	}

	return Response{Success: true, Result: result}
}

func (f *Facade) handleCancel(payload map[string]interface{}) Response {
	p, err := validator.Cancel(payload)
	if err != nil {
		return errorResponse(err)
	}
	clientID, errResp := f.authorize(p.Token)
	if errResp != nil {
		return *errResp
	}

	f.mu.Lock()
	ok := dispatcher.Cancel(f.engine, p.OrderID, clientID)
	f.mu.Unlock()

	if f.metrics != nil {
		result := "rejected"
		if ok {
			result = "ok"
		}
		f.metrics.ObserveCancel(result)
	}

	return Response{Success: ok}
}

// spreadSnapshot mirrors the top-of-book shape shared by spread and
// spread_info; either field is null when that side of the book is empty.
type spreadSnapshot struct {
	BestBid *float64 `json:"best_bid"`
	BestAsk *float64 `json:"best_ask"`
	Spread  *float64 `json:"spread"`
}

func (f *Facade) handleSpread() Response {
	f.mu.Lock()
	book := f.engine.Book()
	bid := book.BestBid()
	ask := book.BestAsk()
	spread, ok := book.Spread()
	f.mu.Unlock()

	snap := spreadSnapshot{}
	if bid != nil {
		v := round6(float64(bid.Price) / 100)
		snap.BestBid = &v
	}
	if ask != nil {
		v := round6(float64(ask.Price) / 100)
		snap.BestAsk = &v
	}
	if ok {
		v := round6(float64(spread) / 100)
		snap.Spread = &v
	}
	return Response{Success: true, Result: snap}
}

func round6(v float64) float64 {
	const scale = 1e6
	if v < 0 {
		return float64(int64(v*scale-0.5)) / scale
	}
	return float64(int64(v*scale+0.5)) / scale
}

// levelSnapshot is one price/quantity entry in a book depth response.
type levelSnapshot struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

func (f *Facade) handleBook() Response {
	f.mu.Lock()
	book := f.engine.Book()
	bidLevels := book.Depth(orders.Buy, 0)
	askLevels := book.Depth(orders.Sell, 0)
	f.mu.Unlock()

	return Response{Success: true, Result: map[string]interface{}{
		"bids": shapeLevels(bidLevels),
		"asks": shapeLevels(askLevels),
	}}
}

func shapeLevels(levels []*orderbook.PriceLevel) []levelSnapshot {
	out := make([]levelSnapshot, 0, len(levels))
	for _, l := range levels {
		out = append(out, levelSnapshot{Price: float64(l.Price) / 100, Qty: l.TotalQty})
	}
	return out
}

func errorResponse(err error) Response {
	if ce, ok := err.(*clobErrors.Error); ok {
		if ce.Code == clobErrors.Internal {
			return Response{Success: false, Error: "Internal error"}
		}
		return Response{Success: false, Error: ce.Message}
	}
	return Response{Success: false, Error: "Internal error"}
}
