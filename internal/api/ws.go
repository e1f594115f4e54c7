package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/matchcore/clob/internal/events"
	"github.com/matchcore/clob/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Both feeds are read-only and same-origin concerns don't apply to a
	// local matching engine's event stream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventServer streams the bus's five event kinds to websocket subscribers
// as JSON-lines, one frame per line. It exposes two feeds, the split the
// original implementation's PublicFeed/PrivateFeed make: an unauthenticated
// public feed with client_id/order_id (and a trade's buyer/seller
// identities) redacted to "***", and a bearer-token-authenticated private
// feed that streams every event unredacted.
type EventServer struct {
	bus     *events.Bus
	session *session.Store
	logger  *zap.Logger
}

// NewEventServer creates an EventServer over bus and store. It registers no
// routes itself; Register attaches them. Each connection receives the events
// published on bus after it subscribed, for as long as it stays open.
func NewEventServer(bus *events.Bus, store *session.Store, logger *zap.Logger) *EventServer {
	return &EventServer{bus: bus, session: store, logger: logger}
}

// Register attaches the public feed at GET /v1/events and the private feed
// at GET /v1/events/private to r.
func (s *EventServer) Register(r *gin.Engine) {
	r.GET("/v1/events", s.handlePublic)
	r.GET("/v1/events/private", s.handlePrivate)
}

var feedTypes = []events.Type{
	events.OrderAdded,
	events.OrderCancelled,
	events.OrderPartiallyFilled,
	events.OrderFilled,
	events.Trade,
}

// handlePublic serves the redacted feed: no authentication required, but
// client_id/order_id and trade counterparty identities never reach the wire.
func (s *EventServer) handlePublic(c *gin.Context) {
	s.stream(c, events.NewRedactedEnvelope)
}

// handlePrivate serves the unredacted feed behind the same bearer token
// used for order/cancel requests. The token travels as a "token" query
// parameter since a browser's websocket handshake carries no Authorization
// header.
func (s *EventServer) handlePrivate(c *gin.Context) {
	if _, ok := s.session.Resolve(c.Query("token")); !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	s.stream(c, events.NewEnvelope)
}

// stream upgrades the connection and forwards every event on feedTypes
// through envelope until the peer disconnects.
func (s *EventServer) stream(c *gin.Context, envelope func(events.Event) events.Envelope) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("websocket upgrade failed", zap.Error(err))
		}
		return
	}
	defer conn.Close()

	var mu sync.Mutex
	write := func(ev events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		b, err := json.Marshal(envelope(ev))
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, b)
	}

	// Subscribe has no corresponding Unsubscribe: a handler for a closed
	// connection keeps returning write errors and trips its breaker. The bus
	// then skips it, except for one trial delivery each time the breaker's
	// open period (gobreaker's default of 60 seconds) ends; that trial fails
	// and reopens the breaker. The handler stays registered for the rest of
	// the process's life (see DESIGN.md).
	for _, t := range feedTypes {
		s.bus.Subscribe(t, func(ev events.Event) error {
			return write(ev)
		})
	}

	// The connection has no client->server protocol; block reading until
	// the peer disconnects so gin doesn't reclaim the response writer.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
