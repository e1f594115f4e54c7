// Package api hosts the thin HTTP/WS shell around the request facade:
// POST /v1/requests carries the request/response envelope verbatim, and
// GET /v1/events and /v1/events/private stream the event bus's JSON-lines
// feed, redacted and unredacted respectively. None of these handlers add
// business logic of their own.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/matchcore/clob/internal/facade"
)

// HTTPServer wraps a gin engine around a single facade.
type HTTPServer struct {
	logger *zap.Logger
	facade *facade.Facade
	engine *gin.Engine
}

// NewHTTPServer builds the gin engine and registers its one route.
func NewHTTPServer(f *facade.Facade, logger *zap.Logger) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &HTTPServer{logger: logger, facade: f, engine: r}
	r.POST("/v1/requests", s.handleRequest)
	return s
}

// Engine exposes the underlying gin engine, e.g. for http.Server.Handler.
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// envelope mirrors the wire request shape: {"type": ..., "payload": {...}}.
type envelope struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

func (s *HTTPServer) handleRequest(c *gin.Context) {
	var env envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusOK, facade.Response{Success: false, Error: "Malformed request"})
		return
	}

	resp := s.facade.Handle(facade.Request{Type: env.Type, Payload: env.Payload})
	c.JSON(http.StatusOK, resp)
}
