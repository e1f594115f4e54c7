package facade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchcore/clob/internal/events"
	"github.com/matchcore/clob/internal/matching"
	"github.com/matchcore/clob/internal/session"
)

func newFacade(t *testing.T) (*Facade, *session.Store) {
	t.Helper()
	store := session.New(session.Config{Secret: "test-secret"}, nil)
	require.NoError(t, store.Register("alice", "password", "client-alice"))
	engine := matching.New(events.New(events.Config{TestMode: true}, nil))
	return New(engine, store, nil, nil, nil), store
}

func TestHandle_MalformedRequest(t *testing.T) {
	f, _ := newFacade(t)

	resp := f.Handle(Request{})

	assert.False(t, resp.Success)
	assert.Equal(t, "Malformed request", resp.Error)
}

func TestHandle_UnknownType(t *testing.T) {
	f, _ := newFacade(t)

	resp := f.Handle(Request{Type: "frobnicate", Payload: map[string]interface{}{}})

	assert.False(t, resp.Success)
	assert.Equal(t, "Unknown request type", resp.Error)
}

func TestHandle_LoginThenOrder(t *testing.T) {
	f, _ := newFacade(t)

	loginResp := f.Handle(Request{Type: "login", Payload: map[string]interface{}{
		"username": "alice", "password": "password",
	}})
	require.True(t, loginResp.Success)
	result, ok := loginResp.Result.(map[string]interface{})
	require.True(t, ok)
	token := result["token"].(string)

	orderResp := f.Handle(Request{Type: "order", Payload: map[string]interface{}{
		"token": token, "side": "buy", "qty": 1.0, "order_type": "market",
	}})

	assert.True(t, orderResp.Success)
}

func TestHandle_OrderWithUnknownTokenIsUnauthorized(t *testing.T) {
	f, _ := newFacade(t)

	resp := f.Handle(Request{Type: "order", Payload: map[string]interface{}{
		"token": "bogus", "side": "buy", "qty": 1.0, "order_type": "market",
	}})

	assert.False(t, resp.Success)
	assert.Equal(t, "Unauthorized", resp.Error)
}

func TestHandle_CancelUnknownOrderFails(t *testing.T) {
	f, store := newFacade(t)
	token, ok := store.Login("alice", "password")
	require.True(t, ok)

	resp := f.Handle(Request{Type: "cancel", Payload: map[string]interface{}{
		"token": token, "order_id": "never-existed",
	}})

	assert.False(t, resp.Success)
}

func TestHandle_SpreadOnEmptyBookHasNullFields(t *testing.T) {
	f, _ := newFacade(t)

	resp := f.Handle(Request{Type: "spread", Payload: map[string]interface{}{}})

	require.True(t, resp.Success)
	snap, ok := resp.Result.(spreadSnapshot)
	require.True(t, ok)
	assert.Nil(t, snap.BestBid)
	assert.Nil(t, snap.BestAsk)
	assert.Nil(t, snap.Spread)
}

func TestHandle_BookReflectsRestedOrders(t *testing.T) {
	f, store := newFacade(t)
	token, _ := store.Login("alice", "password")

	f.Handle(Request{Type: "order", Payload: map[string]interface{}{
		"token": token, "side": "sell", "qty": 2.0, "order_type": "limit", "price": 10.0,
	}})

	resp := f.Handle(Request{Type: "book", Payload: map[string]interface{}{}})

	require.True(t, resp.Success)
	body, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	asks, ok := body["asks"].([]levelSnapshot)
	require.True(t, ok)
	require.Len(t, asks, 1)
	assert.Equal(t, 10.0, asks[0].Price)
	assert.Equal(t, 2.0, asks[0].Qty)
}
