package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_LimitRequiresPrice(t *testing.T) {
	_, err := Order(map[string]interface{}{
		"token": "t", "side": "buy", "qty": 1.0, "order_type": "limit",
	})
	require.Error(t, err)
}

func TestOrder_MarketForbidsPrice(t *testing.T) {
	_, err := Order(map[string]interface{}{
		"token": "t", "side": "buy", "qty": 1.0, "order_type": "market", "price": 10.0,
	})
	require.Error(t, err)
}

func TestOrder_RejectsNonPositiveQty(t *testing.T) {
	_, err := Order(map[string]interface{}{
		"token": "t", "side": "buy", "qty": 0.0, "order_type": "market",
	})
	require.Error(t, err)
}

func TestOrder_RejectsInvalidSide(t *testing.T) {
	_, err := Order(map[string]interface{}{
		"token": "t", "side": "up", "qty": 1.0, "order_type": "market",
	})
	require.Error(t, err)
}

func TestOrder_StringIsNeverCoercedToNumber(t *testing.T) {
	_, err := Order(map[string]interface{}{
		"token": "t", "side": "buy", "qty": "1", "order_type": "market",
	})
	require.Error(t, err)
}

func TestOrder_ValidLimitPayload(t *testing.T) {
	p, err := Order(map[string]interface{}{
		"token": "t", "side": "sell", "qty": 2.5, "order_type": "limit", "price": 100.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 2.5, p.Qty)
	require.NotNil(t, p.Price)
	assert.Equal(t, 100.5, *p.Price)
}

func TestCancel_RequiresOrderID(t *testing.T) {
	_, err := Cancel(map[string]interface{}{"token": "t"})
	require.Error(t, err)
}

func TestLogin_RequiresBothFields(t *testing.T) {
	_, err := Login(map[string]interface{}{"username": "alice"})
	require.Error(t, err)
}
