// Package validator implements the per-request-type payload validators
// described in the request facade's contract: decode the raw payload map
// into a typed struct with strict field types, then apply the semantic
// predicates (side/qty/price/order-type combinations) a struct tag can't
// express on its own.
package validator

import (
	"github.com/go-playground/validator/v10"

	clobErrors "github.com/matchcore/clob/internal/errors"
)

var structValidate = validator.New()

// LoginPayload is the decoded "login" request payload.
type LoginPayload struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// LogoutPayload is the decoded "logout" request payload.
type LogoutPayload struct {
	Token string `validate:"required"`
}

// OrderPayload is the decoded "order" request payload. Price is a pointer
// so presence vs. absence (required for limit, forbidden for market) can be
// told apart from a zero value.
type OrderPayload struct {
	Token     string `validate:"required"`
	Side      string `validate:"required,oneof=buy sell"`
	Qty       float64
	OrderType string `validate:"required,oneof=limit market"`
	Price     *float64
}

// CancelPayload is the decoded "cancel" request payload.
type CancelPayload struct {
	Token   string `validate:"required"`
	OrderID string `validate:"required"`
}

// field fetches key from payload and reports whether it was present at all
// (as opposed to present with the wrong type, which is a separate error).
func field(payload map[string]interface{}, key string) (interface{}, bool) {
	v, ok := payload[key]
	return v, ok
}

func requireString(payload map[string]interface{}, key string) (string, error) {
	v, ok := field(payload, key)
	if !ok {
		return "", clobErrors.Newf(clobErrors.Validation, "missing required field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", clobErrors.Newf(clobErrors.Validation, "field %q must be a string", key)
	}
	return s, nil
}

// requireNumber enforces that the field is present and a JSON number —
// strings are never coerced to numbers, per the validator contract.
func requireNumber(payload map[string]interface{}, key string) (float64, error) {
	v, ok := field(payload, key)
	if !ok {
		return 0, clobErrors.Newf(clobErrors.Validation, "missing required field %q", key)
	}
	n, ok := v.(float64)
	if !ok {
		return 0, clobErrors.Newf(clobErrors.Validation, "field %q must be a number", key)
	}
	return n, nil
}

// Login validates a "login" payload.
func Login(payload map[string]interface{}) (*LoginPayload, error) {
	user, err := requireString(payload, "username")
	if err != nil {
		return nil, err
	}
	pass, err := requireString(payload, "password")
	if err != nil {
		return nil, err
	}
	p := &LoginPayload{Username: user, Password: pass}
	if err := structValidate.Struct(p); err != nil {
		return nil, clobErrors.Newf(clobErrors.Validation, "%v", err)
	}
	return p, nil
}

// Logout validates a "logout" payload.
func Logout(payload map[string]interface{}) (*LogoutPayload, error) {
	tok, err := requireString(payload, "token")
	if err != nil {
		return nil, err
	}
	p := &LogoutPayload{Token: tok}
	if err := structValidate.Struct(p); err != nil {
		return nil, clobErrors.Newf(clobErrors.Validation, "%v", err)
	}
	return p, nil
}

// Order validates an "order" payload, enforcing:
//   - side is buy or sell
//   - qty is a strictly positive number
//   - order_type is limit (price required, numeric, positive) or market
//     (price must be absent — its presence is a hard error)
func Order(payload map[string]interface{}) (*OrderPayload, error) {
	token, err := requireString(payload, "token")
	if err != nil {
		return nil, err
	}
	side, err := requireString(payload, "side")
	if err != nil {
		return nil, err
	}
	qty, err := requireNumber(payload, "qty")
	if err != nil {
		return nil, err
	}
	if qty <= 0 {
		return nil, clobErrors.New(clobErrors.Validation, "qty must be strictly positive")
	}
	orderType, err := requireString(payload, "order_type")
	if err != nil {
		return nil, err
	}

	p := &OrderPayload{Token: token, Side: side, Qty: qty, OrderType: orderType}
	if err := structValidate.Struct(p); err != nil {
		return nil, clobErrors.Newf(clobErrors.Validation, "%v", err)
	}

	priceVal, priceGiven := field(payload, "price")
	switch orderType {
	case "limit":
		if !priceGiven {
			return nil, clobErrors.New(clobErrors.Validation, "limit order requires price")
		}
		price, ok := priceVal.(float64)
		if !ok {
			return nil, clobErrors.New(clobErrors.Validation, "price must be a number")
		}
		if price <= 0 {
			return nil, clobErrors.New(clobErrors.Validation, "price must be strictly positive")
		}
		p.Price = &price
	case "market":
		if priceGiven {
			return nil, clobErrors.New(clobErrors.Validation, "market order must not include price")
		}
	default:
		// unreachable: oneof tag above already rejected anything else.
		return nil, clobErrors.Newf(clobErrors.Validation, "unsupported order_type %q", orderType)
	}

	return p, nil
}

// Cancel validates a "cancel" payload.
func Cancel(payload map[string]interface{}) (*CancelPayload, error) {
	token, err := requireString(payload, "token")
	if err != nil {
		return nil, err
	}
	orderID, err := requireString(payload, "order_id")
	if err != nil {
		return nil, err
	}
	p := &CancelPayload{Token: token, OrderID: orderID}
	if err := structValidate.Struct(p); err != nil {
		return nil, clobErrors.Newf(clobErrors.Validation, "%v", err)
	}
	return p, nil
}
