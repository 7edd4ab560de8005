// Package gateway defines the market/order collaborator contract. The
// session loop only ever talks to a Gateway; the concrete broker lives
// behind it.
package gateway

import (
	"context"
	"errors"

	"TradeWarden/internal/model"
)

// Errors the loop classifies on. ErrUnavailable is transient (the retry
// quoter absorbs it, then the tick proceeds with stale data);
// ErrSessionEnded is the broker's "market terminated" sentinel and must
// stop the loop; ErrNotAuthenticated is fatal to starting it.
var (
	ErrUnavailable      = errors.New("gateway: price unavailable")
	ErrSessionEnded     = errors.New("gateway: session ended")
	ErrNotAuthenticated = errors.New("gateway: not authenticated")
	ErrOrderRejected    = errors.New("gateway: order rejected")
)

// Order is a market order request. ClientID is assigned by the gateway
// implementation when the order is accepted.
type Order struct {
	ClientID    string
	Symbol      string
	Exchange    string
	Side        model.Side
	Quantity    int
	ProductType model.ProductType
}

// Gateway is the broker collaborator: quotes, market orders, and the
// authentication gate the control surface checks before starting a
// session.
type Gateway interface {
	LastPrice(ctx context.Context, exchange, symbol string) (float64, error)
	PlaceMarketOrder(ctx context.Context, order Order) (Order, error)
	IsAuthenticated(ctx context.Context) bool
	Name() string
}

// TokenSetter is implemented by gateways whose session token can be
// refreshed at runtime through the control surface.
type TokenSetter interface {
	SetAccessToken(token string)
}
