package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"TradeWarden/internal/model"
)

// sessionEndedSentinel is the distinguished quote the broker bridge
// returns once the market session has been externally terminated.
const sessionEndedSentinel = "ENDED"

// HTTPGateway talks to a kite-style REST bridge. The access token is
// replaceable at runtime through the control surface.
type HTTPGateway struct {
	BaseURL string
	APIKey  string
	Client  *http.Client

	mu    sync.RWMutex
	token string
}

// NewHTTPGateway creates a gateway client against the broker bridge.
func NewHTTPGateway(baseURL, apiKey, accessToken string) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
		token:   accessToken,
	}
}

func (g *HTTPGateway) Name() string { return "http" }

// SetAccessToken replaces the session token used on subsequent calls.
func (g *HTTPGateway) SetAccessToken(token string) {
	g.mu.Lock()
	g.token = token
	g.mu.Unlock()
}

func (g *HTTPGateway) authorize(req *http.Request) {
	g.mu.RLock()
	token := g.token
	g.mu.RUnlock()
	req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", g.APIKey, token))
}

// ltpResponse is the quote shape from the bridge. LastPrice is either a
// number or the session-ended sentinel string.
type ltpResponse struct {
	Data map[string]struct {
		LastPrice json.RawMessage `json:"last_price"`
	} `json:"data"`
}

func (g *HTTPGateway) LastPrice(ctx context.Context, exchange, symbol string) (float64, error) {
	key := exchange + ":" + symbol
	endpoint := fmt.Sprintf("%s/quote/ltp?i=%s", g.BaseURL, url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	g.authorize(req)

	resp, err := g.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return 0, ErrNotAuthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out ltpResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: decode quote: %v", ErrUnavailable, err)
	}
	quote, ok := out.Data[key]
	if !ok {
		return 0, fmt.Errorf("%w: no quote for %s", ErrUnavailable, key)
	}

	raw := strings.Trim(string(quote.LastPrice), `"`)
	if raw == sessionEndedSentinel {
		return 0, ErrSessionEnded
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad quote %q", ErrUnavailable, raw)
	}
	return price, nil
}

func (g *HTTPGateway) PlaceMarketOrder(ctx context.Context, order Order) (Order, error) {
	order.ClientID = uuid.NewString()

	form := url.Values{}
	form.Set("tradingsymbol", order.Symbol)
	form.Set("exchange", order.Exchange)
	form.Set("transaction_type", string(order.Side))
	form.Set("quantity", strconv.Itoa(order.Quantity))
	form.Set("order_type", "MARKET")
	form.Set("validity", "DAY")
	form.Set("tag", order.ClientID)
	if order.ProductType == model.ProductIntraday {
		form.Set("product", "MIS")
	} else {
		form.Set("product", "CNC")
	}

	endpoint := g.BaseURL + "/orders/regular"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return order, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	g.authorize(req)

	resp, err := g.Client.Do(req)
	if err != nil {
		return order, fmt.Errorf("%w: %v", ErrOrderRejected, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return order, ErrNotAuthenticated
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return order, fmt.Errorf("%w: status %d, body: %s", ErrOrderRejected, resp.StatusCode, string(body))
	}
	return order, nil
}

// IsAuthenticated probes the holdings endpoint, which rejects stale
// tokens before anything else does.
func (g *HTTPGateway) IsAuthenticated(ctx context.Context) bool {
	endpoint := g.BaseURL + "/portfolio/holdings"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	g.authorize(req)
	resp, err := g.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
