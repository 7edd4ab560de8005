package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockGateway returns scripted quotes for development and tests. Each
// symbol has a price sequence consumed one element per fetch; the last
// element repeats once exhausted.
type MockGateway struct {
	mu            sync.Mutex
	prices        map[string][]float64
	cursors       map[string]int
	Orders        []Order
	FailOrders    bool
	Authenticated bool
	Ended         bool
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		prices:        make(map[string][]float64),
		cursors:       make(map[string]int),
		Authenticated: true,
	}
}

func (m *MockGateway) Name() string { return "mock" }

// SetPrices scripts the quote sequence for a symbol.
func (m *MockGateway) SetPrices(symbol string, prices []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = prices
	m.cursors[symbol] = 0
}

func (m *MockGateway) LastPrice(_ context.Context, _, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Ended {
		return 0, ErrSessionEnded
	}
	seq, ok := m.prices[symbol]
	if !ok || len(seq) == 0 {
		return 0, ErrUnavailable
	}
	i := m.cursors[symbol]
	if i >= len(seq) {
		i = len(seq) - 1
	}
	m.cursors[symbol] = i + 1
	return seq[i], nil
}

func (m *MockGateway) PlaceMarketOrder(_ context.Context, order Order) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOrders {
		return order, ErrOrderRejected
	}
	order.ClientID = uuid.NewString()
	m.Orders = append(m.Orders, order)
	return order, nil
}

func (m *MockGateway) IsAuthenticated(context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Authenticated
}
