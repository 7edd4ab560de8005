package gateway

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// RetryQuoter wraps a Gateway's price fetch with a bounded fixed-backoff
// retry. A fetch that still fails after the last attempt surfaces the
// error; the caller keeps the previously known price. Order placement is
// passed through untouched — a rejected order is simply retried by the
// next tick's re-evaluation.
type RetryQuoter struct {
	Gateway  Gateway
	Attempts int
	Backoff  time.Duration
	Logger   *zap.Logger

	sleep func(context.Context, time.Duration) error
}

// NewRetryQuoter wraps gw with the standard 4-attempt, 1-second-backoff
// policy.
func NewRetryQuoter(gw Gateway, logger *zap.Logger) *RetryQuoter {
	return &RetryQuoter{
		Gateway:  gw,
		Attempts: 4,
		Backoff:  time.Second,
		Logger:   logger,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (r *RetryQuoter) Name() string { return r.Gateway.Name() }

func (r *RetryQuoter) IsAuthenticated(ctx context.Context) bool {
	return r.Gateway.IsAuthenticated(ctx)
}

func (r *RetryQuoter) PlaceMarketOrder(ctx context.Context, order Order) (Order, error) {
	return r.Gateway.PlaceMarketOrder(ctx, order)
}

// LastPrice fetches the quote, retrying transient failures. The session
// sentinel is never retried.
func (r *RetryQuoter) LastPrice(ctx context.Context, exchange, symbol string) (float64, error) {
	var lastErr error
	for attempt := 1; attempt <= r.Attempts; attempt++ {
		price, err := r.Gateway.LastPrice(ctx, exchange, symbol)
		if err == nil {
			return price, nil
		}
		if errors.Is(err, ErrSessionEnded) {
			return 0, err
		}
		lastErr = err
		if attempt < r.Attempts {
			r.Logger.Warn("price fetch failed, retrying",
				zap.String("symbol", symbol),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if serr := r.sleep(ctx, r.Backoff); serr != nil {
				return 0, serr
			}
		}
	}
	return 0, lastErr
}
