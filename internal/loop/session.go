// Package loop drives the account through a trading session: one
// cooperative polling loop inside the session window, no parallel
// evaluation of instruments within a tick.
package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"TradeWarden/internal/account"
	"TradeWarden/internal/gateway"
	"TradeWarden/internal/store"
)

// Session runs the tick loop for one trading day. New entries stop at
// the buying cutoff; exit evaluation continues until the hard end time.
type Session struct {
	Account  *account.Account
	Watch    *Watchlist
	Interval time.Duration

	Start      time.Time
	StopBuying time.Time
	End        time.Time

	Logger *zap.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewSession wires a session over the given account and control object.
func NewSession(acct *account.Account, watch *Watchlist, interval time.Duration,
	start, stopBuying, end time.Time, logger *zap.Logger) *Session {
	return &Session{
		Account:    acct,
		Watch:      watch,
		Interval:   interval,
		Start:      start,
		StopBuying: stopBuying,
		End:        end,
		Logger:     logger,
		now:        time.Now,
		sleep:      sleepCtx,
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

// Run executes the loop until the session end time, cancellation, or the
// broker's termination sentinel, then runs the end-of-session
// reconciliation. A persistence failure during rehydration is fatal to
// the session; one during reconciliation is logged and returned.
func (s *Session) Run(ctx context.Context) error {
	s.Logger.Info("session started",
		zap.Time("start", s.Start),
		zap.Time("stop_buying", s.StopBuying),
		zap.Time("end", s.End))
	s.Watch.Reset()

	initialHoldings, err := s.Account.Rehydrate()
	if err != nil {
		return fmt.Errorf("rehydrate: %w", err)
	}
	// Persisted instruments rejoin the watchlist so cross-session
	// tracking survives restarts; the watchlist stays the single source
	// of truth for what the ticks may track.
	for sym := range s.Account.Tracked {
		s.Watch.Add(sym)
	}

	for s.now().Before(s.End) {
		if err := s.sleep(ctx, s.Interval); err != nil {
			s.Watch.Cancel()
		}
		if s.Watch.Cancelled() || s.Watch.Terminated() {
			break
		}
		s.tick(ctx)
	}

	s.Logger.Info("session loop ended, reconciling",
		zap.Bool("cancelled", s.Watch.Cancelled()),
		zap.Bool("terminated", s.Watch.Terminated()))
	return s.Account.Reconcile(ctx, initialHoldings)
}

// tick is one evaluation pass. Whatever goes wrong inside is classified,
// logged, and survived — the loop must reach the next tick.
func (s *Session) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("tick panicked", zap.Any("panic", r))
		}
	}()

	s.Account.Sync(s.Watch.Symbols())

	if err := s.Account.UpdateAll(ctx); err != nil {
		if errors.Is(err, gateway.ErrSessionEnded) {
			s.Logger.Info("session terminated by gateway sentinel")
			s.Watch.Terminate()
			return
		}
		s.classify(err)
		return
	}

	now := s.now()
	if now.After(s.Start) && now.Before(s.StopBuying) {
		s.Account.BuyStocks(ctx)
	}
	s.Account.EvaluateExits(ctx)
}

// classify logs a tick failure under its error class so expected
// transients stay distinguishable from logic bugs.
func (s *Session) classify(err error) {
	var perr *store.Error
	switch {
	case errors.As(err, &perr):
		s.Logger.Error("tick persistence failure", zap.String("op", perr.Op), zap.Error(err))
	case errors.Is(err, gateway.ErrUnavailable):
		s.Logger.Warn("tick proceeded on stale data", zap.Error(err))
	case errors.Is(err, gateway.ErrOrderRejected):
		s.Logger.Warn("tick order rejected", zap.Error(err))
	default:
		s.Logger.Error("unclassified tick failure", zap.Error(err))
	}
}
