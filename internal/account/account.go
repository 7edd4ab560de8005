// Package account orchestrates the whole book: which symbols are
// tracked, the entry policy, the exit sweep, and the end-of-session
// reconciliation. Both stage maps are mutated here and nowhere else.
package account

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"

	"TradeWarden/internal/gateway"
	"TradeWarden/internal/model"
	"TradeWarden/internal/stage"
	"TradeWarden/internal/store"
	"TradeWarden/internal/track"
)

// Account owns the tracked instruments and the two open-trade maps.
// At most one Position and one Holding can exist per symbol; the entry
// policy refuses a buy while either map contains the symbol.
type Account struct {
	Tracked   map[string]*track.Instrument
	Positions map[string]*stage.Stage
	Holdings  map[string]*stage.Stage

	gw       gateway.Gateway
	store    store.Store
	deps     stage.Deps
	budget   float64
	exchange string
	logger   *zap.Logger
}

// New creates an empty account. budget is the fixed target notional per
// entry; exchange is used for instruments created from the watchlist.
func New(gw gateway.Gateway, st store.Store, deps stage.Deps, budget float64,
	exchange string, logger *zap.Logger) *Account {
	return &Account{
		Tracked:   make(map[string]*track.Instrument),
		Positions: make(map[string]*stage.Stage),
		Holdings:  make(map[string]*stage.Stage),
		gw:        gw,
		store:     st,
		deps:      deps,
		budget:    budget,
		exchange:  exchange,
		logger:    logger,
	}
}

// Rehydrate loads every persisted instrument into the tracked set and
// re-links persisted holdings to their instruments. It returns the set of
// holding symbols present at session start, which reconciliation uses to
// delete holdings that closed during the session.
func (a *Account) Rehydrate() (map[string]struct{}, error) {
	instruments, err := a.store.AllInstruments()
	if err != nil {
		return nil, err
	}
	for _, rec := range instruments {
		a.Tracked[rec.Symbol] = track.Rehydrate(rec, a.logger)
	}

	holdings, err := a.store.AllHoldings()
	if err != nil {
		return nil, err
	}
	initial := make(map[string]struct{}, len(holdings))
	for _, rec := range holdings {
		inst, ok := a.Tracked[rec.Symbol]
		if !ok {
			// A holding without its instrument row; recreate the link so
			// the stage can still be evaluated.
			inst = track.NewInstrument(rec.Symbol, a.exchange, a.logger)
			a.Tracked[rec.Symbol] = inst
		}
		a.Holdings[rec.Symbol] = stage.FromRecord(rec, inst, a.deps)
		initial[rec.Symbol] = struct{}{}
	}
	a.logger.Info("account rehydrated",
		zap.Int("instruments", len(a.Tracked)),
		zap.Int("holdings", len(a.Holdings)))
	return initial, nil
}

// Track starts tracking a symbol if it is not tracked already.
func (a *Account) Track(symbol string) {
	if _, ok := a.Tracked[symbol]; !ok {
		a.Tracked[symbol] = track.NewInstrument(symbol, a.exchange, a.logger)
		a.logger.Info("tracking new symbol", zap.String("symbol", symbol))
	}
}

// Untrack stops tracking a symbol. A symbol with an open stage stays
// tracked so the exit policy keeps seeing fresh prices.
func (a *Account) Untrack(symbol string) bool {
	if _, open := a.Positions[symbol]; open {
		return false
	}
	if _, open := a.Holdings[symbol]; open {
		return false
	}
	if _, ok := a.Tracked[symbol]; !ok {
		return false
	}
	delete(a.Tracked, symbol)
	a.logger.Info("stopped tracking symbol", zap.String("symbol", symbol))
	return true
}

// Sync reconciles the tracked set with the watchlist: listed symbols
// start tracking, delisted ones stop. A delisted symbol therefore never
// reaches reconciliation, so its deleted instrument row stays deleted.
func (a *Account) Sync(symbols []string) {
	listed := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		listed[sym] = struct{}{}
		a.Track(sym)
	}
	for sym := range a.Tracked {
		if _, ok := listed[sym]; !ok {
			a.Untrack(sym)
		}
	}
}

// UpdateAll refreshes the price and indicator state of every tracked
// instrument. The session-ended sentinel is surfaced to the loop.
func (a *Account) UpdateAll(ctx context.Context) error {
	for _, inst := range a.Tracked {
		if err := inst.Update(ctx, a.gw); err != nil {
			if errors.Is(err, gateway.ErrSessionEnded) {
				return err
			}
		}
	}
	return nil
}

// BuyStocks applies the entry policy once: for every tracked instrument
// with no open stage in either map, a firing entry signal buys the fixed
// target notional at the indicator price, floored to whole shares.
func (a *Account) BuyStocks(ctx context.Context) {
	for sym, inst := range a.Tracked {
		if _, open := a.Positions[sym]; open {
			continue
		}
		if _, open := a.Holdings[sym]; open {
			continue
		}
		if !inst.EntrySignal() {
			continue
		}
		a.open(ctx, sym, inst)
	}
}

// open sizes and places the buy, creating the Position only after the
// gateway accepts the order.
func (a *Account) open(ctx context.Context, sym string, inst *track.Instrument) {
	if math.IsNaN(inst.LatestIndicator) || inst.LatestIndicator <= 0 {
		return
	}
	qty := int(a.budget / inst.LatestIndicator)
	if qty <= 0 {
		return
	}
	_, err := a.gw.PlaceMarketOrder(ctx, gateway.Order{
		Symbol:      sym,
		Exchange:    inst.Exchange,
		Side:        model.SideBuy,
		Quantity:    qty,
		ProductType: model.ProductDelivery,
	})
	if err != nil {
		a.logger.Warn("buy order rejected",
			zap.String("symbol", sym), zap.Error(err))
		return
	}
	a.Positions[sym] = stage.NewPosition(inst.LatestPrice, inst.LatestIndicator,
		qty, model.ProductDelivery, model.DirectionLong, inst, a.deps)
	a.logger.Info("bought",
		zap.String("symbol", sym),
		zap.Float64("price", inst.LatestPrice),
		zap.Int("quantity", qty))
}

// EvaluateExits runs the breach check on every open stage and removes the
// closed ones. Removal is deferred past the iteration so the maps are
// never mutated mid-scan.
func (a *Account) EvaluateExits(ctx context.Context) {
	a.sweep(ctx, a.Positions)
	a.sweep(ctx, a.Holdings)
}

func (a *Account) sweep(ctx context.Context, stages map[string]*stage.Stage) {
	var closed []string
	for sym, s := range stages {
		done, err := s.Breached(ctx, a.gw)
		if err != nil {
			// Rejected exit order: state unchanged, retried next tick.
			a.logger.Warn("sell order rejected",
				zap.String("symbol", sym), zap.Error(err))
			continue
		}
		if done {
			closed = append(closed, sym)
		}
	}
	for _, sym := range closed {
		delete(stages, sym)
	}
}

// Reconcile runs once after the session loop ends: a secondary
// falling-price entry check, Position→Holding promotion, instrument and
// holding upserts, and deletion of holdings that closed during the
// session. Persistence failures are logged per entity and the first one
// is returned after the pass completes.
func (a *Account) Reconcile(ctx context.Context, initialHoldings map[string]struct{}) error {
	var firstErr error
	keep := func(err error) {
		if err != nil {
			a.logger.Error("reconcile persistence failure", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	for sym, inst := range a.Tracked {
		if _, open := a.Positions[sym]; !open {
			a.fallingEntry(ctx, sym, inst)
		}

		rec, err := a.store.FindInstrument(sym)
		if err != nil {
			keep(err)
			continue
		}
		if rec == nil {
			keep(a.store.SaveInstrument(inst.Record()))
		} else {
			keep(a.store.UpdateInstrumentWallet(sym, inst.Wallet))
		}
	}

	for sym, pos := range a.Positions {
		a.Holdings[sym] = pos.Promote()
	}
	a.Positions = make(map[string]*stage.Stage)

	for sym, h := range a.Holdings {
		rec, err := a.store.FindHolding(sym)
		if err != nil {
			keep(err)
			continue
		}
		if rec == nil {
			keep(a.store.SaveHolding(h.Record()))
		} else {
			keep(a.store.UpdateHolding(h.Record()))
		}
	}

	for sym := range initialHoldings {
		if _, ok := a.Holdings[sym]; !ok {
			keep(a.store.DeleteHolding(sym))
		}
	}
	return firstErr
}

// fallingEntry is the end-of-session check: buy when the close sits more
// than 1% under the day's high and within 0.5% of the day's low.
func (a *Account) fallingEntry(ctx context.Context, sym string, inst *track.Instrument) {
	close, high, low := inst.LatestPrice, inst.High, inst.Low
	if math.IsNaN(close) || math.IsNaN(high) || math.IsNaN(low) {
		return
	}
	if close < high*(1-0.01) && close < low*(1+0.005) {
		a.open(ctx, sym, inst)
	}
}
