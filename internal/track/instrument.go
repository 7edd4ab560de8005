// Package track owns one instrument's price history, its two-stage
// smoothed indicator, running extrema, and the stateful entry detector.
package track

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"TradeWarden/internal/gateway"
	"TradeWarden/internal/indicator"
	"TradeWarden/internal/model"
)

// entryThreshold is the rise the return trace must accumulate past 1
// before a buy fires.
const entryThreshold = 0.001

// Instrument is one tracked symbol. The wallet accumulates realized
// profit across repeated buy/sell cycles and outlives any open trade.
// All float fields seeded lazily are NaN until first observation.
type Instrument struct {
	ID        string
	Symbol    string
	Exchange  string
	Wallet    float64
	CreatedAt time.Time

	History []float64

	LatestPrice     float64
	LatestIndicator float64
	High            float64
	Low             float64
	LowestIndicator float64

	// returnTrace accumulates post-trough ratios; zero means inactive.
	returnTrace float64
	signal      []float64

	logger *zap.Logger
}

// NewInstrument starts tracking a fresh symbol.
func NewInstrument(symbol, exchange string, logger *zap.Logger) *Instrument {
	return &Instrument{
		ID:              uuid.NewString(),
		Symbol:          symbol,
		Exchange:        exchange,
		CreatedAt:       time.Now(),
		LatestPrice:     math.NaN(),
		LatestIndicator: math.NaN(),
		High:            math.NaN(),
		Low:             math.NaN(),
		LowestIndicator: math.NaN(),
		logger:          logger,
	}
}

// Rehydrate rebuilds an instrument from its persisted record. The price
// history restarts empty; only the wallet and creation date survive
// sessions.
func Rehydrate(rec model.InstrumentRecord, logger *zap.Logger) *Instrument {
	inst := NewInstrument(rec.Symbol, rec.Exchange, logger)
	inst.ID = rec.ID
	inst.Wallet = rec.Wallet
	inst.CreatedAt = rec.CreatedAt
	return inst
}

// Record returns the persisted shape of the instrument.
func (inst *Instrument) Record() model.InstrumentRecord {
	return model.InstrumentRecord{
		ID:        inst.ID,
		Symbol:    inst.Symbol,
		Exchange:  inst.Exchange,
		Wallet:    inst.Wallet,
		CreatedAt: inst.CreatedAt,
	}
}

// Update fetches the current quote and folds it into the history. A
// transient fetch failure keeps the previously known price for the tick;
// the session-ended sentinel is returned to the caller untouched so the
// loop can terminate.
func (inst *Instrument) Update(ctx context.Context, gw gateway.Gateway) error {
	price, err := gw.LastPrice(ctx, inst.Exchange, inst.Symbol)
	switch {
	case err == nil:
		inst.LatestPrice = price
	case errors.Is(err, gateway.ErrSessionEnded):
		return err
	default:
		inst.logger.Warn("quote unavailable, using stale price",
			zap.String("symbol", inst.Symbol), zap.Error(err))
	}
	if math.IsNaN(inst.LatestPrice) {
		return nil
	}
	inst.ingest(inst.LatestPrice)
	return nil
}

// ingest appends a price and recomputes the indicator series and the
// running extrema.
func (inst *Instrument) ingest(price float64) {
	inst.History = append(inst.History, price)

	line := indicator.Line(inst.History, indicator.DefaultWindow, indicator.DefaultFast, indicator.DefaultSlow)
	inst.signal = indicator.Dense(indicator.Smooth(line, indicator.DefaultSpan))
	if len(inst.signal) == 0 {
		inst.LatestIndicator = math.NaN()
	} else {
		inst.LatestIndicator = inst.signal[len(inst.signal)-1]
	}

	if math.IsNaN(inst.Low) || inst.Low > price {
		inst.Low = price
	}
	if math.IsNaN(inst.High) || inst.High < price {
		inst.High = price
	}
	if !math.IsNaN(inst.LatestIndicator) {
		if math.IsNaN(inst.LowestIndicator) || inst.LowestIndicator > inst.LatestIndicator {
			inst.LowestIndicator = inst.LatestIndicator
		}
	}
}

// EntrySignal runs the trough detector over the signal series. It fires
// at most once per detected trough: when the signal turns from falling to
// non-falling at its running minimum, a return trace opens with the first
// rising ratio; every evaluation while the trace is open multiplies it by
// the latest ratio, and the buy fires the first time the trace clears
// 1 + entryThreshold. A ratio dipping back under 1 does not reset the
// trace — slow bleed-and-recover patterns must still fire.
func (inst *Instrument) EntrySignal() bool {
	sig := inst.signal
	if len(sig) <= 1 {
		return false
	}
	ratios := indicator.Ratios(sig)
	last := len(sig) - 1

	if ratios[last-1] < 1 && ratios[last] >= 1 && round2(sig[last-1]) == round2(minOf(sig)) {
		inst.logger.Info("trough reversal detected",
			zap.String("symbol", inst.Symbol), zap.Int("index", last))
		inst.returnTrace = ratios[last]
	}
	if inst.returnTrace != 0 {
		inst.returnTrace *= ratios[last]
		if inst.returnTrace > 1+entryThreshold {
			inst.logger.Info("entry signal fired",
				zap.String("symbol", inst.Symbol), zap.Int("index", last))
			inst.returnTrace = 0
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
