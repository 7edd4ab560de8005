// Package stage is the per-open-trade state machine. A stage moves
// OPEN_NO_TRIGGER → OPEN_WITH_TRIGGER → CLOSED; closing is irreversible.
// The two variants, Position (intraday) and Holding (carried across
// sessions), share all behavior and differ only in their incremental
// return constant and their persistence collection.
package stage

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"TradeWarden/internal/calendar"
	"TradeWarden/internal/costs"
	"TradeWarden/internal/gateway"
	"TradeWarden/internal/model"
	"TradeWarden/internal/track"
)

// maxTriggerSteps bounds the ladder search; the rung index has no
// business reason to go anywhere near this.
const maxTriggerSteps = 10000

// Kind selects the stage variant.
type Kind string

const (
	KindPosition Kind = "position"
	KindHolding  Kind = "holding"
)

// Returns holds the expected-return schedule constants.
type Returns struct {
	DeliveryInitial     float64
	DeliveryIncremental float64
	IntradayInitial     float64
	IntradayIncremental float64
}

// DefaultReturns is the schedule the system trades with.
func DefaultReturns() Returns {
	return Returns{
		DeliveryInitial:     0.008,
		DeliveryIncremental: 0.006,
		IntradayInitial:     0.008,
		IntradayIncremental: 0.008,
	}
}

// Stage is one open trade against a tracked instrument. The instrument
// outlives the stage; the stage never outlives the instrument.
type Stage struct {
	BuyPrice      float64
	PositionPrice float64
	Quantity      int
	ProductType   model.ProductType
	Direction     model.Direction
	Trigger       *float64
	LastPrice     float64

	Inst *track.Instrument
	Kind Kind

	returns Returns
	cal     *calendar.Calendar
	now     func() time.Time
	logger  *zap.Logger
}

// Deps are the collaborators a stage needs to classify its holding
// duration and log.
type Deps struct {
	Returns  Returns
	Calendar *calendar.Calendar
	Now      func() time.Time
	Logger   *zap.Logger
}

func newStage(kind Kind, buyPrice, positionPrice float64, quantity int,
	product model.ProductType, direction model.Direction,
	inst *track.Instrument, deps Deps) *Stage {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Stage{
		BuyPrice:      buyPrice,
		PositionPrice: positionPrice,
		Quantity:      quantity,
		ProductType:   product,
		Direction:     direction,
		LastPrice:     math.NaN(),
		Inst:          inst,
		Kind:          kind,
		returns:       deps.Returns,
		cal:           deps.Calendar,
		now:           deps.Now,
		logger:        deps.Logger,
	}
}

// NewPosition opens an intraday-variant stage.
func NewPosition(buyPrice, positionPrice float64, quantity int,
	product model.ProductType, direction model.Direction,
	inst *track.Instrument, deps Deps) *Stage {
	return newStage(KindPosition, buyPrice, positionPrice, quantity, product, direction, inst, deps)
}

// NewHolding opens a multi-day-variant stage.
func NewHolding(buyPrice, positionPrice float64, quantity int,
	product model.ProductType, direction model.Direction,
	inst *track.Instrument, deps Deps) *Stage {
	return newStage(KindHolding, buyPrice, positionPrice, quantity, product, direction, inst, deps)
}

// FromRecord rebuilds a persisted holding and re-links it to its
// instrument.
func FromRecord(rec model.HoldingRecord, inst *track.Instrument, deps Deps) *Stage {
	return NewHolding(rec.BuyPrice, rec.PositionPrice, rec.Quantity,
		rec.ProductType, rec.Direction, inst, deps)
}

// Promote converts a still-open Position into a Holding at session end,
// carrying every field forward.
func (s *Stage) Promote() *Stage {
	h := newStage(KindHolding, s.BuyPrice, s.PositionPrice, s.Quantity,
		s.ProductType, s.Direction, s.Inst,
		Deps{Returns: s.returns, Calendar: s.cal, Now: s.now, Logger: s.logger})
	h.Trigger = s.Trigger
	h.LastPrice = s.LastPrice
	return h
}

// Record returns the persisted shape of a holding-variant stage.
func (s *Stage) Record() model.HoldingRecord {
	return model.HoldingRecord{
		Symbol:        s.Inst.Symbol,
		BuyPrice:      s.BuyPrice,
		PositionPrice: s.PositionPrice,
		Quantity:      s.Quantity,
		ProductType:   s.ProductType,
		Direction:     s.Direction,
	}
}

// InvestedAmount is the notional at the reference price, transaction
// cost excluded.
func (s *Stage) InvestedAmount() float64 {
	return s.PositionPrice * math.Abs(float64(s.Quantity))
}

// BusinessDaysHeld counts business days from the instrument's creation
// through now, inclusive. More than one business day puts the trade in
// the delivery duration class.
func (s *Stage) BusinessDaysHeld() int {
	return s.cal.BusinessDays(s.Inst.CreatedAt, s.now())
}

func (s *Stage) transactionCost(buyPrice, sellPrice float64) float64 {
	if s.BusinessDaysHeld() > 1 {
		return costs.Delivery(buyPrice, sellPrice, s.Quantity).TotalTaxAndCharges
	}
	return costs.Intraday(buyPrice, sellPrice, s.Quantity).TotalTaxAndCharges
}

// currentExpectedReturn compounds the daily rate over the days held for
// the delivery class, or is the flat intraday rate.
func (s *Stage) currentExpectedReturn() float64 {
	if days := s.BusinessDaysHeld(); days > 1 {
		return math.Pow(1+s.returns.DeliveryInitial, float64(days)) - 1
	}
	return s.returns.IntradayInitial
}

// incrementalReturn is the per-rung step of the trigger ladder; the only
// constant the two variants disagree on.
func (s *Stage) incrementalReturn() float64 {
	if s.Kind == KindPosition {
		return s.returns.IntradayIncremental
	}
	return s.returns.DeliveryIncremental
}

// SetTrigger finds the highest rung of the return ladder the observed
// price has already cleared and ratchets the trigger onto it. The cost
// basis is the entry-side price plus amortized transaction cost; the
// accumulated wallet profit is amortized off every rung. The trigger
// never regresses.
func (s *Stage) SetTrigger(stockPrice float64) {
	var buyPrice, sellingPrice float64
	if s.Direction == model.DirectionLong {
		buyPrice = s.PositionPrice
		sellingPrice = stockPrice
	} else {
		buyPrice = stockPrice
		sellingPrice = s.PositionPrice
	}

	qty := float64(s.Quantity)
	txPerShare := s.transactionCost(buyPrice, sellingPrice) / qty
	cost := buyPrice + txPerShare
	walletPerShare := s.Inst.Wallet / qty
	expected := s.currentExpectedReturn()
	incremental := s.incrementalReturn()

	// A non-positive basis would make every rung sit below the price and
	// the search diverge.
	if cost <= 0 {
		s.logger.Error("trigger search aborted: non-positive cost basis",
			zap.String("symbol", s.Inst.Symbol), zap.Float64("cost", cost))
		return
	}

	earlier := s.Trigger
	for step := 1; step <= maxTriggerSteps; step++ {
		candidate := cost*(1+expected+float64(step)*incremental) - walletPerShare
		if candidate >= sellingPrice {
			break
		}
		trigger := candidate
		if s.Direction == model.DirectionShort {
			trigger = sellingPrice / candidate
		}
		s.Trigger = &trigger
		if step == maxTriggerSteps {
			s.logger.Error("trigger search hit step bound",
				zap.String("symbol", s.Inst.Symbol), zap.Float64("candidate", candidate))
		}
	}

	if earlier != nil && s.Trigger != nil && *earlier > *s.Trigger {
		s.Trigger = earlier
	}
	if s.Trigger != nil {
		s.logger.Debug("trigger updated",
			zap.String("symbol", s.Inst.Symbol),
			zap.Float64("trigger", *s.Trigger),
			zap.Float64("return", *s.Trigger/(cost-walletPerShare)-1))
	}
}

// Breached evaluates the exit policy for the tick. With a trigger set, a
// LONG stage exits once the last price falls below the hysteresis band
// trigger/(1+incremental/2); before any trigger exists, the bare stop is
// the smoothed indicator dropping under the reference price. When no exit
// fires the trigger is recomputed for the next tick.
//
// A rejected sell order leaves the stage open and unchanged; the next
// tick re-evaluates naturally.
func (s *Stage) Breached(ctx context.Context, gw gateway.Gateway) (bool, error) {
	if latest := s.Inst.LatestPrice; !math.IsNaN(latest) {
		s.LastPrice = latest
	}
	if s.Direction != model.DirectionLong || math.IsNaN(s.LastPrice) {
		return false, nil
	}

	if s.Trigger != nil {
		s.logger.Debug("breach check",
			zap.String("symbol", s.Inst.Symbol),
			zap.Float64("trigger", *s.Trigger),
			zap.Float64("last_price", s.LastPrice))
		if s.LastPrice < *s.Trigger/(1+s.incrementalReturn()/2) {
			return s.sell(ctx, gw)
		}
	} else if !math.IsNaN(s.Inst.LatestIndicator) && s.Inst.LatestIndicator < s.PositionPrice {
		return s.sell(ctx, gw)
	}

	s.SetTrigger(s.LastPrice)
	return false, nil
}

// sell squares off the trade and realizes the cost-adjusted profit into
// the instrument's wallet.
func (s *Stage) sell(ctx context.Context, gw gateway.Gateway) (bool, error) {
	order := gateway.Order{
		Symbol:      s.Inst.Symbol,
		Exchange:    s.Inst.Exchange,
		Side:        model.SideSell,
		Quantity:    s.Quantity,
		ProductType: s.ProductType,
	}
	if _, err := gw.PlaceMarketOrder(ctx, order); err != nil {
		return false, err
	}

	qty := float64(s.Quantity)
	sellPrice := s.Inst.LatestPrice
	txPerShare := s.transactionCost(s.BuyPrice, sellPrice) / qty
	perShare := sellPrice - (s.BuyPrice + txPerShare)
	s.Inst.Wallet += perShare * qty

	s.logger.Info("sold",
		zap.String("symbol", s.Inst.Symbol),
		zap.Float64("price", s.LastPrice),
		zap.Int("quantity", s.Quantity),
		zap.Float64("realized_per_share", perShare),
		zap.Float64("wallet", s.Inst.Wallet))
	return true, nil
}
