package stage

import (
	"context"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"TradeWarden/internal/calendar"
	"TradeWarden/internal/costs"
	"TradeWarden/internal/gateway"
	"TradeWarden/internal/model"
	"TradeWarden/internal/track"
)

var monday = time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC)

func testDeps(now time.Time) Deps {
	return Deps{
		Returns:  DefaultReturns(),
		Calendar: calendar.New(nil),
		Now:      func() time.Time { return now },
		Logger:   zap.NewNop(),
	}
}

func testPosition(now time.Time) *Stage {
	inst := track.NewInstrument("INFY", "NSE", zap.NewNop())
	inst.CreatedAt = now
	return NewPosition(100, 100, 10, model.ProductDelivery, model.DirectionLong, inst, testDeps(now))
}

func TestSetTriggerFindsHighestClearedRung(t *testing.T) {
	s := testPosition(monday)

	s.SetTrigger(110)
	if s.Trigger == nil {
		t.Fatal("no trigger set after a 10% rise")
	}
	if *s.Trigger <= 109.6 || *s.Trigger >= 109.8 {
		t.Errorf("trigger = %v, want just under 110 on the last cleared rung", *s.Trigger)
	}
	if *s.Trigger >= 110 {
		t.Errorf("trigger = %v, must stay below the observed price", *s.Trigger)
	}
}

func TestSetTriggerNeverRegresses(t *testing.T) {
	s := testPosition(monday)

	s.SetTrigger(110)
	high := *s.Trigger

	s.SetTrigger(105)
	if *s.Trigger != high {
		t.Errorf("trigger regressed from %v to %v on a price dip", high, *s.Trigger)
	}

	s.SetTrigger(120)
	if *s.Trigger <= high {
		t.Errorf("trigger = %v, want above %v after a further rise", *s.Trigger, high)
	}
}

func TestSetTriggerStepBoundKeepsLastClearedRung(t *testing.T) {
	inst := track.NewInstrument("INFY", "NSE", zap.NewNop())
	inst.CreatedAt = monday
	deps := testDeps(monday)
	// A vanishing rung step with a doubled price clears every rung up to
	// the bound; the clamp must land on the final rung, not one short.
	deps.Returns.IntradayIncremental = 1e-9
	s := NewPosition(100, 100, 10, model.ProductDelivery, model.DirectionLong, inst, deps)

	s.SetTrigger(200)
	if s.Trigger == nil {
		t.Fatal("no trigger set")
	}
	tx := costs.Intraday(100, 200, 10).TotalTaxAndCharges
	cost := 100 + tx/10
	want := cost * (1 + deps.Returns.IntradayInitial + float64(maxTriggerSteps)*1e-9)
	if math.Abs(*s.Trigger-want) > 1e-9 {
		t.Errorf("trigger = %v, want the final rung %v", *s.Trigger, want)
	}
}

func TestSetTriggerBelowFirstRungLeavesNil(t *testing.T) {
	s := testPosition(monday)
	// At the reference price no rung is cleared yet.
	s.SetTrigger(100)
	if s.Trigger != nil {
		t.Errorf("trigger = %v, want nil before the first rung clears", *s.Trigger)
	}
}

func TestBreachedHysteresis(t *testing.T) {
	gw := gateway.NewMockGateway()
	s := testPosition(monday)
	s.Inst.LatestPrice = 110
	s.SetTrigger(110)
	trigger := *s.Trigger
	band := trigger / (1 + DefaultReturns().IntradayIncremental/2)

	// Inside the band: still open.
	s.Inst.LatestPrice = band + 0.1
	done, err := s.Breached(context.Background(), gw)
	if err != nil || done {
		t.Fatalf("Breached inside band = (%v, %v), want open", done, err)
	}
	if len(gw.Orders) != 0 {
		t.Fatal("order placed without a breach")
	}

	// Below the band: exit fires.
	s.Inst.LatestPrice = 109
	done, err = s.Breached(context.Background(), gw)
	if err != nil {
		t.Fatalf("Breached: %v", err)
	}
	if !done {
		t.Fatal("breach below the band did not close the stage")
	}
	if len(gw.Orders) != 1 || gw.Orders[0].Side != model.SideSell {
		t.Fatalf("orders = %+v, want one sell", gw.Orders)
	}

	// Wallet holds the cost-adjusted realized profit.
	wantWallet := (109 - 100 - 0.087971) * 10
	if math.Abs(s.Inst.Wallet-wantWallet) > 1e-6 {
		t.Errorf("wallet = %v, want %v", s.Inst.Wallet, wantWallet)
	}
}

func TestBreachedIndicatorStopBeforeTrigger(t *testing.T) {
	gw := gateway.NewMockGateway()
	s := testPosition(monday)
	s.Inst.LatestPrice = 99.5
	s.Inst.LatestIndicator = 99

	done, err := s.Breached(context.Background(), gw)
	if err != nil {
		t.Fatalf("Breached: %v", err)
	}
	if !done {
		t.Error("indicator under the reference price must stop out a triggerless stage")
	}
}

func TestBreachedNoStopWhileIndicatorHolds(t *testing.T) {
	gw := gateway.NewMockGateway()
	s := testPosition(monday)
	s.Inst.LatestPrice = 100.5
	s.Inst.LatestIndicator = 101

	done, err := s.Breached(context.Background(), gw)
	if err != nil || done {
		t.Errorf("Breached = (%v, %v), want open", done, err)
	}
	if len(gw.Orders) != 0 {
		t.Error("order placed while the indicator holds")
	}
}

func TestBreachedRejectedOrderLeavesStateUnchanged(t *testing.T) {
	gw := gateway.NewMockGateway()
	gw.FailOrders = true
	s := testPosition(monday)
	trig := 200.0
	s.Trigger = &trig
	s.Inst.LatestPrice = 100

	done, err := s.Breached(context.Background(), gw)
	if err == nil {
		t.Fatal("expected the rejection to surface")
	}
	if done {
		t.Error("rejected order must leave the stage open")
	}
	if s.Trigger != &trig {
		t.Error("trigger changed on a rejected order")
	}
	if s.Inst.Wallet != 0 {
		t.Errorf("wallet = %v, want untouched 0", s.Inst.Wallet)
	}
}

func TestBreachedIgnoresUnobservedPrice(t *testing.T) {
	gw := gateway.NewMockGateway()
	s := testPosition(monday)

	done, err := s.Breached(context.Background(), gw)
	if err != nil || done {
		t.Errorf("Breached = (%v, %v), want no-op before any quote", done, err)
	}
	if s.Trigger != nil {
		t.Error("trigger set without an observed price")
	}
}

func TestBreachedShortDirectionIsInert(t *testing.T) {
	gw := gateway.NewMockGateway()
	inst := track.NewInstrument("INFY", "NSE", zap.NewNop())
	inst.CreatedAt = monday
	inst.LatestPrice = 50
	s := NewPosition(100, 100, 10, model.ProductDelivery, model.DirectionShort, inst, testDeps(monday))

	done, err := s.Breached(context.Background(), gw)
	if err != nil || done {
		t.Errorf("Breached = (%v, %v), shorts are never auto-exited", done, err)
	}
}

func TestPromoteCarriesState(t *testing.T) {
	s := testPosition(monday)
	trig := 109.7
	s.Trigger = &trig
	s.LastPrice = 109.9

	h := s.Promote()
	if h.Kind != KindHolding {
		t.Errorf("Kind = %v, want %v", h.Kind, KindHolding)
	}
	if h.Trigger != &trig || h.LastPrice != 109.9 {
		t.Error("promotion dropped the trigger or last price")
	}
	if got := h.incrementalReturn(); got != DefaultReturns().DeliveryIncremental {
		t.Errorf("incrementalReturn = %v, want the delivery step after promotion", got)
	}
	if got := s.incrementalReturn(); got != DefaultReturns().IntradayIncremental {
		t.Errorf("incrementalReturn = %v, want the intraday step for positions", got)
	}
}

func TestDurationClassification(t *testing.T) {
	wednesday := monday.AddDate(0, 0, 2)
	inst := track.NewInstrument("INFY", "NSE", zap.NewNop())
	inst.CreatedAt = monday
	s := NewHolding(100, 100, 10, model.ProductDelivery, model.DirectionLong, inst, testDeps(wednesday))

	if got := s.BusinessDaysHeld(); got != 3 {
		t.Fatalf("BusinessDaysHeld = %d, want 3", got)
	}
	want := math.Pow(1+DefaultReturns().DeliveryInitial, 3) - 1
	if got := s.currentExpectedReturn(); math.Abs(got-want) > 1e-12 {
		t.Errorf("currentExpectedReturn = %v, want compounded %v", got, want)
	}

	sameDay := NewHolding(100, 100, 10, model.ProductDelivery, model.DirectionLong, inst, testDeps(monday))
	if got := sameDay.currentExpectedReturn(); got != DefaultReturns().IntradayInitial {
		t.Errorf("currentExpectedReturn = %v, want flat intraday rate on day one", got)
	}
}

func TestInvestedAmount(t *testing.T) {
	s := testPosition(monday)
	if got := s.InvestedAmount(); got != 1000 {
		t.Errorf("InvestedAmount = %v, want 1000", got)
	}
}
