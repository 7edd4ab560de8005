package store

import (
	"path/filepath"
	"testing"
	"time"

	"TradeWarden/internal/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInstrumentRoundTrip(t *testing.T) {
	s := testStore(t)

	rec := model.InstrumentRecord{
		ID:        "id-1",
		Symbol:    "INFY",
		Exchange:  "NSE",
		Wallet:    12.5,
		CreatedAt: time.Date(2026, time.January, 5, 9, 15, 0, 0, time.UTC),
	}
	if err := s.SaveInstrument(rec); err != nil {
		t.Fatalf("SaveInstrument: %v", err)
	}

	got, err := s.FindInstrument("INFY")
	if err != nil {
		t.Fatalf("FindInstrument: %v", err)
	}
	if got == nil {
		t.Fatal("saved instrument not found")
	}
	if got.ID != rec.ID || got.Wallet != rec.Wallet || got.Exchange != rec.Exchange {
		t.Errorf("got %+v, want %+v", got, rec)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}

	if err := s.UpdateInstrumentWallet("INFY", 99.25); err != nil {
		t.Fatalf("UpdateInstrumentWallet: %v", err)
	}
	got, _ = s.FindInstrument("INFY")
	if got.Wallet != 99.25 {
		t.Errorf("Wallet = %v, want 99.25", got.Wallet)
	}

	all, err := s.AllInstruments()
	if err != nil {
		t.Fatalf("AllInstruments: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("AllInstruments = %d rows, want 1", len(all))
	}

	if err := s.DeleteInstrument("INFY"); err != nil {
		t.Fatalf("DeleteInstrument: %v", err)
	}
	got, err = s.FindInstrument("INFY")
	if err != nil || got != nil {
		t.Errorf("after delete: (%v, %v), want (nil, nil)", got, err)
	}
}

func TestFindMissingReturnsNil(t *testing.T) {
	s := testStore(t)

	inst, err := s.FindInstrument("NOPE")
	if err != nil || inst != nil {
		t.Errorf("FindInstrument = (%v, %v), want (nil, nil)", inst, err)
	}
	h, err := s.FindHolding("NOPE")
	if err != nil || h != nil {
		t.Errorf("FindHolding = (%v, %v), want (nil, nil)", h, err)
	}
}

func TestHoldingRoundTrip(t *testing.T) {
	s := testStore(t)

	rec := model.HoldingRecord{
		Symbol:        "INFY",
		BuyPrice:      100.5,
		PositionPrice: 101.25,
		Quantity:      5,
		ProductType:   model.ProductDelivery,
		Direction:     model.DirectionLong,
	}
	if err := s.SaveHolding(rec); err != nil {
		t.Fatalf("SaveHolding: %v", err)
	}

	got, err := s.FindHolding("INFY")
	if err != nil {
		t.Fatalf("FindHolding: %v", err)
	}
	if got == nil {
		t.Fatal("saved holding not found")
	}
	if *got != rec {
		t.Errorf("got %+v, want %+v", *got, rec)
	}

	rec.PositionPrice = 103
	rec.Quantity = 4
	if err := s.UpdateHolding(rec); err != nil {
		t.Fatalf("UpdateHolding: %v", err)
	}
	got, _ = s.FindHolding("INFY")
	if got.PositionPrice != 103 || got.Quantity != 4 {
		t.Errorf("update not applied: %+v", got)
	}

	all, err := s.AllHoldings()
	if err != nil {
		t.Fatalf("AllHoldings: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("AllHoldings = %d rows, want 1", len(all))
	}

	if err := s.DeleteHolding("INFY"); err != nil {
		t.Fatalf("DeleteHolding: %v", err)
	}
	got, err = s.FindHolding("INFY")
	if err != nil || got != nil {
		t.Errorf("after delete: (%v, %v), want (nil, nil)", got, err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s.SaveInstrument(model.InstrumentRecord{
		ID: "id-1", Symbol: "INFY", Exchange: "NSE", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.FindInstrument("INFY")
	if err != nil || got == nil {
		t.Errorf("data lost across reopen: (%v, %v)", got, err)
	}
}
