package loop

import "testing"

func TestWatchlistAddRemove(t *testing.T) {
	w := NewWatchlist()

	if !w.Add("INFY") {
		t.Error("first add refused")
	}
	if w.Add("INFY") {
		t.Error("duplicate add accepted")
	}
	w.Add("TCS")

	syms := w.Symbols()
	if len(syms) != 2 || syms[0] != "INFY" || syms[1] != "TCS" {
		t.Errorf("symbols = %v, want [INFY TCS]", syms)
	}

	if !w.Remove("INFY") {
		t.Error("remove of listed symbol refused")
	}
	if w.Remove("INFY") {
		t.Error("remove of absent symbol accepted")
	}
	if syms := w.Symbols(); len(syms) != 1 || syms[0] != "TCS" {
		t.Errorf("symbols = %v, want [TCS]", syms)
	}
}

func TestWatchlistSymbolsReturnsCopy(t *testing.T) {
	w := NewWatchlist()
	w.Add("INFY")
	syms := w.Symbols()
	syms[0] = "MUTATED"
	if w.Symbols()[0] != "INFY" {
		t.Error("Symbols exposed internal storage")
	}
}

func TestWatchlistResetKeepsSymbols(t *testing.T) {
	w := NewWatchlist()
	w.Add("INFY")
	w.Cancel()
	w.Terminate()

	w.Reset()
	if w.Cancelled() || w.Terminated() {
		t.Error("flags survived reset")
	}
	if len(w.Symbols()) != 1 {
		t.Error("symbols did not survive reset")
	}
}
