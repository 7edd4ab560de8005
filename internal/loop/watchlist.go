package loop

import "sync"

// Watchlist is the explicit control object shared between the control
// surface and the session loop: the mutable tracked-symbol set, the
// cooperative cancellation flag, and the termination flag the gateway's
// session-ended sentinel raises. The loop polls it once per tick;
// in-flight ticks always finish.
type Watchlist struct {
	mu         sync.Mutex
	symbols    []string
	cancelled  bool
	terminated bool
}

func NewWatchlist() *Watchlist { return &Watchlist{} }

// Add appends a symbol; returns false if it was already listed.
func (w *Watchlist) Add(symbol string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.symbols {
		if s == symbol {
			return false
		}
	}
	w.symbols = append(w.symbols, symbol)
	return true
}

// Remove drops a symbol; returns false if it was not listed.
func (w *Watchlist) Remove(symbol string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, s := range w.symbols {
		if s == symbol {
			w.symbols = append(w.symbols[:i], w.symbols[i+1:]...)
			return true
		}
	}
	return false
}

// Symbols returns a copy of the current list.
func (w *Watchlist) Symbols() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.symbols))
	copy(out, w.symbols)
	return out
}

// Cancel asks the loop to stop at the next tick boundary.
func (w *Watchlist) Cancel() {
	w.mu.Lock()
	w.cancelled = true
	w.mu.Unlock()
}

func (w *Watchlist) Cancelled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancelled
}

// Terminate records the broker's session-ended sentinel.
func (w *Watchlist) Terminate() {
	w.mu.Lock()
	w.terminated = true
	w.mu.Unlock()
}

func (w *Watchlist) Terminated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.terminated
}

// Reset clears the flags for a fresh session; the symbol set survives.
func (w *Watchlist) Reset() {
	w.mu.Lock()
	w.cancelled = false
	w.terminated = false
	w.mu.Unlock()
}
