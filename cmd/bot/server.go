package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"TradeWarden/internal/gateway"
	"TradeWarden/internal/loop"
	"TradeWarden/internal/store"
)

// sessionRunner serializes session launches: cron and the control
// surface both go through it, and at most one session runs at a time.
type sessionRunner struct {
	newSession func() *loop.Session
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
}

// TryStart launches a session in the background unless one is already
// running.
func (r *sessionRunner) TryStart(ctx context.Context) bool {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return false
	}
	r.running = true
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
		}()
		if err := r.newSession().Run(ctx); err != nil {
			r.logger.Error("session failed", zap.Error(err))
		}
	}()
	return true
}

func (r *sessionRunner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// controlServer is the HTTP surface for managing the watchlist, the
// broker token, and the session lifecycle.
type controlServer struct {
	watch  *loop.Watchlist
	gw     gateway.Gateway
	tokens gateway.TokenSetter
	runner *sessionRunner
	store  store.Store
	ctx    context.Context
	logger *zap.Logger
}

func newControlMux(cs *controlServer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stocks", cs.handleListStocks)
	mux.HandleFunc("POST /api/stocks/add", cs.handleAddStock)
	mux.HandleFunc("POST /api/stocks/remove", cs.handleRemoveStock)
	mux.HandleFunc("POST /api/token", cs.handleSetToken)
	mux.HandleFunc("POST /api/start", cs.handleStart)
	mux.HandleFunc("POST /api/stop", cs.handleStop)
	mux.HandleFunc("GET /api/status", cs.handleStatus)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (cs *controlServer) handleListStocks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"symbols": cs.watch.Symbols()})
}

// handleAddStock validates the symbol against the broker before it
// enters the watchlist, so typos never reach the session loop.
func (cs *controlServer) handleAddStock(w http.ResponseWriter, r *http.Request) {
	symbol := r.FormValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	exchange := r.FormValue("exchange")
	if exchange == "" {
		exchange = "NSE"
	}

	if _, err := cs.gw.LastPrice(r.Context(), exchange, symbol); err != nil &&
		!errors.Is(err, gateway.ErrSessionEnded) {
		cs.logger.Warn("rejected unknown symbol",
			zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusBadRequest, "symbol not quotable: "+symbol)
		return
	}

	if !cs.watch.Add(symbol) {
		writeError(w, http.StatusConflict, "already watching "+symbol)
		return
	}
	cs.logger.Info("symbol added to watchlist", zap.String("symbol", symbol))
	writeJSON(w, http.StatusOK, map[string]string{"added": symbol})
}

func (cs *controlServer) handleRemoveStock(w http.ResponseWriter, r *http.Request) {
	symbol := r.FormValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if !cs.watch.Remove(symbol) {
		writeError(w, http.StatusNotFound, "not watching "+symbol)
		return
	}
	// Pruning is an explicit operator action: the persisted instrument
	// row (and its wallet) goes with the watchlist entry, and a running
	// session drops the symbol at its next tick. A symbol with an open
	// trade keeps being managed until the trade closes.
	if err := cs.store.DeleteInstrument(symbol); err != nil {
		cs.logger.Error("instrument row not deleted",
			zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "unwatched, but the instrument row remains")
		return
	}
	cs.logger.Info("symbol removed from watchlist", zap.String("symbol", symbol))
	writeJSON(w, http.StatusOK, map[string]string{"removed": symbol})
}

func (cs *controlServer) handleSetToken(w http.ResponseWriter, r *http.Request) {
	token := r.FormValue("access_token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "access_token is required")
		return
	}
	cs.tokens.SetAccessToken(token)
	cs.logger.Info("access token replaced")
	writeJSON(w, http.StatusOK, map[string]string{"status": "token set"})
}

func (cs *controlServer) handleStart(w http.ResponseWriter, r *http.Request) {
	if !cs.gw.IsAuthenticated(r.Context()) {
		writeError(w, http.StatusUnauthorized, "broker session not authenticated, set a token first")
		return
	}
	if !cs.runner.TryStart(cs.ctx) {
		writeError(w, http.StatusConflict, "session already running")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "session started"})
}

func (cs *controlServer) handleStop(w http.ResponseWriter, r *http.Request) {
	cs.watch.Cancel()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
}

func (cs *controlServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"running":       cs.runner.Running(),
		"authenticated": cs.gw.IsAuthenticated(r.Context()),
		"symbols":       cs.watch.Symbols(),
	})
}
