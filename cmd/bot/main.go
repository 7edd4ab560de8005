package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"TradeWarden/internal/account"
	"TradeWarden/internal/calendar"
	"TradeWarden/internal/config"
	"TradeWarden/internal/gateway"
	"TradeWarden/internal/loop"
	"TradeWarden/internal/stage"
	"TradeWarden/internal/store"
)

func main() {
	_ = godotenv.Load()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("TradeWarden starting")

	// Init gateway
	httpGW := gateway.NewHTTPGateway(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.AccessToken)
	quoter := gateway.NewRetryQuoter(httpGW, logger)
	logger.Info("gateway ready", zap.String("name", quoter.Name()))

	// Init store
	var st store.Store
	if cfg.Database.SQLitePath != "" {
		ss, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
		if err != nil {
			logger.Warn("sqlite store unavailable, running without persistence", zap.Error(err))
			st = store.NewNoopStore()
		} else {
			st = ss
			defer ss.Close()
		}
	} else {
		st = store.NewNoopStore()
	}

	// Init holiday calendar
	cal, err := calendar.Load(cfg.Holidays.File)
	if err != nil {
		log.Fatalf("load holiday calendar: %v", err)
	}
	if _, err := os.Stat(cfg.Holidays.File); os.IsNotExist(err) {
		logger.Warn("holiday file missing, every weekday counts as a business day",
			zap.String("file", cfg.Holidays.File))
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watch := loop.NewWatchlist()
	deps := stage.Deps{
		Returns: stage.Returns{
			DeliveryInitial:     cfg.Returns.DeliveryInitial,
			DeliveryIncremental: cfg.Returns.DeliveryIncremental,
			IntradayInitial:     cfg.Returns.IntradayInitial,
			IntradayIncremental: cfg.Returns.IntradayIncremental,
		},
		Calendar: cal,
		Logger:   logger,
	}

	runner := &sessionRunner{
		newSession: func() *loop.Session {
			acct := account.New(quoter, st, deps, cfg.Trade.Budget, cfg.Trade.Exchange, logger)
			start, stopBuying, end := cfg.Window(time.Now())
			return loop.NewSession(acct, watch, cfg.Interval(), start, stopBuying, end, logger)
		},
		logger: logger,
	}

	// Daily session launch
	sched := loop.NewScheduler(logger)
	err = sched.RegisterDaily(cfg.Session.Cron, func() {
		if cal.IsHoliday(time.Now()) {
			logger.Info("exchange holiday, skipping session")
			return
		}
		if !runner.TryStart(ctx) {
			logger.Warn("session already running, cron launch skipped")
		}
	})
	if err != nil {
		log.Fatalf("register session cron: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Control surface
	cs := &controlServer{
		watch:  watch,
		gw:     quoter,
		tokens: httpGW,
		runner: runner,
		store:  st,
		ctx:    ctx,
		logger: logger,
	}
	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: newControlMux(cs)}
	go func() {
		logger.Info("control surface listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("control surface failed", zap.Error(err))
		}
	}()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START enabled, launching session now")
		runner.TryStart(ctx)
	}

	logger.Info("TradeWarden is running")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received, stopping")
	watch.Cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	cancel()
	logger.Info("TradeWarden stopped")
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("LOG_MODE") == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
