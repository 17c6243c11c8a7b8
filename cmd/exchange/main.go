package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/cryptex/params"
	"github.com/uhyunpark/cryptex/pkg/api"
	"github.com/uhyunpark/cryptex/pkg/app/core/asset"
	"github.com/uhyunpark/cryptex/pkg/app/exchange"
	"github.com/uhyunpark/cryptex/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer closeLog()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Log.File)

	ex, err := exchange.New(cfg.Exchange, asset.DefaultCatalog, util.RealClock{}, sugar.Named("exchange"))
	if err != nil {
		sugar.Fatalw("exchange_init_failed", "err", err)
	}
	defer ex.Close()

	for _, a := range ex.ListAssets() {
		sugar.Infow("asset_listed", "symbol", a.Symbol, "name", a.Name, "price", a.CurrentPrice.String())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopDrivers := ex.Start(ctx)

	server := api.NewServer(ex, cfg.API, sugar.Named("api"))
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutdown_requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("api_shutdown_failed", "err", err)
	}
	stopDrivers()
	sugar.Infow("exchange_stopped")
}

func newLogger(cfg params.Log) (*zap.Logger, func(), error) {
	if cfg.File == "" {
		logger, err := util.NewLogger(cfg.Debug)
		if err != nil {
			return nil, nil, err
		}
		return logger, func() { _ = logger.Sync() }, nil
	}
	logger, closeFn, err := util.NewLoggerWithFile(cfg.File, cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = closeFn() }, nil
}
