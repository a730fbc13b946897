/*
Package main is the entry point for the syncboard relay.

It loads configuration, initializes logging, optionally opens the connection ledger,
starts the hub and the HTTP server, and shuts everything down on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"syncboard/internal/app/db"
	"syncboard/internal/app/relay"
	"syncboard/internal/configs"
	"syncboard/internal/handler"
	"syncboard/internal/pkg/logx"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(logx.Options{Development: cfg.IsDevelopment(), Level: cfg.LogLevel})
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("ws_path", cfg.WSPath).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("ledger", cfg.LedgerEnabled()).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ledger relay.Ledger = relay.NopLedger{}
	if cfg.LedgerEnabled() {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to open connection ledger")
		}
		defer pool.Close()
		ledger = db.NewLedger(pool)
	}

	hub := relay.NewHub()
	go hub.Run()

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     handler.Router(ctx, &handler.AppDeps{Hub: hub, Config: cfg, Ledger: ledger}),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Relay listening on ws://localhost%s%s", server.Addr, cfg.WSPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Hijacked websocket connections are not tracked by Shutdown; stopping the hub closes them.
	hub.Stop()
	<-hub.Done()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	logx.Info("Relay gracefully stopped.")
}
