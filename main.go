package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intraday-core/internal/api"
	"intraday-core/internal/engine"
	"intraday-core/internal/events"
	"intraday-core/internal/journal"
	"intraday-core/pkg/broker/kite"
	"intraday-core/pkg/config"
	"intraday-core/pkg/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("starting intraday core on port %s (dry run: %v)", cfg.Port, cfg.DryRun)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core services
	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("db migrations failed: %v", err)
	}
	queries := db.NewQueries(database.DB)

	jnl := journal.New(bus, queries)

	// Broker client and instrument master
	broker := kite.NewClient(cfg.KiteAPIKey, cfg.KiteAPISecret, cfg.DryRun)
	if token := os.Getenv("KITE_ACCESS_TOKEN"); token != "" {
		broker.SetAccessToken(token)
		log.Printf("broker session installed from environment")
	}
	instruments := kite.NewInstruments(broker)
	if broker.Connected() {
		loadCtx, loadCancel := context.WithTimeout(ctx, 30*time.Second)
		if err := instruments.Load(loadCtx, cfg.Exchange); err != nil {
			log.Printf("instrument master load failed: %v", err)
		}
		loadCancel()
	}

	source := engine.NewKiteSource(broker, instruments, cfg)
	eng := engine.New(cfg, broker, instruments, source, bus, jnl, queries)

	server := api.NewServer(eng, bus, jnl, queries, broker, instruments, cfg)

	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("http server failed: %v", err)
		}
	}()
	log.Printf("dashboard api listening on :%s", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received %s, shutting down", sig)

	if eng.IsLive() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := eng.StopTrading(stopCtx); err != nil {
			log.Printf("stop trading on shutdown: %v", err)
		}
		stopCancel()
	}
	cancel()
}
