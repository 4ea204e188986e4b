package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/budget-tracker/internal/api"
	"github.com/dvloznov/budget-tracker/internal/config"
	"github.com/dvloznov/budget-tracker/internal/engine"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/state"
	"github.com/dvloznov/budget-tracker/internal/store/bolt"
)

func main() {
	var (
		port   = flag.String("port", "", "HTTP server port (overrides PORT env)")
		dbPath = flag.String("db", "", "Path to the bbolt database (overrides BUDGET_DB_PATH env)")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Loading configuration failed")
	}
	if *port != "" {
		cfg.HTTP.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	rates, err := config.LoadRates(cfg.RatesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Loading exchange rates failed")
	}

	st, err := bolt.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Opening database failed")
	}
	defer st.Close()

	ctx := logger.WithContext(context.Background(), log)

	e := engine.New(st, state.New(), log)
	if err := e.RunSession(ctx, cfg.UserID, rates); err != nil {
		log.Fatal().Err(err).Msg("Session startup failed")
	}

	handler := api.NewRouter(e, api.Options{
		Rates:        rates,
		BaseCurrency: cfg.BaseCurrency,
		UserID:       cfg.UserID,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTP.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
