package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vincense/orderflow/internal/config"
	"github.com/vincense/orderflow/internal/store"
)

// The reconciler watches for the accepted inconsistency of the two-phase
// checkout: order headers whose items write never completed. It only reads
// and reports; fixing an orphan is a manual decision.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		logger.Info("Waiting for database...")
		time.Sleep(2 * time.Second)
	}

	orderStore := store.NewPostgres(db, nil, logger)
	sweeper := store.NewSweeper(orderStore, cfg.SweepInterval, cfg.SweepGrace, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sweeper.Run(ctx)

	logger.WithFields(logrus.Fields{
		"interval": cfg.SweepInterval.String(),
		"grace":    cfg.SweepGrace.String(),
	}).Info("Reconciler started - sweeping for orphaned order headers")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down reconciler...")
}
