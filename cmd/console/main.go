package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vincense/orderflow/internal/breaker"
	"github.com/vincense/orderflow/internal/config"
	"github.com/vincense/orderflow/internal/console"
	"github.com/vincense/orderflow/internal/events"
	"github.com/vincense/orderflow/internal/store"
	"github.com/vincense/orderflow/internal/websocket"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg := config.Load()

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	waitForDB(db, logger)

	if err := store.EnsureSchema(db); err != nil {
		logger.WithError(err).Fatal("Failed to create tables")
	}

	// Transitions the console writes go back through the same store and
	// notification path as every other write, so every viewer converges,
	// this console included.
	producer, err := events.NewKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create change producer")
	}
	defer producer.Close()

	orderStore := store.NewPostgres(db, producer, logger)

	guard := breaker.New("store-refetch", 5, 30*time.Second, logger)
	view := console.NewView(console.NewGuardedFetcher(orderStore, guard), orderStore, cfg.WriteTimeout, logger)

	hub := websocket.NewHub(logger)
	view.SetBroadcaster(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)

	loadCtx, loadCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := view.Load(loadCtx); err != nil {
		loadCancel()
		logger.WithError(err).Fatal("Failed to load initial order view")
	}
	loadCancel()

	// Each console instance consumes the full change stream, so every
	// instance gets its own consumer group.
	groupID := "console-" + uuid.NewString()
	consumer, err := events.NewKafkaConsumer(cfg.KafkaBrokers, groupID, view, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create change consumer")
	}
	defer consumer.Close()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Error("Change consumer stopped")
		}
	}()

	handler := console.NewHandler(view, logger)

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck(orderStore)).Methods("GET")
	router.HandleFunc("/ws", hub.HandleWebSocket)
	handler.Register(router)

	router.Use(loggingMiddleware(logger))

	srv := &http.Server{
		Addr:         ":" + cfg.ConsolePort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.ConsolePort).Info("Starting console service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down console service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Console service stopped")
}

func healthCheck(orderStore *store.Postgres) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := orderStore.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","service":"console"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"console"}`))
	}
}

func waitForDB(db *sql.DB, logger *logrus.Logger) {
	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			logger.Info("Database connection established")
			return
		}
		logger.Info("Waiting for database...")
		time.Sleep(2 * time.Second)
	}
	logger.Fatal("Database never became ready")
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start).Milliseconds(),
			}).Info("Request completed")
		})
	}
}
