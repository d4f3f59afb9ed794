package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vincense/orderflow/internal/cart"
	"github.com/vincense/orderflow/internal/checkout"
	"github.com/vincense/orderflow/internal/config"
	"github.com/vincense/orderflow/internal/events"
	"github.com/vincense/orderflow/internal/store"
)

// Storefront serves the shopper flow: cart operations and checkout. Each
// shopper session gets its own cart, keyed by the X-Session-ID header.
type Storefront struct {
	cfg         config.Config
	carts       *cart.Manager
	coordinator *checkout.Coordinator
	orderStore  *store.Postgres
	logger      *logrus.Logger
}

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

	producer, err := events.NewKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create change producer")
	}
	defer producer.Close()

	orderStore := store.NewPostgres(db, producer, logger)

	service := &Storefront{
		cfg:         cfg,
		carts:       cart.NewManager(),
		coordinator: checkout.NewCoordinator(orderStore, cfg.WriteTimeout, logger),
		orderStore:  orderStore,
		logger:      logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", service.HealthCheck).Methods("GET")
	router.HandleFunc("/cart", service.GetCart).Methods("GET")
	router.HandleFunc("/cart", service.ClearCart).Methods("DELETE")
	router.HandleFunc("/cart/items", service.AddItem).Methods("POST")
	router.HandleFunc("/cart/items/{productId}", service.AdjustItem).Methods("PATCH")
	router.HandleFunc("/cart/items/{productId}", service.RemoveItem).Methods("DELETE")
	router.HandleFunc("/checkout", service.Checkout).Methods("POST")

	router.Use(loggingMiddleware(logger))

	srv := &http.Server{
		Addr:         ":" + cfg.StorefrontPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.StorefrontPort).Info("Starting storefront")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down storefront...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Storefront stopped")
}

func (s *Storefront) sessionCart(w http.ResponseWriter, r *http.Request) (*cart.Cart, bool) {
	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		s.respondWithError(w, http.StatusBadRequest, "X-Session-ID header is required")
		return nil, false
	}
	return s.carts.Get(sessionID), true
}

type cartView struct {
	Lines          []cart.Line     `json:"lines"`
	LineCount      int             `json:"line_count"`
	Total          decimal.Decimal `json:"total"`
	FormattedTotal string          `json:"formatted_total"`
}

func (s *Storefront) cartView(c *cart.Cart) cartView {
	summary := c.Summarize()
	return cartView{
		Lines:          c.Lines(),
		LineCount:      summary.LineCount,
		Total:          summary.Total,
		FormattedTotal: s.cfg.CurrencySymbol + summary.Total.StringFixed(2),
	}
}

func (s *Storefront) GetCart(w http.ResponseWriter, r *http.Request) {
	c, ok := s.sessionCart(w, r)
	if !ok {
		return
	}
	s.respondWithJSON(w, http.StatusOK, s.cartView(c))
}

func (s *Storefront) AddItem(w http.ResponseWriter, r *http.Request) {
	c, ok := s.sessionCart(w, r)
	if !ok {
		return
	}

	var product cart.ProductRef
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if product.ID == "" || product.Name == "" {
		s.respondWithError(w, http.StatusBadRequest, "Product id and name are required")
		return
	}

	c.Add(product)
	s.respondWithJSON(w, http.StatusOK, s.cartView(c))
}

func (s *Storefront) AdjustItem(w http.ResponseWriter, r *http.Request) {
	c, ok := s.sessionCart(w, r)
	if !ok {
		return
	}

	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c.AdjustQuantity(mux.Vars(r)["productId"], req.Delta)
	s.respondWithJSON(w, http.StatusOK, s.cartView(c))
}

func (s *Storefront) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, ok := s.sessionCart(w, r)
	if !ok {
		return
	}

	c.Remove(mux.Vars(r)["productId"])
	s.respondWithJSON(w, http.StatusOK, s.cartView(c))
}

func (s *Storefront) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, ok := s.sessionCart(w, r)
	if !ok {
		return
	}

	c.Clear()
	s.respondWithJSON(w, http.StatusOK, s.cartView(c))
}

func (s *Storefront) Checkout(w http.ResponseWriter, r *http.Request) {
	c, ok := s.sessionCart(w, r)
	if !ok {
		return
	}

	var contact checkout.Contact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	orderID, err := s.coordinator.Submit(r.Context(), c, contact)
	if err != nil {
		var validation *checkout.ValidationError
		var partial *checkout.PartialCheckoutFailure
		switch {
		case errors.As(err, &validation):
			s.respondWithError(w, http.StatusBadRequest, validation.Error())
		case errors.As(err, &partial):
			// The shopper sees a generic failure; the orphaned header is
			// already logged for manual reconciliation.
			s.respondWithError(w, http.StatusInternalServerError, "Failed to place order. Please try again.")
		default:
			s.respondWithError(w, http.StatusServiceUnavailable, "Failed to place order. Please try again.")
		}
		return
	}

	s.respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"message":  "Order placed successfully",
		"order_id": orderID,
	})
}

func (s *Storefront) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.orderStore.Ping(r.Context()); err != nil {
		s.respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "unhealthy",
			"service": "storefront",
			"error":   "database connection failed",
		})
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "storefront",
	})
}

func (s *Storefront) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (s *Storefront) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
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
