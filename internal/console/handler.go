package console

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/vincense/orderflow/internal/lifecycle"
	"github.com/vincense/orderflow/pkg/models"
)

// Handler exposes the console's order list and the transition action.
type Handler struct {
	view   *View
	logger *logrus.Logger
}

func NewHandler(view *View, logger *logrus.Logger) *Handler {
	return &Handler{view: view, logger: logger}
}

func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/orders", h.ListOrders).Methods("GET")
	router.HandleFunc("/orders/{id}", h.GetOrder).Methods("GET")
	router.HandleFunc("/orders/{id}/transition", h.Transition).Methods("POST")
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.view.Orders()
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orders":  orders,
		"count":   len(orders),
	})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	order, ok := h.view.Get(orderID)
	if !ok {
		h.respondWithError(w, http.StatusNotFound, "Order not found")
		return
	}
	h.respondWithJSON(w, http.StatusOK, order)
}

type transitionRequest struct {
	NewStatus       models.Status `json:"new_status"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	CourierName     string        `json:"courier_name,omitempty"`
	TrackingID      string        `json:"tracking_id,omitempty"`
}

// Transition is the console's (orderId, newStatus, optionalPayload) action.
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Error("Failed to decode transition request")
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payload := lifecycle.Payload{
		RejectionReason: req.RejectionReason,
		CourierName:     req.CourierName,
		TrackingID:      req.TrackingID,
	}

	if err := h.view.Transition(r.Context(), orderID, req.NewStatus, payload); err != nil {
		var invalid *lifecycle.InvalidTransitionError
		if errors.As(err, &invalid) {
			h.respondWithError(w, http.StatusUnprocessableEntity, invalid.Error())
			return
		}
		h.logger.WithError(err).WithField("order_id", orderID).Error("Transition failed")
		h.respondWithError(w, http.StatusBadGateway, "Transition write failed: "+err.Error())
		return
	}

	order, _ := h.view.Get(orderID)
	h.respondWithJSON(w, http.StatusOK, models.OrderResponse{
		Success: true,
		Message: "Order transitioned",
		Order:   &order,
	})
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
