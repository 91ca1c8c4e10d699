package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"food-dispatch/internal/common/logger"
	"food-dispatch/internal/common/model"
	"food-dispatch/internal/route/handler/dto"
	"food-dispatch/internal/route/repository"
	"food-dispatch/internal/route/service"
)

type RouteHandler struct {
	service *service.RouteService
}

func NewHandler(s *service.RouteService) *RouteHandler {
	return &RouteHandler{service: s}
}

func (h *RouteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	driverID := r.PathValue("driver_id")
	orderID := r.PathValue("order_id")
	requestID := r.Header.Get("X-Request-ID")
	logger.Info("accept_order", "Driver attempting to accept order", requestID, orderID)

	res, err := h.service.AcceptOrder(r.Context(), driverID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCapacityExceeded):
			http.Error(w, "route is at maximum order capacity", http.StatusConflict)
		case errors.Is(err, model.ErrOrderUnavailable):
			http.Error(w, "order is no longer available", http.StatusConflict)
		case errors.Is(err, model.ErrNotFound):
			http.Error(w, "order not found", http.StatusNotFound)
		default:
			logger.Error("accept_order", "Failed to accept order", requestID, orderID, err.Error())
			http.Error(w, "failed to accept order", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.AcceptResponse{
		RouteID:           res.Route.ID,
		RouteOrderID:      res.RouteOrder.ID,
		SequenceNumber:    res.RouteOrder.SequenceNumber,
		CurrentOrderCount: res.Route.CurrentOrderCount,
		MaxOrders:         res.Route.MaxOrders,
		NewRoute:          res.NewRoute,
		OrderStatus:       string(res.Order.Status),
		PickupTime:        res.Order.PickupTime,
		Message:           "Order added to your route",
	})
}

func (h *RouteHandler) StartDelivery(w http.ResponseWriter, r *http.Request) {
	driverID := r.PathValue("driver_id")
	orderID := r.PathValue("order_id")
	requestID := r.Header.Get("X-Request-ID")

	if err := h.service.StartDelivery(r.Context(), driverID, orderID); err != nil {
		if errors.Is(err, model.ErrOrderUnavailable) {
			http.Error(w, "order is not picked up by this driver", http.StatusConflict)
			return
		}
		logger.Error("start_delivery", "Failed to start delivery", requestID, orderID, err.Error())
		http.Error(w, "failed to start delivery", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"order_id": orderID,
		"status":   string(model.OrderDelivering),
		"message":  "Delivery started",
	})
}

func (h *RouteHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("order_id")
	requestID := r.Header.Get("X-Request-ID")

	var req dto.DeliverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RouteOrderID == "" {
		http.Error(w, "route_order_id is required", http.StatusBadRequest)
		return
	}

	res, err := h.service.CompleteDelivery(r.Context(), req.RouteOrderID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAlreadyDelivered):
			// Second call is a declared no-op, not an error.
			writeJSON(w, http.StatusOK, dto.DeliverResponse{
				OrderStatus: string(model.OrderDelivered),
				Message:     "Order was already delivered",
			})
		case errors.Is(err, model.ErrNotFound):
			http.Error(w, "route order not found", http.StatusNotFound)
		case errors.Is(err, model.ErrOrderUnavailable):
			http.Error(w, "order was cancelled", http.StatusConflict)
		default:
			logger.Error("complete_delivery", "Failed to complete delivery", requestID, orderID, err.Error())
			http.Error(w, "failed to complete delivery", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.DeliverResponse{
		OrderStatus:    string(res.Order.Status),
		DeliveryTime:   res.RouteOrder.DeliveryTime,
		RouteCompleted: res.RouteCompleted,
		Message:        "Delivery completed",
	})
}

func (h *RouteHandler) ActiveRoute(w http.ResponseWriter, r *http.Request) {
	driverID := r.PathValue("driver_id")
	requestID := r.Header.Get("X-Request-ID")

	route, stops, err := h.service.ActiveRoute(r.Context(), driverID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// No active route is a normal state, not an error.
			writeJSON(w, http.StatusOK, map[string]any{
				"route": nil,
				"stops": []repository.RouteStop{},
			})
			return
		}
		logger.Error("active_route", "Failed to load active route", requestID, "", err.Error())
		http.Error(w, "failed to load route", http.StatusInternalServerError)
		return
	}

	if stops == nil {
		stops = []repository.RouteStop{}
	}
	writeJSON(w, http.StatusOK, dto.RouteResponse{Route: *route, Stops: stops})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode_response", "Failed to encode response", "", "", err.Error())
	}
}
