package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"food-dispatch/internal/common/auth"
	"food-dispatch/internal/common/logger"
	"food-dispatch/internal/common/model"
	"food-dispatch/internal/order/service"
)

type OrderHandler struct {
	feed         *service.FeedService
	defaultLimit int
}

func NewHandler(feed *service.FeedService, defaultLimit int) *OrderHandler {
	return &OrderHandler{feed: feed, defaultLimit: defaultLimit}
}

// Available handles GET /drivers/{driver_id}/orders/available.
// Optional query params: limit, lat, lng (when the app sends a fresher
// position than the cached one).
func (h *OrderHandler) Available(w http.ResponseWriter, r *http.Request) {
	driverID := r.PathValue("driver_id")
	requestID := r.Header.Get("X-Request-ID")

	limit := h.defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	var driverLoc *model.LatLng
	latStr, lngStr := r.URL.Query().Get("lat"), r.URL.Query().Get("lng")
	if latStr != "" && lngStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil {
			http.Error(w, "invalid coordinates", http.StatusBadRequest)
			return
		}
		driverLoc = &model.LatLng{Lat: lat, Lng: lng}
	}

	orders, err := h.feed.Available(r.Context(), driverID, driverLoc, limit)
	if err != nil {
		if errors.Is(err, model.ErrGeolocationUnavailable) {
			http.Error(w, "driver location unknown; send lat/lng or go online first", http.StatusConflict)
			return
		}
		logger.Error("available_orders", "Failed to fetch available orders", requestID, "", err.Error())
		http.Error(w, "failed to fetch available orders", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"orders": orders,
		"count":  len(orders),
	}); err != nil {
		logger.Error("available_orders", "Failed to encode response", requestID, "", err.Error())
	}
}

// Detail handles GET /drivers/{driver_id}/orders/{order_id}: the full view
// of one order the driver is considering, distances included.
func (h *OrderHandler) Detail(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("order_id")
	requestID := r.Header.Get("X-Request-ID")

	driverID := r.PathValue("driver_id")
	if claims := auth.FromContext(r); claims != nil {
		driverID = claims.UserID
	}

	order, err := h.feed.Order(r.Context(), driverID, orderID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		logger.Error("order_detail", "Failed to fetch order", requestID, orderID, err.Error())
		http.Error(w, "failed to fetch order", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(order); err != nil {
		logger.Error("order_detail", "Failed to encode response", requestID, orderID, err.Error())
	}
}
