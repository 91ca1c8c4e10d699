package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"food-dispatch/internal/admin/service"
	"food-dispatch/internal/common/logger"
	"food-dispatch/internal/common/model"
)

type AdminHandler struct {
	service *service.AdminService
}

func NewAdminHandler(service *service.AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

func (h *AdminHandler) GetDispatchOverview(w http.ResponseWriter, r *http.Request) {
	const action = "GetDispatchOverview"
	requestID := r.Header.Get("X-Request-ID")

	overview, err := h.service.GetDispatchOverview(r.Context())
	if err != nil {
		logger.Error(action, "Failed to get dispatch overview", requestID, "", err.Error())
		http.Error(w, "Failed to get dispatch overview", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(overview); err != nil {
		logger.Error(action, "Failed to encode response", requestID, "", err.Error())
		return
	}

	logger.Info(action, "Dispatch overview retrieved successfully", requestID, "")
}

func (h *AdminHandler) GetActiveRoutes(w http.ResponseWriter, r *http.Request) {
	const action = "GetActiveRoutes"
	requestID := r.Header.Get("X-Request-ID")

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	routes, err := h.service.GetActiveRoutes(r.Context(), page, pageSize)
	if err != nil {
		logger.Error(action, "Failed to get active routes", requestID, "", err.Error())
		http.Error(w, "Failed to get active routes", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"routes": routes,
		"count":  len(routes),
	}); err != nil {
		logger.Error(action, "Failed to encode response", requestID, "", err.Error())
	}
}

func (h *AdminHandler) GetNearbyDrivers(w http.ResponseWriter, r *http.Request) {
	const action = "GetNearbyDrivers"
	requestID := r.Header.Get("X-Request-ID")

	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		http.Error(w, "lat and lng are required", http.StatusBadRequest)
		return
	}
	radiusKm, _ := strconv.ParseFloat(q.Get("radius_km"), 64)
	limit, _ := strconv.Atoi(q.Get("limit"))

	drivers, err := h.service.GetNearbyDrivers(r.Context(), model.LatLng{Lat: lat, Lng: lng}, radiusKm, limit)
	if err != nil {
		logger.Error(action, "Failed to search nearby drivers", requestID, "", err.Error())
		http.Error(w, "Failed to search nearby drivers", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"drivers": drivers,
		"count":   len(drivers),
	}); err != nil {
		logger.Error(action, "Failed to encode response", requestID, "", err.Error())
	}
}
