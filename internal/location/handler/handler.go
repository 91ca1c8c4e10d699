package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"food-dispatch/internal/common/logger"
	"food-dispatch/internal/common/model"
	"food-dispatch/internal/location/handler/dto"
	"food-dispatch/internal/location/service"
)

type LocationHandler struct {
	tracker *service.TrackerService
}

func NewHandler(tracker *service.TrackerService) *LocationHandler {
	return &LocationHandler{tracker: tracker}
}

func (h *LocationHandler) GoOnline(w http.ResponseWriter, r *http.Request) {
	driverID := r.PathValue("driver_id")
	requestID := r.Header.Get("X-Request-ID")
	logger.Info("go_online", "Driver attempting to go online", requestID, "")

	var req dto.OnlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("go_online", "Invalid request body", requestID, "", err.Error())
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	session, err := h.tracker.GoOnline(r.Context(), driverID, req.Latitude, req.Longitude)
	if err != nil {
		logger.Error("go_online", "Failed to set driver online", requestID, "", err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	logger.Info("go_online", "Driver is now online", requestID, "")
	writeJSON(w, http.StatusOK, dto.OnlineResponse{
		Status:    model.DriverAvailable,
		SessionID: session.ID,
		Message:   "You are now online and ready to accept orders",
	})
}

func (h *LocationHandler) GoOffline(w http.ResponseWriter, r *http.Request) {
	driverID := r.PathValue("driver_id")
	requestID := r.Header.Get("X-Request-ID")
	logger.Info("go_offline", "Driver attempting to go offline", requestID, "")

	session, err := h.tracker.GoOffline(r.Context(), driverID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.Error(w, "no open session", http.StatusNotFound)
			return
		}
		logger.Error("go_offline", "Failed to set driver offline", requestID, "", err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	logger.Info("go_offline", "Driver is now offline", requestID, "")
	writeJSON(w, http.StatusOK, dto.OfflineResponse{
		Status:    model.DriverOffline,
		SessionID: session.ID,
		SessionSummary: dto.SessionSummary{
			DurationHours:       time.Since(session.StartedAt).Hours(),
			DeliveriesCompleted: session.DeliveriesCompleted,
		},
		Message: "You are now offline",
	})
}

func (h *LocationHandler) Location(w http.ResponseWriter, r *http.Request) {
	driverID := r.PathValue("driver_id")
	requestID := r.Header.Get("X-Request-ID")

	var req dto.LocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("location_update", "Invalid request body", requestID, "", err.Error())
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	fix := model.LocationFix{
		DriverID:       driverID,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		AccuracyMeters: req.AccuracyMeters,
		SpeedKmh:       req.SpeedKmh,
		HeadingDegrees: req.HeadingDegrees,
		RecordedAt:     time.Now().UTC(),
	}

	if err := h.tracker.RecordFix(r.Context(), fix); err != nil {
		http.Error(w, "failed to record location", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dto.LocationResponse{
		DriverID:  driverID,
		UpdatedAt: fix.RecordedAt.Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode_response", "Failed to encode response", "", "", err.Error())
	}
}
