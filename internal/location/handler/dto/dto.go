package dto

import "food-dispatch/internal/common/model"

type OnlineRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type OnlineResponse struct {
	Status    model.DriverStatus `json:"status"`
	SessionID string             `json:"session_id"`
	Message   string             `json:"message"`
}

type OfflineResponse struct {
	Status         model.DriverStatus `json:"status"`
	SessionID      string             `json:"session_id"`
	SessionSummary SessionSummary     `json:"session_summary"`
	Message        string             `json:"message"`
}

type SessionSummary struct {
	DurationHours       float64 `json:"duration_hours"`
	DeliveriesCompleted int     `json:"deliveries_completed"`
}

type LocationRequest struct {
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	AccuracyMeters *float64 `json:"accuracy_meters,omitempty"`
	SpeedKmh       *float64 `json:"speed_kmh,omitempty"`
	HeadingDegrees *float64 `json:"heading_degrees,omitempty"`
}

type LocationResponse struct {
	DriverID  string `json:"driver_id"`
	UpdatedAt string `json:"updated_at"`
}
