package model

import (
	"time"
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationFix is one GPS reading pushed by a driver device.
type LocationFix struct {
	DriverID       string    `json:"driver_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters *float64  `json:"accuracy_meters,omitempty"`
	SpeedKmh       *float64  `json:"speed_kmh,omitempty"`
	HeadingDegrees *float64  `json:"heading_degrees,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}

type Order struct {
	ID                 string      `json:"id" db:"id"`
	OrderNumber        string      `json:"order_number" db:"order_number"`
	CustomerID         string      `json:"customer_id" db:"customer_id"`
	RestaurantID       string      `json:"restaurant_id" db:"restaurant_id"`
	DriverID           *string     `json:"driver_id,omitempty" db:"driver_id"`
	Status             OrderStatus `json:"status" db:"status"`
	TotalAmount        float64     `json:"total_amount" db:"total_amount"`
	RestaurantLocation *LatLng     `json:"restaurant_location,omitempty"`
	DeliveryLocation   *LatLng     `json:"delivery_location,omitempty"`
	DeliveryAddress    string      `json:"delivery_address" db:"delivery_address"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	ReadyAt            *time.Time  `json:"ready_at,omitempty" db:"ready_at"`
	PickupTime         *time.Time  `json:"pickup_time,omitempty" db:"pickup_time"`
	ActualDeliveryTime *time.Time  `json:"actual_delivery_time,omitempty" db:"actual_delivery_time"`
}

// AvailableOrder is an Order annotated with distances computed against the
// driver's position at fetch time. Never persisted; recomputed on every fetch.
// A nil distance means the corresponding coordinates are unknown, not zero.
type AvailableOrder struct {
	Order
	RestaurantName         string   `json:"restaurant_name"`
	DistanceToRestaurantKm *float64 `json:"distance_to_restaurant_km,omitempty"`
	DistanceToCustomerKm   *float64 `json:"distance_to_customer_km,omitempty"`
}

// DriverRoute is the single active multi-order route owned by a driver.
// CurrentOrderCount is a high-water mark: it is never decremented when an
// order is delivered, so MaxOrders bounds the total accepted into the route.
type DriverRoute struct {
	ID                      string      `json:"id" db:"id"`
	DriverID                string      `json:"driver_id" db:"driver_id"`
	Status                  RouteStatus `json:"status" db:"status"`
	StartLocation           *LatLng     `json:"start_location,omitempty"`
	CurrentLocation         *LatLng     `json:"current_location,omitempty"`
	MaxOrders               int         `json:"max_orders" db:"max_orders"`
	CurrentOrderCount       int         `json:"current_order_count" db:"current_order_count"`
	TotalDistanceKm         float64     `json:"total_distance_km" db:"total_distance_km"`
	TotalDurationMinutes    float64     `json:"total_duration_minutes" db:"total_duration_minutes"`
	EstimatedCompletionTime *time.Time  `json:"estimated_completion_time,omitempty" db:"estimated_completion_time"`
	CreatedAt               time.Time   `json:"created_at" db:"created_at"`
	CompletedAt             *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
}

// RouteOrder links an order to a route and carries route-local state.
// SequenceNumber is 1-based, assigned in acceptance order, never reshuffled.
type RouteOrder struct {
	ID             string           `json:"id" db:"id"`
	RouteID        string           `json:"route_id" db:"route_id"`
	OrderID        string           `json:"order_id" db:"order_id"`
	SequenceNumber int              `json:"sequence_number" db:"sequence_number"`
	Status         RouteOrderStatus `json:"status" db:"status"`
	PickupTime     *time.Time       `json:"pickup_time,omitempty" db:"pickup_time"`
	DeliveryTime   *time.Time       `json:"delivery_time,omitempty" db:"delivery_time"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}

type DriverSession struct {
	ID                  string     `json:"id" db:"id"`
	DriverID            string     `json:"driver_id" db:"driver_id"`
	StartedAt           time.Time  `json:"started_at" db:"started_at"`
	EndedAt             *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	DeliveriesCompleted int        `json:"deliveries_completed" db:"deliveries_completed"`
}

// NearbyDriver is one hit from the driver geo index.
type NearbyDriver struct {
	DriverID   string  `json:"driver_id"`
	Location   LatLng  `json:"location"`
	DistanceKm float64 `json:"distance_km"`
}

type Message struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
	Data  string `json:"data,omitempty"`
}
