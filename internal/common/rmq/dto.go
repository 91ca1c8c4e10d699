package rmq

import (
	"time"
)

// OrderStatusMessage is published on every order status transition and
// consumed by the dispatch service when another party (restaurant, customer
// support) moves an order.
type OrderStatusMessage struct {
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	DriverID      string    `json:"driver_id,omitempty"`
	RouteID       string    `json:"route_id,omitempty"`
	OldStatus     string    `json:"old_status,omitempty"`
	NewStatus     string    `json:"new_status"`
	Reason        string    `json:"reason,omitempty"`
	ChangedAt     time.Time `json:"changed_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationUpdateMessage fans out a driver's latest fix to interested
// consumers (customer tracking views, ETA recalculation).
type LocationUpdateMessage struct {
	DriverID  string    `json:"driver_id"`
	RouteID   string    `json:"route_id,omitempty"`
	Location  LatLng    `json:"location"`
	SpeedKmh  *float64  `json:"speed_kmh,omitempty"`
	Heading   *float64  `json:"heading_degrees,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RouteCompletedMessage notifies that every order on a route reached a
// terminal state and the route was closed.
type RouteCompletedMessage struct {
	RouteID         string    `json:"route_id"`
	DriverID        string    `json:"driver_id"`
	OrdersDelivered int       `json:"orders_delivered"`
	CompletedAt     time.Time `json:"completed_at"`
}
