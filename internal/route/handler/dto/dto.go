package dto

import (
	"time"

	"food-dispatch/internal/common/model"
	"food-dispatch/internal/route/repository"
)

type AcceptResponse struct {
	RouteID           string     `json:"route_id"`
	RouteOrderID      string     `json:"route_order_id"`
	SequenceNumber    int        `json:"sequence_number"`
	CurrentOrderCount int        `json:"current_order_count"`
	MaxOrders         int        `json:"max_orders"`
	NewRoute          bool       `json:"new_route"`
	OrderStatus       string     `json:"order_status"`
	PickupTime        *time.Time `json:"pickup_time,omitempty"`
	Message           string     `json:"message"`
}

type DeliverRequest struct {
	RouteOrderID string `json:"route_order_id"`
}

type DeliverResponse struct {
	OrderStatus    string     `json:"order_status"`
	DeliveryTime   *time.Time `json:"delivery_time,omitempty"`
	RouteCompleted bool       `json:"route_completed"`
	Message        string     `json:"message"`
}

type RouteResponse struct {
	Route model.DriverRoute      `json:"route"`
	Stops []repository.RouteStop `json:"stops"`
}
