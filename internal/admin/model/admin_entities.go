package model

import "time"

type DispatchOverview struct {
	Timestamp time.Time       `json:"timestamp"`
	Metrics   DispatchMetrics `json:"metrics"`
}

type DispatchMetrics struct {
	DriversOnline        int     `json:"drivers_online"`
	DriversBusy          int     `json:"drivers_busy"`
	ActiveRoutes         int     `json:"active_routes"`
	OrdersAwaitingPickup int     `json:"orders_awaiting_pickup"`
	OrdersInDelivery     int     `json:"orders_in_delivery"`
	DeliveredToday       int     `json:"delivered_today"`
	AvgRouteLoad         float64 `json:"avg_route_load"`
}

type ActiveRouteSummary struct {
	RouteID           string    `json:"route_id"`
	DriverID          string    `json:"driver_id"`
	CurrentOrderCount int       `json:"current_order_count"`
	MaxOrders         int       `json:"max_orders"`
	CreatedAt         time.Time `json:"created_at"`
}
