package model

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderPreparing  OrderStatus = "PREPARING"
	OrderReady      OrderStatus = "READY"
	OrderPickedUp   OrderStatus = "PICKED_UP"
	OrderDelivering OrderStatus = "DELIVERING"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

type RouteStatus string

const (
	RouteActive    RouteStatus = "ACTIVE"
	RouteCompleted RouteStatus = "COMPLETED"
	RouteCancelled RouteStatus = "CANCELLED"
)

type RouteOrderStatus string

const (
	RouteOrderPickedUp  RouteOrderStatus = "PICKED_UP"
	RouteOrderDelivered RouteOrderStatus = "DELIVERED"
	RouteOrderCancelled RouteOrderStatus = "CANCELLED"
)

// Terminal reports whether a route order no longer counts toward an
// active route.
func (s RouteOrderStatus) Terminal() bool {
	return s == RouteOrderDelivered || s == RouteOrderCancelled
}

type DriverStatus string

const (
	DriverOffline   DriverStatus = "OFFLINE"
	DriverAvailable DriverStatus = "AVAILABLE"
	DriverBusy      DriverStatus = "BUSY"
)

type OrderEventType string

const (
	EventOrderReady     OrderEventType = "ORDER_READY"
	EventOrderAccepted  OrderEventType = "ORDER_ACCEPTED"
	EventOrderPickedUp  OrderEventType = "ORDER_PICKED_UP"
	EventDeliveryStart  OrderEventType = "DELIVERY_STARTED"
	EventOrderDelivered OrderEventType = "ORDER_DELIVERED"
	EventOrderCancelled OrderEventType = "ORDER_CANCELLED"
	EventRouteCompleted OrderEventType = "ROUTE_COMPLETED"
)
