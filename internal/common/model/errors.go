package model

import "errors"

var (
	// ErrCapacityExceeded: the route already holds max_orders accepted
	// orders. User-correctable, never retried automatically.
	ErrCapacityExceeded = errors.New("route is at maximum order capacity")

	// ErrNotFound: route or order absent. For routes this means "no active
	// route" and is usually not fatal.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyDelivered: a repeated CompleteDelivery call; the first
	// delivery stands and timestamps are untouched.
	ErrAlreadyDelivered = errors.New("order already delivered")

	// ErrOrderUnavailable: the order is not READY or was claimed by another
	// driver between fetch and accept.
	ErrOrderUnavailable = errors.New("order is not available for pickup")

	// ErrGeolocationUnavailable: the fix source cannot deliver positions;
	// tracking does not start.
	ErrGeolocationUnavailable = errors.New("geolocation source unavailable")
)
