package repository

import (
	"context"
	"fmt"
	"time"

	"food-dispatch/internal/common/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RouteRepository struct {
	db *pgxpool.Pool
}

func NewRouteRepository(db *pgxpool.Pool) *RouteRepository {
	return &RouteRepository{db: db}
}

// AcceptResult is everything the accept transaction produced.
type AcceptResult struct {
	Route      model.DriverRoute
	RouteOrder model.RouteOrder
	Order      model.Order
	NewRoute   bool
}

// CompleteResult reports what a delivery completion did to the route.
type CompleteResult struct {
	Order          model.Order
	RouteOrder     model.RouteOrder
	RouteID        string
	DriverID       string
	RouteCompleted bool
	DeliveredCount int
}

// AcceptOrder runs the whole accept flow in one transaction:
// route row is locked (created if absent), capacity checked, the order
// claimed, and a route_orders row appended with the next sequence number.
// Either everything commits or nothing does; an order can never end up
// assigned without its RouteOrder.
func (r *RouteRepository) AcceptOrder(ctx context.Context, driverID, orderID string, maxOrders int, startLoc *model.LatLng) (*AcceptResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	res := &AcceptResult{}
	route := &res.Route

	// Lock the active route row so concurrent accepts for the same driver
	// serialize here even across processes.
	err = tx.QueryRow(ctx, `
		SELECT id, driver_id, status, max_orders, current_order_count, created_at
		FROM driver_routes
		WHERE driver_id = $1 AND status = 'ACTIVE'
		FOR UPDATE
	`, driverID).Scan(&route.ID, &route.DriverID, &route.Status,
		&route.MaxOrders, &route.CurrentOrderCount, &route.CreatedAt)

	if err != nil {
		if err != pgx.ErrNoRows {
			return nil, fmt.Errorf("failed to load active route: %w", err)
		}

		var startLat, startLng *float64
		if startLoc != nil {
			startLat, startLng = &startLoc.Lat, &startLoc.Lng
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO driver_routes (driver_id, status, max_orders, current_order_count, start_latitude, start_longitude)
			VALUES ($1, 'ACTIVE', $2, 0, $3, $4)
			RETURNING id, driver_id, status, max_orders, current_order_count, created_at
		`, driverID, maxOrders, startLat, startLng).Scan(&route.ID, &route.DriverID, &route.Status,
			&route.MaxOrders, &route.CurrentOrderCount, &route.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create route: %w", err)
		}
		res.NewRoute = true
		route.StartLocation = startLoc
	}

	if route.CurrentOrderCount >= route.MaxOrders {
		// No mutation happened yet for an existing route; the rollback of a
		// freshly created empty route is equally harmless.
		return nil, model.ErrCapacityExceeded
	}

	// Claim the order. The status/driver predicates make the claim lose
	// cleanly when another driver got there first.
	now := time.Now().UTC()
	order := &res.Order
	err = tx.QueryRow(ctx, `
		UPDATE orders
		SET driver_id = $1, status = 'PICKED_UP', pickup_time = $2, updated_at = now()
		WHERE id = $3 AND status = 'READY' AND driver_id IS NULL
		RETURNING id, order_number, customer_id, restaurant_id, driver_id, status,
		          total_amount, delivery_address, created_at, pickup_time
	`, driverID, now, orderID).Scan(&order.ID, &order.OrderNumber, &order.CustomerID,
		&order.RestaurantID, &order.DriverID, &order.Status,
		&order.TotalAmount, &order.DeliveryAddress, &order.CreatedAt, &order.PickupTime)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.ErrOrderUnavailable
		}
		return nil, fmt.Errorf("failed to claim order: %w", err)
	}

	// Sequence numbers follow acceptance order and are never reshuffled.
	var existing int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM route_orders WHERE route_id = $1
	`, route.ID).Scan(&existing); err != nil {
		return nil, fmt.Errorf("failed to count route orders: %w", err)
	}

	ro := &res.RouteOrder
	err = tx.QueryRow(ctx, `
		INSERT INTO route_orders (route_id, order_id, sequence_number, status, pickup_time)
		VALUES ($1, $2, $3, 'PICKED_UP', $4)
		RETURNING id, route_id, order_id, sequence_number, status, pickup_time, created_at
	`, route.ID, orderID, existing+1, now).Scan(&ro.ID, &ro.RouteID, &ro.OrderID,
		&ro.SequenceNumber, &ro.Status, &ro.PickupTime, &ro.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create route order: %w", err)
	}

	err = tx.QueryRow(ctx, `
		UPDATE driver_routes
		SET current_order_count = current_order_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING current_order_count
	`, route.ID).Scan(&route.CurrentOrderCount)
	if err != nil {
		return nil, fmt.Errorf("failed to update route order count: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE drivers
		SET status = 'BUSY', updated_at = now()
		WHERE id = $1
	`, driverID)
	if err != nil {
		return nil, fmt.Errorf("failed to update driver status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit accept transaction: %w", err)
	}

	return res, nil
}

// StartDelivery moves a picked-up order into DELIVERING for its driver.
func (r *RouteRepository) StartDelivery(ctx context.Context, driverID, orderID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = 'DELIVERING', updated_at = now()
		WHERE id = $1 AND driver_id = $2 AND status = 'PICKED_UP'
	`, orderID, driverID)
	if err != nil {
		return fmt.Errorf("failed to start delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderUnavailable
	}
	return nil
}

// CompleteDelivery marks the order and its route order DELIVERED in one
// transaction. current_order_count is deliberately not decremented: route
// capacity is a high-water mark for the route's lifetime. When the last
// route order reaches a terminal state the route itself is completed.
// A repeated call returns ErrAlreadyDelivered without touching timestamps.
func (r *RouteRepository) CompleteDelivery(ctx context.Context, routeOrderID, orderID string) (*CompleteResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	res := &CompleteResult{}
	ro := &res.RouteOrder

	err = tx.QueryRow(ctx, `
		SELECT ro.id, ro.route_id, ro.order_id, ro.sequence_number, ro.status,
		       ro.pickup_time, ro.delivery_time, ro.created_at, rt.driver_id
		FROM route_orders ro
		JOIN driver_routes rt ON rt.id = ro.route_id
		WHERE ro.id = $1 AND ro.order_id = $2
		FOR UPDATE OF ro
	`, routeOrderID, orderID).Scan(&ro.ID, &ro.RouteID, &ro.OrderID, &ro.SequenceNumber,
		&ro.Status, &ro.PickupTime, &ro.DeliveryTime, &ro.CreatedAt, &res.DriverID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load route order: %w", err)
	}
	res.RouteID = ro.RouteID

	if ro.Status == model.RouteOrderDelivered {
		return nil, model.ErrAlreadyDelivered
	}
	if ro.Status == model.RouteOrderCancelled {
		return nil, model.ErrOrderUnavailable
	}

	now := time.Now().UTC()
	order := &res.Order
	err = tx.QueryRow(ctx, `
		UPDATE orders
		SET status = 'DELIVERED', actual_delivery_time = $1, updated_at = now()
		WHERE id = $2 AND status <> 'DELIVERED'
		RETURNING id, order_number, customer_id, restaurant_id, driver_id, status,
		          total_amount, delivery_address, created_at, pickup_time, actual_delivery_time
	`, now, orderID).Scan(&order.ID, &order.OrderNumber, &order.CustomerID,
		&order.RestaurantID, &order.DriverID, &order.Status,
		&order.TotalAmount, &order.DeliveryAddress, &order.CreatedAt,
		&order.PickupTime, &order.ActualDeliveryTime)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.ErrAlreadyDelivered
		}
		return nil, fmt.Errorf("failed to mark order delivered: %w", err)
	}

	err = tx.QueryRow(ctx, `
		UPDATE route_orders
		SET status = 'DELIVERED', delivery_time = $1
		WHERE id = $2
		RETURNING status, delivery_time
	`, now, routeOrderID).Scan(&ro.Status, &ro.DeliveryTime)
	if err != nil {
		return nil, fmt.Errorf("failed to mark route order delivered: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE driver_sessions
		SET deliveries_completed = deliveries_completed + 1
		WHERE id = (
			SELECT id FROM driver_sessions
			WHERE driver_id = $1 AND ended_at IS NULL
			ORDER BY started_at DESC
			LIMIT 1
		)
	`, res.DriverID)
	if err != nil {
		return nil, fmt.Errorf("failed to update session counters: %w", err)
	}

	completed, delivered, err := r.completeRouteIfFinished(ctx, tx, ro.RouteID, res.DriverID)
	if err != nil {
		return nil, err
	}
	res.RouteCompleted = completed
	res.DeliveredCount = delivered

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit delivery transaction: %w", err)
	}

	return res, nil
}

// CancelOrder applies an externally-initiated cancellation to the local
// route view. Orders not attached to a route only get their status synced.
func (r *RouteRepository) CancelOrder(ctx context.Context, orderID, reason string) (*CompleteResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET status = 'CANCELLED', updated_at = now()
		WHERE id = $1 AND status NOT IN ('DELIVERED', 'CANCELLED')
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	res := &CompleteResult{}
	err = tx.QueryRow(ctx, `
		UPDATE route_orders ro
		SET status = 'CANCELLED'
		FROM driver_routes rt
		WHERE ro.order_id = $1 AND ro.status = 'PICKED_UP' AND rt.id = ro.route_id
		RETURNING ro.route_id, rt.driver_id
	`, orderID).Scan(&res.RouteID, &res.DriverID)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Not on any active route; nothing else to unwind.
			if err := tx.Commit(ctx); err != nil {
				return nil, fmt.Errorf("failed to commit cancel transaction: %w", err)
			}
			return res, nil
		}
		return nil, fmt.Errorf("failed to cancel route order: %w", err)
	}

	completed, delivered, err := r.completeRouteIfFinished(ctx, tx, res.RouteID, res.DriverID)
	if err != nil {
		return nil, err
	}
	res.RouteCompleted = completed
	res.DeliveredCount = delivered

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cancel transaction: %w", err)
	}
	return res, nil
}

func (r *RouteRepository) completeRouteIfFinished(ctx context.Context, tx pgx.Tx, routeID, driverID string) (bool, int, error) {
	var open, delivered int
	err := tx.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status NOT IN ('DELIVERED', 'CANCELLED')),
			COUNT(*) FILTER (WHERE status = 'DELIVERED')
		FROM route_orders
		WHERE route_id = $1
	`, routeID).Scan(&open, &delivered)
	if err != nil {
		return false, 0, fmt.Errorf("failed to count open route orders: %w", err)
	}
	if open > 0 {
		return false, delivered, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE driver_routes
		SET status = 'COMPLETED', completed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'ACTIVE'
	`, routeID)
	if err != nil {
		return false, 0, fmt.Errorf("failed to complete route: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE drivers
		SET status = 'AVAILABLE', updated_at = now()
		WHERE id = $1 AND status = 'BUSY'
	`, driverID)
	if err != nil {
		return false, 0, fmt.Errorf("failed to free driver: %w", err)
	}

	return true, delivered, nil
}

// RouteStop is one entry of the driver's current stop list.
type RouteStop struct {
	RouteOrder model.RouteOrder `json:"route_order"`
	Order      model.Order      `json:"order"`
}

// ActiveRoute returns the driver's active route with its stops in sequence
// order, or ErrNotFound when the driver has no active route.
func (r *RouteRepository) ActiveRoute(ctx context.Context, driverID string) (*model.DriverRoute, []RouteStop, error) {
	route := &model.DriverRoute{}
	var (
		startLat, startLng     *float64
		currentLat, currentLng *float64
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, driver_id, status, max_orders, current_order_count,
		       start_latitude, start_longitude, current_latitude, current_longitude,
		       total_distance_km, total_duration_minutes, estimated_completion_time,
		       created_at, completed_at
		FROM driver_routes
		WHERE driver_id = $1 AND status = 'ACTIVE'
	`, driverID).Scan(&route.ID, &route.DriverID, &route.Status,
		&route.MaxOrders, &route.CurrentOrderCount,
		&startLat, &startLng, &currentLat, &currentLng,
		&route.TotalDistanceKm, &route.TotalDurationMinutes, &route.EstimatedCompletionTime,
		&route.CreatedAt, &route.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, model.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to load active route: %w", err)
	}
	if startLat != nil && startLng != nil {
		route.StartLocation = &model.LatLng{Lat: *startLat, Lng: *startLng}
	}
	if currentLat != nil && currentLng != nil {
		route.CurrentLocation = &model.LatLng{Lat: *currentLat, Lng: *currentLng}
	}

	rows, err := r.db.Query(ctx, `
		SELECT ro.id, ro.route_id, ro.order_id, ro.sequence_number, ro.status,
		       ro.pickup_time, ro.delivery_time, ro.created_at,
		       o.id, o.order_number, o.customer_id, o.restaurant_id, o.driver_id,
		       o.status, o.total_amount, o.delivery_address,
		       o.delivery_latitude, o.delivery_longitude,
		       o.created_at, o.pickup_time, o.actual_delivery_time
		FROM route_orders ro
		JOIN orders o ON o.id = ro.order_id
		WHERE ro.route_id = $1
		ORDER BY ro.sequence_number ASC
	`, route.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load route stops: %w", err)
	}
	defer rows.Close()

	var stops []RouteStop
	for rows.Next() {
		var (
			stop                     RouteStop
			deliveryLat, deliveryLng *float64
		)
		if err := rows.Scan(
			&stop.RouteOrder.ID, &stop.RouteOrder.RouteID, &stop.RouteOrder.OrderID,
			&stop.RouteOrder.SequenceNumber, &stop.RouteOrder.Status,
			&stop.RouteOrder.PickupTime, &stop.RouteOrder.DeliveryTime, &stop.RouteOrder.CreatedAt,
			&stop.Order.ID, &stop.Order.OrderNumber, &stop.Order.CustomerID,
			&stop.Order.RestaurantID, &stop.Order.DriverID,
			&stop.Order.Status, &stop.Order.TotalAmount, &stop.Order.DeliveryAddress,
			&deliveryLat, &deliveryLng,
			&stop.Order.CreatedAt, &stop.Order.PickupTime, &stop.Order.ActualDeliveryTime,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan route stop: %w", err)
		}
		if deliveryLat != nil && deliveryLng != nil {
			stop.Order.DeliveryLocation = &model.LatLng{Lat: *deliveryLat, Lng: *deliveryLng}
		}
		stops = append(stops, stop)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read route stops: %w", err)
	}

	return route, stops, nil
}

// UpdateRouteProgress stores the route's rolling position and ETA metrics.
func (r *RouteRepository) UpdateRouteProgress(ctx context.Context, routeID string, current model.LatLng, totalDistanceKm, totalDurationMin float64, eta *time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE driver_routes
		SET current_latitude = $1, current_longitude = $2,
		    total_distance_km = $3, total_duration_minutes = $4,
		    estimated_completion_time = $5, updated_at = now()
		WHERE id = $6 AND status = 'ACTIVE'
	`, current.Lat, current.Lng, totalDistanceKm, totalDurationMin, eta, routeID)
	if err != nil {
		return fmt.Errorf("failed to update route progress: %w", err)
	}
	return nil
}
